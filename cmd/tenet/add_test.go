package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenet-io/tenet/internal/types"
)

func writeBatch(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "specs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadBatchFile(t *testing.T) {
	addConfidence = 0.8
	addSource = "import"

	path := writeBatch(t, `
specs:
  - category: tech_stack
    key: database
    value: PostgreSQL
    confidence: 0.95
  - category: goals
    key: scope
    value: national
`)
	candidates, err := readBatchFile(path)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, types.CategoryTechStack, candidates[0].Category)
	assert.Equal(t, 0.95, candidates[0].Confidence)
	assert.Equal(t, types.SourceImport, candidates[0].Source)

	// omitted confidence falls back to the flag default
	assert.Equal(t, 0.8, candidates[1].Confidence)
}

func TestReadBatchFileExplicitZeroConfidence(t *testing.T) {
	addConfidence = 0.8

	path := writeBatch(t, `
specs:
  - category: goals
    key: scope
    value: unverified rumor
    confidence: 0
`)
	candidates, err := readBatchFile(path)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Zero(t, candidates[0].Confidence, "an explicit 0 must not be coerced to the default")
}

func TestReadBatchFileErrors(t *testing.T) {
	_, err := readBatchFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := writeBatch(t, "specs: []\n")
	_, err = readBatchFile(empty)
	assert.Error(t, err)

	malformed := writeBatch(t, "specs: [unclosed\n")
	_, err = readBatchFile(malformed)
	assert.Error(t, err)
}

func TestCollectCandidatesFromArgs(t *testing.T) {
	addFile = ""
	addConfidence = 0.6
	addSource = "direct_chat"

	candidates, err := collectCandidates([]string{"tech_stack", "database=SQLite", "frontend=React"})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "database", candidates[0].Key)
	assert.Equal(t, "SQLite", candidates[0].Value)
	assert.Equal(t, 0.6, candidates[0].Confidence)

	_, err = collectCandidates([]string{"tech_stack", "no-equals-here"})
	assert.Error(t, err)
}
