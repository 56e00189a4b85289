package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenet-io/tenet/internal/types"
)

func TestParseFact(t *testing.T) {
	tests := []struct {
		line       string
		category   types.Category
		key        string
		value      string
		confidence float64
	}{
		{"tech_stack database = PostgreSQL", types.CategoryTechStack, "database", "PostgreSQL", 0.8},
		{"goals market_scope_expansion = national @0.95", types.CategoryGoals, "market_scope_expansion", "national", 0.95},
		{`timeline deadline = "2 weeks"`, types.CategoryTimeline, "deadline", "2 weeks", 0.8},
		{"resources team_size = 2 @1", types.CategoryResources, "team_size", "2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c, err := ParseFact(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.category, c.Category)
			assert.Equal(t, tt.key, c.Key)
			assert.Equal(t, tt.value, c.Value)
			assert.Equal(t, tt.confidence, c.Confidence)
			assert.Equal(t, types.SourceDirectChat, c.Source)
		})
	}
}

func TestParseFactErrors(t *testing.T) {
	for _, line := range []string{
		"no equals sign here",
		"toomany words before = value",
		"tech_stack database =",
		"tech_stack database = PostgreSQL @fast",
	} {
		_, err := ParseFact(line)
		assert.Error(t, err, "line: %s", line)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}
