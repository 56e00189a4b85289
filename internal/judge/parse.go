package judge

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Models wrap JSON in code fences or prose more often than not. These
// pre-compiled patterns strip the wrapping before the strict parse.
var (
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
	objectRegex    = regexp.MustCompile(`(?s)\{.*\}`)
)

// parseEnrichment extracts an Enrichment from raw model output. Strategy:
// direct parse, then the contents of a code fence, then the outermost JSON
// object found anywhere in the text. Schema validation happens after
// decoding; anything that fails both decode and validation is malformed.
func parseEnrichment(text string) (*Enrichment, error) {
	attempts := []string{text}
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		attempts = append(attempts, m[1])
	}
	if m := objectRegex.FindString(text); m != "" {
		attempts = append(attempts, m)
	}

	var lastErr error
	for _, attempt := range attempts {
		var e Enrichment
		if err := json.Unmarshal([]byte(attempt), &e); err != nil {
			lastErr = err
			continue
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return &e, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, lastErr)
}
