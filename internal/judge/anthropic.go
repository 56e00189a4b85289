package judge

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tenet-io/tenet/internal/rules"
	"github.com/tenet-io/tenet/internal/types"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultModel is the model used for conflict enrichment. Enrichment is a
// short single-turn task, so the cost-efficient tier is the default.
const DefaultModel = "claude-3-5-haiku-20241022"

// Config holds anthropic judge configuration
type Config struct {
	APIKey string // if empty, reads from ANTHROPIC_API_KEY env var
	Model  string // default: DefaultModel

	// Timeout bounds one enrichment call end to end, retries included.
	// Exceeding it is recoverable: the caller falls back to the template.
	// Default: 5s.
	Timeout time.Duration

	MaxRetries     int     // default: 2
	InitialBackoff time.Duration // default: 250ms
	MaxConcurrent  int     // concurrent API calls, default: 3
	RequestsPerSec float64 // rate limit, default: 2

	// Circuit breaker: after FailureThreshold consecutive failed calls the
	// backend is not attempted for OpenTimeout; SuccessThreshold probe
	// successes close the circuit again. Defaults: 5, 2, 30s.
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// AnthropicJudge enriches conflicts via the Anthropic API
type AnthropicJudge struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration

	maxRetries     int
	initialBackoff time.Duration
	sem            *semaphore.Weighted
	limiter        *rate.Limiter
	breaker        *CircuitBreaker
}

// NewAnthropicJudge creates the API-backed judge
func NewAnthropicJudge(cfg *Config) (*AnthropicJudge, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	failureThreshold := cfg.FailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	successThreshold := cfg.SuccessThreshold
	if successThreshold <= 0 {
		successThreshold = 2
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicJudge{
		client:         &client,
		model:          model,
		timeout:        timeout,
		maxRetries:     maxRetries,
		initialBackoff: backoff,
		sem:            semaphore.NewWeighted(int64(maxConcurrent)),
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		breaker:        NewCircuitBreaker(failureThreshold, successThreshold, openTimeout),
	}, nil
}

// Enrich implements Judge. The whole call is bounded by the configured
// timeout; any failure mode (timeout, API error, malformed response) is
// returned as an error for the caller to degrade on.
func (j *AnthropicJudge) Enrich(ctx context.Context, cand rules.Candidate, specs []*types.Specification) (*Enrichment, error) {
	// Fail fast while the circuit is open: a persistently failing backend
	// must not cost every conflict the full retry budget.
	if err := j.breaker.Allow(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if err := j.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire judge slot: %w", err)
	}
	defer j.sem.Release(1)

	if err := j.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	prompt := buildEnrichmentPrompt(cand, specs)

	var response *anthropic.Message
	var lastErr error
	backoff := j.initialBackoff
	for attempt := 0; attempt <= j.maxRetries; attempt++ {
		resp, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(j.model),
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err == nil {
			response = resp
			break
		}
		lastErr = err
		if ctx.Err() != nil {
			j.breaker.RecordFailure()
			return nil, fmt.Errorf("enrichment timed out: %w", ctx.Err())
		}
		if attempt == j.maxRetries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			j.breaker.RecordFailure()
			return nil, fmt.Errorf("enrichment timed out: %w", ctx.Err())
		}
		backoff *= 2
	}
	if response == nil {
		j.breaker.RecordFailure()
		return nil, fmt.Errorf("anthropic API call failed: %w", lastErr)
	}
	// The backend answered; schema problems past this point are not a
	// backend health signal.
	j.breaker.RecordSuccess()

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return parseEnrichment(text.String())
}

// buildEnrichmentPrompt renders the candidate and its referenced specs into
// a single-turn prompt demanding the strict response schema.
func buildEnrichmentPrompt(cand rules.Candidate, specs []*types.Specification) string {
	var b strings.Builder
	b.WriteString("You are reviewing a conflict between project requirement facts.\n")
	b.WriteString("A deterministic rule already decided this conflict exists. Your job is\n")
	b.WriteString("only to explain it well and rank the ways out.\n\n")

	fmt.Fprintf(&b, "Conflict type: %s (severity %s)\n", cand.Type, cand.Severity)
	fmt.Fprintf(&b, "Rule finding: %s\n\n", cand.Description)

	b.WriteString("Facts involved:\n")
	for _, s := range specs {
		fmt.Fprintf(&b, "- [%s] %s = %q (confidence %.2f)\n", s.Category, s.Key, s.Value, s.Confidence)
	}

	b.WriteString("\nKnown resolution options (keep these labels if you agree with them):\n")
	for _, opt := range cand.Options {
		fmt.Fprintf(&b, "- %s (score %.2f)\n", opt.Label, opt.Score)
	}

	b.WriteString(`
Respond with ONLY a JSON object in exactly this shape:
{
  "description": "one paragraph explaining the conflict in plain language",
  "impact": ["specific consequence", "..."],
  "solution_options": [
    {"label": "...", "pros": ["..."], "cons": ["..."], "score": 0.0}
  ]
}
Scores must be in [0,1], highest for the option you recommend.
`)
	return b.String()
}

var _ Judge = (*AnthropicJudge)(nil)
