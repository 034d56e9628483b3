package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"

	"github.com/spec-kit/helpdesk/internal/config"
)

// ErrNotConfigured is returned when no gateway credential is set.
var ErrNotConfigured = errors.New("llm api key is not configured")

// ErrThrottled is returned when the local limiter refuses a call.
var ErrThrottled = errors.New("llm request throttled")

// Completer turns a system instruction and a user message into reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// UpstreamError carries the HTTP status the gateway answered with.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm gateway returned %d: %v", e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// LangchainCompleter calls an OpenAI compatible chat-completions gateway.
type LangchainCompleter struct {
	llm         llms.Model
	limiter     *rate.Limiter
	temperature float64
	maxTokens   int
}

// NewLangchainCompleter builds a completer from config. With no API key it returns a
// completer that always fails with ErrNotConfigured so the service can still start.
func NewLangchainCompleter(cfg config.LLMConfig, httpClient *http.Client) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return unconfigured{}, nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	llm, err := openai.New(
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(strings.TrimRight(cfg.GatewayURL, "/")),
		openai.WithHTTPClient(&statusDoer{client: httpClient}),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &LangchainCompleter{
		llm:         llm,
		limiter:     limiter,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete sends one system and one human message and returns the first choice.
func (c *LangchainCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return "", ErrThrottled
	}

	rec := &statusRecorder{}
	ctx = context.WithValue(ctx, statusKey{}, rec)

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}
	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	if errors.Is(err, openai.ErrEmptyResponse) {
		return "", nil
	}
	if err != nil {
		if rec.status != 0 && rec.status >= http.StatusBadRequest {
			return "", &UpstreamError{StatusCode: rec.status, Err: err}
		}
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

type statusKey struct{}

type statusRecorder struct {
	status int
}

// statusDoer records the gateway's response status into the recorder carried by the request
// context so failures can be classified by code.
type statusDoer struct {
	client *http.Client
}

func (d *statusDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if rec, ok := req.Context().Value(statusKey{}).(*statusRecorder); ok {
		rec.status = resp.StatusCode
	}
	return resp, nil
}

type unconfigured struct{}

func (unconfigured) Complete(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}
