package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Failure tags attached to escalated replies.
const (
	FailureNone                = ""
	FailureRateLimited         = "rate_limited"
	FailureQuotaExhausted      = "quota_exhausted"
	FailureUpstreamUnavailable = "upstream_unavailable"
)

// DefaultReply is used when the gateway answers without any content.
const DefaultReply = "I apologize, but I encountered an issue. Let me create a ticket for you."

// Reply is the outcome of one generation.
type Reply struct {
	Text           string
	ShouldEscalate bool
	Failure        string
}

// Transient reports whether the failure may clear on retry.
func (r Reply) Transient() bool {
	return r.Failure == FailureRateLimited || r.Failure == FailureUpstreamUnavailable
}

// Generator grounds user messages in the knowledge base and asks the completer for a reply.
type Generator struct {
	completer Completer
	logger    *zap.Logger
}

func NewGenerator(completer Completer, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{completer: completer, logger: logger}
}

// Generate returns a reply or an escalation signal. Only configuration problems come back as
// an error; every other upstream failure is folded into the Reply.
func (g *Generator) Generate(ctx context.Context, message string, kb []domain.KnowledgeEntry) (Reply, error) {
	text, err := g.completer.Complete(ctx, SystemPrompt(kb), message)
	if err == nil {
		if strings.TrimSpace(text) == "" {
			text = DefaultReply
		}
		return Reply{Text: text}, nil
	}

	status := 0
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		status = upstream.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotConfigured):
		g.logger.Error("assistant not configured", zap.Error(err))
		return Reply{}, apperrors.NewConfigurationError("llm api key is not configured", err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		g.logger.Error("llm gateway rejected credential", zap.Int("status", status), zap.Error(err))
		return Reply{}, apperrors.NewConfigurationError("llm gateway rejected credential", err)
	case errors.Is(err, ErrThrottled) || status == http.StatusTooManyRequests:
		g.logger.Warn("llm rate limited", zap.Int("status", status), zap.Error(err))
		return Reply{ShouldEscalate: true, Failure: FailureRateLimited}, nil
	case status == http.StatusPaymentRequired:
		g.logger.Error("llm quota exhausted", zap.String("tag", FailureQuotaExhausted), zap.Error(err))
		return Reply{ShouldEscalate: true, Failure: FailureQuotaExhausted}, nil
	default:
		g.logger.Warn("llm upstream failure", zap.Int("status", status), zap.Error(err))
		return Reply{ShouldEscalate: true, Failure: FailureUpstreamUnavailable}, nil
	}
}
