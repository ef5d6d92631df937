package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/brigade/internal/metrics"
	"github.com/abhisek/brigade/internal/store"
)

// RequestRecorder persists provider calls. *store.LLMEventRepo implements it.
type RequestRecorder interface {
	AppendLLMRequest(ctx context.Context, e store.LLMRequest) error
}

// LoggingProvider is a decorator that records every LLM request in the
// audit log and in Prometheus.
type LoggingProvider struct {
	inner    Provider
	provider string
	recorder RequestRecorder
	logger   *slog.Logger
}

// WithLogging wraps a Provider with audit logging. A nil recorder only
// updates metrics.
func WithLogging(p Provider, providerName string, recorder RequestRecorder, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, provider: providerName, recorder: recorder, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	elapsed := time.Since(start)
	metrics.LLMRequests.WithLabelValues(purpose, metrics.Outcome(err == nil)).Inc()
	metrics.LLMDuration.WithLabelValues(purpose).Observe(elapsed.Seconds())

	e := store.LLMRequest{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   elapsed.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		e.InputTokens = resp.Usage.InputTokens
		e.OutputTokens = resp.Usage.OutputTokens
		e.Model = resp.Model
		e.ResponseBody = string(resp.Content)
		metrics.LLMTokens.WithLabelValues(purpose, "input").Add(float64(resp.Usage.InputTokens))
		metrics.LLMTokens.WithLabelValues(purpose, "output").Add(float64(resp.Usage.OutputTokens))
	}
	if err != nil {
		e.ErrorMessage = err.Error()
		l.logger.Warn("llm request failed", "purpose", purpose, "model", e.Model, "err", err)
	}

	// The audit write must not fail the request, and must survive a caller
	// that has already given up.
	if l.recorder != nil {
		if logErr := l.recorder.AppendLLMRequest(context.WithoutCancel(ctx), e); logErr != nil {
			l.logger.Warn("failed to log LLM request event", "err", logErr)
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}

	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}

	return b.String()
}
