package classifier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mr1hm/go-radar-alerts/internal/config"
	"github.com/mr1hm/go-radar-alerts/internal/models"
	"github.com/mr1hm/go-radar-alerts/internal/observability"
)

// SafeDefault is the answer used when every attempt failed: all clear,
// nationwide, every hazard type.
func SafeDefault(wildcard models.Region) string {
	return string(models.SeverityClear) + "/" + string(wildcard) + "/" + string(models.HazardAll)
}

// Classifier tries its attempts in order and returns the first answer.
type Classifier struct {
	attempts    []Attempt
	safeDefault string
	metrics     *observability.Metrics
}

func New(wildcard models.Region, metrics *observability.Metrics, attempts ...Attempt) *Classifier {
	return &Classifier{
		attempts:    attempts,
		safeDefault: SafeDefault(wildcard),
		metrics:     metrics,
	}
}

// Classify never fails. Total failure degrades to the safe default answer.
func (c *Classifier) Classify(ctx context.Context, text, source string) string {
	for _, a := range c.attempts {
		answer, err := a.Classify(ctx, text, source)
		if err == nil {
			c.metrics.OracleAttempts.WithLabelValues(a.Name(), "success").Inc()
			slog.Info("oracle answered", "backend", a.Name(), "source", source, "answer", answer)
			return answer
		}

		reason := ReasonOther
		var attemptErr *AttemptError
		if errors.As(err, &attemptErr) {
			reason = attemptErr.Reason
		}
		c.metrics.OracleAttempts.WithLabelValues(a.Name(), string(reason)).Inc()
		slog.Error("oracle attempt failed", "backend", a.Name(), "source", source, "reason", reason, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	c.metrics.OracleDefaults.Inc()
	slog.Warn("oracle unavailable, using safe default", "source", source, "answer", c.safeDefault)
	return c.safeDefault
}

type RegionList interface {
	Wildcard() models.Region
	Regions() []models.Region
}

// FromConfig builds the primary attempt and the OpenAI compatible fallback.
// Backends without an API key are skipped.
func FromConfig(cfg config.OracleConfig, regions RegionList, metrics *observability.Metrics) *Classifier {
	prompts := NewPromptBuilder(regions.Regions(), regions.Wildcard())

	var attempts []Attempt
	if cfg.APIKey != "" {
		attempts = append(attempts, NewChatAttempt(ChatConfig{
			Name:    "primary",
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, prompts))
	}
	if cfg.FallbackAPIKey != "" {
		attempts = append(attempts, NewChatAttempt(ChatConfig{
			Name:              "fallback",
			APIKey:            cfg.FallbackAPIKey,
			BaseURL:           cfg.FallbackBaseURL,
			Model:             cfg.FallbackModel,
			Timeout:           cfg.Timeout,
			InlineInstruction: true,
		}, prompts))
	}
	if len(attempts) == 0 {
		slog.Warn("no oracle backend configured, every message classifies as the safe default")
	}

	return New(regions.Wildcard(), metrics, attempts...)
}
