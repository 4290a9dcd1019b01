package notify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/mr1hm/go-radar-alerts/internal/models"
	"github.com/mr1hm/go-radar-alerts/internal/observability"
)

// Publisher receives every accepted transition regardless of subscribers.
type Publisher interface {
	Publish(ctx context.Context, t models.Transition) error
}

type Subscribers interface {
	UsersByRegion(ctx context.Context, region models.Region) ([]int64, error)
}

type FanOutConfig struct {
	Pause           time.Duration // minimum gap between two deliveries
	DeliveryTimeout time.Duration
}

type FanOut struct {
	subscribers Subscribers
	sender      Sender
	publishers  []Publisher
	limiter     *rate.Limiter
	timeout     time.Duration
	metrics     *observability.Metrics
}

func NewFanOut(subs Subscribers, sender Sender, cfg FanOutConfig, metrics *observability.Metrics, publishers ...Publisher) *FanOut {
	limit := rate.Inf
	if cfg.Pause > 0 {
		limit = rate.Every(cfg.Pause)
	}
	return &FanOut{
		subscribers: subs,
		sender:      sender,
		publishers:  publishers,
		limiter:     rate.NewLimiter(limit, 1),
		timeout:     cfg.DeliveryTimeout,
		metrics:     metrics,
	}
}

// Notify publishes the transition, then delivers it to every subscriber of
// its region. Delivery failures are contained per subscriber.
func (f *FanOut) Notify(ctx context.Context, t models.Transition) error {
	for _, p := range f.publishers {
		if err := p.Publish(ctx, t); err != nil {
			slog.Error("failed to publish transition", "region", t.Region, "hazard", t.HazardType, "error", err)
		}
	}

	users, err := f.subscribers.UsersByRegion(ctx, t.Region)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		slog.Debug("no subscribers", "region", t.Region)
		return nil
	}

	delivered, failed, err := f.Deliver(ctx, users, Render(t), true)
	slog.Info("transition delivered",
		"region", t.Region,
		"hazard", t.HazardType,
		"severity", t.Severity,
		"delivered", delivered,
		"failed", failed,
	)
	return err
}

// Deliver sends text to each user, paced by the outbound rate limit.
// It stops early only when ctx is done before the next delivery slot.
func (f *FanOut) Deliver(ctx context.Context, users []int64, text string, mapButton bool) (delivered, failed int, err error) {
	for _, id := range users {
		if err := f.limiter.Wait(ctx); err != nil {
			return delivered, failed, err
		}

		if err := f.send(ctx, Message{ChatID: id, Text: text, MapButton: mapButton}); err != nil {
			failed++
			f.metrics.Deliveries.WithLabelValues("error").Inc()
			slog.Error("failed to deliver notification", "user_id", id, "error", err)
			continue
		}
		delivered++
		f.metrics.Deliveries.WithLabelValues("success").Inc()
	}
	return delivered, failed, nil
}

// SendOne delivers a single message outside of the fan-out pacing.
func (f *FanOut) SendOne(ctx context.Context, userID int64, text string) error {
	return f.send(ctx, Message{ChatID: userID, Text: text})
}

func (f *FanOut) send(ctx context.Context, msg Message) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return f.sender.Send(ctx, msg)
}
