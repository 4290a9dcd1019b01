package ingestion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-radar-alerts/internal/config"
	"github.com/mr1hm/go-radar-alerts/internal/observability"
	"github.com/mr1hm/go-radar-alerts/internal/pipeline"
	"github.com/mr1hm/go-radar-alerts/internal/worker"
)

type Processor interface {
	Process(ctx context.Context, in pipeline.Input) (pipeline.Result, error)
}

// Manager polls every channel on a fixed interval and feeds new messages to
// the processing pool.
type Manager struct {
	cfg       *config.Config
	channels  []string
	feed      Feed
	processor Processor
	seen      *LastSeen
	metrics   *observability.Metrics
	pool      *worker.WorkerPool[pipeline.Input]
	wg        sync.WaitGroup
}

func NewManager(cfg *config.Config, channels []string, feed Feed, processor Processor, metrics *observability.Metrics) *Manager {
	return &Manager{
		cfg:       cfg,
		channels:  channels,
		feed:      feed,
		processor: processor,
		seen:      NewLastSeen(),
		metrics:   metrics,
	}
}

func (m *Manager) Start(ctx context.Context) {
	process := func(ctx context.Context, in pipeline.Input) error {
		res, err := m.processor.Process(ctx, in)
		if err != nil {
			return err
		}
		slog.Debug("message processed", "source", in.Source, "facts", res.Facts, "transitions", len(res.Transitions))
		return nil
	}

	// one channel's messages stay on one worker so they apply in order
	bySource := func(in pipeline.Input) string { return in.Source }
	m.pool = worker.NewKeyedWorkerPool("ingestion", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, bySource, process)
	m.pool.Start(ctx)

	if len(m.channels) == 0 {
		slog.Warn("no feed channels configured, poller disabled")
		return
	}

	m.wg.Add(1)
	go m.runPoller(ctx, m.cfg.Feed.PollInterval)
}

func (m *Manager) runPoller(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()
	slog.Info("starting poller", "channels", len(m.channels), "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial poll
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller shutting down")
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll fetches all channels in parallel. A failing channel never stops the
// others or the loop.
func (m *Manager) poll(ctx context.Context) {
	slog.Debug("polling", "channels", len(m.channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Feed.FetchConcurrency)

	for _, channel := range m.channels {
		channel := channel
		g.Go(func() error {
			m.pollChannel(gctx, channel)
			return nil
		})
	}
	g.Wait()
}

func (m *Manager) pollChannel(ctx context.Context, channel string) {
	text, ok, err := m.feed.LastMessage(ctx, channel)
	if err != nil {
		m.metrics.FeedErrors.WithLabelValues(channel).Inc()
		slog.Error("poll failed", "source", channel, "error", err)
		return
	}
	if !ok || !m.seen.Update(channel, text) {
		return
	}

	m.metrics.MessagesPolled.WithLabelValues(channel).Inc()
	slog.Info("new message", "source", channel, "preview", preview(text, 100))

	if err := m.pool.Submit(ctx, pipeline.Input{Source: channel, Text: text}); err != nil {
		slog.Warn("message not queued", "source", channel, "error", err)
	}
}

// Channels returns the channels the poller reads.
func (m *Manager) Channels() []string {
	return append([]string(nil), m.channels...)
}

func (m *Manager) Stop() {
	m.wg.Wait()
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("ingestion manager stopped")
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
