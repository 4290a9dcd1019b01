package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr1hm/go-radar-alerts/internal/models"
	"github.com/mr1hm/go-radar-alerts/internal/observability"
)

// Registry is the reference data and text normalization the processor uses.
type Registry interface {
	Regions
	IsBanned(text string) bool
	NormalizeRegion(raw string) (models.Region, bool)
	NormalizeHazard(raw string) (models.HazardType, bool)
}

type Oracle interface {
	Classify(ctx context.Context, text, source string) string
}

// Dispatcher hands accepted transitions to the notification fan-out.
type Dispatcher interface {
	Dispatch(ctx context.Context, t models.Transition) error
}

// Input is one (source, text) pair to process.
type Input struct {
	Source  string // recorded on the fact log and shown to subscribers
	Label   string // channel name given to the oracle, defaults to Source
	Text    string
	Comment string // optional annotation carried into notifications
}

type Result struct {
	Banned      bool
	Answer      string
	Facts       int
	Transitions []models.Transition
}

type Processor struct {
	registry   Registry
	oracle     Oracle
	reconciler *Reconciler
	dispatcher Dispatcher
	metrics    *observability.Metrics
}

func NewProcessor(reg Registry, oracle Oracle, reconciler *Reconciler, dispatcher Dispatcher, metrics *observability.Metrics) *Processor {
	return &Processor{
		registry:   reg,
		oracle:     oracle,
		reconciler: reconciler,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// Process runs one input through the pipeline. Facts are reconciled in the
// order they were parsed. A storage error aborts the run; transitions
// accepted before it stay committed and dispatched.
func (p *Processor) Process(ctx context.Context, in Input) (Result, error) {
	start := time.Now()
	defer func() {
		p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	var res Result
	if p.registry.IsBanned(in.Text) {
		p.metrics.MessagesBanned.Inc()
		slog.Debug("input dropped by denylist", "source", in.Source)
		res.Banned = true
		return res, nil
	}

	label := in.Label
	if label == "" {
		label = in.Source
	}
	res.Answer = p.oracle.Classify(ctx, in.Text, label)

	facts, malformed := ParseFacts(res.Answer)
	for _, record := range malformed {
		p.discard("format", in.Source, record)
	}
	res.Facts = len(facts)

	for _, fact := range facts {
		targets, sev, ok := p.targets(in.Source, fact)
		if !ok {
			continue
		}

		for _, target := range targets {
			_, err := p.reconciler.ReconcileThen(ctx, target, sev, in.Source, func(tr *models.Transition) {
				tr.Comment = in.Comment
				res.Transitions = append(res.Transitions, *tr)
				slog.Info("transition accepted",
					"source", tr.Source,
					"region", tr.Region,
					"hazard", tr.HazardType,
					"severity", tr.Severity,
				)
				p.dispatch(ctx, *tr)
			})
			if err != nil {
				return res, fmt.Errorf("reconcile %s: %w", in.Source, err)
			}
		}
	}

	return res, nil
}

// dispatch runs under the key lock so a key's transitions reach the
// dispatcher in the order they were committed.
func (p *Processor) dispatch(ctx context.Context, tr models.Transition) {
	if p.dispatcher == nil {
		return
	}
	if err := p.dispatcher.Dispatch(ctx, tr); err != nil {
		slog.Error("failed to dispatch transition", "region", tr.Region, "hazard", tr.HazardType, "error", err)
	}
}

func (p *Processor) targets(source string, fact models.Fact) ([]models.Target, models.Severity, bool) {
	targets, sev, reason := Resolve(p.registry, fact)
	if reason != "" {
		p.discard(reason, source, fact.Severity+fieldSeparator+fact.Region+fieldSeparator+fact.Hazard)
		return nil, "", false
	}
	return targets, sev, true
}

// Resolve validates one fact against the registry and expands it into
// concrete targets. reason names the discard bucket when nothing applies.
func Resolve(reg Registry, fact models.Fact) (targets []models.Target, sev models.Severity, reason string) {
	sev, ok := models.ParseSeverity(fact.Severity)
	if !ok {
		return nil, "", "severity"
	}
	region, ok := reg.NormalizeRegion(fact.Region)
	if !ok {
		return nil, "", "region"
	}
	hazard, ok := reg.NormalizeHazard(fact.Hazard)
	if !ok {
		return nil, "", "hazard"
	}

	targets = Expand(reg, region, hazard, sev)
	if len(targets) == 0 {
		return nil, "", "unactionable"
	}
	return targets, sev, ""
}

func (p *Processor) discard(reason, source, record string) {
	p.metrics.FactsDiscarded.WithLabelValues(reason).Inc()
	slog.Warn("oracle record discarded", "reason", reason, "source", source, "record", record)
}
