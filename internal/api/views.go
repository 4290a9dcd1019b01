package api

import (
	"time"

	"github.com/mr1hm/go-radar-alerts/internal/models"
	"github.com/mr1hm/go-radar-alerts/internal/pipeline"
)

type StateView struct {
	Region     string    `json:"region"`
	HazardType string    `json:"hazard_type"`
	Severity   string    `json:"severity"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

type TransitionView struct {
	Region     string    `json:"region"`
	HazardType string    `json:"hazard_type"`
	Severity   string    `json:"severity"`
	Source     string    `json:"source"`
	At         time.Time `json:"at"`
}

type ReportView struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Handled     bool      `json:"handled"`
	Decision    string    `json:"decision,omitempty"`
}

// ResultView summarizes one pipeline run.
type ResultView struct {
	Banned      bool             `json:"banned"`
	Answer      string           `json:"answer"`
	Facts       int              `json:"facts"`
	Transitions []TransitionView `json:"transitions"`
}

func toStateViews(states []models.AlertState) []StateView {
	views := make([]StateView, 0, len(states))
	for _, s := range states {
		views = append(views, StateView{
			Region:     string(s.Region),
			HazardType: string(s.HazardType),
			Severity:   string(s.Severity),
			Source:     s.Source,
			CreatedAt:  s.CreatedAt.UTC(),
		})
	}
	return views
}

func toReportView(r models.PendingReport) ReportView {
	return ReportView{
		ID:          r.ID,
		UserID:      r.UserID,
		SubmittedAt: r.SubmittedAt.UTC(),
		Handled:     r.Handled,
		Decision:    string(r.Decision),
	}
}

func toResultView(res pipeline.Result) ResultView {
	transitions := make([]TransitionView, 0, len(res.Transitions))
	for _, t := range res.Transitions {
		transitions = append(transitions, TransitionView{
			Region:     string(t.Region),
			HazardType: string(t.HazardType),
			Severity:   string(t.Severity),
			Source:     t.Source,
			At:         t.At.UTC(),
		})
	}
	return ResultView{
		Banned:      res.Banned,
		Answer:      res.Answer,
		Facts:       res.Facts,
		Transitions: transitions,
	}
}

func regionStrings(regions []models.Region) []string {
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		out = append(out, string(r))
	}
	return out
}
