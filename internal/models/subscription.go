package models

import "time"

type Subscription struct {
	UserID int64
	Region Region
	Banned bool
}

type ReportDecision string

const (
	DecisionPending  ReportDecision = ""
	DecisionApproved ReportDecision = "approved"
	DecisionRejected ReportDecision = "rejected"
)

// PendingReport is a user submitted report waiting for a moderator.
// Handled flips exactly once.
type PendingReport struct {
	ID          string
	UserID      int64
	Text        string
	SubmittedAt time.Time
	Handled     bool
	Decision    ReportDecision
	DecidedBy   int64
}
