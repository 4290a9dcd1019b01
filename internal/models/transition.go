package models

import "time"

// Fact is one syntactically valid record of the oracle answer, before
// any validation against the registry.
type Fact struct {
	Severity string
	Region   string
	Hazard   string
}

// Target is a concrete (region, hazard type) key to reconcile.
type Target struct {
	Region     Region
	HazardType HazardType
}

// Transition is an accepted state change that has already been persisted.
type Transition struct {
	Region     Region
	HazardType HazardType
	Severity   Severity
	Source     string
	Comment    string // optional admin annotation, not persisted
	At         time.Time
}

func (t Transition) Key() string {
	return string(t.Region) + "|" + string(t.HazardType)
}
