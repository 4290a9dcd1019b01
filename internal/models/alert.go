package models

import "time"

// Severity is the alert level reported for a region/hazard pair.
// Values are compared for equality only.
type Severity string

const (
	SeverityHigh     Severity = "HD"
	SeverityElevated Severity = "MD"
	SeverityClear    Severity = "AC"
)

func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityHigh, SeverityElevated, SeverityClear:
		return Severity(s), true
	default:
		return "", false
	}
}

func (s Severity) IsClear() bool {
	return s == SeverityClear
}

type HazardType string

const (
	HazardDrone         HazardType = "UAV"
	HazardAir           HazardType = "AIR"
	HazardMissile       HazardType = "ROCKET"
	HazardSurfaceVessel HazardType = "UB"
	HazardAll           HazardType = "ALL" // wildcard
)

// ConcreteHazards lists every non-wildcard hazard type in a stable order.
var ConcreteHazards = []HazardType{HazardDrone, HazardAir, HazardMissile, HazardSurfaceVessel}

func (h HazardType) IsWildcard() bool {
	return h == HazardAll
}

// Region is a canonical region name from the registry.
type Region string

// AlertState is one row of the append-only fact log. The most recent row
// for a (Region, HazardType) key is the current state of that key.
type AlertState struct {
	ID         int64
	Region     Region
	HazardType HazardType
	Severity   Severity
	Source     string
	CreatedAt  time.Time
}

// Snapshot maps region -> hazard type -> current severity.
type Snapshot map[Region]map[HazardType]Severity

func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for region, statuses := range s {
		o, ok := other[region]
		if !ok || len(o) != len(statuses) {
			return false
		}
		for h, sev := range statuses {
			if o[h] != sev {
				return false
			}
		}
	}
	return true
}
