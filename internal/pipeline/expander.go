package pipeline

import (
	"github.com/mr1hm/go-radar-alerts/internal/models"
)

// Regions is the slice of the registry the expander needs.
type Regions interface {
	Wildcard() models.Region
	Regions() []models.Region
	VesselEligible(region models.Region) bool
}

// Expand turns one normalized fact into the concrete keys to reconcile.
//
// A nationwide clear fans out to every concrete region. A nationwide
// non-clear signal is not actionable and yields nothing. The wildcard hazard
// only expands for clears; a non-clear wildcard hazard yields nothing.
// Surface vessel keys exist only for eligible regions.
func Expand(reg Regions, region models.Region, hazard models.HazardType, sev models.Severity) []models.Target {
	if region != reg.Wildcard() {
		return expandHazards(reg, region, hazard, sev)
	}
	if !sev.IsClear() {
		return nil
	}

	var targets []models.Target
	for _, r := range reg.Regions() {
		targets = append(targets, expandHazards(reg, r, hazard, sev)...)
	}
	return targets
}

func expandHazards(reg Regions, region models.Region, hazard models.HazardType, sev models.Severity) []models.Target {
	if !hazard.IsWildcard() {
		if hazard == models.HazardSurfaceVessel && !reg.VesselEligible(region) {
			return nil
		}
		return []models.Target{{Region: region, HazardType: hazard}}
	}

	if !sev.IsClear() {
		return nil
	}

	targets := make([]models.Target, 0, len(models.ConcreteHazards))
	for _, h := range models.ConcreteHazards {
		if h == models.HazardSurfaceVessel && !reg.VesselEligible(region) {
			continue
		}
		targets = append(targets, models.Target{Region: region, HazardType: h})
	}
	return targets
}
