package registry

import (
	"strings"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

// IsBanned reports whether text contains any denylisted substring,
// ignoring case.
func (r *Registry) IsBanned(text string) bool {
	if len(r.banned) == 0 {
		return false
	}
	lower := strings.ToLower(canonical(text))
	for _, s := range r.banned {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// NormalizeRegion maps free text onto a canonical region. An exact
// case-insensitive match wins; otherwise the first region (in registry
// order) that contains raw as a substring is returned.
func (r *Registry) NormalizeRegion(raw string) (models.Region, bool) {
	lower := strings.ToLower(canonical(raw))
	if lower == "" {
		return "", false
	}

	for i, entry := range r.lowered {
		if entry == lower {
			return r.order[i], true
		}
	}
	for i, entry := range r.lowered {
		if strings.Contains(entry, lower) {
			return r.order[i], true
		}
	}
	return "", false
}

// NormalizeHazard accepts only the exact hazard codes.
func (r *Registry) NormalizeHazard(raw string) (models.HazardType, bool) {
	h := models.HazardType(strings.TrimSpace(raw))
	switch h {
	case models.HazardDrone, models.HazardAir, models.HazardMissile, models.HazardSurfaceVessel, models.HazardAll:
		return h, true
	default:
		return "", false
	}
}
