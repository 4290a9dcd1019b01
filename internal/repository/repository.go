package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

type Filter struct {
	Limit      int
	Region     *models.Region
	HazardType *models.HazardType
	Since      *time.Time
}

// AlertRepository is the append-only fact log. The most recent row for a
// (region, hazard type) key is its current state.
type AlertRepository interface {
	AppendState(ctx context.Context, s *models.AlertState) error
	LastSeverity(ctx context.Context, region models.Region, hazard models.HazardType) (models.Severity, bool, error)
	ListStates(ctx context.Context, opts Filter) ([]models.AlertState, error)
	Snapshot(ctx context.Context) (models.Snapshot, error)
	RegionStatuses(ctx context.Context, region models.Region) (map[models.HazardType]models.Severity, error)
}

type SubscriptionRepository interface {
	AddSubscription(ctx context.Context, userID int64, region models.Region) (bool, error)
	RemoveSubscription(ctx context.Context, userID int64, region models.Region) (bool, error)
	SubscriptionsByUser(ctx context.Context, userID int64) ([]models.Region, error)
	UsersByRegion(ctx context.Context, region models.Region) ([]int64, error)
	AllUsers(ctx context.Context) ([]int64, error)
	IsBanned(ctx context.Context, userID int64) (bool, error)
	SetBanned(ctx context.Context, userID int64, banned bool) (bool, error)
}
