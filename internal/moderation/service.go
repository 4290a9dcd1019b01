package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mr1hm/go-radar-alerts/internal/models"
	"github.com/mr1hm/go-radar-alerts/internal/notify"
	"github.com/mr1hm/go-radar-alerts/internal/pipeline"
	"github.com/mr1hm/go-radar-alerts/internal/registry"
	"github.com/mr1hm/go-radar-alerts/internal/repository"
)

var (
	ErrBanned    = errors.New("user is banned from submitting reports")
	ErrEmptyText = errors.New("text is empty")
)

const (
	// AllRegions selects every region in subscribe and unsubscribe.
	AllRegions = "all"

	ReportSource = "radaronebot (/report)"
	AdminSource  = "Admin"
)

type Processor interface {
	Process(ctx context.Context, in pipeline.Input) (pipeline.Result, error)
}

type Messenger interface {
	SendOne(ctx context.Context, userID int64, text string) error
	Deliver(ctx context.Context, users []int64, text string, mapButton bool) (delivered, failed int, err error)
}

type Regions interface {
	Regions() []models.Region
	NormalizeRegion(raw string) (models.Region, bool)
	IsWildcard(region models.Region) bool
}

// Service implements the moderation and account operations used by the
// presentation layer.
type Service struct {
	store     *Store
	subs      repository.SubscriptionRepository
	processor Processor
	messenger Messenger
	regions   Regions
	admins    []int64
}

func NewService(store *Store, subs repository.SubscriptionRepository, processor Processor, messenger Messenger, regions Regions, admins []int64) *Service {
	return &Service{
		store:     store,
		subs:      subs,
		processor: processor,
		messenger: messenger,
		regions:   regions,
		admins:    admins,
	}
}

func (s *Service) IsAdmin(userID int64) bool {
	for _, id := range s.admins {
		if id == userID {
			return true
		}
	}
	return false
}

// SubmitReport queues a user report and tells every admin about it.
func (s *Service) SubmitReport(ctx context.Context, userID int64, text string) (models.PendingReport, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.PendingReport{}, ErrEmptyText
	}

	banned, err := s.subs.IsBanned(ctx, userID)
	if err != nil {
		return models.PendingReport{}, fmt.Errorf("check ban: %w", err)
	}
	if banned {
		slog.Warn("banned user attempted to submit a report", "user_id", userID)
		return models.PendingReport{}, ErrBanned
	}

	report := s.store.Add(userID, text)
	slog.Info("report queued", "user_id", userID, "report_id", report.ID)

	msg := notify.RenderReport(userID, report.SubmittedAt, report.ID, report.Text)
	for _, admin := range s.admins {
		if err := s.messenger.SendOne(ctx, admin, msg); err != nil {
			slog.Error("failed to notify admin about report", "admin_id", admin, "report_id", report.ID, "error", err)
		}
	}
	return report, nil
}

// Approve runs the report text through the pipeline. A report can be decided
// once.
func (s *Service) Approve(ctx context.Context, adminID int64, reportID string) (pipeline.Result, error) {
	report, err := s.store.Decide(reportID, models.DecisionApproved, adminID)
	if err != nil {
		return pipeline.Result{}, err
	}
	slog.Info("report approved", "admin_id", adminID, "report_id", reportID, "user_id", report.UserID)

	return s.processor.Process(ctx, pipeline.Input{
		Source: ReportSource,
		Label:  AdminSource,
		Text:   report.Text,
	})
}

func (s *Service) Reject(ctx context.Context, adminID int64, reportID string) (models.PendingReport, error) {
	report, err := s.store.Decide(reportID, models.DecisionRejected, adminID)
	if err != nil {
		return report, err
	}
	slog.Info("report rejected", "admin_id", adminID, "report_id", reportID, "user_id", report.UserID)
	return report, nil
}

// AdminReport processes text from an admin directly. Literal "\n" sequences
// become line breaks.
func (s *Service) AdminReport(ctx context.Context, adminID int64, text, comment string) (pipeline.Result, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, `\n`, "\n"))
	if text == "" {
		return pipeline.Result{}, ErrEmptyText
	}
	slog.Info("admin report", "admin_id", adminID)

	return s.processor.Process(ctx, pipeline.Input{
		Source:  AdminSource,
		Label:   AdminSource,
		Text:    text,
		Comment: strings.TrimSpace(strings.ReplaceAll(comment, `\n`, "\n")),
	})
}

func (s *Service) Ban(ctx context.Context, adminID, userID int64, reason string) (bool, error) {
	return s.setBanned(ctx, adminID, userID, true, reason)
}

func (s *Service) Unban(ctx context.Context, adminID, userID int64, reason string) (bool, error) {
	return s.setBanned(ctx, adminID, userID, false, reason)
}

func (s *Service) setBanned(ctx context.Context, adminID, userID int64, banned bool, reason string) (bool, error) {
	changed, err := s.subs.SetBanned(ctx, userID, banned)
	if err != nil {
		return false, fmt.Errorf("set ban flag: %w", err)
	}
	if !changed {
		slog.Info("ban flag unchanged", "admin_id", adminID, "user_id", userID, "banned", banned)
		return false, nil
	}

	slog.Info("ban flag changed", "admin_id", adminID, "user_id", userID, "banned", banned, "reason", reason)
	if err := s.messenger.SendOne(ctx, userID, notify.RenderBan(banned, reason)); err != nil {
		slog.Error("failed to tell user about ban change", "user_id", userID, "error", err)
	}
	return true, nil
}

func (s *Service) IsBanned(ctx context.Context, userID int64) (bool, error) {
	return s.subs.IsBanned(ctx, userID)
}

// Broadcast sends an admin message to every subscribed user.
func (s *Service) Broadcast(ctx context.Context, adminID int64, text string) (delivered, failed int, err error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, `\n`, "\n"))
	if text == "" {
		return 0, 0, ErrEmptyText
	}

	users, err := s.subs.AllUsers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list users: %w", err)
	}

	delivered, failed, err = s.messenger.Deliver(ctx, users, notify.RenderBroadcast(text), false)
	slog.Info("admin broadcast", "admin_id", adminID, "delivered", delivered, "failed", failed)
	return delivered, failed, err
}

// Subscribe adds one region, or every region for "all". It returns the
// regions that were newly added.
func (s *Service) Subscribe(ctx context.Context, userID int64, raw string) ([]models.Region, error) {
	targets, err := s.resolve(raw, s.regions.Regions())
	if err != nil {
		return nil, err
	}

	var added []models.Region
	for _, region := range targets {
		ok, err := s.subs.AddSubscription(ctx, userID, region)
		if err != nil {
			return added, fmt.Errorf("add subscription: %w", err)
		}
		if ok {
			added = append(added, region)
		}
	}
	slog.Info("subscribed", "user_id", userID, "region", raw, "added", len(added))
	return added, nil
}

// Unsubscribe removes one region, or all current subscriptions for "all".
func (s *Service) Unsubscribe(ctx context.Context, userID int64, raw string) ([]models.Region, error) {
	current, err := s.subs.SubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	targets, err := s.resolve(raw, current)
	if err != nil {
		return nil, err
	}

	var removed []models.Region
	for _, region := range targets {
		ok, err := s.subs.RemoveSubscription(ctx, userID, region)
		if err != nil {
			return removed, fmt.Errorf("remove subscription: %w", err)
		}
		if ok {
			removed = append(removed, region)
		}
	}
	slog.Info("unsubscribed", "user_id", userID, "region", raw, "removed", len(removed))
	return removed, nil
}

func (s *Service) Subscriptions(ctx context.Context, userID int64) ([]models.Region, error) {
	return s.subs.SubscriptionsByUser(ctx, userID)
}

func (s *Service) resolve(raw string, all []models.Region) ([]models.Region, error) {
	if strings.EqualFold(strings.TrimSpace(raw), AllRegions) {
		return all, nil
	}
	region, ok := s.regions.NormalizeRegion(raw)
	if !ok || s.regions.IsWildcard(region) {
		return nil, registry.ErrUnknownRegion
	}
	return []models.Region{region}, nil
}
