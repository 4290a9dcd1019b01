package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-radar-alerts/internal/models"
	"github.com/mr1hm/go-radar-alerts/internal/moderation"
	"github.com/mr1hm/go-radar-alerts/internal/pipeline"
	"github.com/mr1hm/go-radar-alerts/internal/registry"
	"github.com/mr1hm/go-radar-alerts/internal/repository"
)

const (
	defaultHistoryLimit = 5
	maxHistoryLimit     = 100
)

type StateReader interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	ListStates(ctx context.Context, opts repository.Filter) ([]models.AlertState, error)
}

type Regions interface {
	Regions() []models.Region
	NormalizeRegion(raw string) (models.Region, bool)
	IsWildcard(region models.Region) bool
}

// Channels lists the feed channels being polled.
type Channels interface {
	Channels() []string
}

type Moderation interface {
	IsAdmin(userID int64) bool
	SubmitReport(ctx context.Context, userID int64, text string) (models.PendingReport, error)
	Approve(ctx context.Context, adminID int64, reportID string) (pipeline.Result, error)
	Reject(ctx context.Context, adminID int64, reportID string) (models.PendingReport, error)
	AdminReport(ctx context.Context, adminID int64, text, comment string) (pipeline.Result, error)
	Ban(ctx context.Context, adminID, userID int64, reason string) (bool, error)
	Unban(ctx context.Context, adminID, userID int64, reason string) (bool, error)
	IsBanned(ctx context.Context, userID int64) (bool, error)
	Broadcast(ctx context.Context, adminID int64, text string) (delivered, failed int, err error)
	Subscribe(ctx context.Context, userID int64, region string) ([]models.Region, error)
	Unsubscribe(ctx context.Context, userID int64, region string) ([]models.Region, error)
	Subscriptions(ctx context.Context, userID int64) ([]models.Region, error)
}

type Handler struct {
	states     StateReader
	regions    Regions
	channels   Channels
	moderation Moderation
	ws         gin.HandlerFunc
}

// NewHandler wires the HTTP surface. ws may be nil when the live view is
// disabled.
func NewHandler(states StateReader, regions Regions, channels Channels, mod Moderation, ws gin.HandlerFunc) *Handler {
	return &Handler{
		states:     states,
		regions:    regions,
		channels:   channels,
		moderation: mod,
		ws:         ws,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if h.ws != nil {
		r.GET("/ws", h.ws)
	}

	api := r.Group("/api")
	api.GET("/statuses", h.getStatuses)
	api.GET("/regions", h.getRegions)
	api.GET("/regions/:region/history", h.getHistory)
	api.GET("/channels", h.getChannels)
	api.POST("/reports", h.submitReport)
	api.POST("/subscriptions", h.subscribe)
	api.DELETE("/subscriptions", h.unsubscribe)
	api.GET("/users/:id/subscriptions", h.getSubscriptions)

	admin := api.Group("/admin", h.requireAdmin)
	admin.POST("/reports/:id/approve", h.approveReport)
	admin.POST("/reports/:id/reject", h.rejectReport)
	admin.POST("/report", h.adminReport)
	admin.POST("/users/:id/ban", h.banUser)
	admin.POST("/users/:id/unban", h.unbanUser)
	admin.GET("/users/:id/banned", h.getBanned)
	admin.POST("/broadcast", h.broadcast)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getStatuses(c *gin.Context) {
	snap, err := h.states.Snapshot(c.Request.Context())
	if err != nil {
		slog.Error("failed to load snapshot", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch statuses"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) getChannels(c *gin.Context) {
	channels := h.channels.Channels()
	if channels == nil {
		channels = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (h *Handler) getRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"regions": regionStrings(h.regions.Regions())})
}

func (h *Handler) getHistory(c *gin.Context) {
	region, ok := h.regions.NormalizeRegion(c.Param("region"))
	if !ok || h.regions.IsWildcard(region) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown region"})
		return
	}

	filter := repository.Filter{
		Limit:  defaultHistoryLimit,
		Region: &region,
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 {
			filter.Limit = min(lim, maxHistoryLimit)
		}
	}

	states, err := h.states.ListStates(c.Request.Context(), filter)
	if err != nil {
		slog.Error("failed to load history", "region", region, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"region":  region,
		"history": toStateViews(states),
	})
}

type reportRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

func (h *Handler) submitReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	report, err := h.moderation.SubmitReport(c.Request.Context(), req.UserID, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toReportView(report))
}

type subscriptionRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Region string `json:"region" binding:"required"`
}

func (h *Handler) subscribe(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	added, err := h.moderation.Subscribe(c.Request.Context(), req.UserID, req.Region)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": regionStrings(added)})
}

func (h *Handler) unsubscribe(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	removed, err := h.moderation.Unsubscribe(c.Request.Context(), req.UserID, req.Region)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": regionStrings(removed)})
}

func (h *Handler) getSubscriptions(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	regions, err := h.moderation.Subscriptions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "regions": regionStrings(regions)})
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to status codes. Anything unexpected is
// logged and answered with a generic body.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, moderation.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
	case errors.Is(err, moderation.ErrAlreadyHandled):
		c.JSON(http.StatusConflict, gin.H{"error": "report already handled"})
	case errors.Is(err, moderation.ErrBanned):
		c.JSON(http.StatusForbidden, gin.H{"error": "user is banned"})
	case errors.Is(err, moderation.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is empty"})
	case errors.Is(err, registry.ErrUnknownRegion):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown region"})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
