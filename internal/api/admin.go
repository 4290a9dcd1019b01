package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	AdminHeader = "X-Admin-ID"
	adminKey    = "admin_id"
)

func (h *Handler) requireAdmin(c *gin.Context) {
	id, err := strconv.ParseInt(c.GetHeader(AdminHeader), 10, 64)
	if err != nil || !h.moderation.IsAdmin(id) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.Set(adminKey, id)
	c.Next()
}

func adminID(c *gin.Context) int64 {
	return c.GetInt64(adminKey)
}

func (h *Handler) approveReport(c *gin.Context) {
	res, err := h.moderation.Approve(c.Request.Context(), adminID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResultView(res))
}

func (h *Handler) rejectReport(c *gin.Context) {
	report, err := h.moderation.Reject(c.Request.Context(), adminID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReportView(report))
}

type adminReportRequest struct {
	Text    string `json:"text" binding:"required"`
	Comment string `json:"comment"`
}

func (h *Handler) adminReport(c *gin.Context) {
	var req adminReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.moderation.AdminReport(c.Request.Context(), adminID(c), req.Text, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResultView(res))
}

type banRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) banUser(c *gin.Context) {
	h.setBanned(c, true)
}

func (h *Handler) unbanUser(c *gin.Context) {
	h.setBanned(c, false)
}

func (h *Handler) setBanned(c *gin.Context, banned bool) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	var req banRequest
	// The reason is optional, so an empty body is fine.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	var (
		changed bool
		err     error
	)
	if banned {
		changed, err = h.moderation.Ban(c.Request.Context(), adminID(c), userID, req.Reason)
	} else {
		changed, err = h.moderation.Unban(c.Request.Context(), adminID(c), userID, req.Reason)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "banned": banned, "changed": changed})
}

func (h *Handler) getBanned(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	banned, err := h.moderation.IsBanned(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "banned": banned})
}

type broadcastRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	delivered, failed, err := h.moderation.Broadcast(c.Request.Context(), adminID(c), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": delivered, "failed": failed})
}
