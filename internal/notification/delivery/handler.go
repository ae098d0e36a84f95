package delivery

import (
	"errors"
	"net/http"
	"time"

	"ccce-notify/internal/notification/domain"
	"ccce-notify/internal/notification/usecase"

	"github.com/gin-gonic/gin"
)

// NotificationHandler exposes the operator surface over HTTP
type NotificationHandler struct {
	notificationUsecase usecase.NotificationUsecase
}

func NewNotificationHandler(notificationUsecase usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{notificationUsecase: notificationUsecase}
}

type registerTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

type broadcastRequest struct {
	Title   string     `json:"title"`
	Message string     `json:"message"`
	SendAt  *time.Time `json:"send_at"`
}

type testRequest struct {
	UserID  string `json:"uid"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type dispatchResponse struct {
	NotificationID string        `json:"notification_id"`
	Status         domain.Status `json:"status"`
	Sent           int           `json:"sent"`
	Failed         int           `json:"failed"`
	Skipped        bool          `json:"skipped,omitempty"`
	Error          string        `json:"error,omitempty"`
	NextID         string        `json:"next_notification_id,omitempty"`
}

func toDispatchResponse(r usecase.DispatchResult) dispatchResponse {
	resp := dispatchResponse{
		NotificationID: r.NotificationID,
		Status:         r.Status,
		Sent:           r.Sent,
		Failed:         r.Failed,
		Skipped:        r.Skipped,
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	if r.Next != nil {
		resp.NextID = r.Next.ID
	}
	return resp
}

// RegisterFCMToken stores a device token for the caller
func (h *NotificationHandler) RegisterFCMToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.notificationUsecase.RegisterToken(c.Request.Context(), c.GetString(ctxUserID), req.Token, req.DeviceInfo); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token registered"})
}

func (h *NotificationHandler) CreateBroadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, result, err := h.notificationUsecase.CreateBroadcast(c.Request.Context(), c.GetString(ctxUserID), usecase.BroadcastRequest{
		Title:   req.Title,
		Message: req.Message,
		SendAt:  req.SendAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notification_id": n.ID, "dispatch": toDispatchResponse(result)})
}

// SendTestNotification pushes a test message to uid, or to the caller when uid is empty
func (h *NotificationHandler) SendTestNotification(c *gin.Context) {
	var req testRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetString(ctxUserID)
	}

	res, err := h.notificationUsecase.SendTestNotification(c.Request.Context(), usecase.TestRequest{
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": res.Sent, "failed": res.Failed, "pruned": res.Pruned})
}

func (h *NotificationHandler) ProcessDue(c *gin.Context) {
	count, err := h.notificationUsecase.ProcessDue(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": count})
}

// DispatchNotification runs the creation trigger for an existing record
func (h *NotificationHandler) DispatchNotification(c *gin.Context) {
	result, err := h.notificationUsecase.HandleNotificationCreated(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDispatchResponse(result))
}

func (h *NotificationHandler) ScheduleEventReminder(c *gin.Context) {
	n, err := h.notificationUsecase.HandleEventCreated(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if n == nil {
		c.JSON(http.StatusOK, gin.H{"scheduled": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"scheduled": true, "notification_id": n.ID, "send_at": n.SendAt})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidTarget), errors.Is(err, domain.ErrUnknownTargetType):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoTokensFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
