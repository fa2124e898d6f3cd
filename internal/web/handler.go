package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/monitor"
	"github.com/KNICEX/stock-alert/internal/service/quote"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SessionController is the part of monitor.Controller the API drives.
type SessionController interface {
	Start(ctx context.Context, cfg monitor.Config) (monitor.SessionID, error)
	Stop(id monitor.SessionID) error
	Remove(id monitor.SessionID) error
	Get(id monitor.SessionID) (monitor.SessionInfo, error)
	List() []monitor.SessionInfo
}

type Handler struct {
	ctrl   SessionController
	logger *slog.Logger
}

func NewHandler(ctrl SessionController, logger *slog.Logger) *Handler {
	return &Handler{ctrl: ctrl, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	api := router.Group("/api/v1/sessions")
	{
		api.POST("", h.StartSession)
		api.GET("", h.ListSessions)
		api.GET("/:id", h.GetSession)
		api.POST("/:id/stop", h.StopSession)
		api.DELETE("/:id", h.RemoveSession)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

type StartSessionRequest struct {
	Ticker          string          `json:"ticker" binding:"required"`
	Threshold       decimal.Decimal `json:"threshold"`
	EmailEnabled    bool            `json:"email_enabled"`
	SMSEnabled      bool            `json:"sms_enabled"`
	RecipientEmail  string          `json:"recipient_email"`
	RecipientPhone  string          `json:"recipient_phone"`
	IntervalSeconds int             `json:"interval_seconds" binding:"gte=0"`
}

func (r StartSessionRequest) toConfig() monitor.Config {
	return monitor.Config{
		Ticker:           r.Ticker,
		ThresholdPercent: r.Threshold,
		EmailEnabled:     r.EmailEnabled,
		SMSEnabled:       r.SMSEnabled,
		RecipientEmail:   r.RecipientEmail,
		RecipientPhone:   r.RecipientPhone,
		Interval:         time.Duration(r.IntervalSeconds) * time.Second,
	}
}

func (h *Handler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.ctrl.Start(c.Request.Context(), req.toConfig())
	if err != nil {
		h.logger.Warn("failed to start monitor session", "ticker", req.Ticker, "error", err)
		c.JSON(startErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	info, err := h.ctrl.Get(id)
	if err != nil {
		c.JSON(http.StatusCreated, gin.H{"id": id})
		return
	}
	c.JSON(http.StatusCreated, info)
}

func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, monitor.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, monitor.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quote.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.ctrl.List()})
}

func (h *Handler) GetSession(c *gin.Context) {
	info, err := h.ctrl.Get(monitor.SessionID(c.Param("id")))
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) StopSession(c *gin.Context) {
	id := monitor.SessionID(c.Param("id"))
	if err := h.ctrl.Stop(id); err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "stopping": true})
}

func (h *Handler) RemoveSession(c *gin.Context) {
	if err := h.ctrl.Remove(monitor.SessionID(c.Param("id"))); err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) notFoundOr500(c *gin.Context, err error) {
	if errors.Is(err, monitor.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("monitor session request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
