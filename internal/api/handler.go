package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-campus-sos/internal/models"
	"github.com/mr1hm/go-campus-sos/internal/repository"
	"github.com/mr1hm/go-campus-sos/internal/store"
)

// AlertStore is the slice of the store the HTTP surface needs.
type AlertStore interface {
	Create(ctx context.Context, sub models.Submission) (*models.Alert, error)
	List(ctx context.Context) ([]models.Alert, error)
	Resolve(ctx context.Context, id string) (*models.Alert, error)
	Delete(ctx context.Context, id string) error
	DeleteAllResolved(ctx context.Context) (int, []string, error)
	Degraded() bool
}

type WSHandler interface {
	HandleConnection(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	store         AlertStore
	hub           WSHandler
	adminPassword string
}

func NewHandler(store AlertStore, hub WSHandler, adminPassword string) *Handler {
	return &Handler{
		store:         store,
		hub:           hub,
		adminPassword: adminPassword,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.POST("/api/admin/login", h.adminLogin)

	sos := r.Group("/api/sos")
	sos.GET("", h.listAlerts)
	sos.POST("", h.createAlert)

	admin := sos.Group("", AdminMiddleware(h.adminPassword))
	admin.PATCH("/:id/resolve", h.resolveAlert)
	admin.DELETE("/resolved", h.deleteResolved)
	admin.DELETE("/:id", h.deleteAlert)

	if h.hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			h.hub.HandleConnection(c.Writer, c.Request)
		})
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"degraded": h.store.Degraded(),
	})
}

func (h *Handler) adminLogin(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "password is required"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.adminPassword)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "incorrect password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// listAlerts never fails merely because the primary store is down; the
// store serves its degraded list instead.
func (h *Handler) listAlerts(c *gin.Context) {
	alerts, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to fetch reports"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) createAlert(c *gin.Context) {
	var sub models.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed submission"})
		return
	}

	alert, err := h.store.Create(c.Request.Context(), sub)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create report"})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

func (h *Handler) resolveAlert(c *gin.Context) {
	alert, err := h.store.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Report not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) deleteAlert(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) deleteResolved(c *gin.Context) {
	count, ids, err := h.store.DeleteAllResolved(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": count,
		"ids":     ids,
	})
}
