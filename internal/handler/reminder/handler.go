package reminder

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/handler"
	"github.com/jwalitptl/reminder-api/internal/model"
	"github.com/jwalitptl/reminder-api/internal/service/reminder"
	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
)

type Handler struct {
	service *reminder.Service
}

func NewHandler(service *reminder.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/events/:id/reminders", h.CreateReminder)
	r.GET("/events/:id/reminders", h.ListEventReminders)

	reminders := r.Group("/reminders")
	{
		reminders.GET("/:id", h.GetReminder)
		reminders.PUT("/:id", h.UpdateReminder)
		reminders.DELETE("/:id", h.DeleteReminder)
	}
}

func (h *Handler) CreateReminder(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewBadRequest("invalid event ID", err))
		return
	}

	var req model.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequest("invalid request body", err))
		return
	}

	reminder, err := h.service.Create(c.Request.Context(), eventID, req.ReminderTime)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(reminder))
}

func (h *Handler) ListEventReminders(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewBadRequest("invalid event ID", err))
		return
	}

	reminders, err := h.service.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(reminders))
}

func (h *Handler) GetReminder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewBadRequest("invalid reminder ID", err))
		return
	}

	reminder, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(reminder))
}

func (h *Handler) UpdateReminder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewBadRequest("invalid reminder ID", err))
		return
	}

	var req model.UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequest("invalid request body", err))
		return
	}

	reminder, err := h.service.Update(c.Request.Context(), id, req.ReminderTime)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(reminder))
}

func (h *Handler) DeleteReminder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewBadRequest("invalid reminder ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
