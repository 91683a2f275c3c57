package event

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/handler"
	"github.com/jwalitptl/reminder-api/internal/model"
	"github.com/jwalitptl/reminder-api/internal/service/event"
	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
)

type Handler struct {
	service *event.Service
}

func NewHandler(service *event.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	events := r.Group("/events")
	{
		events.POST("", h.CreateEvent)
		events.GET("", h.ListEvents)
		events.GET("/:id", h.GetEvent)
		events.PATCH("/:id", h.UpdateEvent)
		events.DELETE("/:id", h.DeleteEvent)
	}
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req model.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequest("invalid request body", err))
		return
	}

	event, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(event))
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewBadRequest("invalid event ID", err))
		return
	}

	event, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(event))
}

func (h *Handler) ListEvents(c *gin.Context) {
	var filters model.EventFilters
	if err := c.ShouldBindQuery(&filters.Pagination); err != nil {
		c.Error(apperrors.NewBadRequest("invalid pagination", err))
		return
	}

	if status := c.Query("status"); status != "" {
		filters.Status = model.EventStatus(status)
		if !filters.Status.Valid() {
			c.Error(apperrors.NewBadRequest("invalid status filter", nil))
			return
		}
	}

	if v := c.Query("has_reminder"); v != "" {
		hasReminder, err := strconv.ParseBool(v)
		if err != nil {
			c.Error(apperrors.NewBadRequest("invalid has_reminder filter", err))
			return
		}
		filters.HasReminder = &hasReminder
	}

	page, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(page))
}

func (h *Handler) UpdateEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewBadRequest("invalid event ID", err))
		return
	}

	var req model.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequest("invalid request body", err))
		return
	}

	event, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(event))
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewBadRequest("invalid event ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
