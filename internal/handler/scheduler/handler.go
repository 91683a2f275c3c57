package scheduler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/reminder-api/internal/handler"
	"github.com/jwalitptl/reminder-api/internal/worker"
	"github.com/jwalitptl/reminder-api/pkg/auth"
)

// StatusSource is the read side of the reminder scheduler.
type StatusSource interface {
	GetStatus() worker.Status
	Jobs() []worker.Job
}

type Handler struct {
	scheduler StatusSource
}

func NewHandler(scheduler StatusSource) *Handler {
	return &Handler{scheduler: scheduler}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/scheduler/status", h.GetStatus)
}

// GetStatus returns the aggregate counts; ?jobs=true adds the caller's jobs.
func (h *Handler) GetStatus(c *gin.Context) {
	data := gin.H{"status": h.scheduler.GetStatus()}
	if c.Query("jobs") == "true" {
		ownerID, _ := auth.OwnerFromContext(c.Request.Context())
		jobs := make([]worker.Job, 0)
		for _, job := range h.scheduler.Jobs() {
			if job.OwnerID == ownerID {
				jobs = append(jobs, job)
			}
		}
		data["jobs"] = jobs
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(data))
}
