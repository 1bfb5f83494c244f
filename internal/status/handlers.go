package status

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/ksred/tradeplan/pkg/response"
)

// GinHandlers contains HTTP handlers for the read-only status endpoints
type GinHandlers struct {
	service *Service
	now     func() time.Time
}

// NewGinHandlers creates a new set of HTTP handlers for status endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
		now:     time.Now,
	}
}

// StatusHandler handles GET requests for catalog counts
func (h *GinHandlers) StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := h.service.Status(c.Request.Context())
		response.Handle(c, summary, err)
	}
}

// ListSchedulesHandler handles GET requests to list schedules
// Query parameters: active (bool), account
func (h *GinHandlers) ListSchedulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter ScheduleFilter
		if v := c.Query("active"); v != "" {
			active, err := strconv.ParseBool(v)
			if err != nil {
				response.BadRequest(c, "active must be true or false")
				return
			}
			filter.ActiveOnly = active
		}
		if v := c.Query("account"); v != "" {
			account, err := catalog.NormalizeAccount(v)
			if err != nil {
				response.BadRequest(c, err.Error())
				return
			}
			filter.Account = account
		}

		schedules, err := h.service.ListSchedules(c.Request.Context(), filter)
		response.Handle(c, schedules, err)
	}
}

// GetTemplateHandler handles GET requests for one template
// URL parameter: name, e.g. "PUT SPREAD (09:33) P1"
func (h *GinHandlers) GetTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if name == "" {
			response.BadRequest(c, "Template name is required")
			return
		}

		template, err := h.service.GetTemplate(c.Request.Context(), name)
		response.Handle(c, template, err)
	}
}

// PnLHandler handles GET requests for a session P&L summary
// Query parameters: date (YYYY-MM-DD, default today), from, to (HH:MM), series (bool)
func (h *GinHandlers) PnLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		day := h.now()
		if v := c.Query("date"); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				response.BadRequest(c, "date must be YYYY-MM-DD")
				return
			}
			day = parsed
		}

		window, err := ParseWindow(c.Query("from"), c.Query("to"))
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		withSeries, _ := strconv.ParseBool(c.Query("series"))

		summary, err := h.service.PnL(c.Request.Context(), day, window, withSeries)
		response.Handle(c, summary, err)
	}
}

// RegisterRoutes mounts the status endpoints on group
func (h *GinHandlers) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/status", h.StatusHandler())
	group.GET("/schedules", h.ListSchedulesHandler())
	group.GET("/templates/:name", h.GetTemplateHandler())
	group.GET("/pnl", h.PnLHandler())
}
