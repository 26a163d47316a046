package stats

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sitecost/internal/pkg/response"
)

type Handler struct {
	stats Repository
}

func NewHandler(stats Repository) *Handler {
	return &Handler{stats: stats}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	group := protected.Group("/stats")
	{
		group.GET("/summary", h.Summary)
		group.GET("/jobs", h.ByJob)
		group.GET("/monthly", h.Monthly)
	}
}

func (h *Handler) Summary(c *gin.Context) {
	rows, err := h.stats.Summary(c.Request.Context(), c.GetInt64("company_id"), approvedOnly(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "STATS_FAILED", "Failed to compute summary")
		return
	}
	response.Success(c, http.StatusOK, rows)
}

func (h *Handler) ByJob(c *gin.Context) {
	rows, err := h.stats.ByJob(c.Request.Context(), c.GetInt64("company_id"), approvedOnly(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "STATS_FAILED", "Failed to compute job totals")
		return
	}
	response.Success(c, http.StatusOK, rows)
}

func (h *Handler) Monthly(c *gin.Context) {
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().UTC().Year())))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_YEAR", "Invalid year")
		return
	}

	rows, err := h.stats.Monthly(c.Request.Context(), c.GetInt64("company_id"), year, approvedOnly(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "STATS_FAILED", "Failed to compute monthly totals")
		return
	}
	response.Success(c, http.StatusOK, rows)
}

func approvedOnly(c *gin.Context) bool {
	return c.Query("approved_only") == "true"
}
