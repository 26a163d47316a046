package job

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sitecost/internal/middleware"
	"sitecost/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	jobs := protected.Group("/jobs")
	{
		jobs.GET("", h.List)
		jobs.GET("/:id", h.Get)

		admin := jobs.Group("")
		admin.Use(middleware.AdminOnly())
		{
			admin.POST("", h.Create)
			admin.PUT("/:id", h.Update)
			admin.DELETE("/:id", h.Delete)
		}
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	j, err := h.service.Create(c.Request.Context(), c.GetInt64("company_id"), req)
	if err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			response.Error(c, http.StatusConflict, "DUPLICATE_CODE", "Job code already in use")
			return
		}
		response.Error(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create job")
		return
	}
	response.Success(c, http.StatusCreated, j)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	j, err := h.service.Get(c.Request.Context(), c.GetInt64("company_id"), id)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Job not found")
		return
	}
	response.Success(c, http.StatusOK, j)
}

func (h *Handler) List(c *gin.Context) {
	jobs, err := h.service.List(c.Request.Context(), c.GetInt64("company_id"), c.Query("status"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list jobs")
		return
	}
	response.Success(c, http.StatusOK, jobs)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	j, err := h.service.Update(c.Request.Context(), c.GetInt64("company_id"), id, req)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Job not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update job")
		return
	}
	response.Success(c, http.StatusOK, j)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.GetInt64("company_id"), id); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Job not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete job")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid job ID")
		return 0, false
	}
	return id, true
}
