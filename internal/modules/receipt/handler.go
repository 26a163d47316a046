package receipt

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sitecost/internal/domain"
	"sitecost/internal/middleware"
	"sitecost/internal/pkg/response"
)

// Handler manages all HTTP interactions for receipts.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	receipts := protected.Group("/receipts")
	{
		receipts.POST("", h.CreateManual)
		receipts.POST("/upload", h.Upload)
		receipts.POST("/upload/batch", h.UploadBatch)
		receipts.GET("", h.List)
		receipts.GET("/:id", h.Get)
		receipts.PUT("/:id", h.Update)
		receipts.POST("/:id/reprocess", h.Reprocess)
		receipts.POST("/:id/duplicate", h.Duplicate)
		receipts.DELETE("/:id", h.Delete)

		admin := receipts.Group("")
		admin.Use(middleware.AdminOnly())
		{
			admin.POST("/:id/approve", h.Approve)
			admin.POST("/:id/reject", h.Reject)
		}
	}
}

// Upload accepts one multipart file plus receipt fields as form values.
func (h *Handler) Upload(c *gin.Context) {
	actor := actorFrom(c)

	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "NO_FILE", "No file provided")
		return
	}

	req := CreateManualRequest{
		Vendor:      c.PostForm("vendor"),
		Description: c.PostForm("description"),
	}
	if req.Vendor == "" {
		req.Vendor = vendorFromFilename(fh.Filename)
	}
	if v := c.PostForm("amount"); v != "" {
		if amount, perr := strconv.ParseFloat(v, 64); perr == nil {
			req.Amount = amount
		}
	}
	if v := c.PostForm("tax"); v != "" {
		if tax, perr := strconv.ParseFloat(v, 64); perr == nil {
			req.Tax = &tax
		}
	}
	if v := c.PostForm("job_id"); v != "" {
		if jobID, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			req.JobID = &jobID
		}
	}
	if v := c.PostForm("receipt_date"); v != "" {
		if date, perr := time.Parse(time.RFC3339, v); perr == nil {
			req.ReceiptDate = &date
		}
	}

	rec, err := h.service.Upload(c.Request.Context(), actor, req, fh)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, h.toResponse(c.Request.Context(), rec))
}

// UploadBatch accepts multiple files under the "files" field and processes
// them independently: the response always lists both successes and failures.
func (h *Handler) UploadBatch(c *gin.Context) {
	actor := actorFrom(c)

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_FORM", "Invalid multipart form")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, "NO_FILES", "No files provided")
		return
	}

	var jobID *int64
	if v := c.PostForm("job_id"); v != "" {
		if id, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			jobID = &id
		}
	}

	receipts, failed := h.service.UploadBatch(c.Request.Context(), actor, jobID, files)

	succeeded := make([]*Response, 0, len(receipts))
	for _, rec := range receipts {
		succeeded = append(succeeded, h.toResponse(c.Request.Context(), rec))
	}
	failures := make([]gin.H, 0, len(failed))
	for _, f := range failed {
		failures = append(failures, gin.H{
			"filename": f.Filename,
			"error":    f.Err.Error(),
		})
	}

	status := http.StatusCreated
	if len(succeeded) == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"success": len(succeeded) > 0,
		"data": gin.H{
			"succeeded": succeeded,
			"failed":    failures,
		},
	})
}

func (h *Handler) CreateManual(c *gin.Context) {
	actor := actorFrom(c)

	var req CreateManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	rec, err := h.service.CreateManual(c.Request.Context(), actor, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, h.toResponse(c.Request.Context(), rec))
}

func (h *Handler) Get(c *gin.Context) {
	actor := actorFrom(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toResponse(c.Request.Context(), rec))
}

func (h *Handler) List(c *gin.Context) {
	actor := actorFrom(c)

	f := ListFilter{Status: c.Query("status")}
	if v := c.Query("job_id"); v != "" {
		if jobID, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.JobID = &jobID
		}
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DateFrom = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DateTo = &t
		}
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))

	receipts, total, err := h.service.List(c.Request.Context(), actor, f)
	if err != nil {
		h.writeError(c, err)
		return
	}

	items := make([]*Response, 0, len(receipts))
	for _, rec := range receipts {
		items = append(items, h.toResponse(c.Request.Context(), rec))
	}
	response.Success(c, http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  f.Page,
	})
}

func (h *Handler) Update(c *gin.Context) {
	actor := actorFrom(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	rec, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toResponse(c.Request.Context(), rec))
}

func (h *Handler) Approve(c *gin.Context) { h.reviewHandler(c, h.service.Approve) }
func (h *Handler) Reject(c *gin.Context)  { h.reviewHandler(c, h.service.Reject) }

func (h *Handler) reviewHandler(c *gin.Context, fn func(context.Context, Actor, int64) (*domain.Receipt, error)) {
	actor := actorFrom(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	rec, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toResponse(c.Request.Context(), rec))
}

func (h *Handler) Reprocess(c *gin.Context) {
	actor := actorFrom(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	rec, err := h.service.Reprocess(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toResponse(c.Request.Context(), rec))
}

func (h *Handler) Duplicate(c *gin.Context) {
	actor := actorFrom(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req DuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	rec, err := h.service.Duplicate(c.Request.Context(), actor, id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, h.toResponse(c.Request.Context(), rec))
}

func (h *Handler) Delete(c *gin.Context) {
	actor := actorFrom(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// toResponse converts a receipt to its wire shape, signing both object keys.
// Signing failures degrade to an empty URL rather than failing the request.
func (h *Handler) toResponse(ctx context.Context, rec *domain.Receipt) *Response {
	resp := &Response{
		ID:          rec.ID,
		JobID:       rec.JobID,
		UserID:      rec.UserID,
		Vendor:      rec.Vendor,
		Description: rec.Description,
		Amount:      rec.Amount,
		Tax:         rec.Tax,
		TotalAmount: rec.TotalAmount,
		ReceiptDate: rec.ReceiptDate,
		Status:      rec.Status,
		ImageWidth:  rec.ImageWidth,
		ImageHeight: rec.ImageHeight,
		ImageFormat: rec.ImageFormat,
		ImageSize:   rec.ImageSize,
		CreatedAt:   rec.CreatedAt,
	}

	if rec.ImageKey != nil {
		if url, err := h.service.uploader.SignedURL(ctx, *rec.ImageKey); err == nil {
			resp.ImageURL = url
		}
	}
	if rec.ThumbnailKey != nil {
		if url, err := h.service.uploader.SignedURL(ctx, *rec.ThumbnailKey); err == nil {
			resp.ThumbnailURL = url
		}
	}
	return resp
}

// writeError maps the error taxonomy to HTTP responses. Every sentinel has a
// distinct code so clients can show an accurate message.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrReceiptNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Receipt not found")
	case errors.Is(err, ErrNotOwner):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You do not own this receipt")
	case errors.Is(err, ErrInvalidStatus):
		response.Error(c, http.StatusConflict, "INVALID_STATUS", "Operation not allowed in current status")
	case errors.Is(err, ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, "EMPTY_FILE", "File is empty")
	case errors.Is(err, ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error())
	case errors.Is(err, ErrInvalidFileType):
		response.Error(c, http.StatusBadRequest, "INVALID_FILE_TYPE", err.Error())
	case errors.Is(err, ErrDimensionsTooSmall):
		response.Error(c, http.StatusBadRequest, "DIMENSIONS_TOO_SMALL", err.Error())
	case errors.Is(err, ErrUnsupportedFormat):
		response.Error(c, http.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT", "PDF receipts cannot be processed")
	case errors.Is(err, ErrConversionFailed):
		response.Error(c, http.StatusUnprocessableEntity, "CONVERSION_FAILED", "Image format cannot be converted on this platform")
	case errors.Is(err, ErrUnreadableImage):
		response.Error(c, http.StatusBadRequest, "UNREADABLE_IMAGE", "File is not a readable image")
	case errors.Is(err, ErrObjectNotFound):
		response.Error(c, http.StatusNotFound, "OBJECT_NOT_FOUND", "Stored file is missing")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

func actorFrom(c *gin.Context) Actor {
	return Actor{
		UserID:    c.GetInt64("user_id"),
		CompanyID: c.GetInt64("company_id"),
		Role:      c.GetString("role"),
	}
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid receipt ID")
		return 0, false
	}
	return id, true
}
