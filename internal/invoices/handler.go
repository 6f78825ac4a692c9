package invoices

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"invoice-backend/internal/claims"
	"invoice-backend/internal/shared/server/middleware"
	"invoice-backend/internal/shared/server/respond"
	"invoice-backend/internal/upload"
)

const (
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFilename    = "invoices.xlsx"
	multipartOverhead = 1 << 20
)

// Handler wires HTTP handlers to the invoices service.
type Handler struct {
	Svc         *Service
	Claims      middleware.ClaimReader
	MaxFileSize int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, reader middleware.ClaimReader, maxFileSize int64) *Handler {
	if maxFileSize <= 0 {
		maxFileSize = upload.DefaultMaxFileSize
	}
	return &Handler{Svc: svc, Claims: reader, MaxFileSize: maxFileSize}
}

// RegisterRoutes attaches invoice routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/extract", middleware.IngestClaim(h.Claims), h.extract)
	rg.PUT("/invoices/:id/status", h.updateStatus)
	rg.OPTIONS("/invoices/:id/status", h.statusOptions)
	rg.GET("/review-queue", h.reviewQueue)
	rg.GET("/analytics", h.analytics)
	rg.GET("/invoices", middleware.ListingClaim(h.Claims), h.listInvoices)
	rg.GET("/invoices/export", middleware.ListingClaim(h.Claims), h.exportInvoices)
}

func (h *Handler) extract(c *gin.Context) {
	claim, _ := middleware.ClaimFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxFileSize+multipartOverhead)

	file, err := h.readUpload(c)
	if err != nil {
		h.writeIngestError(c, err)
		return
	}

	result, err := h.Svc.Ingest(c.Request.Context(), claim, file)
	if err != nil {
		h.writeIngestError(c, err)
		return
	}

	inv := result.Invoice
	c.Set(middleware.InvoiceIDKey, inv.ID)
	respond.OK(c, ExtractResponse{
		Success:       true,
		InvoiceID:     inv.ID,
		UserID:        inv.UserID,
		ExtractedData: inv.ExtractedData,
		CanonicalData: inv.CanonicalData,
		Confidence:    inv.ConfidenceScores,
		Status:        inv.Status,
		Valid:         result.Valid,
		Error:         result.ValidationError,
		UsageStats:    result.Usage,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// readUpload reads the whole multipart file into memory before any check.
func (h *Handler) readUpload(c *gin.Context) (*upload.File, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &upload.FileTooLargeError{Size: c.Request.ContentLength}
		}
		return nil, &upload.MissingFileError{Message: "No file provided"}
	}
	if fh.Filename == "" {
		return nil, &upload.MissingFileError{Message: "No file selected"}
	}
	if fh.Size > h.MaxFileSize {
		return nil, &upload.FileTooLargeError{Size: fh.Size}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &upload.File{Filename: fh.Filename, Data: data}, nil
}

// writeIngestError is the single translation point from ingestion errors to
// HTTP responses.
func (h *Handler) writeIngestError(c *gin.Context, err error) {
	var (
		tooLarge *upload.FileTooLargeError
		quality  *upload.QualityError
	)
	switch {
	case errors.Is(err, ErrUninitialized):
		respond.Failure(c, http.StatusInternalServerError, "uninitialized", "Database not initialized", nil)
	case errors.Is(err, claims.ErrMissingIdentity):
		respond.Failure(c, http.StatusUnauthorized, "unauthorized", "Token missing email identifier", nil)
	case errors.Is(err, claims.ErrInvalidToken):
		respond.Failure(c, http.StatusUnauthorized, "unauthorized", "Invalid token format", nil)
	case errors.Is(err, upload.ErrMissingFile):
		respond.Failure(c, http.StatusBadRequest, "missing_file", err.Error(), nil)
	case errors.As(err, &tooLarge):
		respond.Failure(c, http.StatusRequestEntityTooLarge, "file_too_large", tooLarge.Error(), nil)
	case errors.As(err, &quality):
		respond.Failure(c, http.StatusBadRequest, "quality_failed", quality.Error(), gin.H{
			"quality_score": round2(quality.Score),
		})
	case errors.Is(err, ErrExtractionFailed):
		respond.Failure(c, http.StatusInternalServerError, "extraction_failed", err.Error(), nil)
	case errors.Is(err, ErrStorage):
		respond.Failure(c, http.StatusInternalServerError, "storage_error", err.Error(), nil)
	default:
		respond.Failure(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}

func (h *Handler) updateStatus(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.InvoiceIDKey, id)

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = StatusRequest{}
	}

	err := h.Svc.SetStatus(c.Request.Context(), id, req.Status, req.ApprovedBy)
	switch {
	case err == nil:
	case errors.Is(err, ErrUninitialized):
		respond.Error(c, http.StatusInternalServerError, "uninitialized", "Database not initialized", nil)
		return
	case errors.Is(err, ErrInvalidStatus):
		respond.Error(c, http.StatusBadRequest, "invalid_status", "Invalid status value", nil)
		return
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Invoice not found", nil)
		return
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}

	c.Set(middleware.StatusTransitionKey, "->"+req.Status)
	respond.OK(c, StatusResponse{
		Success: true,
		Message: "Invoice marked as " + req.Status,
		ID:      id,
	})
}

func (h *Handler) statusOptions(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *Handler) reviewQueue(c *gin.Context) {
	invoices, err := h.Svc.ReviewQueue(c.Request.Context())
	if err != nil {
		h.writeQueryError(c, err)
		return
	}
	respond.OK(c, ReviewQueueResponse{Invoices: invoices, Count: len(invoices)})
}

func (h *Handler) analytics(c *gin.Context) {
	out, err := h.Svc.Analytics(c.Request.Context())
	if err != nil {
		h.writeQueryError(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) listInvoices(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	invoices, err := h.Svc.List(c.Request.Context(), userID, parseLimit(c.Query("limit")))
	if err != nil {
		if errors.Is(err, ErrUninitialized) {
			h.writeQueryError(c, err)
			return
		}
		respond.Failure(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	respond.OK(c, ListResponse{Success: true, Count: len(invoices), Invoices: invoices})
}

func (h *Handler) exportInvoices(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	data, err := h.Svc.ExportXLSX(c.Request.Context(), userID)
	if err != nil {
		h.writeQueryError(c, err)
		return
	}
	respond.Attachment(c, exportFilename, xlsxContentType, data)
}

func (h *Handler) writeQueryError(c *gin.Context, err error) {
	if errors.Is(err, ErrUninitialized) {
		respond.Error(c, http.StatusInternalServerError, "uninitialized", "Database error", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
}

// parseLimit reads ?limit; missing or malformed values select the default.
func parseLimit(raw string) int {
	if raw == "" {
		return DefaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultListLimit
	}
	return n
}
