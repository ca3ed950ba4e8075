package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trading-journal-backend/internal/middleware"
	"trading-journal-backend/internal/models"
	"trading-journal-backend/internal/parser"
	"trading-journal-backend/internal/ratelimit"
	"trading-journal-backend/internal/services/finalize"
	"trading-journal-backend/internal/services/ingest"
	"trading-journal-backend/internal/services/session"
)

// Finalizer is the finalization workflow as the handler sees it.
type Finalizer interface {
	Finalize(ctx context.Context, userID string, req finalize.Request) (*finalize.Response, error)
}

// BatchStore reads batches for the progress endpoint.
type BatchStore interface {
	BatchByID(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error)
}

type IngestionHandler struct {
	upload    *ingest.Service
	finalizer Finalizer
	store     BatchStore
	sessions  *session.Tracker
	limiter   ratelimit.Limiter
}

func NewIngestionHandler(upload *ingest.Service, finalizer Finalizer, store BatchStore, sessions *session.Tracker, limiter ratelimit.Limiter) *IngestionHandler {
	return &IngestionHandler{upload: upload, finalizer: finalizer, store: store, sessions: sessions, limiter: limiter}
}

// Upload accepts a broker CSV/XLSX export, runs mapping inference and creates
// the pending import batch.
func (h *IngestionHandler) Upload(c *gin.Context) {
	userID := middleware.UserID(c)
	if !h.limiter.Allow(userID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "upload rate limit exceeded"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}

	result, err := h.upload.Upload(c.Request.Context(), userID, header.Filename, c.PostForm("broker"), raw)
	if err != nil {
		if errors.Is(err, parser.ErrMalformedInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed file", "details": err.Error()})
			return
		}
		log.Printf("upload failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type finalizePayload struct {
	ImportBatchID     string            `json:"importBatchId" binding:"required"`
	CorrectedMappings map[string]string `json:"correctedMappings"`
	UserApproved      bool              `json:"userApproved"`
	ReportError       bool              `json:"reportError"`
	ErrorDetails      string            `json:"errorDetails"`
}

// FinalizeMappings applies the user's mapping decision to a pending batch.
func (h *IngestionHandler) FinalizeMappings(c *gin.Context) {
	var payload finalizePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	batchID, err := uuid.Parse(payload.ImportBatchID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid importBatchId"})
		return
	}

	userID := middleware.UserID(c)
	resp, err := h.finalizer.Finalize(c.Request.Context(), userID, finalize.Request{
		ImportBatchID:     batchID,
		CorrectedMappings: payload.CorrectedMappings,
		UserApproved:      payload.UserApproved,
		ReportError:       payload.ReportError,
		ErrorDetails:      payload.ErrorDetails,
	})
	if err != nil {
		h.writeFinalizeError(c, userID, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IngestionHandler) writeFinalizeError(c *gin.Context, userID string, err error) {
	switch {
	case errors.Is(err, finalize.ErrBatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "import batch not found"})
	case errors.Is(err, finalize.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "import batch does not belong to caller"})
	case errors.Is(err, finalize.ErrBatchNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "import batch already finalized"})
	case errors.Is(err, finalize.ErrNoPendingMappings):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no pending AI mappings on this batch"})
	case errors.Is(err, finalize.ErrExpiredUpload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded file expired", "details": "please re-upload the file"})
	case errors.Is(err, parser.ErrMalformedInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed file", "details": err.Error()})
	default:
		// Transaction timeouts land here: the DB rolled back fully, the
		// client may retry.
		log.Printf("finalize failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "finalization failed"})
	}
}

// GetBatchProgress reports one batch's status and counts.
func (h *IngestionHandler) GetBatchProgress(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	batch, err := h.store.BatchByID(c.Request.Context(), batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if batch == nil || batch.UserID != middleware.UserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	payload := gin.H{
		"status":             batch.Status,
		"terminal":           batch.Terminal(),
		"totalRecords":       batch.TotalRecords,
		"successCount":       batch.SuccessCount,
		"errorCount":         batch.ErrorCount,
		"userReviewRequired": batch.UserReviewRequired,
		"sessionComplete":    batch.IsSessionComplete,
		"sessionStatus":      batch.SessionStatus,
	}
	if batch.UploadSessionID != nil {
		attempts, err := h.sessions.AttemptCount(c.Request.Context(), *batch.UploadSessionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		payload["sessionAttempts"] = attempts
	}
	c.JSON(http.StatusOK, payload)
}
