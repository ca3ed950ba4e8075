package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trading-journal-backend/internal/models"
	"trading-journal-backend/internal/repository"
	"trading-journal-backend/internal/services/staging"
)

// AdminHandler serves the ingest review queue and broker-format approval.
type AdminHandler struct {
	store      *repository.Store
	stagingTTL time.Duration
}

func NewAdminHandler(store *repository.Store, stg *staging.Service) *AdminHandler {
	return &AdminHandler{store: store, stagingTTL: stg.TTL()}
}

// ListIngestChecks returns the admin review queue.
func (h *AdminHandler) ListIngestChecks(c *gin.Context) {
	status := c.Query("status")
	checks, err := h.store.ListIngestChecks(c.Request.Context(), status, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": checks, "count": len(checks)})
}

// ApproveFormat approves a broker format and promotes its staged orders into
// the live tables, all in one transaction.
func (h *AdminHandler) ApproveFormat(c *gin.Context) {
	formatID, err := uuid.Parse(c.Param("formatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format ID"})
		return
	}

	ctx := c.Request.Context()
	format, err := h.store.FormatByID(ctx, formatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if format == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "format not found"})
		return
	}

	var promoted int
	err = h.store.InTx(ctx, func(txCtx context.Context, tx *repository.Store) error {
		if err := tx.SetFormatApproval(txCtx, formatID, true); err != nil {
			return err
		}
		if err := tx.UpdateIngestChecksByFormat(txCtx, formatID, map[string]interface{}{
			"admin_review_status": models.AdminReviewApproved,
		}); err != nil {
			return err
		}
		stg := staging.NewService(tx, h.stagingTTL)
		n, err := stg.PromoteFormat(txCtx, formatID)
		promoted = n
		return err
	})
	if err != nil {
		log.Printf("format approval failed for %s: %v", formatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "approval failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"approved": true, "promotedOrders": promoted})
}

// RejectFormat marks a format rejected; its staged orders are left for TTL
// cleanup.
func (h *AdminHandler) RejectFormat(c *gin.Context) {
	formatID, err := uuid.Parse(c.Param("formatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format ID"})
		return
	}

	ctx := c.Request.Context()
	err = h.store.InTx(ctx, func(txCtx context.Context, tx *repository.Store) error {
		if err := tx.SetFormatApproval(txCtx, formatID, false); err != nil {
			return err
		}
		return tx.UpdateIngestChecksByFormat(txCtx, formatID, map[string]interface{}{
			"admin_review_status": models.AdminReviewRejected,
		})
	})
	if err != nil {
		log.Printf("format rejection failed for %s: %v", formatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rejection failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": true})
}
