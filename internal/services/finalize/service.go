// Package finalize implements the mapping-finalization workflow: it takes a
// pending import batch holding an AI mapping proposal, applies the user's
// decision, creates or reuses the broker format, records review feedback and
// stages or processes the orders, all inside one transaction.
package finalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"trading-journal-backend/internal/models"
	"trading-journal-backend/internal/parser"
	"trading-journal-backend/internal/services/catalog"
	"trading-journal-backend/internal/services/session"
	"trading-journal-backend/internal/services/staging"
)

// Datastore is the persistence surface the orchestrator needs. A single
// implementation backs both transactional and non-transactional use; TxRunner
// hands out a transaction-bound Datastore.
type Datastore interface {
	catalog.Store
	session.Store
	staging.Store

	BatchByID(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error)
	LockBatch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error)
	UpdateBatch(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	LatestUnattachedUploadLog(ctx context.Context, userID, filename string) (*models.CsvUploadLog, error)
	UpdateUploadLog(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	CreateIngestCheck(ctx context.Context, c *models.AiIngestToCheck) error
	UpdateIngestCheck(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	CreateFeedbackItems(ctx context.Context, items []models.AiIngestFeedbackItem) error
	CreateMetric(ctx context.Context, m *models.StagingMetric) error
}

// TxRunner runs a callback inside one database transaction. The context
// handed to the callback carries the transaction's deadline and must be used
// for every statement issued through tx.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Datastore) error) error
}

// UsageReporter is the external quota collaborator. Failures are logged,
// never propagated.
type UsageReporter interface {
	IncrementUploadCount(ctx context.Context, userID string) error
}

// Request is one finalize-mappings call.
type Request struct {
	ImportBatchID     uuid.UUID
	CorrectedMappings map[string]string
	UserApproved      bool
	ReportError       bool
	ErrorDetails      string
}

// Response mirrors the finalize-mappings endpoint payload.
type Response struct {
	Success             bool     `json:"success"`
	SuccessCount        int      `json:"successCount"`
	ErrorCount          int      `json:"errorCount"`
	Errors              []string `json:"errors,omitempty"`
	BrokerFormatCreated bool     `json:"brokerFormatCreated"`
	AiIngestCheckID     string   `json:"aiIngestCheckId,omitempty"`
	SessionComplete     bool     `json:"sessionComplete"`
	SessionProgress     string   `json:"sessionProgress,omitempty"`
}

type Service struct {
	store         Datastore
	tx            TxRunner
	quota         UsageReporter
	sessionWindow time.Duration
	stagingTTL    time.Duration
}

func NewService(store Datastore, tx TxRunner, quota UsageReporter, sessionWindow, stagingTTL time.Duration) *Service {
	return &Service{
		store:         store,
		tx:            tx,
		quota:         quota,
		sessionWindow: sessionWindow,
		stagingTTL:    stagingTTL,
	}
}

// Finalize runs the full state machine for one batch.
func (s *Service) Finalize(ctx context.Context, userID string, req Request) (*Response, error) {
	batch, err := s.store.BatchByID(ctx, req.ImportBatchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	if batch.UserID != userID {
		return nil, ErrNotOwner
	}
	if batch.Status != models.BatchStatusPending {
		return nil, ErrBatchNotPending
	}
	pending, err := models.DecodePendingReview(batch.PendingReview)
	if err != nil {
		return nil, ErrNoPendingMappings
	}
	if batch.TempFileContent == nil || *batch.TempFileContent == "" {
		// Raw files are held only until finalization by design; once evicted
		// the upload is unrecoverable. The batch stays untouched.
		return nil, ErrExpiredUpload
	}

	if req.ReportError {
		return s.failBatch(ctx, batch, "user reported incorrect AI mapping: "+req.ErrorDetails)
	}
	if !req.UserApproved {
		return s.failBatch(ctx, batch, "user rejected the proposed mapping")
	}
	return s.approve(ctx, userID, batch, pending, req)
}

// failBatch terminates the batch with a descriptive note. Used for the
// report-error and reject branches; no format or order side effects.
func (s *Service) failBatch(ctx context.Context, batch *models.ImportBatch, note string) (*Response, error) {
	errsJSON, _ := json.Marshal([]string{note})
	err := s.store.UpdateBatch(ctx, batch.ID, map[string]interface{}{
		"status":            models.BatchStatusFailed,
		"errors":            errsJSON,
		"temp_file_content": nil,
		"pending_review":    nil,
	})
	if err != nil {
		return nil, err
	}
	return &Response{Success: true, Errors: []string{note}}, nil
}

type txOutcome struct {
	result        *staging.Result
	format        *models.BrokerFormat
	formatCreated bool
	checkID       uuid.UUID
	sess          *session.Session
	newlyComplete bool
}

func (s *Service) approve(ctx context.Context, userID string, batch *models.ImportBatch, pending *models.PendingReview, req Request) (*Response, error) {
	merged := MergeCorrections(pending.Mappings, req.CorrectedMappings)

	// The parser is pure and deterministic, so re-parsing the held raw file
	// yields the same headers and rows as at upload time.
	parsed, err := parser.ParseAuto(batch.Filename, []byte(*batch.TempFileContent))
	if err != nil {
		s.markBatchFailed(ctx, batch.ID, fmt.Sprintf("re-parse failed: %v", err))
		return nil, err
	}

	uploadLog, err := s.store.LatestUnattachedUploadLog(ctx, userID, batch.Filename)
	if err != nil {
		return nil, err
	}
	if uploadLog == nil {
		s.markBatchFailed(ctx, batch.ID, "no upload log found for this batch")
		return nil, ErrOrphanedUploadLog
	}

	var out txOutcome
	txErr := s.tx.InTx(ctx, func(txCtx context.Context, tx Datastore) error {
		return s.runApproveTx(txCtx, tx, userID, batch.ID, uploadLog.ID, pending, merged, parsed, &out)
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrBatchNotPending) {
			// Best-effort diagnostic write; the original error is what the
			// caller needs to see.
			s.markUploadLogFailed(ctx, uploadLog.ID, txErr)
		}
		return nil, txErr
	}

	s.postCommit(ctx, userID, batch.ID, &out)

	totalCompleted := out.sess.PreviousCompleted + out.result.StagedCount
	return &Response{
		Success:             true,
		SuccessCount:        out.result.StagedCount,
		ErrorCount:          out.result.ErrorCount,
		Errors:              out.result.Errors,
		BrokerFormatCreated: out.formatCreated,
		AiIngestCheckID:     out.checkID.String(),
		SessionComplete:     out.newlyComplete || session.IsComplete(out.sess.PreviousCompleted, out.result.StagedCount, out.sess.ExpectedRowCount),
		SessionProgress:     fmt.Sprintf("%d/%d", totalCompleted, out.sess.ExpectedRowCount),
	}, nil
}

// runApproveTx is the atomic heart of finalization. Everything in here
// commits or rolls back together.
func (s *Service) runApproveTx(ctx context.Context, tx Datastore, userID string, batchID, uploadLogID uuid.UUID, pending *models.PendingReview, merged map[string]models.PendingMapping, parsed *parser.ParsedFile, out *txOutcome) error {
	// Re-read under a row lock: a concurrent finalization either sees the
	// status change here or serializes behind this lock.
	locked, err := tx.LockBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if locked == nil || locked.Status != models.BatchStatusPending {
		return ErrBatchNotPending
	}

	cat := catalog.NewService(tx)
	broker, err := cat.FindOrCreateBroker(ctx, brokerNameFor(pending, locked))
	if err != nil {
		return err
	}

	// Reuse the existing format generation only when the user submitted no
	// corrections; corrections always cut a new unapproved generation.
	var format *models.BrokerFormat
	if len(correctionsOf(merged)) == 0 {
		format, err = cat.LookupFormat(ctx, broker.ID, parsed.Headers)
		if err != nil {
			return err
		}
	}
	if format == nil {
		name, err := cat.GenerateFormatName(ctx, broker.ID, broker.Name)
		if err != nil {
			return err
		}
		format, err = cat.CreateFormat(ctx, broker.ID, name, parsed.Headers, FieldMappings(merged), pending.OverallConfidence)
		if err != nil {
			return err
		}
		out.formatCreated = true
	}

	check := &models.AiIngestToCheck{
		ID:                uuid.New(),
		UserID:            userID,
		BrokerFormatID:    format.ID,
		UploadLogID:       uploadLogID,
		ImportBatchID:     batchID,
		ProcessingStatus:  models.IngestCheckProcessing,
		AdminReviewStatus: models.AdminReviewPending,
		AIConfidence:      pending.OverallConfidence,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	if err := tx.CreateIngestCheck(ctx, check); err != nil {
		return err
	}
	out.checkID = check.ID

	if err := tx.CreateFeedbackItems(ctx, BuildFeedbackItems(check.ID, pending.Mappings, correctionsOf(merged))); err != nil {
		return err
	}

	if err := tx.UpdateUploadLog(ctx, uploadLogID, map[string]interface{}{
		"import_batch_id": batchID,
		"status":          models.UploadLogValidated,
		"row_count":       len(parsed.Rows),
	}); err != nil {
		return err
	}

	tracker := session.NewTracker(tx, s.sessionWindow)
	sess, err := s.resolveSession(ctx, tracker, locked, userID, len(parsed.Rows))
	if err != nil {
		return err
	}
	out.sess = sess

	stg := staging.NewService(tx, s.stagingTTL)
	var result *staging.Result
	batchStatus := models.BatchStatusPending
	if format.IsApproved {
		// Pre-existing approved format: process straight into live tables.
		result, err = stg.ProcessLive(ctx, parsed.Rows, format, locked, userID)
		batchStatus = models.BatchStatusCompleted
	} else {
		result, err = stg.StageOrders(ctx, parsed.Rows, format, locked, userID)
	}
	if err != nil {
		return err
	}
	out.result = result
	out.format = format

	errsJSON, _ := json.Marshal(result.Errors)
	if err := tx.UpdateBatch(ctx, batchID, map[string]interface{}{
		"status":               batchStatus,
		"broker_type":          broker.Name,
		"total_records":        len(parsed.Rows),
		"success_count":        result.StagedCount,
		"error_count":          result.ErrorCount,
		"errors":               errsJSON,
		"ai_mapping_used":      true,
		"mapping_confidence":   pending.OverallConfidence,
		"column_mappings":      format.FieldMappings,
		"user_review_required": !format.IsApproved,
		"upload_session_id":    sess.ID,
		"expected_row_count":   sess.ExpectedRowCount,
		"completed_row_count":  result.StagedCount,
		"session_attempts":     locked.SessionAttempts + 1,
		"session_status":       models.SessionStatusActive,
		"temp_file_content":    nil,
		"pending_review":       nil,
	}); err != nil {
		return err
	}

	newlyComplete, err := tracker.Complete(ctx, sess, result.StagedCount, batchID)
	if err != nil {
		return err
	}
	out.newlyComplete = newlyComplete

	orderIDsJSON, _ := json.Marshal(result.OrderIDs)
	now := time.Now()
	return tx.UpdateIngestCheck(ctx, check.ID, map[string]interface{}{
		"processing_status": models.IngestCheckCompleted,
		"order_ids":         orderIDsJSON,
		"processed_at":      &now,
	})
}

// resolveSession joins the batch to its existing session, or detects/creates
// one for (user, filename).
func (s *Service) resolveSession(ctx context.Context, tracker *session.Tracker, batch *models.ImportBatch, userID string, rowCount int) (*session.Session, error) {
	if batch.UploadSessionID != nil {
		return tracker.Resume(ctx, *batch.UploadSessionID, batch.ExpectedRowCount, rowCount)
	}
	return tracker.DetectOrCreateSession(ctx, userID, batch.Filename, rowCount)
}

// postCommit performs the best-effort side effects: usage stats, staging
// metrics and the once-per-session quota increment. None of these may fail
// the finalization response.
func (s *Service) postCommit(ctx context.Context, userID string, batchID uuid.UUID, out *txOutcome) {
	cat := catalog.NewService(s.store)
	cat.UpdateFormatUsage(ctx, out.format.ID, out.result.ErrorCount == 0)

	metric := &models.StagingMetric{
		ID:            uuid.New(),
		JobName:       "finalize_staging",
		Status:        models.CleanupStatusOK,
		StagedDeleted: 0,
		ErrorCount:    out.result.ErrorCount,
		StartedAt:     time.Now(),
		CreatedAt:     time.Now(),
	}
	if err := s.store.CreateMetric(ctx, metric); err != nil {
		log.Printf("staging metric write failed for batch %s: %v", batchID, err)
	}

	if out.newlyComplete {
		if err := s.quota.IncrementUploadCount(ctx, userID); err != nil {
			log.Printf("quota increment failed for user %s: %v", userID, err)
		}
	}
}

func (s *Service) markBatchFailed(ctx context.Context, batchID uuid.UUID, reason string) {
	errsJSON, _ := json.Marshal([]string{reason})
	err := s.store.UpdateBatch(ctx, batchID, map[string]interface{}{
		"status":            models.BatchStatusFailed,
		"errors":            errsJSON,
		"temp_file_content": nil,
		"pending_review":    nil,
	})
	if err != nil {
		log.Printf("failed to mark batch %s FAILED: %v", batchID, err)
	}
}

func (s *Service) markUploadLogFailed(ctx context.Context, logID uuid.UUID, cause error) {
	err := s.store.UpdateUploadLog(ctx, logID, map[string]interface{}{
		"status": models.UploadLogFailed,
		"error":  cause.Error(),
	})
	if err != nil {
		log.Printf("failed to mark upload log %s FAILED: %v", logID, err)
	}
}

func brokerNameFor(pending *models.PendingReview, batch *models.ImportBatch) string {
	if pending.BrokerName != "" {
		return pending.BrokerName
	}
	if batch.BrokerType != "" {
		return batch.BrokerType
	}
	return "Unknown Broker"
}

// correctionsOf recovers the user-corrected headers from a merged proposal.
func correctionsOf(merged map[string]models.PendingMapping) map[string]string {
	out := map[string]string{}
	for header, m := range merged {
		if m.UserCorrected {
			out[header] = m.Field
		}
	}
	return out
}
