// Package ingest handles the initial upload: parse the file, propose a
// mapping, open or join an upload session and create the pending import
// batch that finalization later consumes.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trading-journal-backend/internal/inference"
	"trading-journal-backend/internal/models"
	"trading-journal-backend/internal/parser"
	"trading-journal-backend/internal/services/session"
)

// Store is the persistence surface upload intake needs.
type Store interface {
	session.Store
	CreateBatch(ctx context.Context, batch *models.ImportBatch) error
	CreateUploadLog(ctx context.Context, l *models.CsvUploadLog) error
}

type Service struct {
	store         Store
	engine        inference.Engine
	sessionWindow time.Duration
}

func NewService(store Store, engine inference.Engine, sessionWindow time.Duration) *Service {
	return &Service{store: store, engine: engine, sessionWindow: sessionWindow}
}

// Result describes the created batch and the proposal awaiting user review.
type Result struct {
	BatchID         uuid.UUID         `json:"importBatchId"`
	Proposal        *inference.Result `json:"proposal"`
	RowCount        int               `json:"rowCount"`
	SessionID       uuid.UUID         `json:"uploadSessionId"`
	SessionProgress string            `json:"sessionProgress"`
	ReviewRequired  bool              `json:"userReviewRequired"`
}

const inferenceSampleSize = 5

// Upload parses the raw file, runs mapping inference and creates the PENDING
// batch holding the raw content and the typed pending-review payload.
func (s *Service) Upload(ctx context.Context, userID, filename, brokerName string, raw []byte) (*Result, error) {
	parsed, err := parser.ParseAuto(filename, raw)
	if err != nil {
		return nil, err
	}

	uploadLog := &models.CsvUploadLog{
		ID:        uuid.New(),
		UserID:    userID,
		Filename:  filename,
		Status:    models.UploadLogParsing,
		RowCount:  len(parsed.Rows),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.store.CreateUploadLog(ctx, uploadLog); err != nil {
		return nil, err
	}

	proposal, err := s.engine.Infer(ctx, parsed.Headers, parsed.SampleRows(inferenceSampleSize))
	if err != nil {
		return nil, err
	}

	tracker := session.NewTracker(s.store, s.sessionWindow)
	sess, err := tracker.DetectOrCreateSession(ctx, userID, filename, len(parsed.Rows))
	if err != nil {
		return nil, err
	}

	pending := &models.PendingReview{
		BrokerName:        brokerName,
		Mappings:          toPendingMappings(proposal),
		MetadataFields:    proposal.MetadataFields,
		OverallConfidence: proposal.OverallConfidence,
	}
	pendingJSON, err := pending.Encode()
	if err != nil {
		return nil, err
	}

	content := string(raw)
	sessionID := sess.ID
	batch := &models.ImportBatch{
		ID:                uuid.New(),
		UserID:            userID,
		Filename:          filename,
		FileSize:          int64(len(raw)),
		BrokerType:        brokerName,
		ImportType:        "orders",
		Status:            models.BatchStatusPending,
		TotalRecords:      len(parsed.Rows),
		AIMappingUsed:     true,
		MappingConfidence: proposal.OverallConfidence,
		PendingReview:     pendingJSON,
		TempFileContent:   &content,

		UploadSessionID:  &sessionID,
		ExpectedRowCount: sess.ExpectedRowCount,
		SessionStatus:    models.SessionStatusActive,

		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	return &Result{
		BatchID:        batch.ID,
		Proposal:       proposal,
		RowCount:       len(parsed.Rows),
		SessionID:      sess.ID,
		ReviewRequired: true,
	}, nil
}

func toPendingMappings(r *inference.Result) map[string]models.PendingMapping {
	out := make(map[string]models.PendingMapping, len(r.Mappings))
	for header, g := range r.Mappings {
		out[header] = models.PendingMapping{
			Field:      g.Field,
			Confidence: g.Confidence,
			Reasoning:  g.Reasoning,
		}
	}
	return out
}
