// Package catalog stores and retrieves named broker formats: (broker, header
// set) -> field mapping records with confidence and approval status.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"trading-journal-backend/internal/models"
)

// Store is the persistence surface the catalog needs.
type Store interface {
	FindOrCreateBroker(ctx context.Context, name string) (*models.Broker, error)
	CountFormats(ctx context.Context, brokerID uuid.UUID) (int64, error)
	FormatByFingerprint(ctx context.Context, brokerID uuid.UUID, fingerprint string) (*models.BrokerFormat, error)
	CreateFormat(ctx context.Context, format *models.BrokerFormat) error
	IncrementFormatUsage(ctx context.Context, formatID uuid.UUID, success bool) error
}

type Service struct {
	store Store
}

// NewService builds a catalog over a store. Bind a transaction-scoped store
// when calling inside a transaction.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// NormalizeBrokerName case-normalizes user-entered broker names so lookups
// collapse "ibkr", "IBKR " and "Ibkr" to one broker.
func NormalizeBrokerName(name string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(name)), " ")
}

// FindOrCreateBroker resolves a broker by case-normalized name, creating it
// if absent. Safe under concurrent creation of the same name.
func (s *Service) FindOrCreateBroker(ctx context.Context, name string) (*models.Broker, error) {
	normalized := NormalizeBrokerName(name)
	if normalized == "" {
		return nil, fmt.Errorf("broker name is empty")
	}
	return s.store.FindOrCreateBroker(ctx, normalized)
}

// GenerateFormatName produces the next "{broker} Format {n}" name. Must run
// inside the same transaction as the subsequent CreateFormat so the
// count-then-insert is serialized per broker.
func (s *Service) GenerateFormatName(ctx context.Context, brokerID uuid.UUID, brokerName string) (string, error) {
	n, err := s.store.CountFormats(ctx, brokerID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s Format %d", brokerName, n+1), nil
}

// HeaderFingerprint identifies a header set independent of column order.
func HeaderFingerprint(headers []string) string {
	sorted := make([]string, len(headers))
	copy(sorted, headers)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// LookupFormat finds the existing format generation for this broker and
// header set, or nil.
func (s *Service) LookupFormat(ctx context.Context, brokerID uuid.UUID, headers []string) (*models.BrokerFormat, error) {
	return s.store.FormatByFingerprint(ctx, brokerID, HeaderFingerprint(headers))
}

// CreateFormat persists a new format. Newly AI-derived formats default to
// unapproved: approval is an out-of-band admin action.
func (s *Service) CreateFormat(ctx context.Context, brokerID uuid.UUID, name string, headers []string, fieldMappings map[string]string, confidence float64) (*models.BrokerFormat, error) {
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, err
	}
	mappingsJSON, err := json.Marshal(fieldMappings)
	if err != nil {
		return nil, err
	}
	format := &models.BrokerFormat{
		ID:                uuid.New(),
		BrokerID:          brokerID,
		Name:              name,
		HeaderFingerprint: HeaderFingerprint(headers),
		Headers:           datatypes.JSON(headersJSON),
		FieldMappings:     datatypes.JSON(mappingsJSON),
		Confidence:        confidence,
		IsApproved:        false,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	if err := s.store.CreateFormat(ctx, format); err != nil {
		return nil, err
	}
	return format, nil
}

// UpdateFormatUsage records one use of a format. Fire-and-forget: a failure
// here must never abort the caller's primary operation, so it only logs.
func (s *Service) UpdateFormatUsage(ctx context.Context, formatID uuid.UUID, success bool) {
	if err := s.store.IncrementFormatUsage(ctx, formatID, success); err != nil {
		log.Printf("format usage update failed for %s: %v", formatID, err)
	}
}

// DecodeFieldMappings parses a format's stored header -> field map.
func DecodeFieldMappings(format *models.BrokerFormat) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal(format.FieldMappings, &m); err != nil {
		return nil, fmt.Errorf("format %s has unreadable field mappings: %w", format.ID, err)
	}
	return m, nil
}
