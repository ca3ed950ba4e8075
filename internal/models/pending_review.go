package models

import (
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
)

// ErrNoPendingReview is returned when a batch carries no decodable pending
// review payload.
var ErrNoPendingReview = errors.New("no pending review payload on batch")

// PendingMapping is one AI-proposed header mapping awaiting user review.
type PendingMapping struct {
	Field         string  `json:"field"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning,omitempty"`
	UserCorrected bool    `json:"userCorrected,omitempty"`
}

// PendingReview is the typed scratch payload stored on an ImportBatch between
// initial upload and finalization. Created at upload, consumed and cleared at
// finalize.
type PendingReview struct {
	BrokerName        string                    `json:"brokerName"`
	Mappings          map[string]PendingMapping `json:"mappings"`
	MetadataFields    []string                  `json:"metadataFields,omitempty"`
	OverallConfidence float64                   `json:"overallConfidence"`
}

// DecodePendingReview parses and validates the payload stored on a batch.
func DecodePendingReview(raw datatypes.JSON) (*PendingReview, error) {
	if len(raw) == 0 {
		return nil, ErrNoPendingReview
	}
	var p PendingReview
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if len(p.Mappings) == 0 {
		return nil, ErrNoPendingReview
	}
	return &p, nil
}

// Encode serializes the payload for storage on the batch.
func (p *PendingReview) Encode() (datatypes.JSON, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
