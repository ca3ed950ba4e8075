package inference

import "context"

// Known order fields a header can map to. FieldBrokerMetadata is the sentinel
// for headers that match nothing: those columns are never dropped, they ride
// along as opaque per-row metadata.
const (
	FieldSymbol         = "symbol"
	FieldOrderQuantity  = "orderQuantity"
	FieldPrice          = "price"
	FieldSide           = "side"
	FieldExecutedAt     = "executedAt"
	FieldOrderRef       = "orderRef"
	FieldCommission     = "commission"
	FieldAccount        = "account"
	FieldBrokerMetadata = "brokerMetadata"
)

// Confidence bands driving UI and feedback classification.
const (
	HighConfidence   = 0.8
	MediumConfidence = 0.5
)

// RequiredFields must all be mapped before a format can produce valid orders.
var RequiredFields = []string{FieldSymbol, FieldOrderQuantity, FieldPrice, FieldSide, FieldExecutedAt}

// FieldGuess is one proposed header mapping.
type FieldGuess struct {
	Field      string  `json:"field"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Result is a full mapping proposal for one header set.
type Result struct {
	Mappings          map[string]FieldGuess `json:"mappings"`
	OverallConfidence float64               `json:"overallConfidence"`
	MetadataFields    []string              `json:"metadataFields,omitempty"`
	UnmappedFields    []string              `json:"unmappedFields,omitempty"`
	Suggestions       []string              `json:"suggestions,omitempty"`
}

// Engine proposes field mappings for unmapped broker headers. Implementations
// may be AI-backed or heuristic; callers must treat the proposal as needing
// human approval either way.
type Engine interface {
	Infer(ctx context.Context, headers []string, sampleRows []map[string]string) (*Result, error)
}

// ClassifyIssue derives the feedback issue type for one header from the
// original AI confidence and whether the user corrected the mapping.
func ClassifyIssue(suggestedField string, confidence float64, corrected bool) string {
	if suggestedField == FieldBrokerMetadata {
		return IssueShouldBeMetadata
	}
	switch {
	case corrected && confidence < MediumConfidence:
		return IssueLowConfidenceCorrected
	case corrected:
		return IssueUserCorrected
	case confidence < MediumConfidence:
		return IssueLowConfidenceAccepted
	case confidence < HighConfidence:
		return IssueMediumConfidenceAccepted
	default:
		return IssueAccepted
	}
}

// Issue types stored on feedback items.
const (
	IssueAccepted                 = "accepted"
	IssueUserCorrected            = "user_corrected"
	IssueLowConfidenceAccepted    = "low_confidence_accepted"
	IssueLowConfidenceCorrected   = "low_confidence_corrected"
	IssueMediumConfidenceAccepted = "medium_confidence_accepted"
	IssueShouldBeMetadata         = "should_be_metadata"
)
