package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInferKnownHeaders(t *testing.T) {
	engine := NewHeuristicEngine()

	result, err := engine.Infer(context.Background(), []string{"Symbol", "Qty", "Price", "Side", "Trade Date"}, nil)
	require.NoError(t, err)

	require.Equal(t, FieldSymbol, result.Mappings["Symbol"].Field)
	require.Equal(t, FieldOrderQuantity, result.Mappings["Qty"].Field)
	require.Equal(t, FieldPrice, result.Mappings["Price"].Field)
	require.Equal(t, FieldSide, result.Mappings["Side"].Field)
	require.Equal(t, FieldExecutedAt, result.Mappings["Trade Date"].Field)
	require.Empty(t, result.UnmappedFields)
	require.GreaterOrEqual(t, result.Mappings["Symbol"].Confidence, HighConfidence)
}

func TestInferUnknownHeaderFallsBackToMetadata(t *testing.T) {
	engine := NewHeuristicEngine()

	result, err := engine.Infer(context.Background(), []string{"Symbol", "zq9x7"}, nil)
	require.NoError(t, err)

	require.Equal(t, FieldBrokerMetadata, result.Mappings["zq9x7"].Field)
	require.Contains(t, result.MetadataFields, "zq9x7")
}

func TestInferDuplicateFieldDemotesWeakerClaim(t *testing.T) {
	engine := NewHeuristicEngine()

	result, err := engine.Infer(context.Background(), []string{"Qty", "Quantity"}, nil)
	require.NoError(t, err)

	fields := []string{result.Mappings["Qty"].Field, result.Mappings["Quantity"].Field}
	require.Contains(t, fields, FieldOrderQuantity)
	require.Contains(t, fields, FieldBrokerMetadata)
}

func TestInferSampleValuesAdjustConfidence(t *testing.T) {
	engine := NewHeuristicEngine()
	numericRows := []map[string]string{{"Price": "189.50"}, {"Price": "$1,242.10"}}
	textRows := []map[string]string{{"Price": "n/a"}, {"Price": "pending"}}

	withNumeric, err := engine.Infer(context.Background(), []string{"Price"}, numericRows)
	require.NoError(t, err)
	withText, err := engine.Infer(context.Background(), []string{"Price"}, textRows)
	require.NoError(t, err)

	require.Greater(t, withNumeric.Mappings["Price"].Confidence, withText.Mappings["Price"].Confidence)
}

func TestInferReportsMissingRequiredFields(t *testing.T) {
	engine := NewHeuristicEngine()

	result, err := engine.Infer(context.Background(), []string{"Symbol"}, nil)
	require.NoError(t, err)

	require.ElementsMatch(t,
		[]string{FieldOrderQuantity, FieldPrice, FieldSide, FieldExecutedAt},
		result.UnmappedFields)
	require.Len(t, result.Suggestions, 4)
}

func TestInferDeterministic(t *testing.T) {
	engine := NewHeuristicEngine()
	headers := []string{"Symbol", "Qty", "Price", "Side", "Time", "Extra"}

	a, err := engine.Infer(context.Background(), headers, nil)
	require.NoError(t, err)
	b, err := engine.Infer(context.Background(), headers, nil)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestClassifyIssue(t *testing.T) {
	cases := []struct {
		name       string
		field      string
		confidence float64
		corrected  bool
		want       string
	}{
		{"metadata suggestion", FieldBrokerMetadata, 0.9, false, IssueShouldBeMetadata},
		{"metadata corrected", FieldBrokerMetadata, 0.3, true, IssueShouldBeMetadata},
		{"low confidence corrected", FieldSymbol, 0.4, true, IssueLowConfidenceCorrected},
		{"high confidence corrected", FieldSymbol, 0.9, true, IssueUserCorrected},
		{"low confidence accepted", FieldSymbol, 0.4, false, IssueLowConfidenceAccepted},
		{"medium confidence accepted", FieldSymbol, 0.6, false, IssueMediumConfidenceAccepted},
		{"medium band lower bound", FieldSymbol, 0.5, false, IssueMediumConfidenceAccepted},
		{"high band lower bound", FieldSymbol, 0.8, false, IssueAccepted},
		{"accepted", FieldSymbol, 0.95, false, IssueAccepted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyIssue(tc.field, tc.confidence, tc.corrected))
		})
	}
}
