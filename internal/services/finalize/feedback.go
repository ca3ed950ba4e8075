package finalize

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"trading-journal-backend/internal/inference"
	"trading-journal-backend/internal/models"
)

// MergeCorrections folds the user's per-header corrections into the AI
// proposal. A corrected header always ends up with confidence exactly 1.0 and
// the userCorrected flag, even when the correction repeats the AI's own
// suggestion.
func MergeCorrections(ai map[string]models.PendingMapping, corrections map[string]string) map[string]models.PendingMapping {
	merged := make(map[string]models.PendingMapping, len(ai))
	for header, guess := range ai {
		merged[header] = guess
	}
	for header, field := range corrections {
		prev := merged[header]
		merged[header] = models.PendingMapping{
			Field:         field,
			Confidence:    1.0,
			Reasoning:     prev.Reasoning,
			UserCorrected: true,
		}
	}
	return merged
}

// FieldMappings flattens a merged proposal into the header -> field map
// stored on the broker format.
func FieldMappings(merged map[string]models.PendingMapping) map[string]string {
	out := make(map[string]string, len(merged))
	for header, m := range merged {
		out[header] = m.Field
	}
	return out
}

// BuildFeedbackItems produces exactly one feedback row per header of the
// original AI proposal, classified by the original confidence and whether the
// user corrected it. Confidence stored is the AI's, not the forced 1.0.
func BuildFeedbackItems(checkID uuid.UUID, ai map[string]models.PendingMapping, corrections map[string]string) []models.AiIngestFeedbackItem {
	headers := make([]string, 0, len(ai))
	for h := range ai {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	items := make([]models.AiIngestFeedbackItem, 0, len(headers))
	for _, header := range headers {
		guess := ai[header]
		corrected, wasCorrected := corrections[header]

		item := models.AiIngestFeedbackItem{
			ID:               uuid.New(),
			IngestCheckID:    checkID,
			CsvHeader:        header,
			AISuggestedField: guess.Field,
			Confidence:       guess.Confidence,
			IsCorrect:        !wasCorrected,
			IssueType:        inference.ClassifyIssue(guess.Field, guess.Confidence, wasCorrected),
			Comment:          guess.Reasoning,
			CreatedAt:        time.Now(),
		}
		if wasCorrected {
			c := corrected
			item.UserCorrectedField = &c
		}
		items = append(items, item)
	}
	return items
}
