package inference

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// HeuristicEngine infers mappings from header names with levenshtein
// similarity against a synonym table, then sanity-checks the guess against
// sample values. It is the default engine when no AI backend is configured.
type HeuristicEngine struct{}

func NewHeuristicEngine() *HeuristicEngine {
	return &HeuristicEngine{}
}

var fieldSynonyms = map[string][]string{
	FieldSymbol:        {"symbol", "ticker", "instrument", "contract", "underlying", "security"},
	FieldOrderQuantity: {"qty", "quantity", "size", "shares", "filledqty", "volume", "amount"},
	FieldPrice:         {"price", "fillprice", "avgprice", "executionprice", "rate", "limitprice"},
	FieldSide:          {"side", "action", "buysell", "direction", "bs"},
	FieldExecutedAt:    {"time", "date", "datetime", "filltime", "executiontime", "timestamp", "tradedate", "executed"},
	FieldOrderRef:      {"orderid", "ordernumber", "orderref", "tradeid", "execid", "reference"},
	FieldCommission:    {"commission", "comm", "fee", "fees", "charges"},
	FieldAccount:       {"account", "accountid", "accountnumber", "acct"},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeHeader(h string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(h), "")
}

// Infer proposes one FieldGuess per header. Headers scoring below the medium
// band fall back to brokerMetadata rather than being dropped.
func (e *HeuristicEngine) Infer(ctx context.Context, headers []string, sampleRows []map[string]string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mappings := make(map[string]FieldGuess, len(headers))
	var metadataFields []string
	taken := make(map[string]string) // field -> header already holding it

	for _, header := range headers {
		field, score, reason := bestField(header)
		score = adjustForSamples(field, score, header, sampleRows)

		if prev, dup := taken[field]; dup && field != FieldBrokerMetadata {
			// Two headers competing for one field: the later, weaker one
			// becomes metadata.
			if mappings[prev].Confidence >= score {
				field, score, reason = FieldBrokerMetadata, score*0.5, fmt.Sprintf("field already claimed by %q", prev)
			} else {
				g := mappings[prev]
				mappings[prev] = FieldGuess{
					Field:      FieldBrokerMetadata,
					Confidence: g.Confidence * 0.5,
					Reasoning:  fmt.Sprintf("field reassigned to %q", header),
				}
				metadataFields = append(metadataFields, prev)
			}
		}

		if score < MediumConfidence {
			field = FieldBrokerMetadata
			if reason == "" {
				reason = "no known field resembles this header"
			}
			metadataFields = append(metadataFields, header)
		} else {
			taken[field] = header
		}
		mappings[header] = FieldGuess{Field: field, Confidence: round2(score), Reasoning: reason}
	}

	sort.Strings(metadataFields)
	return &Result{
		Mappings:          mappings,
		OverallConfidence: overall(mappings),
		MetadataFields:    metadataFields,
		UnmappedFields:    unmapped(mappings),
		Suggestions:       suggestions(mappings),
	}, nil
}

// bestField scores a header against every synonym of every field.
func bestField(header string) (field string, score float64, reason string) {
	norm := normalizeHeader(header)
	if norm == "" {
		return FieldBrokerMetadata, 0, "empty header"
	}

	fields := make([]string, 0, len(fieldSynonyms))
	for f := range fieldSynonyms {
		fields = append(fields, f)
	}
	sort.Strings(fields) // deterministic tie-breaking

	for _, f := range fields {
		if norm == normalizeHeader(f) {
			return f, 0.98, "exact match on field name"
		}
	}

	best := FieldBrokerMetadata
	bestScore := 0.0
	bestReason := ""
	for _, f := range fields {
		for _, syn := range fieldSynonyms[f] {
			s := similarity(norm, syn)
			if s > bestScore {
				best, bestScore = f, s
				bestReason = fmt.Sprintf("resembles synonym %q", syn)
			}
		}
	}
	return best, bestScore, bestReason
}

func similarity(a, b string) float64 {
	if a == b {
		return 0.95
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.85
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	s := 1 - float64(dist)/float64(longest)
	if s < 0 {
		return 0
	}
	return s * 0.9 // name similarity alone never reaches the exact-match band
}

// adjustForSamples nudges confidence using the column's sample values.
func adjustForSamples(field string, score float64, header string, rows []map[string]string) float64 {
	if len(rows) == 0 || field == FieldBrokerMetadata {
		return clamp(score)
	}
	numeric, sideLike, total := 0, 0, 0
	for _, row := range rows {
		v := strings.TrimSpace(row[header])
		if v == "" {
			continue
		}
		total++
		if looksNumeric(v) {
			numeric++
		}
		if looksSide(v) {
			sideLike++
		}
	}
	if total == 0 {
		return clamp(score)
	}
	switch field {
	case FieldOrderQuantity, FieldPrice, FieldCommission:
		if numeric == total {
			score += 0.05
		} else {
			score -= 0.3
		}
	case FieldSide:
		if sideLike == total {
			score += 0.1
		} else {
			score -= 0.3
		}
	}
	return clamp(score)
}

func looksNumeric(v string) bool {
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimPrefix(v, "$")
	v = strings.TrimPrefix(v, "-")
	if v == "" {
		return false
	}
	dots := 0
	for _, r := range v {
		if r == '.' {
			dots++
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return dots <= 1
}

func looksSide(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buy", "sell", "b", "s", "long", "short", "bot", "sld":
		return true
	}
	return false
}

func overall(mappings map[string]FieldGuess) float64 {
	sum, n := 0.0, 0
	for _, g := range mappings {
		if g.Field == FieldBrokerMetadata {
			continue
		}
		sum += g.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func unmapped(mappings map[string]FieldGuess) []string {
	have := make(map[string]bool)
	for _, g := range mappings {
		have[g.Field] = true
	}
	var missing []string
	for _, f := range RequiredFields {
		if !have[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

func suggestions(mappings map[string]FieldGuess) []string {
	var out []string
	for _, f := range unmapped(mappings) {
		out = append(out, fmt.Sprintf("no column maps to %q; assign it manually before approving", f))
	}
	return out
}

func clamp(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func round2(s float64) float64 {
	return float64(int(s*100+0.5)) / 100
}
