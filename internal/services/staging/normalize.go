package staging

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"trading-journal-backend/internal/inference"
)

// normalizedOrder is one validated row, ready to become a staged or live
// order.
type normalizedOrder struct {
	Symbol     string
	Side       string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Commission decimal.Decimal
	ExecutedAt *time.Time
	OrderRef   string
	Metadata   datatypes.JSON
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"02-01-2006",
}

// convertRow validates one CSV row against a format's field mappings. Headers
// mapped to brokerMetadata (or not mapped at all) are preserved as opaque
// metadata, never dropped.
func convertRow(row map[string]string, fieldMappings map[string]string) (*normalizedOrder, error) {
	order := &normalizedOrder{}
	metadata := map[string]string{}

	for header, value := range row {
		field, ok := fieldMappings[header]
		if !ok {
			field = inference.FieldBrokerMetadata
		}
		value = strings.TrimSpace(value)

		switch field {
		case inference.FieldSymbol:
			order.Symbol = strings.ToUpper(value)
		case inference.FieldSide:
			side, err := parseSide(value)
			if err != nil {
				return nil, err
			}
			order.Side = side
		case inference.FieldOrderQuantity:
			qty, err := parseDecimal(value, "quantity")
			if err != nil {
				return nil, err
			}
			if qty.Sign() <= 0 {
				return nil, fmt.Errorf("quantity must be positive, got %q", value)
			}
			order.Quantity = qty
		case inference.FieldPrice:
			price, err := parseDecimal(value, "price")
			if err != nil {
				return nil, err
			}
			if price.Sign() < 0 {
				return nil, fmt.Errorf("price must not be negative, got %q", value)
			}
			order.Price = price
		case inference.FieldCommission:
			if value == "" {
				continue
			}
			comm, err := parseDecimal(value, "commission")
			if err != nil {
				return nil, err
			}
			order.Commission = comm
		case inference.FieldExecutedAt:
			ts, err := parseTime(value)
			if err != nil {
				return nil, err
			}
			order.ExecutedAt = &ts
		case inference.FieldOrderRef:
			order.OrderRef = value
		default:
			metadata[header] = value
		}
	}

	if order.Symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}
	if order.Side == "" {
		return nil, fmt.Errorf("missing side")
	}
	if order.Quantity.IsZero() {
		return nil, fmt.Errorf("missing quantity")
	}
	if order.ExecutedAt == nil {
		return nil, fmt.Errorf("missing execution time")
	}

	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		order.Metadata = datatypes.JSON(b)
	}
	return order, nil
}

func parseSide(value string) (string, error) {
	switch strings.ToLower(value) {
	case "buy", "b", "bot", "long":
		return "BUY", nil
	case "sell", "s", "sld", "short":
		return "SELL", nil
	}
	return "", fmt.Errorf("unrecognized side %q", value)
}

func parseDecimal(value, field string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(value, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, value)
	}
	return d, nil
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
