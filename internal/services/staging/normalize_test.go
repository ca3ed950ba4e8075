package staging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testMappings = map[string]string{
	"Symbol": "symbol",
	"Side":   "side",
	"Qty":    "orderQuantity",
	"Price":  "price",
	"Comm":   "commission",
	"Time":   "executedAt",
	"Order#": "orderRef",
}

func validRow() map[string]string {
	return map[string]string{
		"Symbol": "aapl",
		"Side":   "Buy",
		"Qty":    "100",
		"Price":  "189.50",
		"Comm":   "1.25",
		"Time":   "2026-03-01 14:30:00",
		"Order#": "ORD-1",
	}
}

func TestConvertRowValid(t *testing.T) {
	order, err := convertRow(validRow(), testMappings)
	require.NoError(t, err)

	require.Equal(t, "AAPL", order.Symbol)
	require.Equal(t, "BUY", order.Side)
	require.Equal(t, "100", order.Quantity.String())
	require.Equal(t, "189.5", order.Price.String())
	require.Equal(t, "1.25", order.Commission.String())
	require.Equal(t, "ORD-1", order.OrderRef)
	require.Equal(t, time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC), *order.ExecutedAt)
}

func TestConvertRowSideVariants(t *testing.T) {
	cases := map[string]string{
		"buy": "BUY", "B": "BUY", "BOT": "BUY", "long": "BUY",
		"sell": "SELL", "S": "SELL", "sld": "SELL", "Short": "SELL",
	}
	for in, want := range cases {
		row := validRow()
		row["Side"] = in
		order, err := convertRow(row, testMappings)
		require.NoError(t, err, in)
		require.Equal(t, want, order.Side)
	}
}

func TestConvertRowCurrencyFormatting(t *testing.T) {
	row := validRow()
	row["Price"] = "$1,242.10"
	row["Qty"] = "1,500"

	order, err := convertRow(row, testMappings)
	require.NoError(t, err)
	require.Equal(t, "1242.1", order.Price.String())
	require.Equal(t, "1500", order.Quantity.String())
}

func TestConvertRowUnmappedHeadersBecomeMetadata(t *testing.T) {
	row := validRow()
	row["Exchange"] = "NASDAQ"

	order, err := convertRow(row, testMappings)
	require.NoError(t, err)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(order.Metadata, &meta))
	require.Equal(t, "NASDAQ", meta["Exchange"])
}

func TestConvertRowRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing symbol", func(r map[string]string) { r["Symbol"] = "" }},
		{"bad side", func(r map[string]string) { r["Side"] = "hold" }},
		{"zero quantity", func(r map[string]string) { r["Qty"] = "0" }},
		{"negative quantity", func(r map[string]string) { r["Qty"] = "-5" }},
		{"negative price", func(r map[string]string) { r["Price"] = "-1.00" }},
		{"garbage quantity", func(r map[string]string) { r["Qty"] = "lots" }},
		{"bad timestamp", func(r map[string]string) { r["Time"] = "yesterday" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := validRow()
			tc.mutate(row)
			_, err := convertRow(row, testMappings)
			require.Error(t, err)
		})
	}
}

func TestConvertRowEmptyCommissionAllowed(t *testing.T) {
	row := validRow()
	row["Comm"] = ""

	order, err := convertRow(row, testMappings)
	require.NoError(t, err)
	require.True(t, order.Commission.IsZero())
}
