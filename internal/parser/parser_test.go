package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	raw := []byte("Symbol, Qty ,Price\nAAPL,100,189.50\n\nTSLA,50,242.10\n")

	parsed, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"Symbol", "Qty", "Price"}, parsed.Headers)
	require.Len(t, parsed.Rows, 2)
	require.Equal(t, "AAPL", parsed.Rows[0]["Symbol"])
	require.Equal(t, "100", parsed.Rows[0]["Qty"])
	require.Equal(t, "242.10", parsed.Rows[1]["Price"])
}

func TestParseStripsBOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Symbol,Qty\nAAPL,10\n")...)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "Symbol", parsed.Headers[0])
}

func TestParseSniffsTabs(t *testing.T) {
	raw := []byte("Symbol\tQty\nAAPL\t10\n")

	parsed, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"Symbol", "Qty"}, parsed.Headers)
	require.Equal(t, "10", parsed.Rows[0]["Qty"])
}

func TestParseShortRecordsPadEmpty(t *testing.T) {
	raw := []byte("Symbol,Qty,Note\nAAPL,10\n")

	parsed, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "", parsed.Rows[0]["Note"])
}

func TestParseMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty input", ""},
		{"blank header", " , , \nAAPL,10,1\n"},
		{"header only", "Symbol,Qty\n"},
		{"only blank rows", "Symbol,Qty\n , \n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			require.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestParseDeterministic(t *testing.T) {
	raw := []byte("Symbol,Qty\nAAPL,10\nTSLA,20\n")

	a, err := Parse(raw)
	require.NoError(t, err)
	b, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestParseAutoWorkbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Symbol", "Qty", "Price"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"AAPL", 100, 189.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	parsed, err := ParseAuto("trades.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, []string{"Symbol", "Qty", "Price"}, parsed.Headers)
	require.Len(t, parsed.Rows, 1)
	require.Equal(t, "AAPL", parsed.Rows[0]["Symbol"])
	require.Equal(t, "100", parsed.Rows[0]["Qty"])
}

func TestParseAutoDispatchesOnExtension(t *testing.T) {
	raw := []byte("Symbol,Qty\nAAPL,10\n")

	parsed, err := ParseAuto("trades.csv", raw)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 1)

	_, err = ParseAuto("trades.xlsx", raw)
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestSampleRows(t *testing.T) {
	parsed, err := Parse([]byte("Symbol\nAAPL\nTSLA\nMSFT\n"))
	require.NoError(t, err)

	require.Len(t, parsed.SampleRows(2), 2)
	require.Len(t, parsed.SampleRows(10), 3)
}
