package engine

import (
	"backsim/types"
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFillsCSV(t *testing.T) {
	fills := []types.Fill{
		fillAt("AAA", 0, 10, "10", "0.1"),
		fillAt("AAA", 1, -10, "12", "0.12"),
		fillAt("BBB", 2, 5, "20", "0"),
	}

	var buf bytes.Buffer
	require.NoError(t, writeFillsCSV(&buf, fills))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"trade_id", "symbol", "side", "quantity", "price", "value", "cost", "time"}, records[0])
	assert.Equal(t, []string{"0", "AAA", "buy", "10", "10", "100", "0.1", "2020-01-01T00:00:00Z"}, records[1])
	assert.Equal(t, []string{"0", "AAA", "sell", "-10", "12", "-120", "0.12", "2020-01-02T00:00:00Z"}, records[2])
	assert.Equal(t, "1", records[3][0])
	assert.Equal(t, "BBB", records[3][1])
}

func TestWriteFillsCSVFile(t *testing.T) {
	p := newTestPortfolio("1000")
	require.NoError(t, p.ApplyFill(fillAt("AAA", 0, 3, "10", "0")))

	path := filepath.Join(t.TempDir(), "fills.csv")
	require.NoError(t, WriteFillsCSVFile(path, p))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "AAA,buy,3,10,30,0,")
}

func TestReportingConfig_ExportFills(t *testing.T) {
	p := newTestPortfolio("1000")
	require.NoError(t, p.ApplyFill(fillAt("AAA", 0, 3, "10", "0")))

	path := filepath.Join(t.TempDir(), "fills.csv")
	require.NoError(t, NewReportingConfig(d("0"), false, path).ExportFills(p))
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, NewReportingConfig(d("0"), true, path).ExportFills(p))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
