package engine

import (
	"backsim/types"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// ExportFills writes the portfolio's fills to the configured file, if enabled.
func (c *ReportingConfig) ExportFills(p *Portfolio) error {
	if !c.writeFills {
		return nil
	}
	return WriteFillsCSVFile(c.filePath, p)
}

// WriteFillsCSVFile writes every booked fill of the portfolio to a CSV file.
func WriteFillsCSVFile(path string, p *Portfolio) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fills file: %w", err)
	}
	defer f.Close()

	return writeFillsCSV(f, p.Fills())
}

// writeFillsCSV writes fills to any io.Writer as CSV, one row per fill with its
// round trip number.
func writeFillsCSV(w io.Writer, fills []types.Fill) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"trade_id",
		"symbol",
		"side",
		"quantity",
		"price",
		"value",
		"cost",
		"time", // RFC3339
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, tr := range fillsToTrades(fills) {
		tradeID := strconv.Itoa(i)
		for _, fill := range tr.fills {
			if err := writeFillRow(cw, tradeID, fill); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeFillRow(cw *csv.Writer, tradeID string, fill types.Fill) error {
	side := "buy"
	if fill.Quantity < 0 {
		side = "sell"
	}
	record := []string{
		tradeID,
		fill.Symbol,
		side,
		strconv.FormatInt(fill.Quantity, 10),
		fill.Price.String(),
		fill.Value().String(),
		fill.Cost.String(),
		fill.Time.Format(time.RFC3339),
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
