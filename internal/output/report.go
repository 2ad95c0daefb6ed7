package output

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/novaocr/novaocr/internal/common"
	"github.com/novaocr/novaocr/internal/pipeline"
)

// BuildRunReportXLSX returns an XLSX workbook (as bytes) with one row per
// processed file plus a trailing summary row.
func BuildRunReportXLSX(results []pipeline.Result, stats *pipeline.RunStats, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Run Report"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet excelize creates
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"#", "File", "Status", "Attempts", "Characters", "Error"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i, r := range results {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, i+1)
		write(2, r.Path)
		write(3, string(r.Status))
		write(4, r.Attempts)

		chars := len(r.Text)
		if chars == 0 {
			chars = len(r.Raw)
		}
		write(5, chars)

		if r.Err != nil {
			write(6, reportTruncate(r.Err.Error(), 200))
		}
		row++
	}

	cell, _ := excelize.CoordinatesToCellName(2, row+1)
	_ = f.SetCellValue(sheet, cell, stats.Summary())

	_ = f.SetColWidth(sheet, "A", "A", 6)
	_ = f.SetColWidth(sheet, "B", "B", 60) // path
	_ = f.SetColWidth(sheet, "C", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 12)
	_ = f.SetColWidth(sheet, "F", "F", 60) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("output.report.ok",
		"rows", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteRunReportXLSX builds the report and writes it to path.
func WriteRunReportXLSX(path string, results []pipeline.Result, stats *pipeline.RunStats, logger *slog.Logger) error {
	data, err := BuildRunReportXLSX(results, stats, logger)
	if err != nil {
		return common.WrapError(err, "build run report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return common.WrapError(err, "write run report")
	}
	return nil
}

func reportTruncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
