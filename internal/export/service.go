// Package export renders the extraction job history as an XLSX
// workbook for downstream review.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tbellec/ladingd/internal/record"
	"github.com/tbellec/ladingd/internal/repository"
)

// Service is a tiny façade over the job store that produces XLSX bytes.
type Service struct {
	jobs   *repository.JobStore
	logger *slog.Logger
}

func NewService(jobs *repository.JobStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns an XLSX workbook (as bytes) with the most
// recent extraction jobs, one row per job.
func (s *Service) ExportJobsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Date",
		"Filename",
		"Format",
		"Status",
		"Method",
		"Confidence",
		"Duration (ms)",
		"B/L Number",
		"Shipper",
		"Consignee",
		"Port of Loading",
		"Port of Discharge",
		"Containers",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		var rec record.BillOfLading
		if len(j.Fields) > 0 {
			// Rows with unparseable fields still export their metadata.
			_ = json.Unmarshal(j.Fields, &rec)
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, j.CreatedAt.UTC().Format("2006-01-02 15:04"))
		write(2, truncate(j.Filename, 80))
		write(3, string(j.Format))
		write(4, string(j.Status))
		write(5, j.Method)
		write(6, fmt.Sprintf("%.2f", j.Confidence))
		write(7, j.DurationMS)
		write(8, rec.BLNumber)
		write(9, partyName(rec.Shipper))
		write(10, partyName(rec.Consignee))
		write(11, portName(rec.PortOfLoading))
		write(12, portName(rec.PortOfDischarge))
		write(13, containerList(rec.Containers))

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 17) // date
	_ = f.SetColWidth(sheet, "B", "B", 32) // filename
	_ = f.SetColWidth(sheet, "C", "E", 14) // format/status/method
	_ = f.SetColWidth(sheet, "H", "H", 18) // bl number
	_ = f.SetColWidth(sheet, "I", "L", 26) // parties and ports
	_ = f.SetColWidth(sheet, "M", "M", 40) // containers

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func partyName(p *record.Party) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func portName(p *record.Port) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func containerList(cs []record.Container) string {
	out := ""
	for i, c := range cs {
		if i > 0 {
			out += ", "
		}
		out += c.Number
	}
	return truncate(out, 140)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
