// internal/output/excel.go
package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/AgentScrapexter/internal/agent"
)

const excelSheet = "Links"

// ExcelSink accumulates link records and saves them as an Excel workbook
// on Close.
type ExcelSink struct {
	path string

	mu      sync.Mutex
	records []agent.Link
}

// NewExcelSink creates an Excel workbook sink.
func NewExcelSink(path string) *ExcelSink {
	return &ExcelSink{path: path}
}

// Write buffers the batch; the workbook is rendered on Close.
func (s *ExcelSink) Write(ctx context.Context, links []agent.Link) error {
	s.mu.Lock()
	s.records = append(s.records, links...)
	s.mu.Unlock()
	return nil
}

// Close renders and saves the workbook.
func (s *ExcelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(excelSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"URL", "Name", "Source", "Region", "Discovered"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(excelSheet, cell, header)
	}

	for row, link := range s.records {
		values := []interface{}{
			link.URL,
			link.Name,
			link.SourceURL,
			link.Region,
			link.DiscoveredAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(excelSheet, cell, value)
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Format returns the sink type name.
func (s *ExcelSink) Format() string { return TypeExcel }
