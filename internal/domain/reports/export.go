package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "excel" as an alias for xlsx.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatPDF, FormatXLSX, FormatCSV:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	default:
		return "", ErrUnknownFormat
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

type Exporter interface {
	Render(report Report) ([]byte, error)
}

func ExporterFor(format Format) (Exporter, error) {
	switch format {
	case FormatPDF:
		return PDFExporter{}, nil
	case FormatXLSX:
		return XLSXExporter{}, nil
	case FormatCSV:
		return CSVExporter{}, nil
	default:
		return nil, ErrUnknownFormat
	}
}

func checkReport(report Report) error {
	if len(report.Sections) == 0 {
		return fmt.Errorf("report %q has no sections", report.Title)
	}
	for _, section := range report.Sections {
		if len(section.Headers) == 0 {
			return fmt.Errorf("section %q requires at least one header", section.Name)
		}
	}
	return nil
}

// CSVExporter writes each section as a name row, a header row and its records,
// with a blank line between sections.
type CSVExporter struct{}

func (CSVExporter) Render(report Report) ([]byte, error) {
	if err := checkReport(report); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, section := range report.Sections {
		if i > 0 {
			if err := writer.Write([]string{""}); err != nil {
				return nil, fmt.Errorf("write csv separator: %w", err)
			}
		}
		if len(report.Sections) > 1 {
			if err := writer.Write([]string{section.Name}); err != nil {
				return nil, fmt.Errorf("write csv section: %w", err)
			}
		}
		if err := writer.Write(section.Headers); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for _, row := range section.Rows {
			record := make([]string, len(section.Headers))
			for j, header := range section.Headers {
				record[j] = row[header]
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

type PDFExporter struct{}

func (PDFExporter) Render(report Report) ([]byte, error) {
	if err := checkReport(report); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if report.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(report.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right
	for _, section := range report.Sections {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, tr(section.Name), "", 1, "L", false, 0, "")

		colWidth := usable / float64(len(section.Headers))
		pdf.SetFont("Arial", "B", 9)
		for _, header := range section.Headers {
			pdf.CellFormat(colWidth, 7, tr(header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 8)
		for _, row := range section.Rows {
			for _, header := range section.Headers {
				pdf.CellFormat(colWidth, 6, tr(truncate(row[header], colWidth)), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate keeps cell text roughly inside a column at 8pt.
func truncate(value string, width float64) string {
	limit := int(width / 1.6)
	runes := []rune(value)
	if limit < 4 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}

// XLSXExporter writes one sheet per section.
type XLSXExporter struct{}

func (XLSXExporter) Render(report Report) ([]byte, error) {
	if err := checkReport(report); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	for i, section := range report.Sections {
		sheet := sheetName(section.Name, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("xlsx sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("xlsx sheet: %w", err)
		}

		headers := make([]any, len(section.Headers))
		for j, header := range section.Headers {
			headers[j] = header
		}
		if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
			return nil, fmt.Errorf("xlsx headers: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(section.Headers), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return nil, fmt.Errorf("xlsx header style: %w", err)
		}

		for r, row := range section.Rows {
			values := make([]any, len(section.Headers))
			for j, header := range section.Headers {
				values[j] = row[header]
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return nil, fmt.Errorf("xlsx row: %w", err)
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName trims to Excel's 31 character limit and strips forbidden characters.
func sheetName(name string, index int) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, name)
	if strings.TrimSpace(cleaned) == "" {
		cleaned = fmt.Sprintf("Sheet%d", index+1)
	}
	runes := []rune(cleaned)
	if len(runes) > 31 {
		cleaned = string(runes[:31])
	}
	return cleaned
}
