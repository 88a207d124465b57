package exporter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"complexome/pkg/contracts/domain"
)

// Sheet names of the exported workbook
const (
	DataSheet     = "data"
	ExcludedSheet = "filtered away proteins"
)

// regionColumnWidth narrows abundance columns so a sample reads as a heat map
const regionColumnWidth = 0.5

// colourScale is applied to each row of every abundance region
var colourScale = excelize.ConditionalFormatOptions{
	Type:     "3_color_scale",
	Criteria: "=",
	MinType:  "min",
	MidType:  "percentile",
	MidValue: "95",
	MaxType:  "max",
	MinColor: "#000000",
	MidColor: "#FFFF00",
	MaxColor: "#FF0000",
}

// Sheet is one table to write with its layout
type Sheet struct {
	Name   string
	Table  *domain.ProteinGroupTable
	Layout domain.ExportLayout
	// Format enables region widths and colour scales
	Format bool
}

// WorkbookWriter writes tables to an xlsx workbook
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger}
}

// Write saves the sheets, in order, to path
func (w *WorkbookWriter) Write(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet.Name, err)
		}

		if err := writeSheet(f, sheet); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", sheet.Name, err)
		}
		if sheet.Format {
			if err := formatRegions(f, sheet); err != nil {
				return fmt.Errorf("failed to format sheet %s: %w", sheet.Name, err)
			}
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	w.logger.Info("workbook_written",
		slog.String("file_path", path),
		slog.Int("sheets", len(sheets)))
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet) error {
	header := make([]interface{}, len(sheet.Layout.Columns))
	for i, name := range sheet.Layout.Columns {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}

	for row := 0; row < sheet.Table.Len(); row++ {
		for c, name := range sheet.Layout.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, row+2)
			if err != nil {
				return err
			}
			if err := setCell(f, sheet.Name, cell, sheet.Table.Value(row, name)); err != nil {
				return fmt.Errorf("cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// setCell writes numbers as numbers and text starting with '=' as a formula
func setCell(f *excelize.File, sheetName, cell string, value domain.Cell) error {
	switch {
	case value.IsMissing():
		return nil
	case value.IsNumber():
		return f.SetCellFloat(sheetName, cell, value.Number.Float64, -1, 64)
	case strings.HasPrefix(value.Text.String, "="):
		return f.SetCellFormula(sheetName, cell, strings.TrimPrefix(value.Text.String, "="))
	default:
		return f.SetCellStr(sheetName, cell, value.Text.String)
	}
}

func formatRegions(f *excelize.File, sheet Sheet) error {
	for _, region := range sheet.Layout.Regions {
		first, err := excelize.ColumnNumberToName(region.Start + 1)
		if err != nil {
			return err
		}
		last, err := excelize.ColumnNumberToName(region.End + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet.Name, first, last, regionColumnWidth); err != nil {
			return err
		}

		for row := 2; row <= sheet.Table.Len()+1; row++ {
			ref := fmt.Sprintf("%s%d:%s%d", first, row, last, row)
			if err := f.SetConditionalFormat(sheet.Name, ref, []excelize.ConditionalFormatOptions{colourScale}); err != nil {
				return err
			}
		}
	}
	return nil
}
