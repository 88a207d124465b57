package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"complexome/internal/config"
	"complexome/internal/dataprocessing"
	"complexome/pkg/contracts/domain"
)

// ExportResult describes what was written
type ExportResult struct {
	Path     string
	Fallback bool
	Layout   domain.ExportLayout
	// WorkbookErr is the workbook failure that caused the fallback
	WorkbookErr error
}

// Exporter writes the kept and excluded tables to a workbook and falls back
// to a delimited file of the kept rows when the workbook cannot be written
type Exporter struct {
	workbook *WorkbookWriter
	csv      *CSVWriter
	reporter domain.Reporter
	logger   *slog.Logger
}

// NewExporter creates an exporter
func NewExporter(reporter domain.Reporter, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = domain.NopReporter{}
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &Exporter{
		workbook: NewWorkbookWriter(logger),
		csv:      NewCSVWriter(logger),
		reporter: reporter,
		logger:   logger,
	}
}

// Export writes the workbook. An error is returned only when the fallback
// file could not be written either.
func (e *Exporter) Export(ctx context.Context, kept, excluded *domain.ProteinGroupTable, step config.ExportStep, fallbackPath string) (*ExportResult, error) {
	e.reporter.ReportStatus(fmt.Sprintf("Step 5, start writing away the data to the excel file %s", step.ExcelFileName))

	samples := dataprocessing.SampleNames(kept.ColumnNames())
	layout := TableLayout(kept, samples, step.IdentifierColumnNames)
	sheets := []Sheet{{Name: DataSheet, Table: kept, Layout: layout, Format: true}}
	if excluded != nil {
		sheets = append(sheets, Sheet{
			Name:   ExcludedSheet,
			Table:  excluded,
			Layout: TableLayout(excluded, nil, step.IdentifierColumnNames),
		})
	}

	err := e.workbook.Write(step.ExcelFileName, sheets)
	if err == nil {
		e.logger.InfoContext(ctx, "export_completed",
			slog.String("file_path", step.ExcelFileName),
			slog.Int("rows", kept.Len()),
			slog.Int("columns", len(layout.Columns)),
			slog.Int("regions", len(layout.Regions)))
		e.reporter.ReportStatus(fmt.Sprintf("Finished writing away the data to the excel file %s", step.ExcelFileName))
		return &ExportResult{Path: step.ExcelFileName, Layout: layout}, nil
	}

	e.logger.ErrorContext(ctx, "workbook_write_failed",
		slog.String("file_path", step.ExcelFileName),
		slog.String("fallback_path", fallbackPath),
		slog.String("error", err.Error()))
	e.reporter.ReportError("An error occurred while trying to write away the data. The data will be written away as .csv file", err)

	if ferr := e.csv.WriteTable(fallbackPath, kept); ferr != nil {
		e.logger.ErrorContext(ctx, "fallback_write_failed",
			slog.String("file_path", fallbackPath),
			slog.String("error", ferr.Error()))
		return nil, fmt.Errorf("workbook failed (%v) and fallback failed: %w", err, ferr)
	}
	e.reporter.ReportStatus(fmt.Sprintf("The data was written away to %s", fallbackPath))
	return &ExportResult{Path: fallbackPath, Fallback: true, Layout: layout, WorkbookErr: err}, nil
}
