package reference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"complexome/internal/annotation"
	"complexome/internal/config"
	"complexome/internal/dataprocessing"
)

// ErrColumnMissing is returned when a reference table lacks a configured column
var ErrColumnMissing = errors.New("reference column not found")

// Loader reads reference tables from local files or remote locations
type Loader struct {
	client *annotation.Client
	logger *slog.Logger
}

// NewLoader creates a loader. Remote locations are downloaded with client.
func NewLoader(client *annotation.Client, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		client: client,
		logger: logger.With(slog.String("component", "reference_loader")),
	}
}

// Load reads the table described by ref and builds its set
func (l *Loader) Load(ctx context.Context, ref config.ReferenceTable) (*Set, error) {
	rows, err := l.readRows(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reference table %s is empty", ref.Location)
	}

	header := rows[0]
	symbolIdx := indexOf(header, ref.SymbolColumn)
	if symbolIdx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrColumnMissing, ref.SymbolColumn, ref.Name)
	}
	synonymIdx := indexOf(header, ref.SynonymColumn)
	if synonymIdx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrColumnMissing, ref.SynonymColumn, ref.Name)
	}

	symbols := make([]string, 0, len(rows)-1)
	synonyms := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		symbols = append(symbols, cellAt(row, symbolIdx))
		synonyms = append(synonyms, cellAt(row, synonymIdx))
	}

	set := NewSet(ref.Name, ref.Organism, symbols, synonyms)
	l.logger.InfoContext(ctx, "reference_table_loaded",
		slog.String("name", ref.Name),
		slog.String("location", ref.Location),
		slog.Int("entries", set.Len()))
	return set, nil
}

func (l *Loader) readRows(ctx context.Context, ref config.ReferenceTable) ([][]string, error) {
	if isRemote(ref.Location) {
		if l.client == nil {
			return nil, fmt.Errorf("no HTTP client for remote reference table %s", ref.Location)
		}
		data, err := l.client.Get(ctx, ref.Location, "")
		if err != nil {
			return nil, fmt.Errorf("failed to download reference table: %w", err)
		}
		u, _ := url.Parse(ref.Location)
		if isWorkbook(path.Ext(u.Path)) {
			return readWorkbookRows(bytes.NewReader(data), ref.SheetName)
		}
		return dataprocessing.ReadRecords(bytes.NewReader(data))
	}

	f, err := os.Open(ref.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference table: %w", err)
	}
	defer f.Close()

	if isWorkbook(filepath.Ext(ref.Location)) {
		return readWorkbookRows(f, ref.SheetName)
	}
	return dataprocessing.ReadRecords(f)
}

// readWorkbookRows reads one sheet; an empty name selects the first sheet
func readWorkbookRows(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isWorkbook(ext string) bool {
	switch strings.ToLower(ext) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
