package dataprocessing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/csimplestring/go-csv/detector"
	"github.com/xuri/excelize/v2"

	"complexome/pkg/contracts/domain"
)

// ErrKeyColumnMissing is returned when the table lacks its key column
var ErrKeyColumnMissing = errors.New("key column not found")

// naTokens are the cell values read as missing, matching the usual
// spreadsheet and data-frame conventions for not-available values
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNAToken reports whether a raw value denotes a missing cell
func IsNAToken(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

// ReadTable reads a protein groups table. Workbooks (.xlsx) are read from
// their first sheet, everything else as delimited text.
func ReadTable(path, keyColumn string) (*domain.ProteinGroupTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbookTable(path, keyColumn)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	table, err := ReadDelimited(f, keyColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}

	slog.Debug("table_read",
		slog.String("path", path),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns)))
	return table, nil
}

// ReadDelimited reads delimited text with one header row
func ReadDelimited(r io.Reader, keyColumn string) (*domain.ProteinGroupTable, error) {
	records, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	return buildTable(records, keyColumn)
}

// ReadRecords reads raw delimited records. The delimiter is detected from
// the first lines and a leading byte order mark is dropped.
func ReadRecords(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed delimited text: %w", err)
	}
	return records, nil
}

// DetectDelimiter returns the most likely delimiter of delimited text. A tab
// in the header line wins; otherwise the detector's first candidate is used.
func DetectDelimiter(data []byte) rune {
	sample := firstLines(data, 10)
	if header, _, _ := bytes.Cut(sample, []byte("\n")); bytes.IndexByte(header, '\t') >= 0 {
		return '\t'
	}

	d := detector.New()
	candidates := d.DetectDelimiter(bytes.NewReader(sample), '"')
	if len(candidates) > 0 && len(candidates[0]) > 0 {
		return rune(candidates[0][0])
	}
	return ','
}

func firstLines(data []byte, n int) []byte {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out bytes.Buffer
	for i := 0; i < n && scanner.Scan(); i++ {
		out.Write(scanner.Bytes())
		out.WriteByte('\n')
	}
	return out.Bytes()
}

// readWorkbookTable reads the first sheet of a workbook
func readWorkbookTable(path, keyColumn string) (*domain.ProteinGroupTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return buildTable(rows, keyColumn)
}

// buildTable converts raw records into a table. Columns whose non-missing
// values all parse as numbers become numeric; others stay textual.
func buildTable(records [][]string, keyColumn string) (*domain.ProteinGroupTable, error) {
	if keyColumn == "" {
		keyColumn = domain.DefaultKeyColumn
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}

	header := mangleDuplicates(records[0])
	keyIdx := -1
	for i, name := range header {
		if name == keyColumn {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrKeyColumnMissing, keyColumn)
	}

	body := records[1:]
	keys := make([]string, len(body))
	for r, rec := range body {
		keys[r] = field(rec, keyIdx)
	}

	table := domain.NewProteinGroupTable(keyColumn, keys)
	for c, name := range header {
		if c == keyIdx {
			continue
		}
		raw := make([]string, len(body))
		for r, rec := range body {
			raw[r] = field(rec, c)
		}
		if err := table.AppendColumn(name, parseColumn(raw)); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func field(rec []string, idx int) string {
	if idx < len(rec) {
		return rec[idx]
	}
	return ""
}

func parseColumn(raw []string) []domain.Cell {
	cells := make([]domain.Cell, len(raw))
	numeric := true
	values := make([]float64, len(raw))
	for i, v := range raw {
		if IsNAToken(v) {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			numeric = false
			break
		}
		values[i] = f
	}

	for i, v := range raw {
		switch {
		case IsNAToken(v):
			cells[i] = domain.MissingCell()
		case numeric:
			cells[i] = domain.NumberCell(values[i])
		default:
			cells[i] = domain.TextCell(v)
		}
	}
	return cells
}

// mangleDuplicates renames repeated header names to name.1, name.2, ...
func mangleDuplicates(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			out[i] = fmt.Sprintf("%s.%d", name, n+1)
			continue
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
