package exporter

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"complexome/internal/config"
	"complexome/internal/shared/testutil"
	"complexome/pkg/contracts/domain"
)

func keptTable() *domain.ProteinGroupTable {
	return testutil.NewTable([]string{"P11111", "P22222", "P33333"},
		testutil.Col("Gene names", testutil.Texts("ABC1", "DEF2", "")),
		testutil.Col("iBAQ A_01", testutil.Numbers(1, 2, 9)),
		testutil.Col("iBAQ A_02", testutil.Numbers(5, 4, 1)),
		testutil.Col("uniprot_hyperlink", testutil.Texts(`=HYPERLINK("https://www.uniprot.org/uniprot/P11111", "P11111")`, "", "")),
		testutil.Col("sample_A_clustered", testutil.Numbers(0, 1, 2)),
		testutil.Col("A_summed_iBAQ_value", testutil.Numbers(6, 6, 10)),
	)
}

func excludedTable() *domain.ProteinGroupTable {
	return testutil.NewTable([]string{"REV__P55555"},
		testutil.Col("Gene names", testutil.Texts("REV5")),
		testutil.Col("iBAQ A_01", testutil.Numbers(1)),
	)
}

func TestWorkbookWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	kept := keptTable()
	layout := TableLayout(kept, []string{"A"}, []string{"Majority protein IDs"})

	w := NewWorkbookWriter(nil)
	err := w.Write(path, []Sheet{
		{Name: DataSheet, Table: kept, Layout: layout, Format: true},
		{Name: ExcludedSheet, Table: excludedTable(), Layout: TableLayout(excludedTable(), nil, nil)},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DataSheet, ExcludedSheet}, f.GetSheetList())

	rows, err := f.GetRows(DataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{
		"Majority protein IDs", "Gene names", "uniprot_hyperlink",
		"iBAQ A_01", "iBAQ A_02", "sample_A_clustered", "A_summed_iBAQ_value",
	}, rows[0])
	assert.Equal(t, "P11111", rows[1][0])
	assert.Equal(t, "9", rows[3][3])

	formula, err := f.GetCellFormula(DataSheet, "C2")
	require.NoError(t, err)
	assert.Contains(t, formula, "HYPERLINK(")

	width, err := f.GetColWidth(DataSheet, "D")
	require.NoError(t, err)
	assert.InDelta(t, regionColumnWidth, width, 1e-9)

	formats, err := f.GetConditionalFormats(DataSheet)
	require.NoError(t, err)
	assert.Len(t, formats, 3)
	require.Contains(t, formats, "D2:E2")
	assert.Equal(t, "3_color_scale", formats["D2:E2"][0].Type)

	excluded, err := f.GetRows(ExcludedSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Majority protein IDs", "Gene names", "iBAQ A_01"}, excluded[0])
	assert.Equal(t, "REV__P55555", excluded[1][0])
}

func TestWorkbookWriter_NoSheets(t *testing.T) {
	err := NewWorkbookWriter(nil).Write(filepath.Join(t.TempDir(), "out.xlsx"), nil)
	assert.Error(t, err)
}

func TestExporter_Export(t *testing.T) {
	dir := t.TempDir()
	reporter := &testutil.RecordingReporter{}
	e := NewExporter(reporter, nil)

	step := config.ExportStep{
		ExcelFileName:         filepath.Join(dir, "result.xlsx"),
		IdentifierColumnNames: []string{"Majority protein IDs"},
	}
	result, err := e.Export(context.Background(), keptTable(), excludedTable(), step, filepath.Join(dir, "fallback.csv"))
	require.NoError(t, err)

	assert.False(t, result.Fallback)
	assert.Equal(t, step.ExcelFileName, result.Path)
	assert.FileExists(t, step.ExcelFileName)
	assert.NoFileExists(t, filepath.Join(dir, "fallback.csv"))
	assert.True(t, reporter.HasStatus("Finished writing away the data"))
	assert.Empty(t, reporter.Errors())
}

func TestExporter_FallsBackToCSV(t *testing.T) {
	dir := t.TempDir()
	reporter := &testutil.RecordingReporter{}
	logger, handler := testutil.NewTestLogger(t)
	e := NewExporter(reporter, logger)

	// a directory cannot be saved over
	step := config.ExportStep{ExcelFileName: dir}
	fallback := filepath.Join(dir, config.DefaultFallbackFileName)
	result, err := e.Export(context.Background(), keptTable(), excludedTable(), step, fallback)
	require.NoError(t, err)

	assert.True(t, result.Fallback)
	assert.Equal(t, fallback, result.Path)
	assert.Error(t, result.WorkbookErr)
	assert.True(t, reporter.HasError("will be written away as .csv file"))
	assert.True(t, handler.ContainsMessage("workbook_write_failed"))

	file, err := os.Open(fallback)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Majority protein IDs", records[0][0])
	assert.Equal(t, []string{"P33333", "", "9", "1", "", "2", "10"}, records[3])
}

func TestExporter_FallbackFails(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(nil, nil)

	step := config.ExportStep{ExcelFileName: dir}
	_, err := e.Export(context.Background(), keptTable(), nil, step, dir)
	assert.Error(t, err)
}
