package dataprocessing

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/montanaflynn/stats"

	"complexome/pkg/contracts/domain"
)

// SamplePrefix marks abundance columns, e.g. "iBAQ A_01"
const SamplePrefix = "iBAQ "

const (
	GlobalRankColumn   = "global_clustered"
	GlobalSummedColumn = "global_summed_iBAQ_value"
)

var fractionSuffix = regexp.MustCompile(`_[$0-9]{2}`)

// SampleRankColumn names the cluster-order column of a sample
func SampleRankColumn(sample string) string {
	return "sample_" + sample + "_clustered"
}

// SampleSummedColumn names the summed abundance column of a sample
func SampleSummedColumn(sample string) string {
	return sample + "_summed_iBAQ_value"
}

// SampleColumnPrefix is the prefix shared by all fraction columns of a sample
func SampleColumnPrefix(sample string) string {
	return SamplePrefix + sample + "_"
}

// SampleNames derives sample names from abundance columns: the prefix is
// removed, fraction suffixes are stripped and names are kept in order of
// first appearance
func SampleNames(columns []string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, col := range columns {
		if !strings.HasPrefix(col, SamplePrefix) {
			continue
		}
		name := fractionSuffix.ReplaceAllString(strings.TrimPrefix(col, SamplePrefix), "")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// SampleColumns returns the fraction columns of one sample, in table order
func SampleColumns(columns []string, sample string) []string {
	prefix := SampleColumnPrefix(sample)
	var out []string
	for _, col := range columns {
		if strings.HasPrefix(col, prefix) {
			out = append(out, col)
		}
	}
	return out
}

// AbundanceColumns returns every column carrying the sample prefix
func AbundanceColumns(columns []string) []string {
	var out []string
	for _, col := range columns {
		if strings.HasPrefix(col, SamplePrefix) {
			out = append(out, col)
		}
	}
	return out
}

// AddSummedAbundances appends one summed abundance column per sample and a
// global column summing the per-sample sums. Missing and non-numeric cells
// are skipped; a row with nothing to add sums to zero.
func AddSummedAbundances(table *domain.ProteinGroupTable, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	samples := SampleNames(table.ColumnNames())
	added := make([]string, 0, len(samples)+1)
	perSample := make([][]domain.Cell, 0, len(samples))

	for _, sample := range samples {
		cols := SampleColumns(table.ColumnNames(), sample)
		cells, skipped := sumColumns(table, cols)
		if skipped > 0 {
			logger.Debug("non_numeric_abundances_skipped",
				slog.String("sample", sample),
				slog.Int("cells", skipped))
		}
		name := SampleSummedColumn(sample)
		if err := table.SetColumn(name, cells); err != nil {
			return added, fmt.Errorf("failed to add %s: %w", name, err)
		}
		added = append(added, name)
		perSample = append(perSample, cells)
	}

	global := make([]domain.Cell, table.Len())
	for r := range global {
		values := make([]float64, 0, len(perSample))
		for _, cells := range perSample {
			if f, err := cells[r].Float(); err == nil && cells[r].IsNumber() {
				values = append(values, f)
			}
		}
		global[r] = domain.NumberCell(sum(values))
	}
	if err := table.SetColumn(GlobalSummedColumn, global); err != nil {
		return added, fmt.Errorf("failed to add %s: %w", GlobalSummedColumn, err)
	}
	added = append(added, GlobalSummedColumn)

	return added, nil
}

func sumColumns(table *domain.ProteinGroupTable, cols []string) ([]domain.Cell, int) {
	cells := make([]domain.Cell, table.Len())
	skipped := 0
	for r := range cells {
		values := make([]float64, 0, len(cols))
		for _, name := range cols {
			cell := table.Value(r, name)
			if cell.IsMissing() {
				continue
			}
			f, err := cell.Float()
			if err != nil {
				skipped++
				continue
			}
			values = append(values, f)
		}
		cells[r] = domain.NumberCell(sum(values))
	}
	return cells, skipped
}

func sum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total, err := stats.Sum(values)
	if err != nil {
		return 0
	}
	return total
}
