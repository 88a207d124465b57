package exporter

import (
	"strings"

	"complexome/internal/dataprocessing"
	"complexome/pkg/contracts/domain"
)

// BuildLayout orders columns for export. Configured identifier columns come
// first, then every column the sample grouping does not claim in its
// current order, then per sample its abundance columns, rank column and
// summed column, and finally the global rank and summed columns. Names the
// grouping expects but columns does not hold are left out.
func BuildLayout(columns, samples, identifiers []string) domain.ExportLayout {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	grouped := sampleBlock(columns, samples, present)
	claimed := make(map[string]bool, len(grouped)+len(identifiers))
	for _, c := range grouped {
		claimed[c] = true
	}

	ordered := make([]string, 0, len(columns))
	for _, id := range identifiers {
		if present[id] && !claimed[id] {
			ordered = append(ordered, id)
			claimed[id] = true
		}
	}
	for _, c := range columns {
		if !claimed[c] {
			ordered = append(ordered, c)
			claimed[c] = true
		}
	}
	ordered = append(ordered, grouped...)

	return domain.ExportLayout{
		Columns: ordered,
		Regions: FindRegions(ordered),
	}
}

// TableLayout lays out a table including its key column
func TableLayout(table *domain.ProteinGroupTable, samples, identifiers []string) domain.ExportLayout {
	columns := append([]string{table.KeyColumn}, table.ColumnNames()...)
	return BuildLayout(columns, samples, identifiers)
}

// sampleBlock lists the grouped sample columns. An empty sample list groups
// nothing, not even the global columns.
func sampleBlock(columns, samples []string, present map[string]bool) []string {
	if len(samples) == 0 {
		return nil
	}
	var block []string
	seen := make(map[string]bool)
	add := func(name string) {
		if present[name] && !seen[name] {
			block = append(block, name)
			seen[name] = true
		}
	}
	for _, sample := range samples {
		for _, c := range dataprocessing.SampleColumns(columns, sample) {
			add(c)
		}
		add(dataprocessing.SampleRankColumn(sample))
		add(dataprocessing.SampleSummedColumn(sample))
	}
	add(dataprocessing.GlobalRankColumn)
	add(dataprocessing.GlobalSummedColumn)
	return block
}

// FindRegions returns the maximal runs of consecutive abundance columns
func FindRegions(columns []string) []domain.ColumnRange {
	var regions []domain.ColumnRange
	start := -1
	for i, c := range columns {
		if strings.HasPrefix(c, dataprocessing.SamplePrefix) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			regions = append(regions, domain.ColumnRange{Start: start, End: i - 1})
			start = -1
		}
	}
	if start >= 0 {
		regions = append(regions, domain.ColumnRange{Start: start, End: len(columns) - 1})
	}
	return regions
}
