package dataprocessing

import (
	"errors"
	"log/slog"
	"strings"

	"complexome/pkg/contracts/domain"
)

// Configuration problems reported by the filter. The filter still returns
// a usable result when any of these occur.
var (
	ErrExactMatchesMissing  = errors.New("EXACT_MATCHES was not found in the settings")
	ErrPrefixesMissing      = errors.New("CONTAINS was not found in the settings")
	ErrRowExclusionsMissing = errors.New("PROTEIN_FILTERS was not found in the settings")
)

// Filter selects the columns and rows of interest
type Filter struct {
	logger *slog.Logger
}

// NewFilter creates a new filter
func NewFilter(logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{logger: logger.With(slog.String("component", "filter"))}
}

// Apply filters the table. The result is never nil; the returned error joins
// configuration problems that made the filter fall back to a safe default.
func (f *Filter) Apply(table *domain.ProteinGroupTable, spec domain.FilterSpec) (*domain.FilterResult, error) {
	var problems []error
	result := &domain.FilterResult{}

	selected, missing, err := SelectColumns(table, spec)
	if err != nil {
		problems = append(problems, err)
	}
	result.MissingColumns = missing

	kept, excluded := selected, selected.SelectRows(nil)
	if spec.RowExclusions == nil {
		problems = append(problems, ErrRowExclusionsMissing)
	} else {
		keep, drop := PartitionRows(selected.Keys, spec.RowExclusions)
		kept = selected.SelectRows(keep)
		excluded = selected.SelectRows(drop)
		result.PatternExcluded = len(drop)
	}

	complete, incomplete := partitionComplete(kept)
	if len(incomplete) > 0 {
		excluded.AppendRows(kept.SelectRows(incomplete))
		kept = kept.SelectRows(complete)
	}
	result.MissingExcluded = len(incomplete)
	result.Kept = kept
	result.Excluded = excluded

	f.logger.Info("filter_applied",
		slog.Int("input_rows", table.Len()),
		slog.Int("input_columns", len(table.Columns)),
		slog.Int("kept_rows", kept.Len()),
		slog.Int("kept_columns", len(kept.Columns)),
		slog.Int("pattern_excluded", result.PatternExcluded),
		slog.Int("missing_excluded", result.MissingExcluded))

	return result, errors.Join(problems...)
}

// SelectColumns keeps exact-match columns first and prefix-match columns
// second, each in declared order. Repeated matches are kept. When either
// list is absent the table is returned with all columns.
func SelectColumns(table *domain.ProteinGroupTable, spec domain.FilterSpec) (*domain.ProteinGroupTable, []string, error) {
	var problems []error
	if spec.ExactMatches == nil {
		problems = append(problems, ErrExactMatchesMissing)
	}
	if spec.Prefixes == nil {
		problems = append(problems, ErrPrefixesMissing)
	}
	if len(problems) > 0 {
		return table.SelectColumns(table.ColumnNames()), nil, errors.Join(problems...)
	}

	all := table.ColumnNames()
	var names, missing []string
	for _, match := range spec.ExactMatches {
		if match == table.KeyColumn {
			continue
		}
		found := false
		for _, col := range all {
			if col == match {
				names = append(names, col)
				found = true
			}
		}
		if !found {
			missing = append(missing, match)
		}
	}
	for _, prefix := range spec.Prefixes {
		for _, col := range all {
			if strings.HasPrefix(col, prefix) {
				names = append(names, col)
			}
		}
	}

	return table.SelectColumns(names), missing, nil
}

// PartitionRows splits row indices into those whose key contains none of
// the patterns and those whose key contains at least one
func PartitionRows(keys []string, patterns []string) (keep, drop []int) {
	keep = make([]int, 0, len(keys))
	for i, key := range keys {
		excluded := false
		for _, p := range patterns {
			if strings.Contains(key, p) {
				excluded = true
				break
			}
		}
		if excluded {
			drop = append(drop, i)
		} else {
			keep = append(keep, i)
		}
	}
	return keep, drop
}

// partitionComplete splits rows into those without missing cells and the rest
func partitionComplete(table *domain.ProteinGroupTable) (complete, incomplete []int) {
	complete = make([]int, 0, table.Len())
	for r := 0; r < table.Len(); r++ {
		hasMissing := false
		for _, col := range table.Columns {
			if col.Cells[r].IsMissing() {
				hasMissing = true
				break
			}
		}
		if hasMissing {
			incomplete = append(incomplete, r)
		} else {
			complete = append(complete, r)
		}
	}
	return complete, incomplete
}
