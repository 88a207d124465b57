package reference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"complexome/internal/config"
	"complexome/pkg/contracts/domain"
)

// ErrAnnotationMissing is returned when the table lacks the gene or organism column
var ErrAnnotationMissing = errors.New("annotation column not found")

// MatchResult summarises one matcher run
type MatchResult struct {
	Columns []string
	Failed  []string
	Flagged map[string]int
}

// Matcher flags rows whose gene belongs to a reference set of the same organism
type Matcher struct {
	loader   *Loader
	reporter domain.Reporter
	logger   *slog.Logger
}

// NewMatcher creates a matcher
func NewMatcher(loader *Loader, reporter domain.Reporter, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = domain.NopReporter{}
	}
	return &Matcher{
		loader:   loader,
		reporter: reporter,
		logger:   logger.With(slog.String("component", "reference_matcher")),
	}
}

// Apply adds one presence column per reference table. A table that cannot be
// loaded or matched is reported and skipped; only cancellation is returned.
func (m *Matcher) Apply(ctx context.Context, table *domain.ProteinGroupTable, refs []config.ReferenceTable) (*MatchResult, error) {
	result := &MatchResult{Flagged: make(map[string]int)}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		m.reporter.ReportStatus(fmt.Sprintf("Start elucidating which proteins are present in the %s reference set", ref.Name))

		set, err := m.loader.Load(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			m.fail(ctx, result, ref, "could not be read", err)
			continue
		}

		if !OrganismPresent(table, ref.Organism) {
			m.logger.WarnContext(ctx, "reference_organism_absent",
				slog.String("name", ref.Name),
				slog.String("organism", ref.Organism))
			m.reporter.ReportError(fmt.Sprintf(
				"Warning: the organism %s is not present in the main table. None of the proteins will be flagged for %s",
				ref.Organism, ref.Name), nil)
		}

		cells, flagged, err := Match(table, set)
		if err != nil {
			m.fail(ctx, result, ref, "could not be matched", err)
			continue
		}
		if err := table.SetColumn(ref.Name, cells); err != nil {
			m.fail(ctx, result, ref, "could not be added", err)
			continue
		}

		result.Columns = append(result.Columns, ref.Name)
		result.Flagged[ref.Name] = flagged
		m.logger.InfoContext(ctx, "reference_matched",
			slog.String("name", ref.Name),
			slog.Int("flagged", flagged),
			slog.Int("rows", table.Len()))
		m.reporter.ReportStatus(fmt.Sprintf("Finished elucidating which proteins are present in the %s reference set", ref.Name))
	}

	return result, nil
}

func (m *Matcher) fail(ctx context.Context, result *MatchResult, ref config.ReferenceTable, what string, err error) {
	result.Failed = append(result.Failed, ref.Name)
	m.logger.ErrorContext(ctx, "reference_table_failed",
		slog.String("name", ref.Name),
		slog.String("location", ref.Location),
		slog.String("error", err.Error()))
	m.reporter.ReportError(fmt.Sprintf("The reference table %s %s and will be ignored", ref.Name, what), err)
}

// Match returns 1.0 for rows of the set's organism whose gene name is in the
// set, 0.0 otherwise
func Match(table *domain.ProteinGroupTable, set *Set) ([]domain.Cell, int, error) {
	genes, ok := table.Column(string(domain.FieldGeneName))
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrAnnotationMissing, domain.FieldGeneName)
	}
	organisms, ok := table.Column(string(domain.FieldOrganismName))
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrAnnotationMissing, domain.FieldOrganismName)
	}

	cells := make([]domain.Cell, table.Len())
	flagged := 0
	for r := range cells {
		organism := organisms.Cells[r]
		gene := genes.Cells[r]
		if !organism.IsMissing() && organism.String() == set.Organism && set.Contains(gene.String()) {
			cells[r] = domain.NumberCell(1)
			flagged++
			continue
		}
		cells[r] = domain.NumberCell(0)
	}
	return cells, flagged, nil
}

// OrganismPresent reports whether any row carries the organism name
func OrganismPresent(table *domain.ProteinGroupTable, organism string) bool {
	col, ok := table.Column(string(domain.FieldOrganismName))
	if !ok {
		return false
	}
	for _, cell := range col.Cells {
		if !cell.IsMissing() && cell.String() == organism {
			return true
		}
	}
	return false
}
