package clustering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"complexome/internal/config"
	"complexome/internal/dataprocessing"
	"complexome/pkg/contracts/domain"
)

// GlobalGroup names the clustering run over every abundance column
const GlobalGroup = "global"

// ReorderResult summarises one reorder stage
type ReorderResult struct {
	Columns []string
	Orders  []*domain.ClusterOrder
	Failed  []string
}

// Reorderer ranks rows per sample by hierarchical clustering with optimal
// leaf ordering
type Reorderer struct {
	method   string
	metric   string
	reporter domain.Reporter
	logger   *slog.Logger
}

// NewReorderer creates a reorderer for the configured method and metric
func NewReorderer(step config.ClusteringStep, reporter domain.Reporter, logger *slog.Logger) *Reorderer {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = domain.NopReporter{}
	}
	return &Reorderer{
		method:   step.Method,
		metric:   step.Metric,
		reporter: reporter,
		logger:   logger.With(slog.String("component", "cluster_reorderer")),
	}
}

// Apply adds one rank column per sample and a global rank column. A group
// that cannot be clustered gets missing cells; other groups are unaffected.
// Only cancellation of ctx is returned as an error.
func (r *Reorderer) Apply(ctx context.Context, table *domain.ProteinGroupTable) (*ReorderResult, error) {
	columns := table.ColumnNames()
	samples := dataprocessing.SampleNames(columns)
	result := &ReorderResult{}

	r.reporter.ReportStatus("Step 4, reordering the samples by hierarchical clustering...")

	type group struct {
		name, column string
		sources      []string
	}
	groups := make([]group, 0, len(samples)+1)
	for _, sample := range samples {
		groups = append(groups, group{
			name:    sample,
			column:  dataprocessing.SampleRankColumn(sample),
			sources: dataprocessing.SampleColumns(columns, sample),
		})
	}
	groups = append(groups, group{
		name:    GlobalGroup,
		column:  dataprocessing.GlobalRankColumn,
		sources: dataprocessing.AbundanceColumns(columns),
	})

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		order, err := r.orderColumns(g.name, table, g.sources)
		cells := make([]domain.Cell, table.Len())
		if err != nil {
			result.Failed = append(result.Failed, g.name)
			attrs := []any{
				slog.String("group", g.name),
				slog.String("method", r.method),
				slog.String("metric", r.metric),
				slog.String("error", err.Error()),
			}
			message := fmt.Sprintf("Clustering of %s failed, the column %s will be empty", g.name, g.column)
			var obsErr *ObservationError
			if errors.As(err, &obsErr) {
				attrs = append(attrs, slog.String("row", obsErr.Key), slog.String("reason", obsErr.Reason))
				message = fmt.Sprintf("Clustering of %s failed because in row %s %s, the column %s will be empty",
					g.name, obsErr.Key, obsErr.Reason, g.column)
			}
			r.logger.ErrorContext(ctx, "cluster_reorder_failed", attrs...)
			r.reporter.ReportError(message, err)
		} else {
			for rank, row := range order.Leaves {
				cells[row] = domain.NumberCell(float64(rank))
			}
			result.Orders = append(result.Orders, order)
			r.logger.DebugContext(ctx, "cluster_reorder_completed",
				slog.String("group", g.name),
				slog.Int("rows", len(order.Leaves)),
				slog.Int("columns", len(g.sources)))
		}

		if err := table.SetColumn(g.column, cells); err != nil {
			return result, fmt.Errorf("failed to add %s: %w", g.column, err)
		}
		result.Columns = append(result.Columns, g.column)
	}

	r.logger.InfoContext(ctx, "cluster_reorder_finished",
		slog.Int("groups", len(groups)),
		slog.Int("failed", len(result.Failed)))
	r.reporter.ReportStatus("Step 4, reordering the samples by hierarchical clustering, is finished")
	return result, nil
}

// orderColumns clusters the rows of table over the given columns
func (r *Reorderer) orderColumns(name string, table *domain.ProteinGroupTable, sources []string) (*domain.ClusterOrder, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no abundance columns for %s", ErrEmptyInput, name)
	}
	data := make([][]float64, table.Len())
	for row := range data {
		values := make([]float64, len(sources))
		for c, col := range sources {
			f, err := table.Value(row, col).Float()
			if err != nil {
				return nil, fmt.Errorf("row %s column %s: %w", table.Keys[row], col, err)
			}
			values[c] = f
		}
		data[row] = values
	}
	return r.Order(name, table.Keys, data)
}

// Order clusters the observations and returns each key's rank in the
// optimal leaf order
func (r *Reorderer) Order(name string, keys []string, data [][]float64) (*domain.ClusterOrder, error) {
	if len(keys) != len(data) {
		return nil, fmt.Errorf("have %d keys for %d observations", len(keys), len(data))
	}
	condensed, err := Pdist(data, r.metric)
	if err != nil {
		var obsErr *ObservationError
		if errors.As(err, &obsErr) && obsErr.Row < len(keys) {
			obsErr.Key = keys[obsErr.Row]
		}
		return nil, err
	}
	merges, err := Linkage(condensed, len(data), r.method)
	if err != nil {
		return nil, err
	}
	leaves, err := OptimalLeafOrder(merges, condensed, len(data))
	if err != nil {
		return nil, err
	}

	ranks := make(map[string]int, len(leaves))
	for rank, leaf := range leaves {
		ranks[keys[leaf]] = rank
	}
	return &domain.ClusterOrder{
		Group:   name,
		Ranks:   ranks,
		Leaves:  leaves,
		Linkage: merges,
	}, nil
}
