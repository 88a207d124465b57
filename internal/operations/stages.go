package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"complexome/internal/annotation"
	"complexome/internal/clustering"
	"complexome/internal/config"
	"complexome/internal/dataprocessing"
	"complexome/internal/exporter"
	"complexome/internal/reference"
	"complexome/pkg/contracts/domain"
)

// StageOptions holds the collaborators shared by the pipeline steps
type StageOptions struct {
	Reporter domain.Reporter
	Client   *annotation.Client
	Tracer   *OperationTracer
	// Sleeper replaces the idle delay between annotation batches
	Sleeper annotation.Sleeper
}

func stageOptions(options *StageOptions) *StageOptions {
	if options == nil {
		return &StageOptions{}
	}
	return options
}

func stageLogger(logger *slog.Logger, stageID string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("step", stageID))
}

func (o *StageOptions) reporter() domain.Reporter {
	if o == nil || o.Reporter == nil {
		return domain.NopReporter{}
	}
	return o.Reporter
}

// categorizedReporter turns the errors a component reports into
// OperationErrors of one category and records them on the run state
type categorizedReporter struct {
	next     domain.Reporter
	state    *OperationState
	step     string
	classify func(err error) ErrorType
}

func newCategorizedReporter(next domain.Reporter, state *OperationState, step string, classify func(error) ErrorType) *categorizedReporter {
	return &categorizedReporter{next: next, state: state, step: step, classify: classify}
}

func fixedCategory(t ErrorType) func(error) ErrorType {
	return func(error) ErrorType { return t }
}

func (r *categorizedReporter) ReportStatus(message string) {
	r.next.ReportStatus(message)
}

func (r *categorizedReporter) ReportError(message string, err error) {
	if err == nil {
		r.next.ReportError(message, nil)
		return
	}
	opErr := &OperationError{
		Type:    r.classify(err),
		Step:    r.step,
		Message: message,
		Cause:   err,
	}
	r.state.AddError(opErr)
	r.next.ReportError(message, opErr)
}

// LoadStage reads and validates the settings file and the protein groups table
type LoadStage struct {
	BaseStage
	logger  *slog.Logger
	options *StageOptions
}

// NewLoadStage creates the input loading step
func NewLoadStage(logger *slog.Logger, options *StageOptions) *LoadStage {
	return &LoadStage{
		BaseStage: NewBaseStage(StageIDLoad, StageNameLoad, nil),
		logger:    stageLogger(logger, StageIDLoad),
		options:   stageOptions(options),
	}
}

// Validate needs nothing from earlier steps
func (s *LoadStage) Validate(state *OperationState) error {
	return nil
}

// Execute loads the inputs. Every failure is an input error.
func (s *LoadStage) Execute(ctx context.Context, state *OperationState) error {
	reporter := s.options.reporter()

	reporter.ReportStatus("Start reading the settings file")
	settings, err := config.LoadSettings(state.SettingsPath)
	if err != nil {
		return NewInputError(s.ID(), "The settings file could not be read", err)
	}
	if err := settings.Validate(); err != nil {
		return NewInputError(s.ID(), "The settings file is not valid", err)
	}
	state.SetSettings(settings)
	reporter.ReportStatus("Finished reading in the settings file")

	reporter.ReportStatus(fmt.Sprintf("Start reading in '%s'", state.TablePath))
	table, err := dataprocessing.ReadTable(state.TablePath, settings.Filtering.KeyColumn)
	if err != nil {
		return NewInputError(s.ID(), "The protein groups file could not be read", err)
	}
	if err := settings.ValidateColumns(table.ColumnNames()); err != nil {
		return NewInputError(s.ID(), "The settings file does not match the protein groups file", err)
	}
	state.SetTable(table)

	s.logger.InfoContext(ctx, "input_loaded",
		slog.String("settings_path", state.SettingsPath),
		slog.String("table_path", state.TablePath),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns)))
	reporter.ReportStatus("Finished reading in the protein groups file")
	return nil
}

// FilterStage selects columns and rows and adds the summed abundances
type FilterStage struct {
	BaseStage
	logger  *slog.Logger
	options *StageOptions
}

// NewFilterStage creates the filtering step
func NewFilterStage(logger *slog.Logger, options *StageOptions) *FilterStage {
	return &FilterStage{
		BaseStage: NewBaseStage(StageIDFilter, StageNameFilter, []string{StageIDLoad}),
		logger:    stageLogger(logger, StageIDFilter),
		options:   stageOptions(options),
	}
}

// SkipReason reports the disabled step
func (s *FilterStage) SkipReason(state *OperationState) string {
	if settings := state.Settings(); settings != nil && !settings.Steps.Filtering {
		return "Step 1 (filtering the columns and rows of the main table) has been disabled and will be skipped"
	}
	return ""
}

// Execute replaces the table by the kept rows and stores the excluded rows.
// Missing filter keys degrade to an unfiltered table and are reported.
func (s *FilterStage) Execute(ctx context.Context, state *OperationState) error {
	reporter := s.options.reporter()
	settings := state.Settings()

	reporter.ReportStatus("Step 1, filtering the table, has started")

	result, err := dataprocessing.NewFilter(s.logger).Apply(state.Table(), settings.Filtering.Spec())
	if err != nil {
		cfgErr := NewConfigurationError(s.ID(), "The filter settings are incomplete, the table is filtered with defaults", err)
		state.AddError(cfgErr)
		s.logger.WarnContext(ctx, "filter_configuration_incomplete", slog.String("error", err.Error()))
		reporter.ReportError(cfgErr.Message, cfgErr)
	}
	if len(result.MissingColumns) > 0 {
		s.logger.WarnContext(ctx, "filter_columns_missing",
			slog.Any("columns", result.MissingColumns))
	}

	state.SetTable(result.Kept)
	state.SetExcluded(result.Excluded)
	state.SetContext(ContextKeyFilterResult, result)

	summed, err := dataprocessing.AddSummedAbundances(result.Kept, s.logger)
	if err != nil {
		itemErr := NewItemError(s.ID(), "summed abundances", err)
		state.AddError(itemErr)
		reporter.ReportError("The summed abundance columns could not be added", itemErr)
	}
	state.SetContext(ContextKeySummedColumns, summed)

	reporter.ReportStatus("Step 1, filtering the table, is finished")
	return nil
}

// IdentifierStage parses one identifier per row from the FASTA header column
type IdentifierStage struct {
	BaseStage
	logger  *slog.Logger
	options *StageOptions
}

// NewIdentifierStage creates the identifier extraction step
func NewIdentifierStage(logger *slog.Logger, options *StageOptions) *IdentifierStage {
	return &IdentifierStage{
		BaseStage: NewBaseStage(StageIDIdentifiers, StageNameIdentifiers, []string{StageIDLoad}),
		logger:    stageLogger(logger, StageIDIdentifiers),
		options:   stageOptions(options),
	}
}

// Execute adds the identifier column. A missing header column leaves every
// identifier not available.
func (s *IdentifierStage) Execute(ctx context.Context, state *OperationState) error {
	reporter := s.options.reporter()
	headerColumn := state.Settings().Filtering.FastaHeaderColumn
	table := state.Table()

	ids, err := dataprocessing.ExtractIdentifiers(table, headerColumn)
	if err != nil {
		s.logger.WarnContext(ctx, "identifier_column_missing",
			slog.String("column", headerColumn),
			slog.String("error", err.Error()))
		reporter.ReportStatus(fmt.Sprintf("The column '%s' was not found, no uniprot identifiers could be extracted", headerColumn))
	}

	if err := table.SetColumn(domain.IdentifierColumn, dataprocessing.IdentifierCells(ids)); err != nil {
		return fmt.Errorf("failed to add %s: %w", domain.IdentifierColumn, err)
	}
	state.SetIdentifiers(ids)

	s.logger.InfoContext(ctx, "identifiers_extracted",
		slog.Int("rows", len(ids)),
		slog.Int("unique", len(dataprocessing.UniqueIdentifiers(ids))))
	return nil
}

// AnnotateStage fetches annotation fields for the extracted identifiers
type AnnotateStage struct {
	BaseStage
	logger  *slog.Logger
	options *StageOptions
}

// NewAnnotateStage creates the annotation step
func NewAnnotateStage(logger *slog.Logger, options *StageOptions) *AnnotateStage {
	return &AnnotateStage{
		BaseStage: NewBaseStage(StageIDAnnotate, StageNameAnnotate, []string{StageIDIdentifiers}),
		logger:    stageLogger(logger, StageIDAnnotate),
		options:   stageOptions(options),
	}
}

// SkipReason reports why uniprot is not queried
func (s *AnnotateStage) SkipReason(state *OperationState) string {
	settings := state.Settings()
	if settings == nil {
		return ""
	}
	switch {
	case !settings.Steps.Uniprot:
		return "Uniprot will not be queried for information due to the step being disabled"
	case len(settings.Uniprot.Options.Enabled()) == 0:
		return "Uniprot will not be queried for information because the step is enabled, but all the fields are disabled"
	case !state.HasIdentifiers():
		return fmt.Sprintf("Uniprot will not be queried because no uniprot identifiers were found in the '%s' column.",
			settings.Filtering.FastaHeaderColumn)
	}
	return ""
}

// Execute appends one column per enabled field. Batch and field failures are
// reported and leave the affected cells not available.
func (s *AnnotateStage) Execute(ctx context.Context, state *OperationState) error {
	step := state.Settings().Uniprot
	reporter := newCategorizedReporter(s.options.reporter(), state, s.ID(), func(err error) ErrorType {
		if errors.Is(err, annotation.ErrUnexpectedShape) {
			return ErrorTypeItem
		}
		return ErrorTypeRemote
	})

	var opts []annotation.FetcherOption
	if s.options != nil && s.options.Sleeper != nil {
		opts = append(opts, annotation.WithSleeper(s.options.Sleeper))
	}
	fetcher := annotation.NewFetcher(s.options.Client, step, reporter, s.logger, opts...)

	ids := state.Identifiers()
	records, stats, err := fetcher.Fetch(ctx, dataprocessing.UniqueIdentifiers(ids))
	if err != nil {
		return NewCancellationError(s.ID(), err)
	}
	state.SetContext(ContextKeyFetchStats, stats)
	if s.options.Tracer != nil {
		s.options.Tracer.RecordFetchStats(ctx, stats)
	}

	if err := annotation.AppendAnnotationColumns(state.Table(), ids, records, fetcher.Fields()); err != nil {
		return fmt.Errorf("failed to add annotation columns: %w", err)
	}
	state.SetAnnotatedFields(fetcher.Fields())

	s.logger.InfoContext(ctx, "annotation_completed",
		slog.Int("identifiers", stats.Identifiers),
		slog.Int("batches", stats.Batches),
		slog.Int("failed_batches", stats.FailedBatches),
		slog.Int("field_errors", stats.FieldErrors))
	return nil
}

// ReferenceStage flags rows whose gene belongs to a curated reference set
type ReferenceStage struct {
	BaseStage
	logger  *slog.Logger
	options *StageOptions
}

// NewReferenceStage creates the reference matching step
func NewReferenceStage(logger *slog.Logger, options *StageOptions) *ReferenceStage {
	return &ReferenceStage{
		BaseStage: NewBaseStage(StageIDReference, StageNameReference, []string{StageIDAnnotate}),
		logger:    stageLogger(logger, StageIDReference),
		options:   stageOptions(options),
	}
}

// SkipReason reports why the reference sets are not matched. Matching needs
// the gene and organism names from the annotation step.
func (s *ReferenceStage) SkipReason(state *OperationState) string {
	settings := state.Settings()
	if settings == nil {
		return ""
	}
	switch {
	case !settings.Steps.Mitocarta:
		return "Step 3, checking the presence of proteins in the reference sets, has been disabled"
	case !settings.Steps.Uniprot:
		return "The reference sets will not be checked because the uniprot step is disabled"
	case !settings.Uniprot.Options.GeneName || !settings.Uniprot.Options.OrganismName:
		return "The reference sets will not be checked because get_gene_name and get_organism_name must both be enabled"
	case !state.HasIdentifiers():
		return "The reference sets will not be checked because no uniprot identifiers were found"
	case len(settings.Mitocarta.Tables()) == 0:
		return "The reference sets will not be checked because no reference tables are configured"
	}
	return ""
}

// Execute adds one presence column per reference table
func (s *ReferenceStage) Execute(ctx context.Context, state *OperationState) error {
	reporter := newCategorizedReporter(s.options.reporter(), state, s.ID(), fixedCategory(ErrorTypeConfiguration))
	loader := reference.NewLoader(s.options.Client, s.logger)
	matcher := reference.NewMatcher(loader, reporter, s.logger)

	result, err := matcher.Apply(ctx, state.Table(), state.Settings().Mitocarta.Tables())
	if err != nil {
		return NewCancellationError(s.ID(), err)
	}
	state.SetContext(ContextKeyMatchResult, result)

	s.logger.InfoContext(ctx, "reference_completed",
		slog.Int("tables", len(result.Columns)),
		slog.Int("failed", len(result.Failed)))
	return nil
}

// ClusterStage ranks the rows of every sample by hierarchical clustering
type ClusterStage struct {
	BaseStage
	logger  *slog.Logger
	options *StageOptions
}

// NewClusterStage creates the clustering step
func NewClusterStage(logger *slog.Logger, options *StageOptions) *ClusterStage {
	return &ClusterStage{
		BaseStage: NewBaseStage(StageIDCluster, StageNameCluster, []string{StageIDLoad}),
		logger:    stageLogger(logger, StageIDCluster),
		options:   stageOptions(options),
	}
}

// SkipReason reports the disabled step
func (s *ClusterStage) SkipReason(state *OperationState) string {
	if settings := state.Settings(); settings != nil && !settings.Steps.Clustering {
		return "Step 4, clustering the fractions per sample using hierarchical clustering has been disabled."
	}
	return ""
}

// Execute adds the rank columns. A sample that cannot be clustered gets an
// empty rank column.
func (s *ClusterStage) Execute(ctx context.Context, state *OperationState) error {
	reporter := newCategorizedReporter(s.options.reporter(), state, s.ID(), fixedCategory(ErrorTypeItem))
	reorderer := clustering.NewReorderer(state.Settings().Clustering, reporter, s.logger)

	result, err := reorderer.Apply(ctx, state.Table())
	if result != nil {
		state.SetContext(ContextKeyReorderResult, result)
		if s.options.Tracer != nil {
			s.options.Tracer.RecordReorderResult(ctx, result)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return NewCancellationError(s.ID(), err)
		}
		return err
	}
	return nil
}

// ExportStage writes the kept and excluded tables to the workbook
type ExportStage struct {
	BaseStage
	logger  *slog.Logger
	options *StageOptions
}

// NewExportStage creates the workbook export step
func NewExportStage(logger *slog.Logger, options *StageOptions) *ExportStage {
	return &ExportStage{
		BaseStage: NewBaseStage(StageIDExport, StageNameExport, []string{StageIDLoad}),
		logger:    stageLogger(logger, StageIDExport),
		options:   stageOptions(options),
	}
}

// SkipReason reports the disabled step
func (s *ExportStage) SkipReason(state *OperationState) string {
	if settings := state.Settings(); settings != nil && !settings.Steps.Export {
		return "Step 5, writing away the data to an excel file, has been disabled"
	}
	return ""
}

// Execute writes the workbook, or the fallback file when the workbook fails
func (s *ExportStage) Execute(ctx context.Context, state *OperationState) error {
	settings := state.Settings()
	reporter := newCategorizedReporter(s.options.reporter(), state, s.ID(), fixedCategory(ErrorTypeExport))

	excluded := state.Excluded()
	if excluded == nil {
		excluded = domain.NewProteinGroupTable(settings.Filtering.KeyColumn, nil)
	}

	result, err := exporter.NewExporter(reporter, s.logger).Export(ctx, state.Table(), excluded, settings.Export, settings.FallbackPath())
	if err != nil {
		return NewExportError(s.ID(), settings.FallbackPath(), err)
	}
	state.SetContext(ContextKeyExportResult, result)

	s.logger.InfoContext(ctx, "export_finished",
		slog.String("path", result.Path),
		slog.Bool("fallback", result.Fallback))
	return nil
}

// StageFactory returns the pipeline steps in execution order
func StageFactory(logger *slog.Logger, options *StageOptions) []Step {
	if logger == nil {
		logger = slog.Default()
	}
	if options == nil {
		options = &StageOptions{}
	}
	return []Step{
		NewLoadStage(logger, options),
		NewFilterStage(logger, options),
		NewIdentifierStage(logger, options),
		NewAnnotateStage(logger, options),
		NewReferenceStage(logger, options),
		NewClusterStage(logger, options),
		NewExportStage(logger, options),
	}
}
