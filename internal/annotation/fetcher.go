package annotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/guregu/null.v3"

	"complexome/internal/config"
	"complexome/pkg/contracts/domain"
)

// ErrMalformedResponse is returned when a batch response is not a JSON array
var ErrMalformedResponse = errors.New("annotation response is not a JSON array")

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchStats summarises one annotation run
type FetchStats struct {
	Identifiers   int
	Batches       int
	FailedBatches int
	FieldErrors   int
	MappingFailed bool
}

// Fetcher annotates identifiers in batches against the remote annotation
// service. Failures are isolated per batch and per field.
type Fetcher struct {
	client     *Client
	step       config.UniprotStep
	fields     []domain.AnnotationField
	extractors map[domain.AnnotationField]FieldExtractor
	reporter   domain.Reporter
	logger     *slog.Logger
	sleep      Sleeper
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithSleeper replaces the idle delay implementation
func WithSleeper(s Sleeper) FetcherOption {
	return func(f *Fetcher) {
		f.sleep = s
	}
}

// NewFetcher creates a fetcher for the enabled fields of the step
func NewFetcher(client *Client, step config.UniprotStep, reporter domain.Reporter, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = domain.NopReporter{}
	}
	f := &Fetcher{
		client:     client,
		step:       step,
		fields:     step.Options.Enabled(),
		extractors: NewExtractors(step, logger),
		reporter:   reporter,
		logger:     logger.With(slog.String("component", "annotation_fetcher")),
		sleep:      SleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fields returns the enabled fields in output column order
func (f *Fetcher) Fields() []domain.AnnotationField {
	return f.fields
}

// Fetch annotates the identifiers. Every identifier receives a record; a
// field that could not be obtained is not available. Only cancellation of
// ctx is returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, identifiers []string) (map[string]*domain.AnnotationRecord, *FetchStats, error) {
	records := make(map[string]*domain.AnnotationRecord, len(identifiers))
	for _, id := range identifiers {
		records[id] = domain.NewAnnotationRecord(id)
	}

	batches := splitBatches(identifiers, f.step.BatchAmount)
	stats := &FetchStats{Identifiers: len(identifiers), Batches: len(batches)}
	idle := time.Duration(f.step.RequestIdleTime * float64(time.Second))

	f.reporter.ReportStatus(fmt.Sprintf(
		"Step 2, fetching data from uniprot. The data is fetched in batches; after each batch %g seconds pass before the next batch is requested",
		f.step.RequestIdleTime))

	for i, batch := range batches {
		f.reporter.ReportStatus(fmt.Sprintf("Start fetching uniprot data for batch %d of %d", i+1, len(batches)))

		if err := f.fetchBatch(ctx, batch, records, stats); err != nil {
			if ctx.Err() != nil {
				return records, stats, ctx.Err()
			}
			stats.FailedBatches++
			f.logger.ErrorContext(ctx, "annotation_batch_failed",
				slog.Int("batch", i+1),
				slog.Int("batches", len(batches)),
				slog.Int("identifiers", len(batch)),
				slog.String("error", err.Error()))
			f.reporter.ReportError(fmt.Sprintf(
				"Something went wrong with batch %d of %d while querying uniprot. The %d proteins of this batch will be ignored",
				i+1, len(batches), len(batch)), err)
			for _, id := range batch {
				f.markUnavailable(records[id])
			}
		} else {
			f.logger.InfoContext(ctx, "annotation_batch_fetched",
				slog.Int("batch", i+1),
				slog.Int("batches", len(batches)),
				slog.Int("identifiers", len(batch)))
		}

		if err := f.sleep(ctx, idle); err != nil {
			return records, stats, err
		}
	}

	if f.step.Options.StringLinkout {
		if err := f.addLinkouts(ctx, identifiers, records); err != nil {
			if ctx.Err() != nil {
				return records, stats, ctx.Err()
			}
			stats.MappingFailed = true
			f.logger.ErrorContext(ctx, "identifier_mapping_failed", slog.String("error", err.Error()))
			f.reporter.ReportError("Fetching STRING linkouts failed, the string_linkout column will be empty", err)
		}
	}

	for _, rec := range records {
		f.markUnavailable(rec)
	}

	f.reporter.ReportStatus("Step 2, fetching data from uniprot, is finished")
	return records, stats, nil
}

// fetchBatch requests one batch and fills the records of its identifiers
func (f *Fetcher) fetchBatch(ctx context.Context, batch []string, records map[string]*domain.AnnotationRecord, stats *FetchStats) error {
	requestURL := f.step.UniprotBaseURL + f.step.UniprotRequestURL + strings.Join(batch, ",")
	body, err := f.client.Get(ctx, requestURL, "application/json")
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(body) {
		return ErrMalformedResponse
	}
	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return ErrMalformedResponse
	}

	entries := make(map[string]gjson.Result)
	result.ForEach(func(_, entry gjson.Result) bool {
		accession := entry.Get("accession").String()
		if _, seen := entries[accession]; accession != "" && !seen {
			entries[accession] = entry
		}
		return true
	})

	for _, id := range batch {
		rec := records[id]
		entry, found := entries[id]
		for _, field := range f.fields {
			extractor, ok := f.extractors[field]
			if !ok {
				continue
			}
			if !found {
				rec.MarkUnavailable(field)
				continue
			}
			value, err := extractor.Extract(entry)
			if err != nil {
				stats.FieldErrors++
				f.logger.WarnContext(ctx, "annotation_field_failed",
					slog.String("field", string(field)),
					slog.String("identifier", id),
					slog.String("error", err.Error()))
				f.reporter.ReportError(fmt.Sprintf(
					"While getting the %s for protein %s an error occurred, this field will be ignored", field, id), err)
				rec.MarkUnavailable(field)
				continue
			}
			rec.Set(field, value)
		}

		if f.step.Options.UniprotHyperlink {
			rec.Set(domain.FieldUniprotHyperlink, MakeHyperlink(f.step.UniprotProteinBaseURL+id))
		}
	}
	return nil
}

// addLinkouts maps the whole identifier set in one request
func (f *Fetcher) addLinkouts(ctx context.Context, identifiers []string, records map[string]*domain.AnnotationRecord) error {
	mapper, err := NewMapper(f.client, f.step.StringLinkoutParameters, f.logger)
	if err != nil {
		return err
	}
	links, err := mapper.Linkouts(ctx, identifiers)
	if err != nil {
		return err
	}
	for id, link := range links {
		if rec, ok := records[id]; ok {
			rec.Set(domain.FieldStringLinkout, link)
		}
	}
	return nil
}

func (f *Fetcher) markUnavailable(rec *domain.AnnotationRecord) {
	for _, field := range f.fields {
		rec.MarkUnavailable(field)
	}
}

// splitBatches splits identifiers into contiguous batches of at most size
func splitBatches(identifiers []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var batches [][]string
	for start := 0; start < len(identifiers); start += size {
		end := min(start+size, len(identifiers))
		batches = append(batches, identifiers[start:end])
	}
	return batches
}

// AppendAnnotationColumns adds one column per field. Rows whose identifier
// is not available get missing cells.
func AppendAnnotationColumns(table *domain.ProteinGroupTable, ids []null.String, records map[string]*domain.AnnotationRecord, fields []domain.AnnotationField) error {
	if len(ids) != table.Len() {
		return fmt.Errorf("have %d identifiers for %d rows", len(ids), table.Len())
	}
	for _, field := range fields {
		cells := make([]domain.Cell, len(ids))
		for r, id := range ids {
			if !id.Valid {
				continue
			}
			cells[r] = domain.NullStringCell(records[id.String].Get(field))
		}
		if err := table.SetColumn(string(field), cells); err != nil {
			return err
		}
	}
	return nil
}
