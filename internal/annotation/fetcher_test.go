package annotation

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"complexome/internal/config"
	"complexome/internal/shared/testutil"
	"complexome/pkg/contracts/domain"
)

func entryJSON(accession, gene string) string {
	return fmt.Sprintf(`{"accession":%q,"gene":[{"name":{"value":%q}}],"organism":{"names":[{"value":"Homo sapiens"}]}}`, accession, gene)
}

// fakeService serves annotation batches and identifier mapping
type fakeService struct {
	mu        sync.Mutex
	batches   []string
	failBatch map[int]bool
	mapping   string
	mapFails  bool
}

func (s *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/proteins", func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("accession")
		s.mu.Lock()
		s.batches = append(s.batches, ids)
		n := len(s.batches)
		s.mu.Unlock()

		if s.failBatch[n] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var entries []string
		for _, id := range strings.Split(ids, ",") {
			if id == "MISSING" {
				continue
			}
			entries = append(entries, entryJSON(id, "G_"+id))
		}
		w.Write([]byte("[" + strings.Join(entries, ",") + "]"))
	})
	mux.HandleFunc("/mapping", func(w http.ResponseWriter, r *http.Request) {
		if s.mapFails {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(s.mapping))
	})
	return mux
}

func fetcherStep(baseURL string) config.UniprotStep {
	return config.UniprotStep{
		Options: config.UniprotOptions{
			GeneName:         true,
			OrganismName:     true,
			UniprotHyperlink: true,
		},
		RequestIdleTime:       2,
		BatchAmount:           2,
		UniprotBaseURL:        baseURL,
		UniprotRequestURL:     "/proteins?accession=",
		UniprotProteinBaseURL: "https://www.uniprot.org/uniprot/",
		KnownGeneNames:        []string{"name"},
		StringLinkoutParameters: config.StringLinkoutParameters{
			RegexPattern:             `-[0-9]$`,
			UniprotMappingServiceURL: baseURL + "/mapping",
			StringBaseURL:            "https://string-db.org/network/",
		},
	}
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func TestFetcher_Fetch(t *testing.T) {
	service := &fakeService{}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	sleeper := &sleepRecorder{}
	reporter := &testutil.RecordingReporter{}
	fetcher := NewFetcher(NewClient(testHTTPConfig(), nil), fetcherStep(server.URL), reporter, nil, WithSleeper(sleeper.sleep))

	ids := []string{"P1", "P2", "MISSING", "P4", "P5"}
	records, stats, err := fetcher.Fetch(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, []string{"P1,P2", "MISSING,P4", "P5"}, service.batches)
	assert.Equal(t, 3, stats.Batches)
	assert.Zero(t, stats.FailedBatches)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, sleeper.calls)

	require.Len(t, records, 5)
	assert.Equal(t, null.StringFrom("G_P1"), records["P1"].Get(domain.FieldGeneName))
	assert.Equal(t, null.StringFrom("Homo sapiens"), records["P4"].Get(domain.FieldOrganismName))
	assert.Equal(t, `=HYPERLINK("https://www.uniprot.org/uniprot/P5", "P5")`, records["P5"].Get(domain.FieldUniprotHyperlink).String)

	missing := records["MISSING"]
	assert.False(t, missing.Get(domain.FieldGeneName).Valid)
	assert.False(t, missing.Get(domain.FieldOrganismName).Valid)
	assert.Contains(t, missing.Fields, domain.FieldGeneName)

	assert.True(t, reporter.HasStatus("batch 2 of 3"))
	assert.Empty(t, reporter.Errors())
}

func TestFetcher_BatchFailureIsIsolated(t *testing.T) {
	service := &fakeService{failBatch: map[int]bool{1: true}}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	sleeper := &sleepRecorder{}
	reporter := &testutil.RecordingReporter{}
	fetcher := NewFetcher(NewClient(testHTTPConfig(), nil), fetcherStep(server.URL), reporter, nil, WithSleeper(sleeper.sleep))

	records, stats, err := fetcher.Fetch(context.Background(), []string{"P1", "P2", "P3"})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FailedBatches)
	assert.Len(t, sleeper.calls, 2, "idle delay follows failed batches too")

	for _, id := range []string{"P1", "P2"} {
		for _, field := range fetcher.Fields() {
			assert.False(t, records[id].Get(field).Valid, "%s %s", id, field)
		}
	}
	assert.Equal(t, null.StringFrom("G_P3"), records["P3"].Get(domain.FieldGeneName))
	assert.True(t, reporter.HasError("batch 1 of 2"))
}

func TestFetcher_MiddleBatchFailure(t *testing.T) {
	service := &fakeService{failBatch: map[int]bool{2: true}}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	// number of batches requested when each pause starts
	var requestedAtPause []int
	sleeper := func(_ context.Context, d time.Duration) error {
		assert.Equal(t, 2*time.Second, d)
		service.mu.Lock()
		requestedAtPause = append(requestedAtPause, len(service.batches))
		service.mu.Unlock()
		return nil
	}
	reporter := &testutil.RecordingReporter{}
	fetcher := NewFetcher(NewClient(testHTTPConfig(), nil), fetcherStep(server.URL), reporter, nil, WithSleeper(sleeper))

	ids := []string{"P1", "P2", "P3", "P4", "P5"}
	records, stats, err := fetcher.Fetch(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, []string{"P1,P2", "P3,P4", "P5"}, service.batches)
	assert.Equal(t, []int{1, 2, 3}, requestedAtPause)
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 1, stats.FailedBatches)
	assert.True(t, reporter.HasError("batch 2 of 3"))
	assert.True(t, reporter.HasStatus("batch 3 of 3"))

	table := testutil.NewTable([]string{"G1", "G2", "G3", "G4", "G5"})
	groupIDs := make([]null.String, len(ids))
	for i, id := range ids {
		groupIDs[i] = null.StringFrom(id)
	}
	require.NoError(t, AppendAnnotationColumns(table, groupIDs, records, fetcher.Fields()))

	genes := make([]string, table.Len())
	for row := range genes {
		genes[row] = table.Value(row, "gene_name").String()
	}
	assert.Equal(t, []string{"G_P1", "G_P2", "", "", "G_P5"}, genes)
	for _, row := range []int{2, 3} {
		assert.True(t, table.Value(row, "gene_name").IsMissing())
		assert.True(t, table.Value(row, "organism_name").IsMissing())
	}
	assert.Equal(t, "Homo sapiens", table.Value(4, "organism_name").String())
}

func TestFetcher_StringLinkouts(t *testing.T) {
	service := &fakeService{mapping: "From\tTo\nP1\t9606.ENSP1\n"}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	step := fetcherStep(server.URL)
	step.Options = config.UniprotOptions{StringLinkout: true}
	sleeper := &sleepRecorder{}
	fetcher := NewFetcher(NewClient(testHTTPConfig(), nil), step, nil, nil, WithSleeper(sleeper.sleep))

	records, stats, err := fetcher.Fetch(context.Background(), []string{"P1", "P2"})
	require.NoError(t, err)
	assert.False(t, stats.MappingFailed)
	assert.Equal(t, `=HYPERLINK("https://string-db.org/network/9606.ENSP1", "9606.ENSP1")`, records["P1"].Get(domain.FieldStringLinkout).String)
	assert.False(t, records["P2"].Get(domain.FieldStringLinkout).Valid)
}

func TestFetcher_MappingFailureIsReported(t *testing.T) {
	service := &fakeService{mapFails: true}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	step := fetcherStep(server.URL)
	step.Options.StringLinkout = true
	reporter := &testutil.RecordingReporter{}
	sleeper := &sleepRecorder{}
	fetcher := NewFetcher(NewClient(testHTTPConfig(), nil), step, reporter, nil, WithSleeper(sleeper.sleep))

	records, stats, err := fetcher.Fetch(context.Background(), []string{"P1"})
	require.NoError(t, err)
	assert.True(t, stats.MappingFailed)
	assert.True(t, reporter.HasError("STRING"))
	assert.Equal(t, null.StringFrom("G_P1"), records["P1"].Get(domain.FieldGeneName))
	assert.False(t, records["P1"].Get(domain.FieldStringLinkout).Valid)
}

func TestFetcher_Cancellation(t *testing.T) {
	service := &fakeService{}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancelling := func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}
	fetcher := NewFetcher(NewClient(testHTTPConfig(), nil), fetcherStep(server.URL), nil, nil, WithSleeper(cancelling))

	_, _, err := fetcher.Fetch(ctx, []string{"P1", "P2", "P3"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, service.batches, 1)
}

func TestSplitBatches(t *testing.T) {
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, splitBatches([]string{"a", "b", "c"}, 2))
	assert.Empty(t, splitBatches(nil, 3))
	assert.Len(t, splitBatches([]string{"a", "b"}, 0), 2)
}

func TestAppendAnnotationColumns(t *testing.T) {
	table := testutil.NewTable([]string{"G1", "G2"})
	rec := domain.NewAnnotationRecord("P1")
	rec.Set(domain.FieldGeneName, null.StringFrom("ABC1"))
	records := map[string]*domain.AnnotationRecord{"P1": rec}
	ids := []null.String{null.StringFrom("P1"), {}}

	fields := []domain.AnnotationField{domain.FieldGeneName, domain.FieldProteinName}
	require.NoError(t, AppendAnnotationColumns(table, ids, records, fields))

	assert.Equal(t, []string{"gene_name", "protein_name"}, table.ColumnNames())
	assert.Equal(t, "ABC1", table.Value(0, "gene_name").String())
	assert.True(t, table.Value(1, "gene_name").IsMissing())
	assert.True(t, table.Value(0, "protein_name").IsMissing())

	assert.Error(t, AppendAnnotationColumns(table, ids[:1], records, fields))
}
