package operations_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v2"

	"complexome/internal/annotation"
	"complexome/internal/config"
	"complexome/internal/exporter"
	"complexome/internal/operations"
	"complexome/internal/shared/testutil"
	"complexome/pkg/contracts/domain"
)

var annotationEntries = map[string]struct{ gene, organism string }{
	"P11111": {"ABC1", "Homo sapiens"},
	"P22222": {"DEF2", "Homo sapiens"},
	"P33333": {"GHI3", "Mus musculus"},
	"P44444": {"JKL4", "Mus musculus"},
}

// annotationServer answers batched accession requests
type annotationServer struct {
	mu       sync.Mutex
	requests []string
}

func (s *annotationServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("accession")
		s.mu.Lock()
		s.requests = append(s.requests, ids)
		s.mu.Unlock()

		var entries []string
		for _, id := range strings.Split(ids, ",") {
			e, ok := annotationEntries[id]
			if !ok {
				continue
			}
			entries = append(entries, fmt.Sprintf(
				`{"accession":%q,"gene":[{"geneName":{"value":%q}}],"organism":{"names":[{"value":%q}]}}`,
				id, e.gene, e.organism))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[" + strings.Join(entries, ",") + "]"))
	}))
	t.Cleanup(server.Close)
	return server
}

type pipelineFixture struct {
	dir          string
	tablePath    string
	referencePth string
	settings     *config.Settings
	reporter     *testutil.RecordingReporter
	server       *annotationServer
	deps         operations.Dependencies
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	dir := t.TempDir()
	fx := &pipelineFixture{
		dir:          dir,
		tablePath:    filepath.Join(dir, "proteinGroups.txt"),
		referencePth: filepath.Join(dir, "human_reference.tsv"),
		reporter:     &testutil.RecordingReporter{},
		server:       &annotationServer{},
	}
	require.NoError(t, os.WriteFile(fx.tablePath, []byte(testutil.ProteinGroupsTSV), 0o644))
	require.NoError(t, os.WriteFile(fx.referencePth, []byte("Symbol\tSynonyms\nABC1\tABCX|ABCY\nGHI3\t\n"), 0o644))

	server := fx.server.start(t)
	fx.settings = &config.Settings{
		Steps: config.Steps{Filtering: true, Uniprot: true, Mitocarta: true, Clustering: true, Export: true},
		Filtering: config.FilteringStep{
			ExactMatches:   []string{"Fasta headers", "Gene names"},
			Contains:       []string{"iBAQ "},
			ProteinFilters: []string{"REV", "CON"},
		},
		Uniprot: config.UniprotStep{
			Options:               config.UniprotOptions{GeneName: true, OrganismName: true, UniprotHyperlink: true},
			RequestIdleTime:       2,
			BatchAmount:           2,
			UniprotBaseURL:        server.URL,
			UniprotRequestURL:     "/proteins?accession=",
			UniprotProteinBaseURL: "https://www.uniprot.org/uniprot/",
			KnownGeneNames:        []string{"geneName"},
		},
		Mitocarta: config.MitocartaStep{
			ReferenceTables: []config.ReferenceTable{{
				Name:          "mitocarta_human_presency",
				Location:      fx.referencePth,
				Organism:      "Homo sapiens",
				SymbolColumn:  "Symbol",
				SynonymColumn: "Synonyms",
			}},
		},
		Clustering: config.ClusteringStep{Method: "average", Metric: "euclidean"},
		Export: config.ExportStep{
			ExcelFileName:         filepath.Join(dir, "profile.xlsx"),
			IdentifierColumnNames: []string{"Majority protein IDs", "gene_name"},
		},
	}

	logger, _ := testutil.NewTestLogger(t)
	fx.deps = operations.Dependencies{
		Logger: logger,
		Client: annotation.NewClient(config.HTTPConfig{
			Timeout:           5 * time.Second,
			MaxAttempts:       1,
			RequestsPerSecond: 1000,
			Burst:             10,
			UserAgent:         "complexome-test",
		}, logger),
		Reporter: fx.reporter,
		Sleeper:  func(context.Context, time.Duration) error { return nil },
	}
	return fx
}

func (fx *pipelineFixture) writeSettings(t *testing.T, name string) string {
	t.Helper()
	var data []byte
	var err error
	if strings.HasSuffix(name, ".json") {
		data, err = json.Marshal(fx.settings)
	} else {
		data, err = yaml.Marshal(fx.settings)
	}
	require.NoError(t, err)
	path := filepath.Join(fx.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// sheetRows returns the header and the rows of a sheet by row key
func sheetRows(t *testing.T, path, sheet string) ([]string, map[string][]string) {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	keyIdx := slices.Index(rows[0], domain.DefaultKeyColumn)
	require.GreaterOrEqual(t, keyIdx, 0)

	byKey := make(map[string][]string)
	for _, row := range rows[1:] {
		if keyIdx < len(row) {
			byKey[row[keyIdx]] = row
		}
	}
	return rows[0], byKey
}

func cellOf(header, row []string, column string) string {
	idx := slices.Index(header, column)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func TestRunPipeline_EndToEnd(t *testing.T) {
	fx := newPipelineFixture(t)
	settingsPath := fx.writeSettings(t, "settings.json")

	err := operations.RunPipeline(context.Background(), fx.deps, settingsPath, fx.tablePath)
	require.NoError(t, err)

	assert.Empty(t, fx.reporter.Errors())
	assert.True(t, fx.reporter.HasStatus("Finished reading in the settings file"))
	assert.True(t, fx.reporter.HasStatus("Step 1, filtering the table, is finished"))
	assert.True(t, fx.reporter.HasStatus("batch 2 of 2"))
	assert.True(t, fx.reporter.HasStatus("Finished writing away the data"))
	assert.Equal(t, []string{"P11111,P22222", "P33333,P44444"}, fx.server.requests)

	header, kept := sheetRows(t, fx.settings.Export.ExcelFileName, exporter.DataSheet)
	for _, col := range []string{"gene_name", "organism_name", "mitocarta_human_presency", "sample_A_clustered", "sample_B_clustered", "global_clustered"} {
		assert.Contains(t, header, col)
	}
	assert.Len(t, kept, 4)
	assert.Equal(t, "ABC1", cellOf(header, kept["P11111"], "gene_name"))
	assert.Equal(t, "1", cellOf(header, kept["P11111"], "mitocarta_human_presency"))
	assert.Equal(t, "0", cellOf(header, kept["P22222"], "mitocarta_human_presency"))
	assert.Equal(t, "0", cellOf(header, kept["P33333"], "mitocarta_human_presency"), "organism mismatch")

	ranks := make([]string, 0, len(kept))
	for _, row := range kept {
		ranks = append(ranks, cellOf(header, row, "sample_A_clustered"))
	}
	slices.Sort(ranks)
	assert.Equal(t, []string{"0", "1", "2", "3"}, ranks)

	_, excluded := sheetRows(t, fx.settings.Export.ExcelFileName, exporter.ExcludedSheet)
	assert.ElementsMatch(t, []string{"REV__P55555", "CON__P66666", "P77777"}, keysOf(excluded))
}

func keysOf(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestRunPipeline_YAMLSettingsWithStepsDisabled(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.settings.Steps = config.Steps{Export: true}
	settingsPath := fx.writeSettings(t, "settings.yaml")

	err := operations.RunPipeline(context.Background(), fx.deps, settingsPath, fx.tablePath)
	require.NoError(t, err)

	assert.True(t, fx.reporter.HasStatus("Step 1 (filtering the columns and rows of the main table) has been disabled"))
	assert.True(t, fx.reporter.HasStatus("due to the step being disabled"))
	assert.True(t, fx.reporter.HasStatus("Step 3, checking the presence of proteins in the reference sets, has been disabled"))
	assert.True(t, fx.reporter.HasStatus("Step 4, clustering the fractions per sample using hierarchical clustering has been disabled."))
	assert.Empty(t, fx.server.requests)

	header, kept := sheetRows(t, fx.settings.Export.ExcelFileName, exporter.DataSheet)
	assert.Len(t, kept, 7, "unfiltered table is exported")
	assert.NotContains(t, header, "gene_name")
	assert.NotContains(t, header, "global_clustered")
}

func TestRunPipeline_AnnotationOptionsDisabled(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.settings.Uniprot.Options = config.UniprotOptions{}
	settingsPath := fx.writeSettings(t, "settings.json")

	require.NoError(t, operations.RunPipeline(context.Background(), fx.deps, settingsPath, fx.tablePath))

	assert.True(t, fx.reporter.HasStatus("all the fields are disabled"))
	assert.True(t, fx.reporter.HasStatus("get_gene_name and get_organism_name must both be enabled"))
	assert.Empty(t, fx.server.requests)
}

func TestRunPipeline_InputErrorsStopTheRun(t *testing.T) {
	t.Run("missing table", func(t *testing.T) {
		fx := newPipelineFixture(t)
		settingsPath := fx.writeSettings(t, "settings.json")

		err := operations.RunPipeline(context.Background(), fx.deps, settingsPath, filepath.Join(fx.dir, "absent.txt"))
		require.Error(t, err)
		assert.True(t, operations.IsFatal(err))
		assert.True(t, fx.reporter.HasError("The protein groups file could not be read"))
		assert.NoFileExists(t, fx.settings.Export.ExcelFileName)
	})

	t.Run("invalid settings", func(t *testing.T) {
		fx := newPipelineFixture(t)
		fx.settings.Uniprot.BatchAmount = 500
		settingsPath := fx.writeSettings(t, "settings.json")

		err := operations.RunPipeline(context.Background(), fx.deps, settingsPath, fx.tablePath)
		require.Error(t, err)
		assert.Equal(t, operations.ErrorTypeInput, operations.GetErrorType(err))
		assert.True(t, fx.reporter.HasError("The settings file is not valid"))
	})

	t.Run("exact match column absent from data", func(t *testing.T) {
		fx := newPipelineFixture(t)
		fx.settings.Filtering.ExactMatches = []string{"Fasta headers", "Peptides"}
		settingsPath := fx.writeSettings(t, "settings.json")

		err := operations.RunPipeline(context.Background(), fx.deps, settingsPath, fx.tablePath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"Peptides"`)
	})
}

func TestRunPipeline_WorkbookFailureWritesFallback(t *testing.T) {
	fx := newPipelineFixture(t)
	// a directory where the workbook should go makes the save fail
	require.NoError(t, os.Mkdir(fx.settings.Export.ExcelFileName, 0o755))
	settingsPath := fx.writeSettings(t, "settings.json")

	require.NoError(t, operations.RunPipeline(context.Background(), fx.deps, settingsPath, fx.tablePath))

	assert.True(t, fx.reporter.HasError("The data will be written away as .csv file"))
	assert.FileExists(t, filepath.Join(fx.dir, config.DefaultFallbackFileName))

	errs := fx.reporter.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, operations.ErrorTypeExport, operations.GetErrorType(errs[0].Err))
}

func TestRunPipeline_StepTimeoutStillExports(t *testing.T) {
	fx := newPipelineFixture(t)
	settingsPath := fx.writeSettings(t, "settings.json")

	fx.deps.Config = operations.NewConfigFromSettings(config.PipelineConfig{
		StageTimeout:    time.Minute,
		AnnotateTimeout: 200 * time.Millisecond,
	})
	fx.deps.Sleeper = func(ctx context.Context, _ time.Duration) error {
		<-ctx.Done()
		return ctx.Err()
	}

	require.NoError(t, operations.RunPipeline(context.Background(), fx.deps, settingsPath, fx.tablePath))

	assert.True(t, fx.reporter.HasError("exceeded its timeout of 200ms"))

	header, kept := sheetRows(t, fx.settings.Export.ExcelFileName, exporter.DataSheet)
	assert.Len(t, kept, 4)
	assert.Contains(t, header, "global_clustered")
	assert.NotContains(t, header, "mitocarta_human_presency")
}

func TestRunPipeline_Cancelled(t *testing.T) {
	fx := newPipelineFixture(t)
	settingsPath := fx.writeSettings(t, "settings.json")

	ctx, cancel := context.WithCancel(context.Background())
	fx.deps.Sleeper = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	err := operations.RunPipeline(ctx, fx.deps, settingsPath, fx.tablePath)
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(err))
	assert.Len(t, fx.server.requests, 1)
	assert.NoFileExists(t, fx.settings.Export.ExcelFileName)
}

func TestNewPipelineRegistersSteps(t *testing.T) {
	manager, err := operations.NewPipeline(operations.Dependencies{})
	require.NoError(t, err)

	ordered, err := manager.GetRegistry().GetDependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{
		operations.StageIDLoad,
		operations.StageIDFilter,
		operations.StageIDIdentifiers,
		operations.StageIDAnnotate,
		operations.StageIDReference,
		operations.StageIDCluster,
		operations.StageIDExport,
	}, stepIDs(ordered))
}
