package reference

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complexome/internal/config"
	"complexome/internal/shared/testutil"
	"complexome/pkg/contracts/domain"
)

func annotatedTable() *domain.ProteinGroupTable {
	return testutil.NewTable([]string{"P1", "P2", "P3", "P4", "P5"},
		testutil.Col("gene_name", testutil.Texts("ABC1", "ABCY", "ABC1", "", "ZZZ9")),
		testutil.Col("organism_name", testutil.Texts("Homo sapiens", "Homo sapiens", "Mus musculus", "Homo sapiens", "Homo sapiens")),
	)
}

func TestMatch(t *testing.T) {
	set := NewSet("mito", "Homo sapiens", []string{"ABC1"}, []string{"ABCX|ABCY"})

	cells, flagged, err := Match(annotatedTable(), set)
	require.NoError(t, err)
	assert.Equal(t, 2, flagged)

	want := []float64{1, 1, 0, 0, 0}
	for i, w := range want {
		got, err := cells[i].Float()
		require.NoError(t, err)
		assert.Equal(t, w, got, "row %d", i)
	}
}

func TestMatch_MissingAnnotation(t *testing.T) {
	table := testutil.NewTable([]string{"P1"}, testutil.Col("gene_name", testutil.Texts("ABC1")))
	_, _, err := Match(table, NewSet("mito", "Homo sapiens", nil, nil))
	assert.ErrorIs(t, err, ErrAnnotationMissing)
}

func TestOrganismPresent(t *testing.T) {
	assert.True(t, OrganismPresent(annotatedTable(), "Mus musculus"))
	assert.False(t, OrganismPresent(annotatedTable(), "Danio rerio"))
	assert.False(t, OrganismPresent(testutil.NewTable([]string{"P1"}), "Homo sapiens"))
}

func TestMatcher_Apply(t *testing.T) {
	dir := t.TempDir()
	path := writeReferenceWorkbook(t, dir, "A Human MitoCarta3.0", referenceRows())

	broken := humanRef(filepath.Join(dir, "missing.xlsx"))
	broken.Name = "broken_presency"
	zebrafish := humanRef(path)
	zebrafish.Name = "zebrafish_presency"
	zebrafish.Organism = "Danio rerio"

	reporter := &testutil.RecordingReporter{}
	table := annotatedTable()
	result, err := NewMatcher(NewLoader(nil, nil), reporter, nil).Apply(context.Background(), table,
		[]config.ReferenceTable{humanRef(path), broken, zebrafish})
	require.NoError(t, err)

	assert.Equal(t, []string{"mitocarta_human_presency", "zebrafish_presency"}, result.Columns)
	assert.Equal(t, []string{"broken_presency"}, result.Failed)
	assert.Equal(t, 2, result.Flagged["mitocarta_human_presency"])
	assert.Equal(t, 0, result.Flagged["zebrafish_presency"])

	assert.True(t, table.HasColumn("mitocarta_human_presency"))
	assert.False(t, table.HasColumn("broken_presency"))
	assert.True(t, reporter.HasError("broken_presency"))
	assert.True(t, reporter.HasError("Danio rerio"))
}

func TestMatcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMatcher(NewLoader(nil, nil), nil, nil).Apply(ctx, annotatedTable(), []config.ReferenceTable{humanRef("x.xlsx")})
	assert.ErrorIs(t, err, context.Canceled)
}
