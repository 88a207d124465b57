package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complexome/pkg/contracts/domain"
)

const settingsJSON = `{
  "steps_dict": {
    "filtering_step": true,
    "uniprot_step": true,
    "mitocarta_step": true,
    "clustering_step": true,
    "make_excel_file_step": true
  },
  "filtering_step": {
    "EXACT_MATCHES": ["Fasta headers", "Gene names"],
    "CONTAINS": ["iBAQ "],
    "PROTEIN_FILTERS": ["REV", "CON"]
  },
  "uniprot_step": {
    "uniprot_options": {
      "get_gene_name": true,
      "get_protein_name": true,
      "get_organism_name": true,
      "get_uniprot_hyperlink": true,
      "get_cell_compartment": false,
      "get_string_linkout": false
    },
    "request_idle_time": 2,
    "batch_amount": 50,
    "uniprot_base_url": "https://rest.uniprot.org",
    "uniprot_request_url": "/uniprotkb/accessions?accessions=",
    "uniprot_protein_base_url": "https://www.uniprot.org/uniprot/",
    "known_gene_names": ["geneName", "orfNames"],
    "known_protein_names": ["recommendedName", "submissionNames"],
    "string_linkout_parameters": {
      "regex_pattern": "-\\d$",
      "uniprot_mapping_service_url": "https://www.uniprot.org/uploadlists/",
      "string_base_url": "https://string-db.org/network/"
    }
  },
  "mitocarta_step": {
    "mitocarta_mouse_ftp_link": "Mouse.MitoCarta3.0.xls",
    "mouse_sheet_name": "A Mouse MitoCarta3.0",
    "mitocarta_human_ftp_link": "Human.MitoCarta3.0.xls",
    "human_sheet_name": "A Human MitoCarta3.0",
    "mitocarta_symbol_column": "Symbol",
    "mitocarta_additional_symbol_column": "Synonyms",
    "mitocarta_mouse_organism": "Mus musculus",
    "mitocarta_human_organism": "Homo sapiens"
  },
  "clustering_step": {
    "method": "average",
    "metric": "correlation"
  },
  "make_excel_file_step": {
    "excel_file_name": "profile.xlsx",
    "identifier_column_names": ["Majority protein IDs", "gene_name"]
  }
}`

func parseTestSettings(t *testing.T) *Settings {
	t.Helper()
	s, err := ParseSettings([]byte(settingsJSON), "json")
	require.NoError(t, err)
	return s
}

func TestParseSettings_JSON(t *testing.T) {
	s := parseTestSettings(t)

	assert.True(t, s.Steps.Filtering)
	assert.True(t, s.Steps.Export)
	assert.Equal(t, []string{"Fasta headers", "Gene names"}, s.Filtering.ExactMatches)
	assert.Equal(t, []string{"REV", "CON"}, s.Filtering.ProteinFilters)
	assert.Equal(t, 50, s.Uniprot.BatchAmount)
	assert.Equal(t, 2.0, s.Uniprot.RequestIdleTime)
	assert.Equal(t, "-\\d$", s.Uniprot.StringLinkoutParameters.RegexPattern)
	assert.Equal(t, "average", s.Clustering.Method)

	// defaults for keys the file leaves out
	assert.Equal(t, domain.DefaultKeyColumn, s.Filtering.KeyColumn)
	assert.Equal(t, DefaultFastaHeaderColumn, s.Filtering.FastaHeaderColumn)
	assert.Equal(t, DefaultFallbackFileName, s.Export.FallbackFileName)
}

func TestParseSettings_YAML(t *testing.T) {
	data := []byte(`
steps_dict:
  filtering_step: true
filtering_step:
  EXACT_MATCHES: []
  CONTAINS: ["iBAQ "]
uniprot_step:
  request_idle_time: 3
  batch_amount: 10
clustering_step:
  method: ward
  metric: euclidean
make_excel_file_step:
  excel_file_name: out.xlsx
`)
	s, err := ParseSettings(data, "yaml")
	require.NoError(t, err)

	assert.True(t, s.Steps.Filtering)
	assert.NotNil(t, s.Filtering.ExactMatches)
	assert.Empty(t, s.Filtering.ExactMatches)
	assert.Nil(t, s.Filtering.ProteinFilters, "absent key stays nil")
	assert.Equal(t, "ward", s.Clustering.Method)
	assert.NoError(t, s.Validate())
}

func TestParseSettings_UnsupportedFormat(t *testing.T) {
	_, err := ParseSettings([]byte("{}"), "toml")
	assert.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(settingsJSON), 0644))
	s, err := LoadSettings(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 50, s.Uniprot.BatchAmount)

	_, err = LoadSettings(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{not json"), 0644))
	_, err = LoadSettings(badPath)
	assert.Error(t, err)
}

func TestFilteringStep_Spec(t *testing.T) {
	s := parseTestSettings(t)
	spec := s.Filtering.Spec()
	assert.Equal(t, []string{"iBAQ "}, spec.Prefixes)
	assert.Equal(t, []string{"REV", "CON"}, spec.RowExclusions)
}

func TestUniprotOptions_Enabled(t *testing.T) {
	opts := UniprotOptions{StringLinkout: true, GeneName: true, CellCompartment: true}
	assert.Equal(t, []domain.AnnotationField{
		domain.FieldGeneName,
		domain.FieldCellCompartment,
		domain.FieldStringLinkout,
	}, opts.Enabled())

	assert.Empty(t, UniprotOptions{}.Enabled())
}

func TestMitocartaStep_Tables(t *testing.T) {
	s := parseTestSettings(t)
	tables := s.Mitocarta.Tables()
	require.Len(t, tables, 2)

	assert.Equal(t, "mitocarta_mouse_presency", tables[0].Name)
	assert.Equal(t, "Mus musculus", tables[0].Organism)
	assert.Equal(t, "A Mouse MitoCarta3.0", tables[0].SheetName)
	assert.Equal(t, "mitocarta_human_presency", tables[1].Name)
	assert.Equal(t, "Synonyms", tables[1].SynonymColumn)

	explicit := MitocartaStep{ReferenceTables: []ReferenceTable{{Name: "custom", Location: "x.csv"}}}
	assert.Len(t, explicit.Tables(), 1)
	assert.Equal(t, "custom", explicit.Tables()[0].Name)
}

func TestSettings_FallbackPath(t *testing.T) {
	s := parseTestSettings(t)
	s.Export.ExcelFileName = filepath.Join("out", "profile.xlsx")
	assert.Equal(t, filepath.Join("out", DefaultFallbackFileName), s.FallbackPath())

	abs := filepath.Join(t.TempDir(), "saved.csv")
	s.Export.FallbackFileName = abs
	assert.Equal(t, abs, s.FallbackPath())
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *Settings)
		wantErr  bool
		contains string
	}{
		{
			name:   "valid settings",
			mutate: func(s *Settings) {},
		},
		{
			name:     "batch amount too small",
			mutate:   func(s *Settings) { s.Uniprot.BatchAmount = 0 },
			wantErr:  true,
			contains: "batch_amount",
		},
		{
			name:     "batch amount too large",
			mutate:   func(s *Settings) { s.Uniprot.BatchAmount = 101 },
			wantErr:  true,
			contains: "at most 100",
		},
		{
			name:     "idle time not bigger than one",
			mutate:   func(s *Settings) { s.Uniprot.RequestIdleTime = 1 },
			wantErr:  true,
			contains: "request_idle_time",
		},
		{
			name:     "unknown clustering method",
			mutate:   func(s *Settings) { s.Clustering.Method = "upgma" },
			wantErr:  true,
			contains: "clustering methods",
		},
		{
			name:     "unknown clustering metric",
			mutate:   func(s *Settings) { s.Clustering.Metric = "manhattan" },
			wantErr:  true,
			contains: "clustering metrics",
		},
		{
			name: "output directory missing",
			mutate: func(s *Settings) {
				s.Export.ExcelFileName = filepath.Join(t.TempDir(), "nope", "out.xlsx")
			},
			wantErr:  true,
			contains: "doesn't appear to exist",
		},
		{
			name: "output directory exists",
			mutate: func(s *Settings) {
				s.Export.ExcelFileName = filepath.Join(t.TempDir(), "out.xlsx")
			},
		},
		{
			name: "reference table missing organism",
			mutate: func(s *Settings) {
				s.Mitocarta.ReferenceTables = []ReferenceTable{{
					Name: "mito", Location: "a.xlsx", SymbolColumn: "Symbol", SynonymColumn: "Synonyms",
				}}
			},
			wantErr:  true,
			contains: "organism is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parseTestSettings(t)
			tt.mutate(s)

			err := s.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestSettings_ValidateCollectsAllProblems(t *testing.T) {
	s := parseTestSettings(t)
	s.Uniprot.BatchAmount = 0
	s.Clustering.Metric = "nope"

	err := s.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
}

func TestSettings_ValidateColumns(t *testing.T) {
	s := parseTestSettings(t)

	assert.NoError(t, s.ValidateColumns([]string{"Fasta headers", "Gene names", "iBAQ A_01"}))

	err := s.ValidateColumns([]string{"Fasta headers"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gene names")

	// the key column is never required among the data columns
	s.Filtering.ExactMatches = append(s.Filtering.ExactMatches, domain.DefaultKeyColumn)
	assert.NoError(t, s.ValidateColumns([]string{"Fasta headers", "Gene names"}))
}
