package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"complexome/pkg/contracts/domain"
)

// Settings is the typed pipeline settings file. Keys mirror the settings
// files already in use by laboratories, so existing files load unchanged.
type Settings struct {
	Steps      Steps          `json:"steps_dict" yaml:"steps_dict"`
	Filtering  FilteringStep  `json:"filtering_step" yaml:"filtering_step"`
	Uniprot    UniprotStep    `json:"uniprot_step" yaml:"uniprot_step"`
	Mitocarta  MitocartaStep  `json:"mitocarta_step" yaml:"mitocarta_step"`
	Clustering ClusteringStep `json:"clustering_step" yaml:"clustering_step"`
	Export     ExportStep     `json:"make_excel_file_step" yaml:"make_excel_file_step"`
}

// Steps holds the per-stage enable flags
type Steps struct {
	Filtering  bool `json:"filtering_step" yaml:"filtering_step"`
	Uniprot    bool `json:"uniprot_step" yaml:"uniprot_step"`
	Mitocarta  bool `json:"mitocarta_step" yaml:"mitocarta_step"`
	Clustering bool `json:"clustering_step" yaml:"clustering_step"`
	Export     bool `json:"make_excel_file_step" yaml:"make_excel_file_step"`
}

// FilteringStep configures column and row selection
type FilteringStep struct {
	ExactMatches      []string `json:"EXACT_MATCHES" yaml:"EXACT_MATCHES"`
	Contains          []string `json:"CONTAINS" yaml:"CONTAINS"`
	ProteinFilters    []string `json:"PROTEIN_FILTERS" yaml:"PROTEIN_FILTERS"`
	KeyColumn         string   `json:"key_column,omitempty" yaml:"key_column,omitempty"`
	FastaHeaderColumn string   `json:"fasta_header_column,omitempty" yaml:"fasta_header_column,omitempty"`
}

// Spec returns the filter specification. Absent keys stay nil.
func (f FilteringStep) Spec() domain.FilterSpec {
	return domain.FilterSpec{
		ExactMatches:  f.ExactMatches,
		Prefixes:      f.Contains,
		RowExclusions: f.ProteinFilters,
	}
}

// UniprotOptions selects which annotation fields are fetched
type UniprotOptions struct {
	GeneName         bool `json:"get_gene_name" yaml:"get_gene_name"`
	ProteinName      bool `json:"get_protein_name" yaml:"get_protein_name"`
	OrganismName     bool `json:"get_organism_name" yaml:"get_organism_name"`
	UniprotHyperlink bool `json:"get_uniprot_hyperlink" yaml:"get_uniprot_hyperlink"`
	CellCompartment  bool `json:"get_cell_compartment" yaml:"get_cell_compartment"`
	StringLinkout    bool `json:"get_string_linkout" yaml:"get_string_linkout"`
}

// Enabled returns the enabled fields in output column order
func (o UniprotOptions) Enabled() []domain.AnnotationField {
	flags := map[domain.AnnotationField]bool{
		domain.FieldGeneName:         o.GeneName,
		domain.FieldProteinName:      o.ProteinName,
		domain.FieldOrganismName:     o.OrganismName,
		domain.FieldUniprotHyperlink: o.UniprotHyperlink,
		domain.FieldCellCompartment:  o.CellCompartment,
		domain.FieldStringLinkout:    o.StringLinkout,
	}
	enabled := make([]domain.AnnotationField, 0, len(flags))
	for _, field := range domain.AnnotationFields {
		if flags[field] {
			enabled = append(enabled, field)
		}
	}
	return enabled
}

// StringLinkoutParameters configures the identifier mapping service
type StringLinkoutParameters struct {
	RegexPattern             string `json:"regex_pattern" yaml:"regex_pattern"`
	UniprotMappingServiceURL string `json:"uniprot_mapping_service_url" yaml:"uniprot_mapping_service_url" validate:"omitempty,url"`
	StringBaseURL            string `json:"string_base_url" yaml:"string_base_url"`
}

// UniprotStep configures the annotation fetcher
type UniprotStep struct {
	Options                 UniprotOptions          `json:"uniprot_options" yaml:"uniprot_options"`
	RequestIdleTime         float64                 `json:"request_idle_time" yaml:"request_idle_time" validate:"gt=1"`
	BatchAmount             int                     `json:"batch_amount" yaml:"batch_amount" validate:"min=1,max=100"`
	UniprotBaseURL          string                  `json:"uniprot_base_url" yaml:"uniprot_base_url" validate:"omitempty,url"`
	UniprotRequestURL       string                  `json:"uniprot_request_url" yaml:"uniprot_request_url"`
	UniprotProteinBaseURL   string                  `json:"uniprot_protein_base_url" yaml:"uniprot_protein_base_url"`
	KnownGeneNames          []string                `json:"known_gene_names" yaml:"known_gene_names"`
	KnownProteinNames       []string                `json:"known_protein_names" yaml:"known_protein_names"`
	StringLinkoutParameters StringLinkoutParameters `json:"string_linkout_parameters" yaml:"string_linkout_parameters"`
}

// ReferenceTable describes one curated reference gene set
type ReferenceTable struct {
	Name          string `json:"name" yaml:"name" validate:"required"`
	Location      string `json:"location" yaml:"location" validate:"required"`
	SheetName     string `json:"sheet_name" yaml:"sheet_name"`
	Organism      string `json:"organism" yaml:"organism" validate:"required"`
	SymbolColumn  string `json:"symbol_column" yaml:"symbol_column" validate:"required"`
	SynonymColumn string `json:"synonym_column" yaml:"synonym_column" validate:"required"`
}

// MitocartaStep configures the reference-set matcher. Either ReferenceTables
// or the mouse/human keys are used; the latter are translated by Tables.
type MitocartaStep struct {
	ReferenceTables []ReferenceTable `json:"reference_tables,omitempty" yaml:"reference_tables,omitempty" validate:"dive"`

	MouseLocation  string `json:"mitocarta_mouse_ftp_link" yaml:"mitocarta_mouse_ftp_link"`
	MouseSheetName string `json:"mouse_sheet_name" yaml:"mouse_sheet_name"`
	HumanLocation  string `json:"mitocarta_human_ftp_link" yaml:"mitocarta_human_ftp_link"`
	HumanSheetName string `json:"human_sheet_name" yaml:"human_sheet_name"`
	SymbolColumn   string `json:"mitocarta_symbol_column" yaml:"mitocarta_symbol_column"`
	SynonymColumn  string `json:"mitocarta_additional_symbol_column" yaml:"mitocarta_additional_symbol_column"`
	MouseOrganism  string `json:"mitocarta_mouse_organism" yaml:"mitocarta_mouse_organism"`
	HumanOrganism  string `json:"mitocarta_human_organism" yaml:"mitocarta_human_organism"`
}

// Tables returns the configured reference tables in matching order
func (m MitocartaStep) Tables() []ReferenceTable {
	if len(m.ReferenceTables) > 0 {
		return m.ReferenceTables
	}
	var tables []ReferenceTable
	if m.MouseLocation != "" {
		tables = append(tables, ReferenceTable{
			Name:          "mitocarta_mouse_presency",
			Location:      m.MouseLocation,
			SheetName:     m.MouseSheetName,
			Organism:      m.MouseOrganism,
			SymbolColumn:  m.SymbolColumn,
			SynonymColumn: m.SynonymColumn,
		})
	}
	if m.HumanLocation != "" {
		tables = append(tables, ReferenceTable{
			Name:          "mitocarta_human_presency",
			Location:      m.HumanLocation,
			SheetName:     m.HumanSheetName,
			Organism:      m.HumanOrganism,
			SymbolColumn:  m.SymbolColumn,
			SynonymColumn: m.SynonymColumn,
		})
	}
	return tables
}

// ClusteringStep selects the linkage method and dissimilarity metric
type ClusteringStep struct {
	Method string `json:"method" yaml:"method" validate:"required,clustermethod"`
	Metric string `json:"metric" yaml:"metric" validate:"required,clustermetric"`
}

// ExportStep configures the workbook output
type ExportStep struct {
	ExcelFileName         string   `json:"excel_file_name" yaml:"excel_file_name" validate:"required,outputdir"`
	IdentifierColumnNames []string `json:"identifier_column_names" yaml:"identifier_column_names"`
	FallbackFileName      string   `json:"fallback_file_name,omitempty" yaml:"fallback_file_name,omitempty"`
}

// LoadSettings reads a settings file. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}

	settings, err := ParseSettings(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return settings, nil
}

// ParseSettings decodes settings in the given format ("json" or "yaml")
// and fills defaults for optional keys
func ParseSettings(data []byte, format string) (*Settings, error) {
	var s Settings
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	case "json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported settings format: %s", format)
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.Filtering.KeyColumn == "" {
		s.Filtering.KeyColumn = domain.DefaultKeyColumn
	}
	if s.Filtering.FastaHeaderColumn == "" {
		s.Filtering.FastaHeaderColumn = DefaultFastaHeaderColumn
	}
	if s.Export.FallbackFileName == "" {
		s.Export.FallbackFileName = DefaultFallbackFileName
	}
}

// FallbackPath returns the delimited fallback file, placed next to the workbook
func (s *Settings) FallbackPath() string {
	if filepath.IsAbs(s.Export.FallbackFileName) {
		return s.Export.FallbackFileName
	}
	return filepath.Join(filepath.Dir(s.Export.ExcelFileName), s.Export.FallbackFileName)
}
