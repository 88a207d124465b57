package domain

// FilterSpec describes which columns and rows survive the filter stage.
// A nil slice means the option was absent from the settings file, which is
// reported as a configuration error; an empty slice is a configured empty list.
type FilterSpec struct {
	ExactMatches  []string `json:"EXACT_MATCHES" yaml:"EXACT_MATCHES"`
	Prefixes      []string `json:"CONTAINS" yaml:"CONTAINS"`
	RowExclusions []string `json:"PROTEIN_FILTERS" yaml:"PROTEIN_FILTERS"`
}

// FilterResult is the outcome of the filter stage
type FilterResult struct {
	Kept     *ProteinGroupTable `json:"kept"`
	Excluded *ProteinGroupTable `json:"excluded"`

	// Rows excluded because the key contained a configured pattern
	PatternExcluded int `json:"pattern_excluded"`
	// Rows excluded because a retained column held a missing value
	MissingExcluded int `json:"missing_excluded"`
	// Configured exact-match columns that the table does not have
	MissingColumns []string `json:"missing_columns,omitempty"`
}
