package domain

// ColumnRange is an inclusive, zero-based range of column positions
type ColumnRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Width returns the number of columns covered
func (r ColumnRange) Width() int {
	return r.End - r.Start + 1
}

// ExportLayout is the column order and formatting regions of an exported sheet
type ExportLayout struct {
	Columns []string      `json:"columns"`
	Regions []ColumnRange `json:"regions"`
}
