package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// DefaultKeyColumn is the identifier column of a protein groups export
const DefaultKeyColumn = "Majority protein IDs"

// Cell is a single table value. At most one of Text and Number is valid;
// a cell with neither is missing.
type Cell struct {
	Text   null.String `json:"text"`
	Number null.Float  `json:"number"`
}

// TextCell creates a textual cell
func TextCell(s string) Cell {
	return Cell{Text: null.StringFrom(s)}
}

// NumberCell creates a numeric cell. NaN and infinities become missing.
func NumberCell(f float64) Cell {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Cell{}
	}
	return Cell{Number: null.FloatFrom(f)}
}

// MissingCell creates a not-available cell
func MissingCell() Cell {
	return Cell{}
}

// NullStringCell converts an optional string into a cell
func NullStringCell(s null.String) Cell {
	if !s.Valid {
		return Cell{}
	}
	return TextCell(s.String)
}

// IsMissing reports whether the cell holds no value
func (c Cell) IsMissing() bool {
	return !c.Text.Valid && !c.Number.Valid
}

// IsNumber reports whether the cell holds a number
func (c Cell) IsNumber() bool {
	return c.Number.Valid
}

// String renders the cell for delimited output. Missing cells render empty.
func (c Cell) String() string {
	switch {
	case c.Number.Valid:
		return strconv.FormatFloat(c.Number.Float64, 'g', -1, 64)
	case c.Text.Valid:
		return c.Text.String
	default:
		return ""
	}
}

// Float returns the numeric value of the cell, parsing text when needed
func (c Cell) Float() (float64, error) {
	switch {
	case c.Number.Valid:
		return c.Number.Float64, nil
	case c.Text.Valid:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.Text.String), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", c.Text.String)
		}
		return f, nil
	default:
		return math.NaN(), nil
	}
}

// Column is a named column of cells, one per table row
type Column struct {
	Name  string `json:"name"`
	Cells []Cell `json:"cells"`
}

// ProteinGroupTable is the in-memory protein groups table. Rows are keyed by
// the key column; column names may repeat after column selection.
type ProteinGroupTable struct {
	KeyColumn string    `json:"key_column"`
	Keys      []string  `json:"keys"`
	Columns   []*Column `json:"columns"`
}

// NewProteinGroupTable creates an empty table with the given row keys
func NewProteinGroupTable(keyColumn string, keys []string) *ProteinGroupTable {
	if keyColumn == "" {
		keyColumn = DefaultKeyColumn
	}
	if keys == nil {
		keys = []string{}
	}
	return &ProteinGroupTable{
		KeyColumn: keyColumn,
		Keys:      keys,
		Columns:   make([]*Column, 0),
	}
}

// Len returns the number of rows
func (t *ProteinGroupTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Keys)
}

// ColumnNames returns the column names in table order, without the key column
func (t *ProteinGroupTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column with the given name exists.
// The key column always exists.
func (t *ProteinGroupTable) HasColumn(name string) bool {
	return name == t.KeyColumn || t.ColumnIndex(name) >= 0
}

// ColumnIndex returns the index of the first column with the given name, or -1
func (t *ProteinGroupTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the first column with the given name
func (t *ProteinGroupTable) Column(name string) (*Column, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	return t.Columns[idx], true
}

// KeyCells returns the key column as text cells
func (t *ProteinGroupTable) KeyCells() []Cell {
	cells := make([]Cell, len(t.Keys))
	for i, k := range t.Keys {
		cells[i] = TextCell(k)
	}
	return cells
}

// Value returns the cell at row for the named column. The key column is
// addressable by name. Unknown columns yield a missing cell.
func (t *ProteinGroupTable) Value(row int, name string) Cell {
	if name == t.KeyColumn {
		return TextCell(t.Keys[row])
	}
	col, ok := t.Column(name)
	if !ok {
		return Cell{}
	}
	return col.Cells[row]
}

// SetColumn replaces the first column with the given name or appends a new one
func (t *ProteinGroupTable) SetColumn(name string, cells []Cell) error {
	if len(cells) != len(t.Keys) {
		return fmt.Errorf("column %s has %d cells, table has %d rows", name, len(cells), len(t.Keys))
	}
	if idx := t.ColumnIndex(name); idx >= 0 {
		t.Columns[idx].Cells = cells
		return nil
	}
	t.Columns = append(t.Columns, &Column{Name: name, Cells: cells})
	return nil
}

// AppendColumn appends a column even if the name is already present
func (t *ProteinGroupTable) AppendColumn(name string, cells []Cell) error {
	if len(cells) != len(t.Keys) {
		return fmt.Errorf("column %s has %d cells, table has %d rows", name, len(cells), len(t.Keys))
	}
	t.Columns = append(t.Columns, &Column{Name: name, Cells: cells})
	return nil
}

// SelectColumns returns a table with the listed columns in the listed order.
// Repeated names produce repeated columns. Unknown names are ignored.
func (t *ProteinGroupTable) SelectColumns(names []string) *ProteinGroupTable {
	out := NewProteinGroupTable(t.KeyColumn, append([]string(nil), t.Keys...))
	for _, name := range names {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		out.Columns = append(out.Columns, &Column{
			Name:  col.Name,
			Cells: append([]Cell(nil), col.Cells...),
		})
	}
	return out
}

// SelectRows returns a table holding the given rows, in the given order
func (t *ProteinGroupTable) SelectRows(rows []int) *ProteinGroupTable {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = t.Keys[r]
	}
	out := NewProteinGroupTable(t.KeyColumn, keys)
	for _, col := range t.Columns {
		cells := make([]Cell, len(rows))
		for i, r := range rows {
			cells[i] = col.Cells[r]
		}
		out.Columns = append(out.Columns, &Column{Name: col.Name, Cells: cells})
	}
	return out
}

// AppendRows appends the rows of other. Columns are matched by position
// when the column lists are identical, otherwise by name with missing fill.
func (t *ProteinGroupTable) AppendRows(other *ProteinGroupTable) {
	if other == nil || other.Len() == 0 {
		return
	}
	sameShape := len(t.Columns) == len(other.Columns)
	for i := 0; sameShape && i < len(t.Columns); i++ {
		sameShape = t.Columns[i].Name == other.Columns[i].Name
	}
	t.Keys = append(t.Keys, other.Keys...)
	for i, col := range t.Columns {
		var src *Column
		if sameShape {
			src = other.Columns[i]
		} else if c, ok := other.Column(col.Name); ok {
			src = c
		}
		if src != nil {
			col.Cells = append(col.Cells, src.Cells...)
			continue
		}
		col.Cells = append(col.Cells, make([]Cell, other.Len())...)
	}
}

// Clone returns a deep copy of the table
func (t *ProteinGroupTable) Clone() *ProteinGroupTable {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	return t.SelectRows(rows)
}
