package testutil

import (
	"math"

	"complexome/pkg/contracts/domain"
)

// Numbers builds numeric cells; NaN becomes a missing cell
func Numbers(values ...float64) []domain.Cell {
	cells := make([]domain.Cell, len(values))
	for i, v := range values {
		cells[i] = domain.NumberCell(v)
	}
	return cells
}

// Texts builds textual cells; the empty string becomes a missing cell
func Texts(values ...string) []domain.Cell {
	cells := make([]domain.Cell, len(values))
	for i, v := range values {
		if v == "" {
			cells[i] = domain.MissingCell()
			continue
		}
		cells[i] = domain.TextCell(v)
	}
	return cells
}

// NA is shorthand for a missing numeric value in Numbers
var NA = math.NaN()

// NewTable builds a table keyed by the default key column
func NewTable(keys []string, columns ...domain.Column) *domain.ProteinGroupTable {
	table := domain.NewProteinGroupTable(domain.DefaultKeyColumn, keys)
	for _, col := range columns {
		if err := table.AppendColumn(col.Name, col.Cells); err != nil {
			panic(err)
		}
	}
	return table
}

// Col is shorthand for a named column
func Col(name string, cells []domain.Cell) domain.Column {
	return domain.Column{Name: name, Cells: cells}
}

// ProteinGroupsTSV is a small protein groups export with two samples of
// three fractions each, a reverse hit and a contaminant
const ProteinGroupsTSV = "Majority protein IDs\tFasta headers\tGene names\tiBAQ A_01\tiBAQ A_02\tiBAQ A_03\tiBAQ B_01\tiBAQ B_02\tiBAQ B_03\tScore\n" +
	"P11111\tsp|P11111|ABC1_HUMAN ABC one\tABC1\t1\t5\t1\t2\t2\t0\t10.5\n" +
	"P22222\tsp|P22222|DEF2_HUMAN DEF two\tDEF2\t2\t4\t1\t1\t3\t0\t8\n" +
	"P33333\tsp|P33333|GHI3_MOUSE GHI three\tGHI3\t9\t1\t0\t4\t1\t1\t7.25\n" +
	"P44444\tsp|P44444|JKL4_MOUSE JKL four\tJKL4\t8\t2\t0\t3\t1\t2\t6\n" +
	"REV__P55555\tsp|P55555|REV5\tREV5\t1\t1\t1\t1\t1\t1\t1\n" +
	"CON__P66666\tsp|P66666|CON6\tCON6\t1\t1\t1\t1\t1\t1\t1\n" +
	"P77777\tsp|P77777|MNO7_HUMAN\tMNO7\tNaN\t1\t1\t1\t1\t1\t3\n"
