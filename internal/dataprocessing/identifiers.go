package dataprocessing

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v3"

	"complexome/pkg/contracts/domain"
)

// ErrHeaderColumnMissing is returned when the FASTA header column is absent
var ErrHeaderColumnMissing = errors.New("fasta header column not found")

// ParseIdentifier returns the second '|' delimited segment of a FASTA header
func ParseIdentifier(header string) null.String {
	parts := strings.Split(header, "|")
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return null.String{}
	}
	return null.StringFrom(parts[1])
}

// ExtractIdentifiers parses one identifier per row from the header column.
// When the column is absent every identifier is not available and
// ErrHeaderColumnMissing is returned alongside.
func ExtractIdentifiers(table *domain.ProteinGroupTable, headerColumn string) ([]null.String, error) {
	ids := make([]null.String, table.Len())

	col, ok := table.Column(headerColumn)
	if !ok {
		return ids, fmt.Errorf("%w: %q", ErrHeaderColumnMissing, headerColumn)
	}

	for r, cell := range col.Cells {
		if cell.IsMissing() {
			continue
		}
		ids[r] = ParseIdentifier(cell.String())
	}
	return ids, nil
}

// UniqueIdentifiers returns the available identifiers without repeats,
// in order of first appearance
func UniqueIdentifiers(ids []null.String) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !id.Valid {
			continue
		}
		if _, ok := seen[id.String]; ok {
			continue
		}
		seen[id.String] = struct{}{}
		out = append(out, id.String)
	}
	return out
}

// IdentifierCells converts identifiers into table cells
func IdentifierCells(ids []null.String) []domain.Cell {
	cells := make([]domain.Cell, len(ids))
	for i, id := range ids {
		cells[i] = domain.NullStringCell(id)
	}
	return cells
}
