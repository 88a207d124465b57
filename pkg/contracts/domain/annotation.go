package domain

import (
	"gopkg.in/guregu/null.v3"
)

// AnnotationField names one optional annotation attribute
type AnnotationField string

const (
	FieldGeneName         AnnotationField = "gene_name"
	FieldProteinName      AnnotationField = "protein_name"
	FieldOrganismName     AnnotationField = "organism_name"
	FieldUniprotHyperlink AnnotationField = "uniprot_hyperlink"
	FieldCellCompartment  AnnotationField = "cell_compartment"
	FieldStringLinkout    AnnotationField = "string_linkout"
)

// AnnotationFields lists every field in output column order
var AnnotationFields = []AnnotationField{
	FieldGeneName,
	FieldProteinName,
	FieldOrganismName,
	FieldUniprotHyperlink,
	FieldCellCompartment,
	FieldStringLinkout,
}

// IdentifierColumn holds the accession extracted from the FASTA header
const IdentifierColumn = "identifier"

// AnnotationRecord holds the fetched attributes for one accession.
// Fields are set once; a valid field is never overwritten.
type AnnotationRecord struct {
	Accession string                          `json:"accession"`
	Fields    map[AnnotationField]null.String `json:"fields"`
}

// NewAnnotationRecord creates a record with every field not available
func NewAnnotationRecord(accession string) *AnnotationRecord {
	return &AnnotationRecord{
		Accession: accession,
		Fields:    make(map[AnnotationField]null.String, len(AnnotationFields)),
	}
}

// Get returns the value of a field; absent fields are not valid
func (r *AnnotationRecord) Get(field AnnotationField) null.String {
	if r == nil {
		return null.String{}
	}
	return r.Fields[field]
}

// Set stores a value unless the field already holds one.
// It reports whether the value was stored.
func (r *AnnotationRecord) Set(field AnnotationField, value null.String) bool {
	if current, ok := r.Fields[field]; ok && current.Valid {
		return false
	}
	r.Fields[field] = value
	return true
}

// MarkUnavailable records the field as explicitly not available without
// disturbing a value set earlier
func (r *AnnotationRecord) MarkUnavailable(field AnnotationField) {
	if current, ok := r.Fields[field]; ok && current.Valid {
		return
	}
	r.Fields[field] = null.String{}
}
