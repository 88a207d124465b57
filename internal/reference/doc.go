// Package reference flags protein groups that belong to curated reference
// gene sets such as MitoCarta.
//
// A reference table is read from a local workbook sheet, a local delimited
// file or a remote location. Each configured table yields one presence
// column holding 1.0 when the row's organism equals the table's organism
// and its gene name equals a primary symbol or one of the '|' separated
// synonyms, and 0.0 otherwise.
package reference
