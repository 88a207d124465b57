// Package exporter writes the pipeline result as a formatted workbook.
//
// BuildLayout decides the column order: identifier columns first, then
// columns that belong to no sample, then each sample's fractions followed
// by its clustered and summed columns. Runs of abundance columns become
// formatting regions that are narrowed and shaded with a three colour scale
// per row.
//
// The kept rows go to the "data" sheet and the excluded rows to "filtered
// away proteins". When the workbook cannot be saved, Exporter writes the
// kept rows to a comma-delimited fallback file instead.
package exporter
