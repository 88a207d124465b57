// Package dataprocessing reads protein groups tables and prepares them for
// annotation and clustering.
//
// # Components
//
//  1. Reader: delimited text (delimiter detected) or the first sheet of a workbook
//  2. Filter: column selection by exact name and prefix, row exclusion by key
//     substring, and removal of rows with missing values into the excluded table
//  3. Identifiers: accession parsing from FASTA headers
//  4. Samples: sample detection from "iBAQ " columns and summed abundances
//
// # Data Flow
//
//	protein groups file → ReadTable → Filter.Apply → kept / excluded
//	kept → ExtractIdentifiers → identifier column
//	kept → AddSummedAbundances → <sample>_summed_iBAQ_value, global_summed_iBAQ_value
//
// # Error Handling
//
// Configuration problems (absent filter keys, missing header column) are
// returned as errors next to a usable result so the caller can report them
// and continue. Unreadable input is returned as a plain error.
package dataprocessing
