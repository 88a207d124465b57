// Package annotation enriches protein groups with remote annotation.
//
// Identifiers are sent to the annotation service in contiguous batches, one
// GET per batch, with an idle delay after every batch. Each entry of the JSON
// response is matched back to its identifier by accession and the enabled
// fields are read with FieldExtractor implementations built on gjson paths.
// A failing batch leaves all of its identifiers without values; a failing
// extractor leaves only that field empty.
//
// STRING linkouts need a second round trip: the whole identifier set is
// posted once to the identifier mapping service after all batches.
//
// Client carries the network policy used by every remote call in the
// pipeline: a token-bucket limiter, a request timeout and bounded retries of
// transport errors and 429/5xx responses.
package annotation
