// Package clustering reorders protein groups by hierarchical clustering.
//
// For every sample the rows are treated as observations over that sample's
// fraction columns. Pdist computes condensed pairwise distances, Linkage
// runs agglomerative clustering with Lance-Williams updates and
// OptimalLeafOrder flips dendrogram branches so that the sum of distances
// between neighbouring leaves is minimal. The position of a row in that
// order becomes its rank in the sample's clustered column.
//
// Linkage output follows the SciPy linkage matrix convention, so merges can
// be compared with results produced elsewhere.
package clustering
