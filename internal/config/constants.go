package config

import "time"

// Application constants
const (
	AppName    = "complexome"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. COMPLEXOME_LOGGING_LEVEL
	EnvPrefix = "COMPLEXOME"

	// Network defaults
	DefaultHTTPTimeout     = 60 * time.Second
	DefaultHTTPMaxAttempts = 3

	// Upper bound for a pipeline step without its own timeout
	DefaultStageTimeout = 30 * time.Minute

	// Annotation service limits
	MinBatchAmount = 1
	MaxBatchAmount = 100

	// Output defaults
	DefaultFallbackFileName = "maxquant_saved_result.csv"
	DefaultExcelFileName    = "complexome_profile.xlsx"

	// Column conventions of the protein groups export
	DefaultFastaHeaderColumn = "Fasta headers"
	SamplePrefix             = "iBAQ "
)

// ClusteringMethods lists the supported agglomerative linkage methods
var ClusteringMethods = []string{
	"single", "complete", "average", "weighted", "centroid", "median", "ward",
}

// ClusteringMetrics lists the supported pairwise dissimilarity metrics
var ClusteringMetrics = []string{
	"braycurtis", "canberra", "chebyshev", "cityblock", "correlation", "cosine",
	"dice", "euclidean", "hamming", "jaccard", "jensenshannon", "kulsinski",
	"mahalanobis", "matching", "minkowski", "rogerstanimoto", "russellrao",
	"seuclidean", "sokalmichener", "sokalsneath", "sqeuclidean", "yule",
}
