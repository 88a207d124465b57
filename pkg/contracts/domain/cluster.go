package domain

// Merge is one row of a linkage encoding. Left and Right are cluster labels:
// labels below n are leaves, label n+k is the cluster formed by merge k.
type Merge struct {
	Left   int     `json:"left"`
	Right  int     `json:"right"`
	Height float64 `json:"height"`
	Size   int     `json:"size"`
}

// ClusterOrder maps row keys to their position in the optimal leaf order
type ClusterOrder struct {
	Group   string         `json:"group"`
	Ranks   map[string]int `json:"ranks"`
	Leaves  []int          `json:"leaves"`
	Linkage []Merge        `json:"linkage,omitempty"`
}

// Empty reports whether clustering produced no mapping for the group
func (o *ClusterOrder) Empty() bool {
	return o == nil || len(o.Ranks) == 0
}
