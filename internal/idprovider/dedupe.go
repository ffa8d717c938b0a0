package idprovider

import (
	"strings"

	"taxonid/internal/taxon"
)

// collapseDuplicateClusters works around names index duplicates: usages of a
// canonical group with the same lower-cased label are moved onto the lowest
// cluster id seen for that label, including usages that had no cluster id.
// It returns the number of distinct cluster ids before and after.
func collapseDuplicateClusters(group []taxon.SimpleName) (before, after int) {
	original := make(map[uint32]struct{})
	hasNil := false
	lowest := make(map[string]uint32)
	for _, sn := range group {
		if sn.ClusterID == nil {
			hasNil = true
			continue
		}
		id := *sn.ClusterID
		original[id] = struct{}{}
		label := strings.ToLower(sn.Label())
		if cur, ok := lowest[label]; !ok || id < cur {
			lowest[label] = id
		}
	}

	before = len(original)
	if hasNil {
		before++
	}

	remaining := make(map[uint32]struct{})
	nilLeft := false
	for i := range group {
		sn := &group[i]
		if id, ok := lowest[strings.ToLower(sn.Label())]; ok {
			if sn.ClusterID == nil || *sn.ClusterID != id {
				sn.ClusterID = taxon.Uint32(id)
			}
		}
		if sn.ClusterID == nil {
			nilLeft = true
			continue
		}
		remaining[*sn.ClusterID] = struct{}{}
	}

	after = len(remaining)
	if nilLeft {
		after++
	}
	return before, after
}
