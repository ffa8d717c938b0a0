package taxon

import "strings"

// SimpleName is the flat view of a name usage shared by the history source,
// the candidate stream and the report lookups.
type SimpleName struct {
	ID         string
	Name       string
	Authorship string
	Phrase     string
	Rank       Rank
	Status     Status
	Parent     string
	// ClusterID is the names index id the usage was matched to.
	ClusterID *uint32
	// CanonicalID is the names index id of the canonical name without
	// authorship, shared by all authorship variants.
	CanonicalID *uint32
	MatchType   MatchType
}

// Label joins name, authorship and phrase.
func (n SimpleName) Label() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.Name, n.Authorship, n.Phrase} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// GroupKey returns the key used to stream usages in canonical groups. It
// falls back to the cluster id when no canonical id is known.
func (n SimpleName) GroupKey() (uint32, bool) {
	if n.CanonicalID != nil {
		return *n.CanonicalID, true
	}
	if n.ClusterID != nil {
		return *n.ClusterID, true
	}
	return 0, false
}

// Uint32 returns a pointer to v, for optional cluster fields.
func Uint32(v uint32) *uint32 {
	return &v
}
