package matching

import (
	"taxonid/internal/releasedid"
	"taxonid/internal/taxon"
	"taxonid/internal/textutil"
)

// Candidate is a current project usage waiting for a stable id.
type Candidate struct {
	taxon.SimpleName
	AssignedID *uint32
}

// Assign records the stable id given to the candidate.
func (c *Candidate) Assign(id uint32) {
	c.AssignedID = &id
}

// Scorer rates how well a candidate continues a released identifier.
// Zero means the pair must never match.
type Scorer func(c *Candidate, r *releasedid.ReleasedID) int

const (
	scoreBase       = 1
	scoreStatus     = 5
	scoreRank       = 10
	scoreAuthorship = 6
	scorePhrase     = 5
)

// Score is the default Scorer.
//
// A change between accepted and synonym status always breaks identity, as
// does a change of the accepted parent for synonyms. Misapplied names only
// ever match misapplied names with the very same phrase. Otherwise every
// agreeing attribute adds points, rank weighing most.
func Score(c *Candidate, r *releasedid.ReleasedID) int {
	if c.Status.IsDefined() && r.Status.IsDefined() && c.Status.IsSynonym() != r.Status.IsSynonym() {
		return 0
	}
	if c.Status.IsMisapplied() != r.Status.IsMisapplied() {
		return 0
	}
	if c.Status.IsSynonym() && c.Parent != r.Parent {
		return 0
	}
	if c.Status.IsMisapplied() && c.Phrase != r.Phrase {
		return 0
	}

	score := scoreBase
	if c.Status == r.Status {
		score += scoreStatus
	}
	if c.Rank == r.Rank {
		score += scoreRank
	}
	score += matchTypeScore(c.MatchType)
	score += matchTypeScore(r.MatchType)
	if textutil.EqualAlnumFold(c.Authorship, r.Authorship) {
		score += scoreAuthorship
	}
	if textutil.EqualAlnumFold(c.Phrase, r.Phrase) {
		score += scorePhrase
	}
	return score
}

func matchTypeScore(mt taxon.MatchType) int {
	switch mt {
	case taxon.MatchExact:
		return 3
	case taxon.MatchVariant:
		return 2
	case taxon.MatchCanonical:
		return 1
	default:
		return 0
	}
}
