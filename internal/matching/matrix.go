package matching

import "taxonid/internal/releasedid"

// Pair is a scored candidate/released combination, addressed by position in
// the slices the Matrix was built from.
type Pair struct {
	Candidate int
	Released  int
	Score     int
}

// Matrix keeps every positive score between a group of candidates and the
// released ids of the same cluster. Pairs are stored in discovery order:
// candidate position first, released position second.
type Matrix struct {
	pairs            []Pair
	candidateClaimed []bool
	releasedClaimed  []bool
}

// NewMatrix scores all combinations and discards zero scores.
func NewMatrix(candidates []*Candidate, released []releasedid.ReleasedID, score Scorer) *Matrix {
	if score == nil {
		score = Score
	}
	m := &Matrix{
		candidateClaimed: make([]bool, len(candidates)),
		releasedClaimed:  make([]bool, len(released)),
	}
	for i, c := range candidates {
		for j := range released {
			if s := score(c, &released[j]); s > 0 {
				m.pairs = append(m.pairs, Pair{Candidate: i, Released: j, Score: s})
			}
		}
	}
	return m
}

// Highest returns every live pair sharing the current maximum score, in
// discovery order. It returns nil once no positive pair remains.
func (m *Matrix) Highest() []Pair {
	top := 0
	var best []Pair
	for _, p := range m.pairs {
		if m.claimed(p) {
			continue
		}
		switch {
		case p.Score > top:
			top = p.Score
			best = append(best[:0], p)
		case p.Score == top:
			best = append(best, p)
		}
	}
	return best
}

// Remove takes both sides of p out of further consideration.
func (m *Matrix) Remove(p Pair) {
	m.candidateClaimed[p.Candidate] = true
	m.releasedClaimed[p.Released] = true
}

// Len counts the live pairs.
func (m *Matrix) Len() int {
	n := 0
	for _, p := range m.pairs {
		if !m.claimed(p) {
			n++
		}
	}
	return n
}

func (m *Matrix) claimed(p Pair) bool {
	return m.candidateClaimed[p.Candidate] || m.releasedClaimed[p.Released]
}

// Assign matches candidates to released ids greedily by score. Each pass
// commits the top-scoring pairs in discovery order, skipping any pair whose
// candidate or released id was already taken earlier in the same pass;
// skipped pairs are reconsidered in the next pass. commit is called for every
// accepted pair, in order. Unmatched candidates keep a nil AssignedID.
func Assign(candidates []*Candidate, released []releasedid.ReleasedID, score Scorer, commit func(Pair)) []Pair {
	if len(candidates) == 0 || len(released) == 0 {
		return nil
	}
	m := NewMatrix(candidates, released, score)
	var committed []Pair
	for best := m.Highest(); len(best) > 0; best = m.Highest() {
		for _, p := range best {
			if m.claimed(p) {
				continue
			}
			m.Remove(p)
			candidates[p.Candidate].Assign(released[p.Released].ID)
			committed = append(committed, p)
			if commit != nil {
				commit(p)
			}
		}
	}
	return committed
}
