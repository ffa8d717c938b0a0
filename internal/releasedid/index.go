package releasedid

import (
	"errors"
	"fmt"
	"slices"

	"taxonid/internal/idcodec"
	"taxonid/internal/taxon"
)

// ErrNoCluster marks a released usage without a names index cluster. Such
// usages can never be matched and are not indexed.
var ErrNoCluster = errors.New("released usage has no cluster id")

// ReleasedID is the last known state of a stable identifier as published by
// one release attempt.
type ReleasedID struct {
	ID         uint32
	ClusterID  uint32
	Attempt    int
	Status     taxon.Status
	Rank       taxon.Rank
	Parent     string
	Authorship string
	Phrase     string
	MatchType  taxon.MatchType
}

// New converts a released usage into a ReleasedID. The usage id must be a
// canonical encoded stable id; temporary ids fail with idcodec.ErrInvalid.
func New(sn taxon.SimpleName, attempt int) (ReleasedID, error) {
	if sn.ClusterID == nil {
		return ReleasedID{}, ErrNoCluster
	}
	id, err := idcodec.Decode(sn.ID)
	if err != nil {
		return ReleasedID{}, fmt.Errorf("decode released id: %w", err)
	}
	return ReleasedID{
		ID:         id,
		ClusterID:  *sn.ClusterID,
		Attempt:    attempt,
		Status:     sn.Status,
		Rank:       sn.Rank,
		Parent:     sn.Parent,
		Authorship: sn.Authorship,
		Phrase:     sn.Phrase,
		MatchType:  sn.MatchType,
	}, nil
}

// Encoded returns the published form of the identifier.
func (r ReleasedID) Encoded() string {
	return idcodec.Encode(r.ID)
}

// Index holds every identifier ever released, keyed by id and grouped by
// cluster. It is owned by a single reconciliation run and shrinks as ids are
// claimed.
type Index struct {
	byID       map[uint32]ReleasedID
	byCluster  map[uint32][]uint32
	datasets   map[int]int
	maxID      uint32
	maxAttempt int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byID:      make(map[uint32]ReleasedID),
		byCluster: make(map[uint32][]uint32),
		datasets:  make(map[int]int),
	}
}

// AddRelease registers a release attempt and the dataset that physically
// holds it. The first dataset registered for an attempt wins. Registering an
// attempt raises MaxAttempt even when the release contributes no ids.
func (x *Index) AddRelease(attempt, datasetKey int) {
	if _, ok := x.datasets[attempt]; !ok {
		x.datasets[attempt] = datasetKey
	}
	if attempt > x.maxAttempt {
		x.maxAttempt = attempt
	}
}

// Add inserts r unless its id is already present. Releases are loaded newest
// first, so an existing entry always comes from a more recent attempt.
// It reports whether r was inserted.
func (x *Index) Add(r ReleasedID) bool {
	if _, ok := x.byID[r.ID]; ok {
		return false
	}
	x.byID[r.ID] = r
	x.byCluster[r.ClusterID] = append(x.byCluster[r.ClusterID], r.ID)
	if r.ID > x.maxID {
		x.maxID = r.ID
	}
	if r.Attempt > x.maxAttempt {
		x.maxAttempt = r.Attempt
	}
	return true
}

// ByID returns the record for id if it has not been claimed.
func (x *Index) ByID(id uint32) (ReleasedID, bool) {
	r, ok := x.byID[id]
	return r, ok
}

// Contains reports whether id is still unclaimed.
func (x *Index) Contains(id uint32) bool {
	_, ok := x.byID[id]
	return ok
}

// ByCluster returns the unclaimed records of a cluster in the order they were
// loaded.
func (x *Index) ByCluster(clusterID uint32) []ReleasedID {
	ids := x.byCluster[clusterID]
	if len(ids) == 0 {
		return nil
	}
	out := make([]ReleasedID, 0, len(ids))
	live := ids[:0]
	for _, id := range ids {
		if r, ok := x.byID[id]; ok {
			out = append(out, r)
			live = append(live, id)
		}
	}
	if len(live) == 0 {
		delete(x.byCluster, clusterID)
	} else {
		x.byCluster[clusterID] = live
	}
	return out
}

// Remove claims id and returns the record it held.
func (x *Index) Remove(id uint32) (ReleasedID, bool) {
	r, ok := x.byID[id]
	if ok {
		delete(x.byID, id)
	}
	return r, ok
}

// Len returns the number of unclaimed ids.
func (x *Index) Len() int {
	return len(x.byID)
}

// MaxID is the highest id ever loaded, claimed or not.
func (x *Index) MaxID() uint32 {
	return x.maxID
}

// MaxAttempt is the most recent release attempt loaded.
func (x *Index) MaxAttempt() int {
	return x.maxAttempt
}

// IDsAtAttempt returns the unclaimed ids last seen in attempt, ascending.
func (x *Index) IDsAtAttempt(attempt int) []uint32 {
	var ids []uint32
	for id, r := range x.byID {
		if r.Attempt == attempt {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// DatasetForAttempt returns the release dataset key of attempt.
func (x *Index) DatasetForAttempt(attempt int) (int, bool) {
	key, ok := x.datasets[attempt]
	return key, ok
}
