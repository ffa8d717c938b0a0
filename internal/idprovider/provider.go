package idprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"taxonid/internal/idcodec"
	"taxonid/internal/logging"
	"taxonid/internal/matching"
	"taxonid/internal/releasedid"
	"taxonid/internal/report"
	"taxonid/internal/taxon"
)

// ErrRunInProgress means another reconciliation holds the project lock.
var ErrRunInProgress = errors.New("reconciliation already running")

// Phase names a step of a reconciliation run.
type Phase string

const (
	PhaseLoadHistory    Phase = "LOAD_HISTORY"
	PhaseSeedSequence   Phase = "SEED_SEQUENCE"
	PhaseStreamAndGroup Phase = "STREAM_AND_GROUP"
	PhaseScoreAndAssign Phase = "SCORE_AND_ASSIGN"
	PhaseComputeDeleted Phase = "COMPUTE_DELETED"
	PhasePersist        Phase = "PERSIST"
	PhaseReport         Phase = "REPORT"
	PhaseDone           Phase = "DONE"
)

// Outcome summarizes a finished run. Id sets are sorted ascending.
type Outcome struct {
	RunID           string
	ProjectKey      int
	Attempt         int
	PreviousAttempt int
	Created         []uint32
	Deleted         []uint32
	Resurrected     []uint32
	Reused          int
	NoMatch         int
	Mapped          int
	LastID          uint32
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Provider assigns stable identifiers to the usages of a project release.
type Provider struct {
	opts     Options
	store    Store
	reporter Reporter
	logger   *slog.Logger

	now      func() time.Time
	newRunID func() string
}

// New validates opts and returns a Provider. reporter may be nil.
func New(opts Options, store Store, reporter Reporter, logger *slog.Logger) (*Provider, error) {
	if store == nil {
		return nil, errors.New("idprovider requires a store")
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	logger = logging.NewComponentLogger(logger, "idprovider").With(
		logging.Int(logging.FieldProjectKey, opts.ProjectKey),
		logging.Int(logging.FieldAttempt, opts.Attempt),
	)
	return &Provider{
		opts:     opts,
		store:    store,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
		newRunID: uuid.NewString,
	}, nil
}

// Run reconciles the project once. Nothing is committed to the id map
// unless every candidate group before it was fully assigned.
func (p *Provider) Run(ctx context.Context) (Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	unlock, err := p.acquireLock()
	if err != nil {
		return Outcome{}, err
	}
	defer unlock()

	runID := p.newRunID()
	ctx = logging.WithRunID(ctx, runID)
	r := &run{
		Provider: p,
		logger:   logging.WithContext(ctx, p.logger),
		outcome: Outcome{
			RunID:      runID,
			ProjectKey: p.opts.ProjectKey,
			Attempt:    p.opts.Attempt,
			StartedAt:  p.now(),
		},
	}
	out, err := r.execute(ctx)
	if err != nil {
		if p.reporter != nil {
			p.reporter.Abort()
		}
		logging.ErrorWithContext(r.logger, "reconciliation failed", "reconcile_failed",
			logging.String(logging.FieldPhase, string(r.phase)),
			logging.String(logging.FieldErrorHint, "fix the cause and rerun the reconciliation"),
			logging.Error(err),
		)
		return Outcome{}, err
	}
	return out, nil
}

func (p *Provider) acquireLock() (func(), error) {
	if p.opts.LockDir == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(p.opts.LockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(p.opts.LockDir, fmt.Sprintf("%d.lock", p.opts.ProjectKey))
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: project %d holds %s", ErrRunInProgress, p.opts.ProjectKey, path)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release run lock", logging.String("lock", path), logging.Error(err))
		}
	}, nil
}

// run holds the state of a single reconciliation.
type run struct {
	*Provider
	logger *slog.Logger
	phase  Phase

	index           *releasedid.Index
	seq             *Sequence
	writer          IDMapWriter
	previousAttempt int
	previousCount   int

	created     []uint32
	resurrected []releasedid.ReleasedID
	outcome     Outcome
}

func (r *run) enter(phase Phase) {
	r.phase = phase
	r.logger.Debug("entering phase", logging.String(logging.FieldPhase, string(phase)))
}

func (r *run) execute(ctx context.Context) (Outcome, error) {
	r.enter(PhaseLoadHistory)
	if r.opts.Restart {
		r.logger.Info("ignoring all previously released ids")
		r.index = releasedid.NewIndex()
	} else {
		idx, err := releasedid.Load(ctx, r.store, r.opts.ProjectKey, r.opts.Since, r.logger)
		if err != nil {
			return Outcome{}, fmt.Errorf("load release history: %w", err)
		}
		r.index = idx
	}
	r.previousAttempt = r.index.MaxAttempt()
	r.previousCount = len(r.index.IDsAtAttempt(r.previousAttempt))
	r.logger.Info("loaded previous release ids",
		logging.Int("previous_attempt", r.previousAttempt),
		logging.Int("previous_ids", r.previousCount),
		logging.Int("known_ids", r.index.Len()),
	)

	r.enter(PhaseSeedSequence)
	seed := max(r.opts.Start, r.index.MaxID())
	r.seq = NewSequence(seed)
	r.logger.Info("seeded id sequence",
		logging.Uint32("max_known_id", r.index.MaxID()),
		logging.Uint32("seed", seed),
		logging.String("seed_encoded", idcodec.Encode(seed)),
	)

	r.enter(PhaseStreamAndGroup)
	writer, err := r.store.OpenIDMap(ctx, r.opts.ProjectKey)
	if err != nil {
		return Outcome{}, fmt.Errorf("open id map: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			r.logger.Warn("failed to close id map", logging.Error(err))
		}
	}()
	r.writer = writer
	if err := writer.Clear(ctx); err != nil {
		return Outcome{}, fmt.Errorf("clear id map: %w", err)
	}

	g := newGrouper(func(group []taxon.SimpleName) error {
		return r.mapGroup(ctx, group)
	})
	if err := r.store.ProcessCandidates(ctx, r.opts.ProjectKey, g.Add); err != nil {
		return Outcome{}, fmt.Errorf("stream candidates: %w", err)
	}
	if err := g.Flush(); err != nil {
		return Outcome{}, fmt.Errorf("stream candidates: %w", err)
	}

	r.enter(PhaseComputeDeleted)
	deletedIDs := r.index.IDsAtAttempt(r.previousAttempt)
	deleted := make([]releasedid.ReleasedID, 0, len(deletedIDs))
	for _, id := range deletedIDs {
		if rec, ok := r.index.ByID(id); ok {
			deleted = append(deleted, rec)
		}
	}

	r.enter(PhasePersist)
	if err := writer.Commit(ctx); err != nil {
		return Outcome{}, fmt.Errorf("commit id map: %w", err)
	}

	out := r.outcome
	out.PreviousAttempt = r.previousAttempt
	out.Created = slices.Sorted(slices.Values(r.created))
	out.Deleted = deletedIDs
	out.Resurrected = make([]uint32, 0, len(r.resurrected))
	for _, rec := range r.resurrected {
		out.Resurrected = append(out.Resurrected, rec.ID)
	}
	slices.Sort(out.Resurrected)
	out.Reused = r.previousCount - len(deletedIDs)
	out.LastID = r.seq.Current()

	r.enter(PhaseReport)
	if r.reporter != nil {
		r.reporter.Write(ctx, report.Result{
			ReleaseKey:        r.opts.ReleaseKey,
			Created:           out.Created,
			Deleted:           deleted,
			Resurrected:       r.resurrected,
			DatasetForAttempt: r.index.DatasetForAttempt,
		})
	}

	out.FinishedAt = r.now()
	if err := r.store.RecordRun(ctx, RunRecord{
		ID:          out.RunID,
		ProjectKey:  out.ProjectKey,
		Attempt:     out.Attempt,
		StartedAt:   out.StartedAt,
		FinishedAt:  out.FinishedAt,
		Created:     len(out.Created),
		Deleted:     len(out.Deleted),
		Resurrected: len(out.Resurrected),
		Reused:      out.Reused,
		NoMatch:     out.NoMatch,
	}); err != nil {
		logging.WarnWithContext(r.logger, "run bookkeeping not recorded", "run_record_failed",
			logging.String(logging.FieldImpact, "run is missing from the runs listing"),
			logging.Error(err),
		)
	}

	r.enter(PhaseDone)
	r.logger.Info("stable ids issued",
		logging.Int("reused", out.Reused),
		logging.Int("resurrected", len(out.Resurrected)),
		logging.Int("created", len(out.Created)),
		logging.Int("deleted", len(out.Deleted)),
		logging.Int("no_match", out.NoMatch),
		logging.Int("mapped", out.Mapped),
		logging.Duration("elapsed", out.FinishedAt.Sub(out.StartedAt)),
	)
	return out, nil
}

// mapGroup handles one canonical group: optional deduplication, then one
// assignment per cluster id.
func (r *run) mapGroup(ctx context.Context, group []taxon.SimpleName) error {
	if r.opts.NidxDeduplication {
		if before, after := collapseDuplicateClusters(group); before != after {
			r.logger.Info("reduced canonical group",
				logging.String("name", group[0].Name),
				logging.Int("distinct_before", before),
				logging.Int("distinct_after", after),
			)
		}
	}
	for _, cluster := range splitClusters(group) {
		if cluster[0].ClusterID == nil {
			r.noMatch(cluster)
			continue
		}
		if err := r.issueIDs(ctx, *cluster[0].ClusterID, cluster); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) noMatch(names []taxon.SimpleName) {
	r.logger.Info("usages without names index match keep their temporary ids",
		logging.Int("usages", len(names)),
		logging.String("example", names[0].ID),
	)
	r.outcome.NoMatch += len(names)
	if r.reporter == nil {
		return
	}
	for _, sn := range names {
		r.reporter.NoMatch(sn)
	}
}

// issueIDs assigns released ids of the cluster where possible, mints new ids
// for the rest and writes the mapping.
func (r *run) issueIDs(ctx context.Context, clusterID uint32, names []taxon.SimpleName) error {
	if r.phase != PhaseScoreAndAssign {
		r.enter(PhaseScoreAndAssign)
	}

	cands := make([]*matching.Candidate, len(names))
	for i := range names {
		cands[i] = &matching.Candidate{SimpleName: names[i]}
	}
	released := r.index.ByCluster(clusterID)
	matching.Assign(cands, released, nil, func(p matching.Pair) {
		rec := released[p.Released]
		r.index.Remove(rec.ID)
		if rec.Attempt < r.index.MaxAttempt() {
			r.resurrected = append(r.resurrected, rec)
		}
	})

	for _, c := range cands {
		if c.AssignedID != nil {
			continue
		}
		id, err := r.seq.Next()
		if err != nil {
			return fmt.Errorf("mint id for usage %s: %w", c.ID, err)
		}
		c.Assign(id)
		r.created = append(r.created, id)
	}

	before := r.outcome.Mapped / r.opts.BatchSize
	for _, c := range cands {
		if err := r.writer.Map(ctx, c.ID, idcodec.Encode(*c.AssignedID)); err != nil {
			return fmt.Errorf("write id map: %w", err)
		}
		r.outcome.Mapped++
	}
	if r.outcome.Mapped/r.opts.BatchSize != before {
		if err := r.writer.Commit(ctx); err != nil {
			return fmt.Errorf("commit id map batch: %w", err)
		}
		r.logger.Debug("committed id map batch", logging.Int("mapped", r.outcome.Mapped))
	}
	return nil
}
