package idprovider

import (
	"context"
	"time"

	"taxonid/internal/releasedid"
	"taxonid/internal/report"
	"taxonid/internal/taxon"
)

// CandidateSource streams the current usages of a project ordered by group
// key, then cluster id with missing values last, then usage id.
type CandidateSource interface {
	ProcessCandidates(ctx context.Context, projectKey int, fn func(taxon.SimpleName) error) error
}

// IDMapWriter upserts project usage ids to stable ids inside explicit
// transactions. Close discards rows written after the last Commit.
type IDMapWriter interface {
	Clear(ctx context.Context) error
	Map(ctx context.Context, usageID, stableID string) error
	Commit(ctx context.Context) error
	Close() error
}

// IDMapSink opens id map write sessions.
type IDMapSink interface {
	OpenIDMap(ctx context.Context, projectKey int) (IDMapWriter, error)
}

// RunRecord is the bookkeeping row of a finished run.
type RunRecord struct {
	ID          string
	ProjectKey  int
	Attempt     int
	StartedAt   time.Time
	FinishedAt  time.Time
	Created     int
	Deleted     int
	Resurrected int
	Reused      int
	NoMatch     int
}

// RunRecorder keeps a history of finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run RunRecord) error
}

// Store is everything a Provider needs from persistence.
type Store interface {
	releasedid.HistorySource
	CandidateSource
	IDMapSink
	RunRecorder
}

// Reporter receives the audit trail of a run. It must never fail the run.
type Reporter interface {
	NoMatch(sn taxon.SimpleName)
	Write(ctx context.Context, res report.Result)
	Abort()
}
