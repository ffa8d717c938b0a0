package report

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"taxonid/internal/fileutil"
	"taxonid/internal/idcodec"
	"taxonid/internal/logging"
	"taxonid/internal/releasedid"
	"taxonid/internal/taxon"
	"taxonid/internal/textutil"
)

// Report file names below the per-attempt report directory.
const (
	DeletedFile     = "deleted.tsv"
	ResurrectedFile = "resurrected.tsv"
	CreatedFile     = "created.tsv"
	UnstableFile    = "unstable.txt"
	NoMatchFile     = "nomatch.txt"
)

// NameLookup resolves identifiers back to name usages.
type NameLookup interface {
	// UsageByID returns a usage of a dataset, typically an older release.
	UsageByID(ctx context.Context, datasetKey int, id string) (taxon.SimpleName, bool, error)
	// UsageByIDMap returns the project usage currently mapped to stableID.
	UsageByIDMap(ctx context.Context, projectKey int, stableID string) (taxon.SimpleName, bool, error)
}

// Result is the outcome of a reconciliation as far as reporting is concerned.
type Result struct {
	// ReleaseKey is the dataset the new release will be published as. Zero
	// when unknown, in which case created usages are labelled with the
	// project key.
	ReleaseKey  int
	Created     []uint32
	Deleted     []releasedid.ReleasedID
	Resurrected []releasedid.ReleasedID
	// DatasetForAttempt resolves the release dataset holding an attempt.
	DatasetForAttempt func(attempt int) (int, bool)
}

// Reporter writes the audit listings of one release attempt. Failures are
// logged and skipped; a Reporter never fails the run it reports on.
type Reporter struct {
	dir        string
	projectKey int
	attempt    int
	lookup     NameLookup
	logger     *slog.Logger

	nomatch      *fileutil.AtomicFile
	nomatchCount int
	nomatchFail  bool

	unstable map[string][]unstableName
}

type unstableName struct {
	deletion   bool
	datasetKey int
	id         string
	usage      taxon.SimpleName
}

// New returns a Reporter writing into dir.
func New(dir string, projectKey, attempt int, lookup NameLookup, logger *slog.Logger) *Reporter {
	logger = logging.NewComponentLogger(logger, "report").With(
		logging.Int(logging.FieldProjectKey, projectKey),
		logging.Int(logging.FieldAttempt, attempt),
	)
	return &Reporter{
		dir:        dir,
		projectKey: projectKey,
		attempt:    attempt,
		lookup:     lookup,
		logger:     logger,
		unstable:   make(map[string][]unstableName),
	}
}

// Dir returns the report directory.
func (r *Reporter) Dir() string {
	return r.dir
}

// NoMatch lists a candidate that has no names index match.
func (r *Reporter) NoMatch(sn taxon.SimpleName) {
	if r.nomatchFail {
		return
	}
	if r.nomatch == nil {
		f, err := fileutil.CreateAtomic(filepath.Join(r.dir, NoMatchFile))
		if err != nil {
			r.nomatchFail = true
			logging.ErrorWithContext(r.logger, "no match report unavailable", "report_open_failed",
				logging.String("file", NoMatchFile),
				logging.Error(err),
			)
			return
		}
		r.nomatch = f
	}
	if _, err := r.nomatch.WriteString(noMatchLine(sn)); err != nil {
		logging.WarnWithContext(r.logger, "skip no match entry", "report_entry_failed",
			logging.String(logging.FieldUsageID, sn.ID),
			logging.Error(err),
		)
		return
	}
	r.nomatchCount++
}

// Abort discards a partially written no match listing.
func (r *Reporter) Abort() {
	if r.nomatch != nil {
		r.nomatch.Abort()
		r.nomatch = nil
	}
}

// Write produces every listing of res. Deletions are processed first so the
// unstable names report only follows names that lost an identifier.
func (r *Reporter) Write(ctx context.Context, res Result) {
	r.finishNoMatch()

	r.writeListing(ctx, DeletedFile, res.Deleted, res.DatasetForAttempt, true)
	r.writeListing(ctx, ResurrectedFile, res.Resurrected, res.DatasetForAttempt, false)
	r.writeCreated(ctx, CreatedFile, res.Created, res.ReleaseKey)
	r.writeUnstable()
}

func (r *Reporter) finishNoMatch() {
	if r.nomatch == nil && !r.nomatchFail {
		// written even when empty
		f, err := fileutil.CreateAtomic(filepath.Join(r.dir, NoMatchFile))
		if err != nil {
			logging.ErrorWithContext(r.logger, "no match report unavailable", "report_open_failed",
				logging.String("file", NoMatchFile),
				logging.Error(err),
			)
			return
		}
		r.nomatch = f
	}
	if r.nomatch == nil {
		return
	}
	if err := r.nomatch.Commit(); err != nil {
		logging.ErrorWithContext(r.logger, "write no match report", "report_commit_failed",
			logging.String("file", NoMatchFile),
			logging.Error(err),
		)
	}
	r.nomatch = nil
	r.logger.Info("wrote no match report", logging.Int("usages", r.nomatchCount))
}

func (r *Reporter) writeListing(ctx context.Context, name string, records []releasedid.ReleasedID, datasets func(int) (int, bool), deletion bool) {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b releasedid.ReleasedID) int {
		return cmp.Compare(a.ID, b.ID)
	})

	r.writeFile(name, len(sorted), func(f *fileutil.AtomicFile) {
		for _, rec := range sorted {
			encoded := rec.Encoded()
			datasetKey, ok := -1, false
			if datasets != nil {
				datasetKey, ok = datasets(rec.Attempt)
			}
			var (
				sn    taxon.SimpleName
				found bool
				err   error
			)
			if ok {
				sn, found, err = r.lookup.UsageByID(ctx, datasetKey, encoded)
			}
			if err != nil {
				logging.WarnWithContext(r.logger, "lookup of released id failed", "report_lookup_failed",
					logging.String(logging.FieldStableID, encoded),
					logging.Int(logging.FieldDatasetKey, datasetKey),
					logging.Int("released_attempt", rec.Attempt),
					logging.Error(err),
				)
			} else if !found {
				logging.WarnWithContext(r.logger, "released id reported without name usage", "report_usage_missing",
					logging.String(logging.FieldStableID, encoded),
					logging.Int(logging.FieldDatasetKey, datasetKey),
					logging.Int("released_attempt", rec.Attempt),
				)
			}
			if !found {
				r.writeRow(f, encoded, taxon.SimpleName{})
				continue
			}
			sn.ID = encoded
			r.writeRow(f, encoded, sn)
			r.track(deletion, datasetKey, encoded, sn)
		}
	})
}

func (r *Reporter) writeCreated(ctx context.Context, name string, ids []uint32, releaseKey int) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	// created usages live in the project until the release is published
	if releaseKey == 0 {
		releaseKey = r.projectKey
	}

	r.writeFile(name, len(sorted), func(f *fileutil.AtomicFile) {
		for _, id := range sorted {
			encoded := idcodec.Encode(id)
			sn, found, err := r.lookup.UsageByIDMap(ctx, r.projectKey, encoded)
			switch {
			case err != nil:
				logging.WarnWithContext(r.logger, "lookup of created id failed", "report_lookup_failed",
					logging.String(logging.FieldStableID, encoded),
					logging.Error(err),
				)
			case !found:
				logging.WarnWithContext(r.logger, "created id reported without name usage", "report_usage_missing",
					logging.String(logging.FieldStableID, encoded),
				)
			}
			if err != nil || !found {
				r.writeRow(f, encoded, taxon.SimpleName{})
				continue
			}
			sn.ID = encoded
			r.writeRow(f, encoded, sn)
			r.track(false, releaseKey, encoded, sn)
		}
	})
}

func (r *Reporter) writeFile(name string, count int, fill func(f *fileutil.AtomicFile)) {
	path := filepath.Join(r.dir, name)
	f, err := fileutil.CreateAtomic(path)
	if err != nil {
		logging.ErrorWithContext(r.logger, "report unavailable", "report_open_failed",
			logging.String("file", name),
			logging.Error(err),
		)
		return
	}
	r.logger.Info("writing id report", logging.String("file", path), logging.Int("ids", count))
	fill(f)
	if err := f.Commit(); err != nil {
		logging.ErrorWithContext(r.logger, "write report", "report_commit_failed",
			logging.String("file", name),
			logging.Error(err),
		)
	}
}

func (r *Reporter) writeRow(f *fileutil.AtomicFile, encoded string, sn taxon.SimpleName) {
	cols := []string{
		encoded,
		taxon.Display(sn.Rank),
		taxon.Display(sn.Status),
		textutil.SingleLine(sn.Name),
		textutil.SingleLine(sn.Authorship),
	}
	if _, err := f.WriteString(strings.Join(cols, "\t") + "\n"); err != nil {
		logging.WarnWithContext(r.logger, "skip report entry", "report_entry_failed",
			logging.String(logging.FieldStableID, encoded),
			logging.String("file", filepath.Base(f.Path())),
			logging.Error(err),
		)
	}
}

// track feeds the unstable names report. Only deletions open a name group;
// resurrections and creations join groups that already exist.
func (r *Reporter) track(deletion bool, datasetKey int, id string, sn taxon.SimpleName) {
	entries, ok := r.unstable[sn.Name]
	if !ok && !deletion {
		return
	}
	r.unstable[sn.Name] = append(entries, unstableName{deletion: deletion, datasetKey: datasetKey, id: id, usage: sn})
}

func (r *Reporter) writeUnstable() {
	names := make([]string, 0, len(r.unstable))
	for name, entries := range r.unstable {
		if slices.ContainsFunc(entries, func(n unstableName) bool { return !n.deletion }) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	r.writeFile(UnstableFile, len(names), func(f *fileutil.AtomicFile) {
		for _, name := range names {
			entries := r.unstable[name]
			slices.SortStableFunc(entries, func(a, b unstableName) int {
				switch {
				case a.deletion == b.deletion:
					return 0
				case a.deletion:
					return -1
				default:
					return 1
				}
			})
			var b strings.Builder
			b.WriteString(textutil.SingleLine(name))
			b.WriteByte('\n')
			for _, n := range entries {
				b.WriteString(unstableLine(n))
			}
			if _, err := f.WriteString(b.String()); err != nil {
				logging.WarnWithContext(r.logger, "skip unstable name", "report_entry_failed",
					logging.String("name", name),
					logging.Error(err),
				)
			}
		}
	})
}

func unstableLine(n unstableName) string {
	var b strings.Builder
	b.WriteByte(' ')
	if n.deletion {
		b.WriteByte('-')
	} else {
		b.WriteByte('+')
	}
	b.WriteByte(' ')
	b.WriteString(textutil.SingleLine(n.usage.Label()))
	b.WriteString(" [")
	b.WriteString(enumOrNull(string(n.usage.Status)))
	b.WriteByte(' ')
	b.WriteString(enumOrNull(string(n.usage.Rank)))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(n.datasetKey))
	b.WriteByte(':')
	b.WriteString(n.id)
	b.WriteString(" nidx=")
	if n.usage.ClusterID != nil {
		b.WriteString(strconv.FormatUint(uint64(*n.usage.ClusterID), 10))
		b.WriteByte('/')
		if n.usage.CanonicalID != nil {
			b.WriteString(strconv.FormatUint(uint64(*n.usage.CanonicalID), 10))
		} else {
			b.WriteString("null")
		}
		b.WriteByte(' ')
		b.WriteString(string(n.usage.MatchType))
	} else {
		b.WriteString("null")
	}
	if n.usage.Parent != "" && n.usage.Status.IsSynonym() {
		b.WriteString(" parent=")
		b.WriteString(n.usage.Parent)
	}
	b.WriteString("]\n")
	return b.String()
}

func noMatchLine(sn taxon.SimpleName) string {
	return fmt.Sprintf("%s %s [%s %s]\n",
		sn.ID,
		textutil.SingleLine(sn.Label()),
		enumOrNull(string(sn.Status)),
		enumOrNull(string(sn.Rank)),
	)
}

func enumOrNull(value string) string {
	if value == "" {
		return "null"
	}
	return value
}
