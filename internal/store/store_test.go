package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxonid/internal/store"
	"taxonid/internal/taxon"
	"taxonid/internal/testsupport"
)

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	if reopened.Path() != cfg.Paths.Database {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
	d, err := reopened.GetDataset(context.Background(), 1)
	if err != nil || d != nil {
		t.Fatalf("expected missing dataset, got %v %v", d, err)
	}
}

func TestReleasesAndNextAttempt(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	created := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)

	testsupport.MustCreateProject(t, st, 3)
	testsupport.MustCreateRelease(t, st, 3, 1001, 1, created)
	testsupport.MustCreateRelease(t, st, 3, 1002, 2, created.AddDate(0, 1, 0))
	if err := st.CreateDataset(ctx, store.Dataset{Key: 1003, SourceKey: intPtr(3)}); err != nil {
		t.Fatalf("create release without attempt: %v", err)
	}

	releases, err := st.Releases(ctx, 3)
	if err != nil {
		t.Fatalf("Releases: %v", err)
	}
	if len(releases) != 3 {
		t.Fatalf("expected 3 releases, got %d", len(releases))
	}
	if releases[0].DatasetKey != 1001 || *releases[0].Attempt != 1 || !releases[0].Created.Equal(created) {
		t.Fatalf("unexpected first release %+v", releases[0])
	}
	if releases[2].Attempt != nil {
		t.Fatalf("expected missing attempt to stay nil, got %d", *releases[2].Attempt)
	}

	next, err := st.NextAttempt(ctx, 3)
	if err != nil {
		t.Fatalf("NextAttempt: %v", err)
	}
	if next != 3 {
		t.Fatalf("NextAttempt = %d, want 3", next)
	}
	if next, _ := st.NextAttempt(ctx, 99); next != 1 {
		t.Fatalf("NextAttempt of unreleased project = %d, want 1", next)
	}
}

func TestProcessCandidatesOrdering(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	noMatch := testsupport.Usage("u9", "Nomen nudum", "", 0)
	noMatch.ClusterID = nil
	canonicalOnly := testsupport.Usage("u7", "Abies", "", 0)
	canonicalOnly.ClusterID = nil
	canonicalOnly.CanonicalID = taxon.Uint32(5)
	variant := testsupport.Usage("u3", "Abies", "Mill.", 12)
	variant.CanonicalID = taxon.Uint32(5)
	other := testsupport.Usage("u1", "Abies", "L.", 11)
	other.CanonicalID = taxon.Uint32(5)

	testsupport.MustCreateProject(t, st, 3,
		noMatch,
		testsupport.Usage("u2", "Picea", "", 20),
		variant,
		canonicalOnly,
		other,
		testsupport.Usage("u4", "Picea", "", 4),
	)

	var got []string
	err := st.ProcessCandidates(context.Background(), 3, func(sn taxon.SimpleName) error {
		got = append(got, sn.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessCandidates: %v", err)
	}
	want := []string{"u4", "u1", "u3", "u7", "u2", "u9"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestProcessUsagesStopsOnCallbackError(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.MustCreateProject(t, st, 3,
		testsupport.Usage("a", "Abies", "", 1),
		testsupport.Usage("b", "Picea", "", 2),
	)

	stop := errors.New("stop")
	calls := 0
	err := st.ProcessCandidates(context.Background(), 3, func(taxon.SimpleName) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected callback error after one call, got %v after %d", err, calls)
	}
}

func TestUsageRoundTripKeepsVocabulary(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	syn := testsupport.Usage("s1", "Abies excelsa", "Poir.", 8)
	syn.Status = taxon.StatusMisapplied
	syn.Phrase = "sensu Smith"
	syn.Parent = "a1"
	syn.Rank = taxon.RankVariety
	syn.MatchType = taxon.MatchVariant
	testsupport.MustCreateProject(t, st, 3, syn)

	got, ok, err := st.UsageByID(ctx, 3, "s1")
	if err != nil || !ok {
		t.Fatalf("UsageByID: %v %v", ok, err)
	}
	if got.Status != taxon.StatusMisapplied || got.Rank != taxon.RankVariety || got.MatchType != taxon.MatchVariant {
		t.Fatalf("vocabulary lost: %+v", got)
	}
	if got.Phrase != "sensu Smith" || got.Parent != "a1" || *got.ClusterID != 8 || got.CanonicalID != nil {
		t.Fatalf("fields lost: %+v", got)
	}

	if _, ok, err := st.UsageByID(ctx, 3, "missing"); ok || err != nil {
		t.Fatalf("expected miss, got %v %v", ok, err)
	}
}

func TestIDMapWriterCommitAndRollback(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.MustCreateProject(t, st, 3,
		testsupport.Usage("a", "Abies", "", 1),
		testsupport.Usage("b", "Picea", "", 2),
	)

	w, err := st.OpenIDMap(ctx, 3)
	if err != nil {
		t.Fatalf("OpenIDMap: %v", err)
	}
	mustMap(t, w, "a", "B")
	mustMap(t, w, "old", "Z")
	if err := w.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w, err = st.OpenIDMap(ctx, 3)
	if err != nil {
		t.Fatalf("OpenIDMap: %v", err)
	}
	if err := w.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	mustMap(t, w, "a", "C")
	mustMap(t, w, "a", "D")
	if err := w.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	mustMap(t, w, "b", "F")
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Map(ctx, "b", "G"); err == nil {
		t.Fatal("expected error writing to a closed writer")
	}

	mapping, err := st.ReadIDMap(ctx, 3)
	if err != nil {
		t.Fatalf("ReadIDMap: %v", err)
	}
	if len(mapping) != 1 || mapping["a"] != "D" {
		t.Fatalf("unexpected mapping %v", mapping)
	}

	u, ok, err := st.UsageByIDMap(ctx, 3, "D")
	if err != nil || !ok || u.ID != "a" {
		t.Fatalf("UsageByIDMap = %+v %v %v", u, ok, err)
	}
}

func TestSnapshotReleaseUsesStableIDs(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	syn := testsupport.Usage("s", "Abies excelsa", "", 2)
	syn.Status = taxon.StatusSynonym
	syn.Parent = "a"
	testsupport.MustCreateProject(t, st, 3, testsupport.Usage("a", "Abies alba", "Mill.", 1), syn, testsupport.Usage("n", "Nomen", "", 3))

	w, err := st.OpenIDMap(ctx, 3)
	if err != nil {
		t.Fatalf("OpenIDMap: %v", err)
	}
	mustMap(t, w, "a", "B")
	mustMap(t, w, "s", "C")
	if err := w.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	_ = w.Close()

	copied, err := st.SnapshotRelease(ctx, 3, store.Dataset{Key: 1001, Attempt: intPtr(1)})
	if err != nil {
		t.Fatalf("SnapshotRelease: %v", err)
	}
	if copied != 3 {
		t.Fatalf("copied %d usages, want 3", copied)
	}

	released, ok, err := st.UsageByID(ctx, 1001, "C")
	if err != nil || !ok {
		t.Fatalf("released synonym missing: %v %v", ok, err)
	}
	if released.Parent != "B" {
		t.Fatalf("released parent = %q, want stable id B", released.Parent)
	}
	if _, ok, _ := st.UsageByID(ctx, 1001, "n"); !ok {
		t.Fatal("unmapped usage must keep its project id")
	}

	// candidates see parents in stable id space
	var parent string
	_ = st.ProcessCandidates(ctx, 3, func(sn taxon.SimpleName) error {
		if sn.ID == "s" {
			parent = sn.Parent
		}
		return nil
	})
	if parent != "B" {
		t.Fatalf("candidate parent = %q, want B", parent)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	start := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)

	runs := []store.Run{
		{ID: "r1", ProjectKey: 3, Attempt: 1, StartedAt: start, FinishedAt: start.Add(time.Minute), Created: 10},
		{ID: "r2", ProjectKey: 3, Attempt: 2, StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour + time.Minute), Reused: 10, Deleted: 1},
		{ID: "r3", ProjectKey: 4, Attempt: 1, StartedAt: start, FinishedAt: start.Add(2 * time.Hour), Created: 5},
	}
	for _, r := range runs {
		if err := st.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}
	runs[0].NoMatch = 7
	if err := st.RecordRun(ctx, runs[0]); err != nil {
		t.Fatalf("RecordRun again: %v", err)
	}

	listed, err := st.ListRuns(ctx, 3, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "r2" || listed[1].ID != "r1" {
		t.Fatalf("unexpected runs %+v", listed)
	}
	if listed[1].NoMatch != 7 || listed[0].Deleted != 1 || !listed[0].StartedAt.Equal(start.Add(time.Hour)) {
		t.Fatalf("run fields not stored: %+v", listed)
	}

	all, err := st.ListRuns(ctx, 0, 1)
	if err != nil {
		t.Fatalf("ListRuns all: %v", err)
	}
	if len(all) != 1 || all[0].ID != "r3" {
		t.Fatalf("unexpected limited runs %+v", all)
	}
}

func mustMap(t *testing.T, w *store.IDMapWriter, usageID, stableID string) {
	t.Helper()
	if err := w.Map(context.Background(), usageID, stableID); err != nil {
		t.Fatalf("Map(%s): %v", usageID, err)
	}
}

func intPtr(v int) *int { return &v }
