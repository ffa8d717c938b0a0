package main

import (
	"context"

	"taxonid/internal/idprovider"
	"taxonid/internal/store"
)

// storeBackend adapts the SQLite store to the interfaces of the provider.
type storeBackend struct {
	*store.Store
}

func (b storeBackend) OpenIDMap(ctx context.Context, projectKey int) (idprovider.IDMapWriter, error) {
	w, err := b.Store.OpenIDMap(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (b storeBackend) RecordRun(ctx context.Context, run idprovider.RunRecord) error {
	return b.Store.RecordRun(ctx, store.Run{
		ID:          run.ID,
		ProjectKey:  run.ProjectKey,
		Attempt:     run.Attempt,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Created:     run.Created,
		Deleted:     run.Deleted,
		Resurrected: run.Resurrected,
		Reused:      run.Reused,
		NoMatch:     run.NoMatch,
	})
}
