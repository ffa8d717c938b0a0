package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"taxonid/internal/taxon"
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const usageColumns = "id, name, authorship, phrase, rank, status, parent_id, nidx_id, canonical_nidx_id, match_type"

func scanUsage(scanner interface{ Scan(dest ...any) error }) (taxon.SimpleName, error) {
	var (
		sn         taxon.SimpleName
		authorship sql.NullString
		phrase     sql.NullString
		rank       sql.NullString
		status     sql.NullString
		parent     sql.NullString
		nidx       sql.NullInt64
		canonical  sql.NullInt64
		matchType  sql.NullString
	)
	if err := scanner.Scan(
		&sn.ID,
		&sn.Name,
		&authorship,
		&phrase,
		&rank,
		&status,
		&parent,
		&nidx,
		&canonical,
		&matchType,
	); err != nil {
		return taxon.SimpleName{}, err
	}

	sn.Authorship = authorship.String
	sn.Phrase = phrase.String
	sn.Parent = parent.String
	sn.Rank = taxon.ParseRank(rank.String)

	var err error
	if sn.ClusterID, err = nullableToUint32(nidx); err != nil {
		return taxon.SimpleName{}, fmt.Errorf("usage %s: nidx_id %w", sn.ID, err)
	}
	if sn.CanonicalID, err = nullableToUint32(canonical); err != nil {
		return taxon.SimpleName{}, fmt.Errorf("usage %s: canonical_nidx_id %w", sn.ID, err)
	}
	if sn.Status, err = taxon.ParseStatus(status.String); err != nil {
		return taxon.SimpleName{}, fmt.Errorf("usage %s: %w", sn.ID, err)
	}
	if sn.MatchType, err = taxon.ParseMatchType(matchType.String); err != nil {
		return taxon.SimpleName{}, fmt.Errorf("usage %s: %w", sn.ID, err)
	}
	return sn, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableUint32(value *uint32) any {
	if value == nil {
		return nil
	}
	return int64(*value)
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

// nullableToUint32 rejects values a names index id cannot hold.
func nullableToUint32(value sql.NullInt64) (*uint32, error) {
	if !value.Valid {
		return nil, nil
	}
	if value.Int64 < 0 || value.Int64 > math.MaxUint32 {
		return nil, fmt.Errorf("%d out of range", value.Int64)
	}
	return taxon.Uint32(uint32(value.Int64)), nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
