package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/pkg/errors"
)

const snapshotsTable = "snapshots"

// snapshotRepo implements SnapshotRepo over the snapshots table.
type snapshotRepo struct {
	db  *sql.DB
	sql *entsql.DialectBuilder
	seq *sequenceCounter
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Sequence == 0 {
		cur, err := r.seq.Current(ctx)
		if err != nil {
			return err
		}
		snap.Sequence = cur
	}
	if snap.Data.Version == 0 {
		snap.Data.Version = CurrentSnapshotVersion
	}

	data, err := json.Marshal(snap.Data)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot data")
	}

	query, args := r.sql.Insert(snapshotsTable).
		Columns("sequence", "timestamp", "data").
		Values(snap.Sequence, snap.Timestamp.UnixNano(), string(data)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "save snapshot")
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	query, args := r.sql.Select("id", "sequence", "timestamp", "data").
		From(entsql.Table(snapshotsTable)).
		OrderBy(entsql.Desc("timestamp"), entsql.Desc("id")).
		Limit(1).
		Query()

	var (
		snap Snapshot
		ts   int64
		raw  string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&snap.ID, &snap.Sequence, &ts, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query latest snapshot")
	}
	if err := json.Unmarshal([]byte(raw), &snap.Data); err != nil {
		return nil, errors.Wrap(err, "unmarshal snapshot data")
	}
	snap.Timestamp = time.Unix(0, ts).UTC()
	return &snap, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, keep int) error {
	// Find the newest snapshot that falls outside the keep window.
	query, args := r.sql.Select("id", "timestamp").
		From(entsql.Table(snapshotsTable)).
		OrderBy(entsql.Desc("timestamp"), entsql.Desc("id")).
		Offset(keep).
		Limit(1).
		Query()

	var (
		id int
		ts int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&id, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // fewer than keep snapshots exist
	}
	if err != nil {
		return errors.Wrap(err, "query snapshots for prune")
	}

	query, args = r.sql.Delete(snapshotsTable).
		Where(entsql.Or(
			entsql.LT("timestamp", ts),
			entsql.And(entsql.EQ("timestamp", ts), entsql.LTE("id", id)),
		)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "prune snapshots")
	}
	return nil
}
