package store

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/pkg/errors"
)

const (
	reviewEventsTable = "review_events"
	topicEventsTable  = "topic_events"
)

// EventLog is the append-only event log. It implements EventRepo and adds
// the read-side queries used by the CLI.
type EventLog struct {
	db  *sql.DB
	sql *entsql.DialectBuilder
	seq *sequenceCounter
	now func() time.Time
}

var _ EventRepo = (*EventLog)(nil)

// append inserts one row into table, stamping it with the next global
// sequence number and the current time.
func (l *EventLog) append(ctx context.Context, table string, columns []string, values ...any) error {
	seqNum, err := l.seq.Next(ctx)
	if err != nil {
		return err
	}
	now := time.Now
	if l.now != nil {
		now = l.now
	}

	cols := append([]string{"sequence", "timestamp"}, columns...)
	vals := append([]any{seqNum, now().UnixNano()}, values...)
	query, args := l.sql.Insert(table).Columns(cols...).Values(vals...).Query()

	_, err = l.db.ExecContext(ctx, query, args...)
	return errors.Wrapf(err, "insert into %s", table)
}

// applyQueryOpts adds filters, newest-first ordering and a limit.
func applyQueryOpts(sel *entsql.Selector, opts QueryOpts, hasLearner bool) *entsql.Selector {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UnixNano()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UnixNano()))
	}
	if hasLearner && opts.Learner != "" {
		preds = append(preds, entsql.EQ("learner", opts.Learner))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	return sel
}

func (l *EventLog) AppendReviewEvent(ctx context.Context, data ReviewEventRecordData) error {
	return l.append(ctx, reviewEventsTable,
		[]string{"learner", "topic_id", "lesson_id", "quality", "repetition_count", "interval_days", "easiness_factor"},
		data.Learner, data.TopicID, data.LessonID, data.Quality, data.RepetitionCount, data.IntervalDays, data.EasinessFactor,
	)
}

// QueryReviewEvents returns review events, newest first.
func (l *EventLog) QueryReviewEvents(ctx context.Context, opts QueryOpts) ([]ReviewEventRecord, error) {
	sel := l.sql.Select("id", "sequence", "timestamp", "learner", "topic_id", "lesson_id",
		"quality", "repetition_count", "interval_days", "easiness_factor").
		From(entsql.Table(reviewEventsTable))
	query, args := applyQueryOpts(sel, opts, true).Query()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query review events")
	}
	defer rows.Close()

	var out []ReviewEventRecord
	for rows.Next() {
		var (
			e  ReviewEventRecord
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &ts, &e.Learner, &e.TopicID, &e.LessonID,
			&e.Quality, &e.RepetitionCount, &e.IntervalDays, &e.EasinessFactor); err != nil {
			return nil, errors.Wrap(err, "scan review event")
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate review events")
}

func (l *EventLog) AppendTopicEvent(ctx context.Context, data TopicEventData) error {
	return l.append(ctx, topicEventsTable,
		[]string{"learner", "topic_id", "action", "detail"},
		data.Learner, data.TopicID, data.Action, data.Detail,
	)
}

// QueryTopicEvents returns topic events, newest first.
func (l *EventLog) QueryTopicEvents(ctx context.Context, opts QueryOpts) ([]TopicEventRecord, error) {
	sel := l.sql.Select("id", "sequence", "timestamp", "learner", "topic_id", "action", "detail").
		From(entsql.Table(topicEventsTable))
	query, args := applyQueryOpts(sel, opts, true).Query()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query topic events")
	}
	defer rows.Close()

	var out []TopicEventRecord
	for rows.Next() {
		var (
			e  TopicEventRecord
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &ts, &e.Learner, &e.TopicID, &e.Action, &e.Detail); err != nil {
			return nil, errors.Wrap(err, "scan topic event")
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate topic events")
}
