package store

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/pkg/errors"
)

const llmEventsTable = "llm_request_events"

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

func (l *EventLog) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	return l.append(ctx, llmEventsTable,
		[]string{"provider", "model", "purpose", "input_tokens", "output_tokens",
			"latency_ms", "success", "error_message", "request_body", "response_body"},
		data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens,
		data.LatencyMs, data.Success, data.ErrorMessage, data.RequestBody, data.ResponseBody,
	)
}

// QueryLLMEvents returns LLM events, newest first.
func (l *EventLog) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error) {
	sel := l.sql.Select(llmEventColumns...).From(entsql.Table(llmEventsTable))
	query, args := applyQueryOpts(sel, opts, false).Query()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query LLM events")
	}
	defer rows.Close()

	var out []LLMEventRecord
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, errors.Wrap(rows.Err(), "iterate LLM events")
}

// GetLLMEvent returns the event with the given ID, or nil if none exists.
func (l *EventLog) GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error) {
	query, args := l.sql.Select(llmEventColumns...).
		From(entsql.Table(llmEventsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	e, err := scanLLMEvent(l.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// LLMUsageByPurpose aggregates token usage per request purpose.
func (l *EventLog) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return l.llmUsage(ctx, "purpose")
}

// LLMUsageByModel aggregates token usage per model.
func (l *EventLog) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return l.llmUsage(ctx, "model")
}

func (l *EventLog) llmUsage(ctx context.Context, key string) ([]LLMUsage, error) {
	query, args := l.sql.Select(
		key,
		entsql.Count("*"),
		entsql.Sum("input_tokens"),
		entsql.Sum("output_tokens"),
		entsql.Avg("latency_ms"),
	).
		From(entsql.Table(llmEventsTable)).
		GroupBy(key).
		OrderBy(key).
		Query()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "aggregate LLM usage by %s", key)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var (
			u   LLMUsage
			avg float64
		)
		if err := rows.Scan(&u.Key, &u.Calls, &u.InputTokens, &u.OutputTokens, &avg); err != nil {
			return nil, errors.Wrap(err, "scan LLM usage")
		}
		u.AvgLatencyMs = int64(avg)
		out = append(out, u)
	}
	return out, errors.Wrap(rows.Err(), "iterate LLM usage")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLLMEvent(row rowScanner) (*LLMEventRecord, error) {
	var (
		e  LLMEventRecord
		ts int64
	)
	err := row.Scan(&e.ID, &e.Sequence, &ts, &e.Provider, &e.Model, &e.Purpose,
		&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success,
		&e.ErrorMessage, &e.RequestBody, &e.ResponseBody)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan LLM event")
	}
	e.Timestamp = time.Unix(0, ts).UTC()
	return &e, nil
}
