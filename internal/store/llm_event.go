package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmEventColumns = []string{
	"id", "timestamp", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body", "cached_input_tokens",
}

// eventRepo implements EventRepo.
type eventRepo struct {
	db *sql.DB
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	query, args := builder.Insert(tableLLMRequestEvents).
		Columns(llmEventColumns[1:]...).
		Values(
			toMillis(time.Now()),
			data.Provider,
			data.Model,
			data.Purpose,
			data.InputTokens,
			data.OutputTokens,
			data.LatencyMs,
			boolInt(data.Success),
			data.ErrorMessage,
			data.RequestBody,
			data.ResponseBody,
			data.CachedInputTokens,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("save LLM request event", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error) {
	sel := builder.Select(llmEventColumns...).
		From(builder.Table(tableLLMRequestEvents))
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", toMillis(opts.From)))
	}
	sel.OrderBy(entsql.Desc("id"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query LLM events", err)
	}
	defer rows.Close()

	var out []LLMEventRecord
	for rows.Next() {
		rec, err := scanLLMEvent(rows)
		if err != nil {
			return nil, wrap("scan LLM event", err)
		}
		out = append(out, *rec)
	}
	return out, wrap("query LLM events", rows.Err())
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMEventRecord, error) {
	query, args := builder.Select(llmEventColumns...).
		From(builder.Table(tableLLMRequestEvents)).
		Where(entsql.EQ("id", id)).
		Query()
	rec, err := scanLLMEvent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get LLM event", err)
	}
	return rec, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usageBy(ctx, "purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usageBy(ctx, "model")
}

func (r *eventRepo) usageBy(ctx context.Context, column string) ([]LLMUsage, error) {
	query, args := builder.Select(
		column,
		entsql.Count("*"),
		entsql.Sum("input_tokens"),
		entsql.Sum("cached_input_tokens"),
		entsql.Sum("output_tokens"),
		entsql.Avg("latency_ms"),
	).
		From(builder.Table(tableLLMRequestEvents)).
		GroupBy(column).
		OrderBy(column).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("LLM usage by "+column, err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var (
			u   LLMUsage
			avg float64
		)
		if err := rows.Scan(&u.Key, &u.Calls, &u.InputTokens, &u.CachedInputTokens, &u.OutputTokens, &avg); err != nil {
			return nil, wrap("scan LLM usage", err)
		}
		u.AvgLatencyMs = int64(avg)
		out = append(out, u)
	}
	return out, wrap("LLM usage by "+column, rows.Err())
}

func scanLLMEvent(row rowScanner) (*LLMEventRecord, error) {
	var (
		rec     LLMEventRecord
		ts      int64
		success int
	)
	err := row.Scan(
		&rec.ID, &ts, &rec.Provider, &rec.Model, &rec.Purpose, &rec.InputTokens, &rec.OutputTokens,
		&rec.LatencyMs, &success, &rec.ErrorMessage, &rec.RequestBody, &rec.ResponseBody, &rec.CachedInputTokens,
	)
	if err != nil {
		return nil, err
	}
	rec.Timestamp = fromMillis(ts)
	rec.Success = success != 0
	return &rec, nil
}
