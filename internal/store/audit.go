package store

import (
	"context"
	"database/sql"

	entsql "entgo.io/ent/dialect/sql"
)

var schedulingLogColumns = []string{
	"id", "tick_id", "user_id", "skill_id", "decision", "reason",
	"difficulty_target", "priority", "created_at",
}

// auditRepo implements AuditRepo.
type auditRepo struct {
	db *sql.DB
}

func (r *auditRepo) Append(ctx context.Context, e *SchedulingLogEntry) error {
	query, args := builder.Insert(tableSchedulingLog).
		Columns(schedulingLogColumns[1:]...).
		Values(e.TickID, e.UserID, e.SkillID, string(e.Decision), e.Reason, e.DifficultyTarget, e.Priority, toMillis(e.CreatedAt)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap("append scheduling log", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (r *auditRepo) Query(ctx context.Context, opts QueryOpts) ([]*SchedulingLogEntry, error) {
	sel := builder.Select(schedulingLogColumns...).
		From(builder.Table(tableSchedulingLog))

	var preds []*entsql.Predicate
	if opts.TickID != 0 {
		preds = append(preds, entsql.EQ("tick_id", opts.TickID))
	}
	if opts.UserID != "" {
		preds = append(preds, entsql.EQ("user_id", opts.UserID))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", toMillis(opts.From)))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("id"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query scheduling log", err)
	}
	defer rows.Close()

	var out []*SchedulingLogEntry
	for rows.Next() {
		var (
			e        SchedulingLogEntry
			decision string
			created  int64
		)
		err := rows.Scan(&e.ID, &e.TickID, &e.UserID, &e.SkillID, &decision, &e.Reason, &e.DifficultyTarget, &e.Priority, &created)
		if err != nil {
			return nil, wrap("scan scheduling log", err)
		}
		e.Decision = Decision(decision)
		e.CreatedAt = fromMillis(created)
		out = append(out, &e)
	}
	return out, wrap("query scheduling log", rows.Err())
}
