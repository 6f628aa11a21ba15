package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var challengeColumns = []string{
	"id", "user_id", "skill_id", "difficulty", "question", "options",
	"correct_index", "explanation", "created_at", "answered_at", "expired_at",
}

// challengeRepo implements ChallengeRepo.
type challengeRepo struct {
	db *sql.DB
}

func (r *challengeRepo) CreateForTick(ctx context.Context, c *Challenge) error {
	opts, err := encodeOptions(c.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	return withTx(ctx, r.db, "create challenge", func(tx *sql.Tx) error {
		query, args := builder.Insert(tableChallenges).
			Columns("id", "user_id", "skill_id", "difficulty", "question", "options", "correct_index", "explanation", "created_at").
			Values(c.ID, c.UserID, c.SkillID, c.Difficulty, c.Question, opts, c.CorrectIndex, c.Explanation, toMillis(c.CreatedAt)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrap("insert challenge", err)
		}

		query, args = builder.Update(tableUserSkillStates).
			Set("last_challenged_at", toMillis(c.CreatedAt)).
			Set("updated_at", toMillis(c.CreatedAt)).
			Add("version", 1).
			Where(entsql.And(entsql.EQ("user_id", c.UserID), entsql.EQ("skill_id", c.SkillID))).
			Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return wrap("stamp last challenged", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("state %s/%s: %w", c.UserID, c.SkillID, ErrNotFound)
		}
		return nil
	})
}

func (r *challengeRepo) Get(ctx context.Context, id string) (*Challenge, error) {
	query, args := builder.Select(challengeColumns...).
		From(builder.Table(tableChallenges)).
		Where(entsql.EQ("id", id)).
		Query()
	c, err := scanChallenge(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("challenge %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get challenge", err)
	}
	return c, nil
}

func (r *challengeRepo) PendingPairs(ctx context.Context) (map[string]bool, error) {
	query, args := builder.Select("user_id", "skill_id").
		Distinct().
		From(builder.Table(tableChallenges)).
		Where(entsql.And(entsql.IsNull("answered_at"), entsql.IsNull("expired_at"))).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("pending pairs", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var userID, skillID string
		if err := rows.Scan(&userID, &skillID); err != nil {
			return nil, wrap("scan pending pair", err)
		}
		out[PairKey(userID, skillID)] = true
	}
	return out, wrap("pending pairs", rows.Err())
}

func (r *challengeRepo) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query, args := builder.Select(entsql.Count("*")).
		From(builder.Table(tableChallenges)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.GTE("created_at", toMillis(since)))).
		Query()
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrap("count challenges", err)
	}
	return n, nil
}

func (r *challengeRepo) RecordAnswer(ctx context.Context, a *Answer) error {
	return withTx(ctx, r.db, "record answer", func(tx *sql.Tx) error {
		query, args := builder.Insert(tableAnswers).
			Columns("challenge_id", "user_id", "selected_option", "is_correct", "response_time_ms", "answered_at").
			Values(a.ChallengeID, a.UserID, a.SelectedOption, boolInt(a.IsCorrect), a.ResponseTimeMs, toMillis(a.AnsweredAt)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrap("insert answer", err)
		}

		query, args = builder.Update(tableChallenges).
			Set("answered_at", toMillis(a.AnsweredAt)).
			Where(entsql.And(
				entsql.EQ("id", a.ChallengeID),
				entsql.IsNull("answered_at"),
				entsql.IsNull("expired_at"),
			)).
			Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return wrap("stamp answered", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrap("stamp answered", err)
		}
		if n == 0 {
			return fmt.Errorf("challenge %s: %w", a.ChallengeID, ErrClosed)
		}
		return nil
	})
}

func (r *challengeRepo) ExpireBefore(ctx context.Context, cutoff, now time.Time) ([]*Challenge, error) {
	var expired []*Challenge
	err := withTx(ctx, r.db, "expire challenges", func(tx *sql.Tx) error {
		query, args := builder.Select(challengeColumns...).
			From(builder.Table(tableChallenges)).
			Where(entsql.And(
				entsql.IsNull("answered_at"),
				entsql.IsNull("expired_at"),
				entsql.LT("created_at", toMillis(cutoff)),
			)).
			OrderBy("created_at").
			Query()
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return wrap("list stale challenges", err)
		}
		for rows.Next() {
			c, err := scanChallenge(rows)
			if err != nil {
				rows.Close()
				return wrap("scan challenge", err)
			}
			expired = append(expired, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return wrap("list stale challenges", err)
		}

		stamp := now.UTC()
		for _, c := range expired {
			query, args := builder.Update(tableChallenges).
				Set("expired_at", toMillis(stamp)).
				Where(entsql.EQ("id", c.ID)).
				Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return wrap("expire challenge", err)
			}
			c.ExpiredAt = &stamp

			query, args = builder.Update(tableUserSkillStates).
				Set("last_result", string(ResultIgnored)).
				Set("updated_at", toMillis(stamp)).
				Add("version", 1).
				Where(entsql.And(entsql.EQ("user_id", c.UserID), entsql.EQ("skill_id", c.SkillID))).
				Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return wrap("mark ignored", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

func scanChallenge(row rowScanner) (*Challenge, error) {
	var (
		c                   Challenge
		opts                string
		created             int64
		answered, expiredAt sql.NullInt64
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.SkillID, &c.Difficulty, &c.Question, &opts,
		&c.CorrectIndex, &c.Explanation, &created, &answered, &expiredAt,
	)
	if err != nil {
		return nil, err
	}
	options, err := decodeOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	c.Options = options
	c.CreatedAt = fromMillis(created)
	c.AnsweredAt = timePtr(answered)
	c.ExpiredAt = timePtr(expiredAt)
	return &c, nil
}
