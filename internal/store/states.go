package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var stateColumns = []string{
	"user_id", "skill_id", "difficulty_target",
	"streak_correct", "streak_incorrect", "attempts_total", "correct_total",
	"last_challenged_at", "last_result", "version", "updated_at",
}

// stateRepo implements StateRepo.
type stateRepo struct {
	db *sql.DB
}

func (r *stateRepo) Enroll(ctx context.Context, userID, skillID string, difficulty int, now time.Time) (*UserSkillState, error) {
	if difficulty < DifficultyUncalibrated || difficulty > MaxDifficulty {
		return nil, fmt.Errorf("enroll: difficulty %d out of range", difficulty)
	}
	st := &UserSkillState{
		UserID:           userID,
		SkillID:          skillID,
		DifficultyTarget: difficulty,
		Version:          1,
		UpdatedAt:        now.UTC(),
	}
	query, args := builder.Insert(tableUserSkillStates).
		Columns("user_id", "skill_id", "difficulty_target", "version", "updated_at").
		Values(userID, skillID, difficulty, st.Version, toMillis(now)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, wrap("enroll", err)
	}
	return st, nil
}

func (r *stateRepo) Get(ctx context.Context, userID, skillID string) (*UserSkillState, error) {
	return getState(ctx, r.db, userID, skillID)
}

func getState(ctx context.Context, q querier, userID, skillID string) (*UserSkillState, error) {
	query, args := builder.Select(stateColumns...).
		From(builder.Table(tableUserSkillStates)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("skill_id", skillID))).
		Query()
	st, err := scanState(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("state %s/%s: %w", userID, skillID, ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get state", err)
	}
	return st, nil
}

func (r *stateRepo) List(ctx context.Context) ([]*UserSkillState, error) {
	query, args := builder.Select(stateColumns...).
		From(builder.Table(tableUserSkillStates)).
		OrderBy("user_id", "skill_id").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list states", err)
	}
	defer rows.Close()

	var out []*UserSkillState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, wrap("scan state", err)
		}
		out = append(out, st)
	}
	return out, wrap("list states", rows.Err())
}

func (r *stateRepo) CompareAndSwap(ctx context.Context, st *UserSkillState) error {
	return compareAndSwap(ctx, r.db, st)
}

func compareAndSwap(ctx context.Context, q querier, st *UserSkillState) error {
	var lastResult any
	if st.LastResult != ResultNone {
		lastResult = string(st.LastResult)
	}
	query, args := builder.Update(tableUserSkillStates).
		Set("difficulty_target", st.DifficultyTarget).
		Set("streak_correct", st.StreakCorrect).
		Set("streak_incorrect", st.StreakIncorrect).
		Set("attempts_total", st.AttemptsTotal).
		Set("correct_total", st.CorrectTotal).
		Set("last_challenged_at", nullableTime(st.LastChallengedAt)).
		Set("last_result", lastResult).
		Set("version", st.Version+1).
		Set("updated_at", toMillis(st.UpdatedAt)).
		Where(entsql.And(
			entsql.EQ("user_id", st.UserID),
			entsql.EQ("skill_id", st.SkillID),
			entsql.EQ("version", st.Version),
		)).
		Query()
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap("update state", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("update state", err)
	}
	if n == 0 {
		return fmt.Errorf("state %s/%s at version %d: %w", st.UserID, st.SkillID, st.Version, ErrVersionConflict)
	}
	st.Version++
	return nil
}

func scanState(row rowScanner) (*UserSkillState, error) {
	var (
		st         UserSkillState
		lastAt     sql.NullInt64
		lastResult sql.NullString
		updated    int64
	)
	err := row.Scan(
		&st.UserID, &st.SkillID, &st.DifficultyTarget,
		&st.StreakCorrect, &st.StreakIncorrect, &st.AttemptsTotal, &st.CorrectTotal,
		&lastAt, &lastResult, &st.Version, &updated,
	)
	if err != nil {
		return nil, err
	}
	st.LastChallengedAt = timePtr(lastAt)
	if lastResult.Valid {
		st.LastResult = LastResult(lastResult.String)
	}
	st.UpdatedAt = fromMillis(updated)
	return &st, nil
}
