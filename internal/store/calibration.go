package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var (
	questionColumns = []string{"id", "skill_id", "difficulty", "question", "options", "correct_index", "explanation", "created_at"}

	calibrationStateColumns = []string{
		"user_id", "skill_id", "status", "questions_generated_at", "completed_at",
		"calculated_difficulty_target", "accuracy", "total_answered", "total_correct",
	}

	calibrationAnswerColumns = []string{"user_id", "skill_id", "difficulty", "selected_option", "is_correct", "answered_at"}
)

// calibrationRepo implements CalibrationRepo.
type calibrationRepo struct {
	db *sql.DB
}

func (r *calibrationRepo) Questions(ctx context.Context, skillID string) ([]*CalibrationQuestion, error) {
	query, args := builder.Select(questionColumns...).
		From(builder.Table(tableCalibrationQuestions)).
		Where(entsql.EQ("skill_id", skillID)).
		OrderBy("difficulty").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list calibration questions", err)
	}
	defer rows.Close()

	var out []*CalibrationQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, wrap("scan calibration question", err)
		}
		out = append(out, q)
	}
	return out, wrap("list calibration questions", rows.Err())
}

func (r *calibrationRepo) Question(ctx context.Context, skillID string, difficulty int) (*CalibrationQuestion, error) {
	query, args := builder.Select(questionColumns...).
		From(builder.Table(tableCalibrationQuestions)).
		Where(entsql.And(entsql.EQ("skill_id", skillID), entsql.EQ("difficulty", difficulty))).
		Query()
	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("calibration question %s@%d: %w", skillID, difficulty, ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get calibration question", err)
	}
	return q, nil
}

func (r *calibrationRepo) InsertQuestion(ctx context.Context, q *CalibrationQuestion) (bool, error) {
	opts, err := encodeOptions(q.Options)
	if err != nil {
		return false, fmt.Errorf("encode options: %w", err)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	query, args := builder.Insert(tableCalibrationQuestions).
		Columns("skill_id", "difficulty", "question", "options", "correct_index", "explanation", "created_at").
		Values(q.SkillID, q.Difficulty, q.Question, opts, q.CorrectIndex, q.Explanation, toMillis(q.CreatedAt)).
		OnConflict(entsql.ConflictColumns("skill_id", "difficulty"), entsql.DoNothing()).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, wrap("insert calibration question", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("insert calibration question", err)
	}
	if n == 0 {
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		q.ID = id
	}
	return true, nil
}

func (r *calibrationRepo) EnsureState(ctx context.Context, userID, skillID string) (*CalibrationState, error) {
	query, args := builder.Insert(tableCalibrationStates).
		Columns("user_id", "skill_id", "status").
		Values(userID, skillID, string(CalibrationPending)).
		OnConflict(entsql.ConflictColumns("user_id", "skill_id"), entsql.DoNothing()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, wrap("ensure calibration state", err)
	}
	return getCalibrationState(ctx, r.db, userID, skillID)
}

func getCalibrationState(ctx context.Context, q querier, userID, skillID string) (*CalibrationState, error) {
	query, args := builder.Select(calibrationStateColumns...).
		From(builder.Table(tableCalibrationStates)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("skill_id", skillID))).
		Query()
	st, err := scanCalibrationState(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("calibration state %s/%s: %w", userID, skillID, ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get calibration state", err)
	}
	return st, nil
}

func (r *calibrationRepo) Advance(ctx context.Context, userID, skillID string, from, to CalibrationStatus, questionsGeneratedAt *time.Time) error {
	if !from.CanAdvanceTo(to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
	}
	upd := builder.Update(tableCalibrationStates).
		Set("status", string(to))
	if questionsGeneratedAt != nil {
		upd.Set("questions_generated_at", toMillis(*questionsGeneratedAt))
	}
	query, args := upd.Where(entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("skill_id", skillID),
		entsql.EQ("status", string(from)),
	)).Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap("advance calibration", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("advance calibration", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s %s -> %s: %w", userID, skillID, from, to, ErrInvalidTransition)
	}
	return nil
}

func (r *calibrationRepo) InsertAnswer(ctx context.Context, a *CalibrationAnswer) error {
	query, args := builder.Insert(tableCalibrationAnswers).
		Columns(calibrationAnswerColumns...).
		Values(a.UserID, a.SkillID, a.Difficulty, a.SelectedOption, boolInt(a.IsCorrect), toMillis(a.AnsweredAt)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("insert calibration answer", err)
	}
	return nil
}

func (r *calibrationRepo) Answers(ctx context.Context, userID, skillID string) ([]*CalibrationAnswer, error) {
	return listCalibrationAnswers(ctx, r.db, userID, skillID)
}

func listCalibrationAnswers(ctx context.Context, q querier, userID, skillID string) ([]*CalibrationAnswer, error) {
	query, args := builder.Select(calibrationAnswerColumns...).
		From(builder.Table(tableCalibrationAnswers)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("skill_id", skillID))).
		OrderBy("difficulty").
		Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list calibration answers", err)
	}
	defer rows.Close()

	var out []*CalibrationAnswer
	for rows.Next() {
		var (
			a        CalibrationAnswer
			correct  int
			answered int64
		)
		if err := rows.Scan(&a.UserID, &a.SkillID, &a.Difficulty, &a.SelectedOption, &correct, &answered); err != nil {
			return nil, wrap("scan calibration answer", err)
		}
		a.IsCorrect = correct != 0
		a.AnsweredAt = fromMillis(answered)
		out = append(out, &a)
	}
	return out, wrap("list calibration answers", rows.Err())
}

func (r *calibrationRepo) Complete(ctx context.Context, result *CalibrationState, now time.Time) (*CalibrationState, bool, error) {
	var (
		stored   *CalibrationState
		replayed bool
	)
	err := withTx(ctx, r.db, "complete calibration", func(tx *sql.Tx) error {
		cur, err := getCalibrationState(ctx, tx, result.UserID, result.SkillID)
		if err != nil {
			return err
		}
		if cur.Status == CalibrationCompleted {
			stored, replayed = cur, true
			return nil
		}

		completedAt := now.UTC()
		query, args := builder.Update(tableCalibrationStates).
			Set("status", string(CalibrationCompleted)).
			Set("completed_at", toMillis(completedAt)).
			Set("calculated_difficulty_target", result.CalculatedDifficultyTarget).
			Set("accuracy", result.Accuracy).
			Set("total_answered", result.TotalAnswered).
			Set("total_correct", result.TotalCorrect).
			Where(entsql.And(
				entsql.EQ("user_id", result.UserID),
				entsql.EQ("skill_id", result.SkillID),
				entsql.EQ("status", string(cur.Status)),
			)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrap("complete calibration", err)
		}

		// Calibration only applies to an enrolled pair; without a mastery row
		// the whole completion rolls back.
		query, args = builder.Update(tableUserSkillStates).
			Set("difficulty_target", result.CalculatedDifficultyTarget).
			Set("updated_at", toMillis(completedAt)).
			Add("version", 1).
			Where(entsql.And(entsql.EQ("user_id", result.UserID), entsql.EQ("skill_id", result.SkillID))).
			Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return wrap("apply calibrated target", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrap("apply calibrated target", err)
		}
		if n == 0 {
			return fmt.Errorf("state %s/%s: %w", result.UserID, result.SkillID, ErrNotFound)
		}

		stored = &CalibrationState{
			UserID:                     result.UserID,
			SkillID:                    result.SkillID,
			Status:                     CalibrationCompleted,
			QuestionsGeneratedAt:       cur.QuestionsGeneratedAt,
			CompletedAt:                &completedAt,
			CalculatedDifficultyTarget: result.CalculatedDifficultyTarget,
			Accuracy:                   result.Accuracy,
			TotalAnswered:              result.TotalAnswered,
			TotalCorrect:               result.TotalCorrect,
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, replayed, nil
}

func scanQuestion(row rowScanner) (*CalibrationQuestion, error) {
	var (
		q       CalibrationQuestion
		opts    string
		created int64
	)
	if err := row.Scan(&q.ID, &q.SkillID, &q.Difficulty, &q.Question, &opts, &q.CorrectIndex, &q.Explanation, &created); err != nil {
		return nil, err
	}
	options, err := decodeOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	q.Options = options
	q.CreatedAt = fromMillis(created)
	return &q, nil
}

func scanCalibrationState(row rowScanner) (*CalibrationState, error) {
	var (
		st          CalibrationState
		status      string
		generatedAt sql.NullInt64
		completedAt sql.NullInt64
	)
	err := row.Scan(
		&st.UserID, &st.SkillID, &status, &generatedAt, &completedAt,
		&st.CalculatedDifficultyTarget, &st.Accuracy, &st.TotalAnswered, &st.TotalCorrect,
	)
	if err != nil {
		return nil, err
	}
	st.Status = CalibrationStatus(status)
	st.QuestionsGeneratedAt = timePtr(generatedAt)
	st.CompletedAt = timePtr(completedAt)
	return &st, nil
}
