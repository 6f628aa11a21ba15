package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Table names.
const (
	tableUsers                = "users"
	tableSkills               = "skills"
	tableUserSkillStates      = "user_skill_states"
	tableCalibrationStates    = "calibration_states"
	tableCalibrationQuestions = "calibration_questions"
	tableCalibrationAnswers   = "calibration_answers"
	tableChallenges           = "challenges"
	tableAnswers              = "answers"
	tableSchedulingLog        = "scheduling_log"
	tableLLMRequestEvents     = "llm_request_events"
)

// Timestamps are UTC unix milliseconds so range predicates compare as integers.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		quiet_start INTEGER CHECK (quiet_start BETWEEN 0 AND 23),
		quiet_end INTEGER CHECK (quiet_end BETWEEN 0 AND 23),
		max_challenges_per_day INTEGER NOT NULL DEFAULT 3,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS skills (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS user_skill_states (
		user_id TEXT NOT NULL REFERENCES users(id),
		skill_id TEXT NOT NULL REFERENCES skills(id),
		difficulty_target INTEGER NOT NULL DEFAULT 0 CHECK (difficulty_target BETWEEN 0 AND 10),
		streak_correct INTEGER NOT NULL DEFAULT 0 CHECK (streak_correct >= 0),
		streak_incorrect INTEGER NOT NULL DEFAULT 0 CHECK (streak_incorrect >= 0),
		attempts_total INTEGER NOT NULL DEFAULT 0 CHECK (attempts_total >= 0),
		correct_total INTEGER NOT NULL DEFAULT 0 CHECK (correct_total >= 0 AND correct_total <= attempts_total),
		last_challenged_at INTEGER,
		last_result TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, skill_id)
	)`,
	`CREATE TABLE IF NOT EXISTS calibration_states (
		user_id TEXT NOT NULL REFERENCES users(id),
		skill_id TEXT NOT NULL REFERENCES skills(id),
		status TEXT NOT NULL DEFAULT 'pending',
		questions_generated_at INTEGER,
		completed_at INTEGER,
		calculated_difficulty_target INTEGER NOT NULL DEFAULT 0,
		accuracy REAL NOT NULL DEFAULT 0,
		total_answered INTEGER NOT NULL DEFAULT 0,
		total_correct INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, skill_id)
	)`,
	`CREATE TABLE IF NOT EXISTS calibration_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		skill_id TEXT NOT NULL REFERENCES skills(id),
		difficulty INTEGER NOT NULL CHECK (difficulty BETWEEN 1 AND 10),
		question TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_index INTEGER NOT NULL CHECK (correct_index BETWEEN 0 AND 3),
		explanation TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		UNIQUE (skill_id, difficulty)
	)`,
	`CREATE TABLE IF NOT EXISTS calibration_answers (
		user_id TEXT NOT NULL REFERENCES users(id),
		skill_id TEXT NOT NULL REFERENCES skills(id),
		difficulty INTEGER NOT NULL,
		selected_option INTEGER NOT NULL,
		is_correct INTEGER NOT NULL,
		answered_at INTEGER NOT NULL,
		UNIQUE (user_id, skill_id, difficulty)
	)`,
	`CREATE TABLE IF NOT EXISTS challenges (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		skill_id TEXT NOT NULL REFERENCES skills(id),
		difficulty INTEGER NOT NULL,
		question TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_index INTEGER NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		answered_at INTEGER,
		expired_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS challenges_user_created ON challenges (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS challenges_pair_open ON challenges (user_id, skill_id, answered_at, expired_at)`,
	`CREATE TABLE IF NOT EXISTS answers (
		challenge_id TEXT NOT NULL REFERENCES challenges(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		selected_option INTEGER NOT NULL,
		is_correct INTEGER NOT NULL,
		response_time_ms INTEGER NOT NULL DEFAULT 0,
		answered_at INTEGER NOT NULL,
		UNIQUE (challenge_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS scheduling_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		skill_id TEXT NOT NULL,
		decision TEXT NOT NULL,
		reason TEXT NOT NULL,
		difficulty_target INTEGER NOT NULL,
		priority REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS scheduling_log_tick ON scheduling_log (tick_id)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT '',
		cached_input_tokens INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS llm_request_events_purpose ON llm_request_events (purpose)`,
}

// migrate creates every table and index that does not exist yet.
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaDDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return tx.Commit()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
