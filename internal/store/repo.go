package store

import (
	"context"
	"time"
)

// QueryOpts configures list queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	TickID int64     // only entries of this tick (0 = any)
	UserID string    // only entries for this user ("" = any)
	From   time.Time // created_at >= From
}

// UserRepo manages learners.
type UserRepo interface {
	// Upsert creates the user or replaces its preferences.
	Upsert(ctx context.Context, u *User) error

	// Get returns the user, or ErrNotFound.
	Get(ctx context.Context, id string) (*User, error)

	// List returns all users ordered by id.
	List(ctx context.Context) ([]*User, error)
}

// SkillRepo manages skills.
type SkillRepo interface {
	// Create inserts a new skill. Returns ErrDuplicate if the id exists.
	Create(ctx context.Context, s *Skill) error

	// Get returns the skill, or ErrNotFound.
	Get(ctx context.Context, id string) (*Skill, error)

	// List returns all skills ordered by id.
	List(ctx context.Context) ([]*Skill, error)

	// SetActive toggles the active flag.
	SetActive(ctx context.Context, id string, active bool) error
}

// StateRepo manages per-(user, skill) mastery state.
type StateRepo interface {
	// Enroll creates the state row with the given difficulty target.
	// Returns ErrDuplicate if the pair is already enrolled.
	Enroll(ctx context.Context, userID, skillID string, difficulty int, now time.Time) (*UserSkillState, error)

	// Get returns the state, or ErrNotFound.
	Get(ctx context.Context, userID, skillID string) (*UserSkillState, error)

	// List returns every enrolled pair ordered by (user_id, skill_id).
	List(ctx context.Context) ([]*UserSkillState, error)

	// CompareAndSwap writes st if the stored version still equals st.Version,
	// then bumps st.Version. Returns ErrVersionConflict otherwise.
	CompareAndSwap(ctx context.Context, st *UserSkillState) error
}

// CalibrationRepo manages calibration questions, answers and per-learner state.
type CalibrationRepo interface {
	// Questions returns the skill's calibration questions ordered by difficulty.
	Questions(ctx context.Context, skillID string) ([]*CalibrationQuestion, error)

	// Question returns the question at one difficulty, or ErrNotFound.
	Question(ctx context.Context, skillID string, difficulty int) (*CalibrationQuestion, error)

	// InsertQuestion stores a question. It reports false when a question
	// already exists at that (skill, difficulty); the existing row is kept.
	InsertQuestion(ctx context.Context, q *CalibrationQuestion) (bool, error)

	// EnsureState returns the learner's state, creating it as pending.
	EnsureState(ctx context.Context, userID, skillID string) (*CalibrationState, error)

	// Advance moves the state from `from` to `to`. Returns ErrInvalidTransition
	// if the stored status is not `from` or the move is not forward.
	Advance(ctx context.Context, userID, skillID string, from, to CalibrationStatus, questionsGeneratedAt *time.Time) error

	// InsertAnswer records an answer. Returns ErrDuplicate if the level was
	// already answered.
	InsertAnswer(ctx context.Context, a *CalibrationAnswer) error

	// Answers returns the learner's answers ordered by difficulty.
	Answers(ctx context.Context, userID, skillID string) ([]*CalibrationAnswer, error)

	// Complete atomically marks the state completed with the given result and
	// writes the difficulty target into user_skill_states. If the state is
	// already completed nothing is written and the stored state is returned
	// with replayed=true. Returns ErrNotFound, writing nothing, when the pair
	// is not enrolled.
	Complete(ctx context.Context, result *CalibrationState, now time.Time) (stored *CalibrationState, replayed bool, err error)
}

// ChallengeRepo manages generated challenges and their answers.
type ChallengeRepo interface {
	// CreateForTick inserts the challenge and sets last_challenged_at on the
	// pair in one transaction.
	CreateForTick(ctx context.Context, c *Challenge) error

	// Get returns the challenge, or ErrNotFound.
	Get(ctx context.Context, id string) (*Challenge, error)

	// PendingPairs returns the set of (user, skill) pairs with an
	// unanswered, unexpired challenge. Keys are PairKey(user, skill).
	PendingPairs(ctx context.Context) (map[string]bool, error)

	// CountCreatedSince counts challenges created for a user at or after since.
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)

	// RecordAnswer stores the answer and stamps the challenge as answered.
	// Returns ErrDuplicate if this user already answered this challenge.
	RecordAnswer(ctx context.Context, a *Answer) error

	// ExpireBefore marks open challenges created before cutoff as expired and
	// returns them.
	ExpireBefore(ctx context.Context, cutoff, now time.Time) ([]*Challenge, error)
}

// AuditRepo is the append-only scheduling log.
type AuditRepo interface {
	// Append writes one entry.
	Append(ctx context.Context, e *SchedulingLogEntry) error

	// Query returns entries newest first.
	Query(ctx context.Context, opts QueryOpts) ([]*SchedulingLogEntry, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool

	// CachedInputTokens is the part of InputTokens read from a prompt cache.
	CachedInputTokens int

	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token usage for one group key (purpose or model).
type LLMUsage struct {
	Key               string
	Calls             int
	InputTokens       int
	CachedInputTokens int
	OutputTokens      int
	AvgLatencyMs      int64
}

// EventRepo records LLM calls made by the generator.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMEventRecord, error)

	// LLMUsageByPurpose aggregates usage grouped by purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates usage grouped by model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}

// PairKey is the map key for a (user, skill) pair.
func PairKey(userID, skillID string) string {
	return userID + "\x00" + skillID
}
