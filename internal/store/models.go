package store

import "time"

// User is a learner enrolled in one or more skills.
type User struct {
	ID       string
	Timezone string // IANA name, e.g. "America/New_York"

	// QuietStart and QuietEnd bound the local hours (0-23) during which no
	// challenge is scheduled. Either may be nil, meaning no quiet window.
	QuietStart *int
	QuietEnd   *int

	MaxChallengesPerDay int
	CreatedAt           time.Time
}

// Skill is a subject area learners practice. Description is passed to the
// generator as context.
type Skill struct {
	ID          string
	Name        string
	Description string
	Active      bool
}

// LastResult is the outcome of the most recent challenge for a pair.
type LastResult string

const (
	ResultNone      LastResult = ""
	ResultCorrect   LastResult = "correct"
	ResultIncorrect LastResult = "incorrect"
	ResultIgnored   LastResult = "ignored"
)

// Difficulty bounds shared by every engine.
const (
	DifficultyUncalibrated = 0
	MinDifficulty          = 1
	MaxDifficulty          = 10
)

// UserSkillState is the per-(user, skill) mastery record.
type UserSkillState struct {
	UserID  string
	SkillID string

	// DifficultyTarget is 0 until calibrated, then 1-10.
	DifficultyTarget int

	StreakCorrect   int
	StreakIncorrect int
	AttemptsTotal   int
	CorrectTotal    int

	LastChallengedAt *time.Time
	LastResult       LastResult

	// Version increments on every write and guards compare-and-swap updates.
	Version   int64
	UpdatedAt time.Time
}

// Accuracy returns CorrectTotal / AttemptsTotal, or 0 when there are no attempts.
func (s *UserSkillState) Accuracy() float64 {
	if s.AttemptsTotal == 0 {
		return 0
	}
	return float64(s.CorrectTotal) / float64(s.AttemptsTotal)
}

// CalibrationStatus is a forward-only state: pending -> in_progress -> completed.
type CalibrationStatus string

const (
	CalibrationPending    CalibrationStatus = "pending"
	CalibrationInProgress CalibrationStatus = "in_progress"
	CalibrationCompleted  CalibrationStatus = "completed"
)

// rank orders statuses so transitions can be checked for direction.
func (s CalibrationStatus) rank() int {
	switch s {
	case CalibrationPending:
		return 0
	case CalibrationInProgress:
		return 1
	case CalibrationCompleted:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s CalibrationStatus) CanAdvanceTo(next CalibrationStatus) bool {
	return next.rank() > s.rank() && s.rank() >= 0
}

// CalibrationState tracks one learner's calibration for one skill.
type CalibrationState struct {
	UserID               string
	SkillID              string
	Status               CalibrationStatus
	QuestionsGeneratedAt *time.Time
	CompletedAt          *time.Time

	// Set exactly once, on completion.
	CalculatedDifficultyTarget int
	Accuracy                   float64
	TotalAnswered              int
	TotalCorrect               int
}

// CalibrationQuestion is shared by every learner of a skill, one per difficulty.
type CalibrationQuestion struct {
	ID           int64
	SkillID      string
	Difficulty   int
	Question     string
	Options      []string
	CorrectIndex int
	Explanation  string
	CreatedAt    time.Time
}

// CalibrationAnswer is a learner's single answer at one difficulty level.
type CalibrationAnswer struct {
	UserID         string
	SkillID        string
	Difficulty     int
	SelectedOption int
	IsCorrect      bool
	AnsweredAt     time.Time
}

// Challenge is a generated practice question delivered to one learner.
type Challenge struct {
	ID           string
	UserID       string
	SkillID      string
	Difficulty   int
	Question     string
	Options      []string
	CorrectIndex int
	Explanation  string
	CreatedAt    time.Time
	AnsweredAt   *time.Time
	ExpiredAt    *time.Time
}

// Pending reports whether the challenge is still waiting for an answer.
func (c *Challenge) Pending() bool {
	return c.AnsweredAt == nil && c.ExpiredAt == nil
}

// Answer is a learner's response to a challenge.
type Answer struct {
	ChallengeID    string
	UserID         string
	SelectedOption int
	IsCorrect      bool
	ResponseTimeMs int
	AnsweredAt     time.Time
}

// Decision is the outcome recorded for a pair in a scheduling tick.
type Decision string

const (
	DecisionSelected Decision = "selected"
	DecisionSkipped  Decision = "skipped"
)

// SchedulingLogEntry is an append-only audit record of one scheduling decision.
type SchedulingLogEntry struct {
	ID               int64
	TickID           int64
	UserID           string
	SkillID          string
	Decision         Decision
	Reason           string
	DifficultyTarget int
	Priority         float64
	CreatedAt        time.Time
}
