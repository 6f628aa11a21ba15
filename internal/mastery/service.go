package mastery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/skillissue/internal/logger"
	"github.com/abhisek/skillissue/internal/store"
	"github.com/abhisek/skillissue/internal/tracing"
)

var (
	// ErrNotEnrolled is returned when the (user, skill) pair has no state.
	ErrNotEnrolled = errors.New("not enrolled")

	// ErrAlreadyAnswered is returned when a challenge answer was already
	// recorded for this user. It wraps store.ErrDuplicate.
	ErrAlreadyAnswered = fmt.Errorf("challenge already answered: %w", store.ErrDuplicate)

	// ErrChallengeClosed is returned when answering an expired challenge.
	// It wraps store.ErrClosed.
	ErrChallengeClosed = fmt.Errorf("challenge expired: %w", store.ErrClosed)

	// ErrInvalidOption is returned when the selected option is not 0-3.
	ErrInvalidOption = errors.New("selected option out of range")
)

// maxCASAttempts bounds how often a write is retried after losing a
// version race to a writer in another process.
const maxCASAttempts = 5

// Engine applies answers to user skill state. Writes for one (user, skill)
// are serialized in process and guarded by a version compare-and-swap in
// the store.
type Engine struct {
	states     store.StateRepo
	challenges store.ChallengeRepo
	tracer     *tracing.Tracer
	log        *logger.Logger
	locks      keyLocks
	now        func() time.Time
}

// NewEngine creates a mastery engine. tracer may be nil.
func NewEngine(states store.StateRepo, challenges store.ChallengeRepo, tracer *tracing.Tracer, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		states:     states,
		challenges: challenges,
		tracer:     tracer,
		log:        log,
		now:        time.Now,
	}
}

// RecordAnswer folds one answer into the pair's state and returns the
// updated state. difficulty is the level the question was asked at.
func (e *Engine) RecordAnswer(ctx context.Context, userID, skillID string, isCorrect bool, responseTimeMs, difficulty int) (st *store.UserSkillState, err error) {
	ctx, span := e.tracer.Start(ctx, "mastery.record_answer", map[string]any{
		"user_id":          userID,
		"skill_id":         skillID,
		"is_correct":       isCorrect,
		"response_time_ms": responseTimeMs,
		"difficulty":       difficulty,
	})
	defer func() {
		out := map[string]any{}
		if st != nil {
			out["difficulty_target"] = st.DifficultyTarget
			out["streak_correct"] = st.StreakCorrect
			out["streak_incorrect"] = st.StreakIncorrect
		}
		span.End(out, err)
	}()

	unlock := e.locks.lock(store.PairKey(userID, skillID))
	defer unlock()

	for attempt := 1; ; attempt++ {
		st, err = e.states.Get(ctx, userID, skillID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("record answer for %s/%s: %w", userID, skillID, ErrNotEnrolled)
		}
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}

		tr := Apply(st, isCorrect, e.now().UTC())

		err = e.states.CompareAndSwap(ctx, st)
		if errors.Is(err, store.ErrVersionConflict) && attempt < maxCASAttempts {
			e.log.Debug("state version conflict, retrying", "user_id", userID, "skill_id", skillID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("save state: %w", err)
		}

		if tr != nil {
			e.log.Info("difficulty changed",
				"user_id", userID,
				"skill_id", skillID,
				"from", tr.From,
				"to", tr.To,
				"trigger", tr.Trigger,
			)
		}
		return st, nil
	}
}

// ChallengeResult is the outcome of answering a challenge.
type ChallengeResult struct {
	IsCorrect     bool
	CorrectOption int
	Explanation   string
	State         *store.UserSkillState
}

// SubmitChallengeAnswer records the learner's answer to a challenge and
// applies it at the difficulty the challenge was generated for.
func (e *Engine) SubmitChallengeAnswer(ctx context.Context, challengeID, userID string, selectedOption, responseTimeMs int) (*ChallengeResult, error) {
	c, err := e.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("load challenge %s: %w", challengeID, err)
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("challenge %s for user %s: %w", challengeID, userID, store.ErrNotFound)
	}
	if c.ExpiredAt != nil {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrChallengeClosed)
	}
	if selectedOption < 0 || selectedOption >= len(c.Options) {
		return nil, fmt.Errorf("option %d: %w", selectedOption, ErrInvalidOption)
	}

	isCorrect := selectedOption == c.CorrectIndex
	err = e.challenges.RecordAnswer(ctx, &store.Answer{
		ChallengeID:    challengeID,
		UserID:         userID,
		SelectedOption: selectedOption,
		IsCorrect:      isCorrect,
		ResponseTimeMs: responseTimeMs,
		AnsweredAt:     e.now().UTC(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrAlreadyAnswered)
	}
	if errors.Is(err, store.ErrClosed) {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrChallengeClosed)
	}
	if err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}

	st, err := e.RecordAnswer(ctx, userID, c.SkillID, isCorrect, responseTimeMs, c.Difficulty)
	if err != nil {
		return nil, err
	}
	return &ChallengeResult{
		IsCorrect:     isCorrect,
		CorrectOption: c.CorrectIndex,
		Explanation:   c.Explanation,
		State:         st,
	}, nil
}
