// Package mastery updates a learner's per-skill state from answer outcomes.
package mastery

import (
	"time"

	"github.com/abhisek/skillissue/internal/store"
)

const (
	// raiseStreak is the number of consecutive correct answers that raises
	// the difficulty target by one level.
	raiseStreak = 3

	// lowerStreak is the number of consecutive incorrect answers that lowers
	// the difficulty target by one level.
	lowerStreak = 2

	// lowerAccuracy lowers the target on any incorrect answer while lifetime
	// accuracy sits below it.
	lowerAccuracy = 0.4
)

// Transition records a difficulty change for logging.
type Transition struct {
	From    int
	To      int
	Trigger string // "correct-streak", "incorrect-streak", "low-accuracy"
}

// Apply folds one answer into st and returns the difficulty transition it
// caused, or nil. At most one level changes per answer. An uncalibrated
// state keeps its 0 target: only calibration moves it off the sentinel.
func Apply(st *store.UserSkillState, isCorrect bool, now time.Time) *Transition {
	st.AttemptsTotal++
	if isCorrect {
		st.CorrectTotal++
		st.StreakCorrect++
		st.StreakIncorrect = 0
		st.LastResult = store.ResultCorrect
	} else {
		st.StreakIncorrect++
		st.StreakCorrect = 0
		st.LastResult = store.ResultIncorrect
	}
	st.UpdatedAt = now

	if st.DifficultyTarget == store.DifficultyUncalibrated {
		return nil
	}

	from := st.DifficultyTarget
	var trigger string
	switch {
	case isCorrect && st.StreakCorrect >= raiseStreak:
		st.DifficultyTarget = min(st.DifficultyTarget+1, store.MaxDifficulty)
		trigger = "correct-streak"
	case !isCorrect && st.StreakIncorrect >= lowerStreak:
		st.DifficultyTarget = max(st.DifficultyTarget-1, store.MinDifficulty)
		trigger = "incorrect-streak"
	case !isCorrect && st.Accuracy() < lowerAccuracy:
		st.DifficultyTarget = max(st.DifficultyTarget-1, store.MinDifficulty)
		trigger = "low-accuracy"
	}

	if st.DifficultyTarget == from {
		return nil
	}
	return &Transition{From: from, To: st.DifficultyTarget, Trigger: trigger}
}
