package calibration

import (
	"math"

	"github.com/abhisek/skillissue/internal/store"
)

// Result is the outcome of a completed calibration.
type Result struct {
	CalculatedDifficultyTarget int
	Accuracy                   float64
	TotalAnswered              int
	TotalCorrect               int
}

// Compute derives the starting difficulty from calibration answers. The base
// is the rounded mean difficulty of the correct answers (0 when none are
// correct), nudged up one level at 90% accuracy or better and down one below
// 50%, then clamped to 1-10. answers must not be empty.
func Compute(answers []*store.CalibrationAnswer) Result {
	var (
		correct int
		sum     int
	)
	for _, a := range answers {
		if a.IsCorrect {
			correct++
			sum += a.Difficulty
		}
	}

	total := len(answers)
	accuracy := float64(correct) / float64(total)

	var avg float64
	if correct > 0 {
		avg = float64(sum) / float64(correct)
	}
	target := int(math.Round(avg))
	switch {
	case accuracy >= 0.9:
		target++
	case accuracy < 0.5:
		target--
	}
	target = min(max(target, store.MinDifficulty), store.MaxDifficulty)

	return Result{
		CalculatedDifficultyTarget: target,
		Accuracy:                   accuracy,
		TotalAnswered:              total,
		TotalCorrect:               correct,
	}
}
