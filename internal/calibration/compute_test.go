package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/skillissue/internal/store"
)

func answers(correct, incorrect []int) []*store.CalibrationAnswer {
	var out []*store.CalibrationAnswer
	for _, d := range correct {
		out = append(out, &store.CalibrationAnswer{Difficulty: d, IsCorrect: true})
	}
	for _, d := range incorrect {
		out = append(out, &store.CalibrationAnswer{Difficulty: d})
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		correct   []int
		incorrect []int
		want      Result
	}{
		{
			name:      "mixed results keep the rounded mean",
			correct:   []int{2, 3, 5},
			incorrect: []int{1, 4},
			want:      Result{CalculatedDifficultyTarget: 3, Accuracy: 0.6, TotalAnswered: 5, TotalCorrect: 3},
		},
		{
			name:    "high accuracy adds a level",
			correct: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			want:    Result{CalculatedDifficultyTarget: 7, Accuracy: 1, TotalAnswered: 10, TotalCorrect: 10},
		},
		{
			name:      "low accuracy drops a level",
			correct:   []int{6},
			incorrect: []int{1, 2, 3},
			want:      Result{CalculatedDifficultyTarget: 5, Accuracy: 0.25, TotalAnswered: 4, TotalCorrect: 1},
		},
		{
			name:      "nothing correct clamps to one",
			incorrect: []int{1, 2},
			want:      Result{CalculatedDifficultyTarget: 1, Accuracy: 0, TotalAnswered: 2, TotalCorrect: 0},
		},
		{
			name:    "ceiling",
			correct: []int{10},
			want:    Result{CalculatedDifficultyTarget: 10, Accuracy: 1, TotalAnswered: 1, TotalCorrect: 1},
		},
		{
			name:      "half rounds up",
			correct:   []int{3, 4},
			incorrect: []int{5, 6},
			want:      Result{CalculatedDifficultyTarget: 4, Accuracy: 0.5, TotalAnswered: 4, TotalCorrect: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(answers(tt.correct, tt.incorrect))
			assert.Equal(t, tt.want.CalculatedDifficultyTarget, got.CalculatedDifficultyTarget)
			assert.InDelta(t, tt.want.Accuracy, got.Accuracy, 1e-9)
			assert.Equal(t, tt.want.TotalAnswered, got.TotalAnswered)
			assert.Equal(t, tt.want.TotalCorrect, got.TotalCorrect)
		})
	}
}
