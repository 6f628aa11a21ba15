package calibration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillissue/internal/challengegen"
	"github.com/abhisek/skillissue/internal/logger"
	"github.com/abhisek/skillissue/internal/store"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeGenerator answers every level with option index difficulty%4 and
// fails the levels listed in fail.
type fakeGenerator struct {
	mu    sync.Mutex
	fail  map[int]bool
	calls []int
}

func (f *fakeGenerator) GenerateChallenge(ctx context.Context, in challengegen.Input) (*challengegen.Challenge, error) {
	return f.GenerateCalibrationQuestion(ctx, in)
}

func (f *fakeGenerator) GenerateCalibrationQuestion(_ context.Context, in challengegen.Input) (*challengegen.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in.Difficulty)
	if f.fail[in.Difficulty] {
		return nil, &challengegen.GenerationError{SkillID: in.SkillID, Difficulty: in.Difficulty, Err: errors.New("provider down")}
	}
	return &challengegen.Challenge{
		Question:     fmt.Sprintf("Level %d question about %s?", in.Difficulty, in.SkillName),
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: in.Difficulty % 4,
		Explanation:  "because",
	}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	store *store.Store
	gen   *fakeGenerator
	eng   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Users().Upsert(ctx, &store.User{ID: "u1", Timezone: "UTC", MaxChallengesPerDay: 3}))
	require.NoError(t, s.Skills().Create(ctx, &store.Skill{ID: "sql", Name: "SQL Joins", Active: true}))
	_, err = s.States().Enroll(ctx, "u1", "sql", store.DifficultyUncalibrated, t0)
	require.NoError(t, err)

	gen := &fakeGenerator{fail: map[int]bool{}}
	eng := NewEngine(s.Skills(), s.Calibration(), gen, logger.Nop(), WithClock(func() time.Time { return t0 }))
	return &fixture{store: s, gen: gen, eng: eng}
}

func (f *fixture) generate(t *testing.T) {
	t.Helper()
	_, err := f.eng.GenerateQuestions(context.Background(), "sql")
	require.NoError(t, err)
}

// answer submits the correct option when correct is true, otherwise a wrong one.
func (f *fixture) answer(t *testing.T, difficulty int, correct bool) *AnswerResult {
	t.Helper()
	opt := difficulty % 4
	if !correct {
		opt = (opt + 1) % 4
	}
	res, err := f.eng.SubmitAnswer(context.Background(), "u1", "sql", difficulty, opt)
	require.NoError(t, err)
	return res
}

func TestGenerateQuestions_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.eng.GenerateQuestions(ctx, "sql")
	require.NoError(t, err)
	assert.Equal(t, GenerateCreated, res.Status)
	assert.Len(t, res.Questions, QuestionCount)

	res, err = f.eng.GenerateQuestions(ctx, "sql")
	require.NoError(t, err)
	assert.Equal(t, GenerateAlreadyExists, res.Status)
	assert.Len(t, res.Questions, QuestionCount)
	assert.Equal(t, QuestionCount, f.gen.callCount())

	qs, err := f.store.Calibration().Questions(ctx, "sql")
	require.NoError(t, err)
	assert.Len(t, qs, QuestionCount)
}

func TestGenerateQuestions_PartialFailureRetriesOnlyMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.fail = map[int]bool{3: true, 7: true}

	_, err := f.eng.GenerateQuestions(ctx, "sql")
	var gerr *challengegen.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, err.Error(), "generated 8 of 10")

	qs, err := f.store.Calibration().Questions(ctx, "sql")
	require.NoError(t, err)
	assert.Len(t, qs, 8)

	f.gen.fail = map[int]bool{}
	f.gen.calls = nil
	res, err := f.eng.GenerateQuestions(ctx, "sql")
	require.NoError(t, err)
	assert.Equal(t, GenerateCreated, res.Status)
	assert.Len(t, res.Questions, QuestionCount)
	assert.ElementsMatch(t, []int{3, 7}, f.gen.calls)
}

func TestGenerateQuestions_UnknownSkill(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.GenerateQuestions(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.eng.Start(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.Equal(t, StartPending, res.Status)
	assert.Empty(t, res.Questions)

	f.generate(t)
	res, err = f.eng.Start(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.Equal(t, StartReady, res.Status)
	require.Len(t, res.Questions, QuestionCount)
	assert.Equal(t, 1, res.Questions[0].Difficulty)

	st, err := f.store.Calibration().EnsureState(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.Equal(t, store.CalibrationInProgress, st.Status)
	require.NotNil(t, st.QuestionsGeneratedAt)

	f.answer(t, 1, true)
	res, err = f.eng.Start(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.Equal(t, StartReady, res.Status)
	assert.Len(t, res.Questions, QuestionCount, "answered questions are returned again")

	_, err = f.eng.Complete(ctx, "u1", "sql")
	require.NoError(t, err)
	res, err = f.eng.Start(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.Equal(t, StartCompleted, res.Status)
	assert.Empty(t, res.Questions)
}

func TestSubmitAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t)

	res := f.answer(t, 2, true)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 2, res.CorrectOption)
	assert.Equal(t, "because", res.Explanation)
	assert.Equal(t, Progress{Answered: 1, Total: 10, Correct: 1}, res.Progress)

	st, err := f.store.Calibration().EnsureState(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.Equal(t, store.CalibrationInProgress, st.Status)

	res = f.answer(t, 3, false)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, Progress{Answered: 2, Total: 10, Correct: 1}, res.Progress)

	_, err = f.eng.SubmitAnswer(ctx, "u1", "sql", 2, 0)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = f.eng.SubmitAnswer(ctx, "u1", "sql", 11, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.eng.SubmitAnswer(ctx, "u1", "sql", 4, 7)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestSubmitAnswer_NoQuestion(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.SubmitAnswer(context.Background(), "u1", "sql", 1, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestComplete_NoAnswers(t *testing.T) {
	f := newFixture(t)
	f.generate(t)
	_, err := f.eng.Complete(context.Background(), "u1", "sql")
	assert.ErrorIs(t, err, ErrNoAnswers)
}

func TestComplete_MixedAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t)

	for _, d := range []int{2, 3, 5} {
		f.answer(t, d, true)
	}
	for _, d := range []int{1, 4} {
		f.answer(t, d, false)
	}

	res, err := f.eng.Complete(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, 3, res.CalculatedDifficultyTarget)
	assert.InDelta(t, 0.6, res.Accuracy, 1e-9)
	assert.Equal(t, 5, res.TotalAnswered)
	assert.Equal(t, 3, res.TotalCorrect)
	assert.True(t, res.CompletedAt.Equal(t0))

	st, err := f.store.States().Get(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.Equal(t, 3, st.DifficultyTarget)
}

func TestComplete_SecondCallReplaysStoredResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t)
	f.answer(t, 6, true)

	first, err := f.eng.Complete(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.Equal(t, 7, first.CalculatedDifficultyTarget)

	_, err = f.eng.SubmitAnswer(ctx, "u1", "sql", 1, 0)
	assert.ErrorIs(t, err, ErrCalibrationCompleted)

	second, err := f.eng.Complete(ctx, "u1", "sql")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Result, second.Result)
	assert.True(t, first.CompletedAt.Equal(second.CompletedAt))
}

func TestComplete_ConcurrentCallsCompleteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t)
	f.answer(t, 4, true)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		replays  int
		complete int
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.eng.Complete(ctx, "u1", "sql")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Replayed {
				replays++
			} else {
				complete++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, complete)
	assert.Equal(t, 3, replays)
}

func TestUnknownUserIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t)

	_, err := f.eng.Start(ctx, "ghost", "sql")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, store.IsStorageFailure(err))

	_, err = f.eng.SubmitAnswer(ctx, "ghost", "sql", 1, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, store.IsStorageFailure(err))

	_, err = f.eng.Start(ctx, "u1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestComplete_NotEnrolled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Users().Upsert(ctx, &store.User{ID: "u2", Timezone: "UTC", MaxChallengesPerDay: 3}))
	f.generate(t)

	_, err := f.eng.SubmitAnswer(ctx, "u2", "sql", 3, 3)
	require.NoError(t, err)

	_, err = f.eng.Complete(ctx, "u2", "sql")
	assert.ErrorIs(t, err, ErrNotEnrolled)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.store.States().Get(ctx, "u2", "sql")
	assert.ErrorIs(t, err, store.ErrNotFound, "calibration does not enroll")

	st, err := f.store.Calibration().EnsureState(ctx, "u2", "sql")
	require.NoError(t, err)
	assert.Equal(t, store.CalibrationInProgress, st.Status)

	_, err = f.store.States().Enroll(ctx, "u2", "sql", store.DifficultyUncalibrated, t0)
	require.NoError(t, err)
	res, err := f.eng.Complete(ctx, "u2", "sql")
	require.NoError(t, err)
	assert.Equal(t, 4, res.CalculatedDifficultyTarget)
}
