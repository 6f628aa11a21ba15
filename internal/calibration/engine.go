// Package calibration runs the one-time placement assessment that sets a
// learner's starting difficulty for a skill.
//
// Every skill has ten shared questions, one per difficulty level. A learner's
// calibration moves pending -> in_progress -> completed and never back.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/skillissue/internal/challengegen"
	"github.com/abhisek/skillissue/internal/logger"
	"github.com/abhisek/skillissue/internal/store"
	"github.com/abhisek/skillissue/internal/tracing"
)

// QuestionCount is the number of calibration questions per skill, one for
// each difficulty level.
const QuestionCount = store.MaxDifficulty

var (
	// ErrAlreadyAnswered is returned when the learner already answered the
	// question at this difficulty. It wraps store.ErrDuplicate.
	ErrAlreadyAnswered = fmt.Errorf("calibration question already answered: %w", store.ErrDuplicate)

	// ErrNoAnswers is returned when completing a calibration with no answers.
	ErrNoAnswers = errors.New("no calibration answers")

	// ErrCalibrationCompleted is returned when answering after completion.
	ErrCalibrationCompleted = errors.New("calibration already completed")

	// ErrInvalidOption is returned when the selected option is not 0-3.
	ErrInvalidOption = errors.New("selected option out of range")

	// ErrNotEnrolled is returned when completing a calibration for a pair
	// with no skill state. It wraps store.ErrNotFound.
	ErrNotEnrolled = fmt.Errorf("not enrolled: %w", store.ErrNotFound)
)

// Engine drives calibration for all learners.
type Engine struct {
	skills      store.SkillRepo
	repo        store.CalibrationRepo
	gen         challengegen.Generator
	tracer      *tracing.Tracer
	log         *logger.Logger
	concurrency int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds parallel generator calls in GenerateQuestions.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = max(n, 1) }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a calibration engine.
func NewEngine(skills store.SkillRepo, repo store.CalibrationRepo, gen challengegen.Generator, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		skills:      skills,
		repo:        repo,
		gen:         gen,
		log:         log,
		concurrency: 2,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateStatus reports whether GenerateQuestions had to create anything.
type GenerateStatus string

const (
	GenerateCreated       GenerateStatus = "created"
	GenerateAlreadyExists GenerateStatus = "already_exists"
)

// GenerateResult is returned by GenerateQuestions.
type GenerateResult struct {
	Status    GenerateStatus
	Questions []*store.CalibrationQuestion
}

// GenerateQuestions makes sure the skill has one calibration question per
// difficulty level. Only missing levels are generated and each is stored as
// soon as it is ready, so a partial failure can be retried without
// duplicating anything. On partial failure the error wraps the
// *challengegen.GenerationError of every failed level.
func (e *Engine) GenerateQuestions(ctx context.Context, skillID string) (res *GenerateResult, err error) {
	ctx, span := e.tracer.Start(ctx, "calibration.generate_questions", map[string]any{"skill_id": skillID})
	defer func() {
		out := map[string]any{}
		if res != nil {
			out["status"] = string(res.Status)
			out["questions"] = len(res.Questions)
		}
		span.End(out, err)
	}()

	skill, err := e.skills.Get(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("load skill: %w", err)
	}

	existing, err := e.repo.Questions(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("load calibration questions: %w", err)
	}
	if len(existing) >= QuestionCount {
		return &GenerateResult{Status: GenerateAlreadyExists, Questions: existing}, nil
	}

	have := make(map[int]bool, len(existing))
	for _, q := range existing {
		have[q.Difficulty] = true
	}
	var missing []int
	for d := store.MinDifficulty; d <= store.MaxDifficulty; d++ {
		if !have[d] {
			missing = append(missing, d)
		}
	}

	var (
		mu       sync.Mutex
		errs     []error
		inserted int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, d := range missing {
		g.Go(func() error {
			created, err := e.generateLevel(gctx, skill, d)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			} else if created {
				inserted++
			}
			// Levels fail independently; keep going.
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		e.log.Warn("calibration question generation incomplete",
			"skill_id", skillID,
			"missing", len(missing),
			"failed", len(errs),
		)
		return nil, fmt.Errorf("generated %d of %d missing calibration levels for %s: %w",
			len(missing)-len(errs), len(missing), skillID, errors.Join(errs...))
	}

	questions, err := e.repo.Questions(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("reload calibration questions: %w", err)
	}
	status := GenerateCreated
	if inserted == 0 {
		status = GenerateAlreadyExists
	}
	e.log.Info("calibration questions ready", "skill_id", skillID, "generated", inserted)
	return &GenerateResult{Status: status, Questions: questions}, nil
}

func (e *Engine) generateLevel(ctx context.Context, skill *store.Skill, difficulty int) (bool, error) {
	c, err := e.gen.GenerateCalibrationQuestion(ctx, challengegen.Input{
		SkillID:          skill.ID,
		SkillName:        skill.Name,
		SkillDescription: skill.Description,
		Difficulty:       difficulty,
	})
	if err != nil {
		var gerr *challengegen.GenerationError
		if !errors.As(err, &gerr) {
			err = &challengegen.GenerationError{SkillID: skill.ID, Difficulty: difficulty, Err: err}
		}
		return false, err
	}

	created, err := e.repo.InsertQuestion(ctx, &store.CalibrationQuestion{
		SkillID:      skill.ID,
		Difficulty:   difficulty,
		Question:     c.Question,
		Options:      c.Options,
		CorrectIndex: c.CorrectIndex,
		Explanation:  c.Explanation,
		CreatedAt:    e.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("store calibration question %s@%d: %w", skill.ID, difficulty, err)
	}
	return created, nil
}

// StartStatus is the learner-facing calibration status.
type StartStatus string

const (
	StartPending   StartStatus = "pending" // questions not generated yet
	StartReady     StartStatus = "ready"
	StartCompleted StartStatus = "completed"
)

// Question is a calibration question without its answer.
type Question struct {
	Difficulty int
	Question   string
	Options    []string
}

// StartResult is returned by Start.
type StartResult struct {
	Status    StartStatus
	Questions []Question
}

// Start begins or resumes a learner's calibration. Once all questions exist
// a pending calibration moves to in_progress; every call while in progress
// returns all questions, answered or not.
func (e *Engine) Start(ctx context.Context, userID, skillID string) (res *StartResult, err error) {
	ctx, span := e.tracer.Start(ctx, "calibration.start", map[string]any{"user_id": userID, "skill_id": skillID})
	defer func() {
		out := map[string]any{}
		if res != nil {
			out["status"] = string(res.Status)
		}
		span.End(out, err)
	}()

	if _, err := e.skills.Get(ctx, skillID); err != nil {
		return nil, fmt.Errorf("load skill: %w", err)
	}
	st, err := e.repo.EnsureState(ctx, userID, skillID)
	if err != nil {
		return nil, fmt.Errorf("load calibration state: %w", err)
	}
	if st.Status == store.CalibrationCompleted {
		return &StartResult{Status: StartCompleted}, nil
	}

	questions, err := e.repo.Questions(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("load calibration questions: %w", err)
	}
	if len(questions) < QuestionCount {
		return &StartResult{Status: StartPending}, nil
	}

	if st.Status == store.CalibrationPending {
		generatedAt := latestCreatedAt(questions)
		err := e.repo.Advance(ctx, userID, skillID, store.CalibrationPending, store.CalibrationInProgress, &generatedAt)
		if errors.Is(err, store.ErrInvalidTransition) {
			// A concurrent call moved it first.
			st, err = e.repo.EnsureState(ctx, userID, skillID)
			if err != nil {
				return nil, fmt.Errorf("reload calibration state: %w", err)
			}
			if st.Status == store.CalibrationCompleted {
				return &StartResult{Status: StartCompleted}, nil
			}
		} else if err != nil {
			return nil, fmt.Errorf("start calibration: %w", err)
		}
	}

	out := make([]Question, len(questions))
	for i, q := range questions {
		out[i] = Question{Difficulty: q.Difficulty, Question: q.Question, Options: q.Options}
	}
	return &StartResult{Status: StartReady, Questions: out}, nil
}

func latestCreatedAt(qs []*store.CalibrationQuestion) time.Time {
	var t time.Time
	for _, q := range qs {
		if q.CreatedAt.After(t) {
			t = q.CreatedAt
		}
	}
	return t
}

// Progress counts a learner's calibration answers so far.
type Progress struct {
	Answered int
	Total    int
	Correct  int
}

// AnswerResult is returned by SubmitAnswer.
type AnswerResult struct {
	IsCorrect     bool
	CorrectOption int
	Explanation   string
	Progress      Progress
}

// SubmitAnswer records the learner's answer at one difficulty level.
func (e *Engine) SubmitAnswer(ctx context.Context, userID, skillID string, difficulty, selectedOption int) (res *AnswerResult, err error) {
	ctx, span := e.tracer.Start(ctx, "calibration.submit_answer", map[string]any{
		"user_id":    userID,
		"skill_id":   skillID,
		"difficulty": difficulty,
	})
	defer func() {
		out := map[string]any{}
		if res != nil {
			out["is_correct"] = res.IsCorrect
			out["answered"] = res.Progress.Answered
		}
		span.End(out, err)
	}()

	q, err := e.repo.Question(ctx, skillID, difficulty)
	if err != nil {
		return nil, err
	}
	if selectedOption < 0 || selectedOption >= len(q.Options) {
		return nil, fmt.Errorf("option %d: %w", selectedOption, ErrInvalidOption)
	}

	st, err := e.repo.EnsureState(ctx, userID, skillID)
	if err != nil {
		return nil, fmt.Errorf("load calibration state: %w", err)
	}
	if st.Status == store.CalibrationCompleted {
		return nil, fmt.Errorf("%s/%s: %w", userID, skillID, ErrCalibrationCompleted)
	}

	isCorrect := selectedOption == q.CorrectIndex
	err = e.repo.InsertAnswer(ctx, &store.CalibrationAnswer{
		UserID:         userID,
		SkillID:        skillID,
		Difficulty:     difficulty,
		SelectedOption: selectedOption,
		IsCorrect:      isCorrect,
		AnsweredAt:     e.now().UTC(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("%s/%s@%d: %w", userID, skillID, difficulty, ErrAlreadyAnswered)
	}
	if err != nil {
		return nil, fmt.Errorf("record calibration answer: %w", err)
	}

	if st.Status == store.CalibrationPending {
		err := e.repo.Advance(ctx, userID, skillID, store.CalibrationPending, store.CalibrationInProgress, nil)
		if err != nil && !errors.Is(err, store.ErrInvalidTransition) {
			return nil, fmt.Errorf("start calibration: %w", err)
		}
	}

	answers, err := e.repo.Answers(ctx, userID, skillID)
	if err != nil {
		return nil, fmt.Errorf("load calibration answers: %w", err)
	}
	progress := Progress{Answered: len(answers), Total: QuestionCount}
	for _, a := range answers {
		if a.IsCorrect {
			progress.Correct++
		}
	}

	return &AnswerResult{
		IsCorrect:     isCorrect,
		CorrectOption: q.CorrectIndex,
		Explanation:   q.Explanation,
		Progress:      progress,
	}, nil
}

// CompleteResult is returned by Complete.
type CompleteResult struct {
	Result
	CompletedAt time.Time

	// Replayed is true when the calibration was already completed and the
	// stored result is returned unchanged.
	Replayed bool
}

// Complete computes the learner's starting difficulty and writes it to
// their skill state. It happens at most once per learner and skill; later
// calls return the stored result without recomputing.
func (e *Engine) Complete(ctx context.Context, userID, skillID string) (res *CompleteResult, err error) {
	ctx, span := e.tracer.Start(ctx, "calibration.complete", map[string]any{"user_id": userID, "skill_id": skillID})
	defer func() {
		out := map[string]any{}
		if res != nil {
			out["difficulty_target"] = res.CalculatedDifficultyTarget
			out["accuracy"] = res.Accuracy
			out["replayed"] = res.Replayed
		}
		span.End(out, err)
	}()

	st, err := e.repo.EnsureState(ctx, userID, skillID)
	if err != nil {
		return nil, fmt.Errorf("load calibration state: %w", err)
	}
	if st.Status == store.CalibrationCompleted {
		return completeResult(st, true), nil
	}

	answers, err := e.repo.Answers(ctx, userID, skillID)
	if err != nil {
		return nil, fmt.Errorf("load calibration answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", userID, skillID, ErrNoAnswers)
	}

	r := Compute(answers)
	stored, replayed, err := e.repo.Complete(ctx, &store.CalibrationState{
		UserID:                     userID,
		SkillID:                    skillID,
		CalculatedDifficultyTarget: r.CalculatedDifficultyTarget,
		Accuracy:                   r.Accuracy,
		TotalAnswered:              r.TotalAnswered,
		TotalCorrect:               r.TotalCorrect,
	}, e.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s/%s: %w", userID, skillID, ErrNotEnrolled)
	}
	if err != nil {
		return nil, fmt.Errorf("complete calibration: %w", err)
	}

	if !replayed {
		e.log.Info("calibration completed",
			"user_id", userID,
			"skill_id", skillID,
			"difficulty_target", stored.CalculatedDifficultyTarget,
			"accuracy", stored.Accuracy,
			"answered", stored.TotalAnswered,
		)
	}
	return completeResult(stored, replayed), nil
}

func completeResult(st *store.CalibrationState, replayed bool) *CompleteResult {
	res := &CompleteResult{
		Result: Result{
			CalculatedDifficultyTarget: st.CalculatedDifficultyTarget,
			Accuracy:                   st.Accuracy,
			TotalAnswered:              st.TotalAnswered,
			TotalCorrect:               st.TotalCorrect,
		},
		Replayed: replayed,
	}
	if st.CompletedAt != nil {
		res.CompletedAt = *st.CompletedAt
	}
	return res
}
