// Package scheduler decides, once per tick, which enrolled (user, skill)
// pairs receive a new practice challenge.
package scheduler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/skillissue/internal/audit"
	"github.com/abhisek/skillissue/internal/challengegen"
	"github.com/abhisek/skillissue/internal/logger"
	"github.com/abhisek/skillissue/internal/store"
	"github.com/abhisek/skillissue/internal/tracing"
)

// ErrTickInProgress is returned when a tick starts while another is running.
// The new tick is dropped, not queued.
var ErrTickInProgress = errors.New("tick already in progress")

// Config holds the scheduling knobs.
type Config struct {
	MaxUsersPerTick       int
	PriorityThreshold     float64
	MinTimeBetween        time.Duration
	GenerationConcurrency int
	ChallengeTTL          time.Duration // 0 disables expiry
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxUsersPerTick:       1,
		PriorityThreshold:     0.7,
		MinTimeBetween:        4 * time.Hour,
		GenerationConcurrency: 2,
		ChallengeTTL:          24 * time.Hour,
	}
}

// TickSequencer hands out tick ids.
type TickSequencer interface {
	NextTickID(ctx context.Context) (int64, error)
}

// Deps are the collaborators of an Engine. Tracer may be nil.
type Deps struct {
	Users      store.UserRepo
	Skills     store.SkillRepo
	States     store.StateRepo
	Challenges store.ChallengeRepo
	Ticks      TickSequencer
	Generator  challengegen.Generator
	Audit      audit.Sink
	Tracer     *tracing.Tracer
	Log        *logger.Logger
}

// Engine runs scheduling ticks. Ticks are serialized against each other.
type Engine struct {
	Deps
	cfg     Config
	running atomic.Bool
	newID   func() string
}

// NewEngine creates a scheduling engine.
func NewEngine(d Deps, cfg Config) *Engine {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	cfg.MaxUsersPerTick = max(cfg.MaxUsersPerTick, 1)
	cfg.GenerationConcurrency = max(cfg.GenerationConcurrency, 1)
	return &Engine{Deps: d, cfg: cfg, newID: uuid.NewString}
}

// Selection is a pair that received a challenge in a tick.
type Selection struct {
	UserID      string
	SkillID     string
	Difficulty  int
	Priority    float64
	ChallengeID string
}

// snapshot is everything a tick reads before deciding.
type snapshot struct {
	tickID  int64
	users   map[string]*store.User
	locs    map[string]*time.Location
	skills  map[string]*store.Skill
	states  []*store.UserSkillState
	pending map[string]bool
	today   map[string]int // challenges created since local midnight, per user
}

// candidate is an eligible pair with its ranking inputs.
type candidate struct {
	st       *store.UserSkillState
	skill    *store.Skill
	hours    float64
	priority float64
}

// outcome is the decision recorded for one pair.
type outcome struct {
	st       *store.UserSkillState
	decision store.Decision
	reason   string
	priority float64
}

// RunTick evaluates every enrolled pair at now, generates challenges for the
// highest-priority eligible pairs and records one log entry per pair.
//
// A load failure aborts the tick before anything is written. A generator or
// persist failure for one pair is logged as a skip for that pair and does
// not fail the tick.
func (e *Engine) RunTick(ctx context.Context, now time.Time) (sel []Selection, err error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrTickInProgress
	}
	defer e.running.Store(false)

	ctx, span := e.Tracer.Start(ctx, "scheduler.tick", map[string]any{"now": now.UTC().Format(time.RFC3339)})
	defer func() { span.End(map[string]any{"selected": len(sel)}, err) }()

	snap, err := e.load(ctx, now)
	if err != nil {
		e.Log.Error("tick aborted while loading state", "error", err)
		return nil, fmt.Errorf("load tick state: %w", err)
	}
	log := e.Log.With("tick_id", snap.tickID)

	var (
		skipped    []outcome
		candidates []candidate
	)
	for _, st := range snap.states {
		c, reason := e.evaluate(snap, st, now)
		if reason != "" {
			skipped = append(skipped, outcome{st: st, decision: store.DecisionSkipped, reason: reason})
			continue
		}
		candidates = append(candidates, c)
	}

	slices.SortFunc(candidates, compareCandidates)

	// Walk the ranking, taking pairs until the batch is full. Pairs of one
	// user selected earlier in this tick count toward that user's limit.
	ranked := make([]outcome, len(candidates))
	var picked []int
	selectedToday := make(map[string]int)
	for i, c := range candidates {
		o := outcome{st: c.st, priority: c.priority, decision: store.DecisionSkipped}
		user := snap.users[c.st.UserID]
		switch {
		case len(picked) >= e.cfg.MaxUsersPerTick:
			o.reason = lowerPriorityReason(i + 1)
		case snap.today[user.ID]+selectedToday[user.ID] >= user.MaxChallengesPerDay:
			o.reason = reasonDailyLimit
		default:
			o.decision, o.reason = store.DecisionSelected, reasonSelected
			selectedToday[user.ID]++
			picked = append(picked, i)
		}
		ranked[i] = o
	}

	selections := e.generate(ctx, log, candidates, picked, ranked, now)

	entries := append(skipped, ranked...)
	for _, o := range entries {
		e.Audit.Record(ctx, &store.SchedulingLogEntry{
			TickID:           snap.tickID,
			UserID:           o.st.UserID,
			SkillID:          o.st.SkillID,
			Decision:         o.decision,
			Reason:           o.reason,
			DifficultyTarget: o.st.DifficultyTarget,
			Priority:         o.priority,
			CreatedAt:        now,
		})
	}

	log.Info("tick finished",
		"evaluated", len(entries),
		"eligible", len(candidates),
		"selected", len(selections),
	)
	return selections, nil
}

// load reads the tick's inputs. It performs no writes apart from taking a
// tick id.
func (e *Engine) load(ctx context.Context, now time.Time) (*snapshot, error) {
	users, err := e.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	skills, err := e.Skills.List(ctx)
	if err != nil {
		return nil, err
	}
	states, err := e.States.List(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := e.Challenges.PendingPairs(ctx)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		users:   make(map[string]*store.User, len(users)),
		locs:    make(map[string]*time.Location, len(users)),
		skills:  make(map[string]*store.Skill, len(skills)),
		states:  states,
		pending: pending,
		today:   make(map[string]int),
	}
	for _, s := range skills {
		snap.skills[s.ID] = s
	}
	for _, u := range users {
		snap.users[u.ID] = u
		snap.locs[u.ID] = e.location(u)
	}

	enrolled := make(map[string]bool)
	for _, st := range states {
		enrolled[st.UserID] = true
	}
	for _, u := range users {
		if !enrolled[u.ID] {
			continue
		}
		n, err := e.Challenges.CountCreatedSince(ctx, u.ID, localMidnight(now, snap.locs[u.ID]))
		if err != nil {
			return nil, err
		}
		snap.today[u.ID] = n
	}

	snap.tickID, err = e.Ticks.NextTickID(ctx)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (e *Engine) location(u *store.User) *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		e.Log.Warn("unknown timezone, using UTC", "user_id", u.ID, "timezone", u.Timezone)
		return time.UTC
	}
	return loc
}

// evaluate applies the eligibility rules in order. It returns the first
// failing rule's reason, or the ranked candidate when the pair is eligible.
func (e *Engine) evaluate(snap *snapshot, st *store.UserSkillState, now time.Time) (candidate, string) {
	user, ok := snap.users[st.UserID]
	if !ok {
		return candidate{}, reasonUnknownUser
	}
	skill, ok := snap.skills[st.SkillID]
	switch {
	case !ok || !skill.Active:
		return candidate{}, reasonSkillInactive
	case st.DifficultyTarget == store.DifficultyUncalibrated:
		return candidate{}, reasonNeedsCalib
	case snap.pending[store.PairKey(st.UserID, st.SkillID)]:
		return candidate{}, reasonPending
	case inQuietHours(now.In(snap.locs[user.ID]).Hour(), user.QuietStart, user.QuietEnd):
		return candidate{}, reasonQuietHours
	case snap.today[user.ID] >= user.MaxChallengesPerDay:
		return candidate{}, reasonDailyLimit
	case st.LastChallengedAt != nil && now.Sub(*st.LastChallengedAt) < e.cfg.MinTimeBetween:
		return candidate{}, reasonTooRecent
	}

	hours := hoursSinceLast(st, now)
	return candidate{
		st:       st,
		skill:    skill,
		hours:    hours,
		priority: priority(accuracy(st), hours, e.cfg.PriorityThreshold),
	}, ""
}

// compareCandidates orders by priority desc, then hours since last desc,
// then user id and skill id asc.
func compareCandidates(a, b candidate) int {
	if c := cmp.Compare(b.priority, a.priority); c != 0 {
		return c
	}
	if c := cmp.Compare(b.hours, a.hours); c != 0 {
		return c
	}
	if c := cmp.Compare(a.st.UserID, b.st.UserID); c != 0 {
		return c
	}
	return cmp.Compare(a.st.SkillID, b.st.SkillID)
}

// generate produces and stores a challenge for every picked candidate in a
// bounded pool. A failed pair has its outcome in ranked rewritten to a skip.
// Selections are returned in rank order.
func (e *Engine) generate(ctx context.Context, log *logger.Logger, candidates []candidate, picked []int, ranked []outcome, now time.Time) []Selection {
	results := make([]*Selection, len(picked))

	var g errgroup.Group
	g.SetLimit(e.cfg.GenerationConcurrency)
	for slot, i := range picked {
		c := candidates[i]
		g.Go(func() error {
			id, err := e.generateOne(ctx, c, now)
			if err != nil {
				log.Warn("challenge not created",
					"user_id", c.st.UserID,
					"skill_id", c.st.SkillID,
					"error", err,
				)
				// Each slot is owned by exactly one goroutine.
				ranked[i].decision = store.DecisionSkipped
				ranked[i].reason = err.Error()
				return nil
			}
			results[slot] = &Selection{
				UserID:      c.st.UserID,
				SkillID:     c.st.SkillID,
				Difficulty:  c.st.DifficultyTarget,
				Priority:    c.priority,
				ChallengeID: id,
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []Selection
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func (e *Engine) generateOne(ctx context.Context, c candidate, now time.Time) (id string, err error) {
	ctx, span := e.Tracer.Start(ctx, "scheduler.generate", map[string]any{
		"user_id":    c.st.UserID,
		"skill_id":   c.st.SkillID,
		"difficulty": c.st.DifficultyTarget,
	})
	defer func() { span.End(map[string]any{"challenge_id": id}, err) }()
	defer func() {
		if p := recover(); p != nil {
			id, err = "", fmt.Errorf("generator failed: panic: %v", p)
		}
	}()

	ch, err := e.Generator.GenerateChallenge(ctx, challengegen.Input{
		SkillID:          c.skill.ID,
		SkillName:        c.skill.Name,
		SkillDescription: c.skill.Description,
		Difficulty:       c.st.DifficultyTarget,
	})
	if err != nil {
		return "", fmt.Errorf("generator failed: %w", err)
	}

	rec := &store.Challenge{
		ID:           e.newID(),
		UserID:       c.st.UserID,
		SkillID:      c.st.SkillID,
		Difficulty:   c.st.DifficultyTarget,
		Question:     ch.Question,
		Options:      ch.Options,
		CorrectIndex: ch.CorrectIndex,
		Explanation:  ch.Explanation,
		CreatedAt:    now,
	}
	if err := e.Challenges.CreateForTick(ctx, rec); err != nil {
		return "", fmt.Errorf("persist failed: %w", err)
	}
	return rec.ID, nil
}

// ExpireStaleChallenges closes challenges left unanswered longer than the
// configured TTL and marks their pairs as ignored. It returns how many were
// expired.
func (e *Engine) ExpireStaleChallenges(ctx context.Context, now time.Time) (n int, err error) {
	if e.cfg.ChallengeTTL <= 0 {
		return 0, nil
	}
	ctx, span := e.Tracer.Start(ctx, "scheduler.expire", nil)
	defer func() { span.End(map[string]any{"expired": n}, err) }()

	expired, err := e.Challenges.ExpireBefore(ctx, now.Add(-e.cfg.ChallengeTTL), now)
	if err != nil {
		return 0, fmt.Errorf("expire stale challenges: %w", err)
	}
	for _, c := range expired {
		e.Log.Info("challenge expired unanswered",
			"challenge_id", c.ID,
			"user_id", c.UserID,
			"skill_id", c.SkillID,
		)
	}
	return len(expired), nil
}
