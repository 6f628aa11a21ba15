package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var userColumns = []string{"id", "timezone", "quiet_start", "quiet_end", "max_challenges_per_day", "created_at"}

// userRepo implements UserRepo.
type userRepo struct {
	db *sql.DB
}

func (r *userRepo) Upsert(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	query, args := builder.Insert(tableUsers).
		Columns(userColumns...).
		Values(u.ID, u.Timezone, nullableInt(u.QuietStart), nullableInt(u.QuietEnd), u.MaxChallengesPerDay, toMillis(u.CreatedAt)).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(s *entsql.UpdateSet) {
				s.SetExcluded("timezone")
				s.SetExcluded("quiet_start")
				s.SetExcluded("quiet_end")
				s.SetExcluded("max_challenges_per_day")
			}),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("upsert user", err)
	}
	return nil
}

func (r *userRepo) Get(ctx context.Context, id string) (*User, error) {
	query, args := builder.Select(userColumns...).
		From(builder.Table(tableUsers)).
		Where(entsql.EQ("id", id)).
		Query()
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get user", err)
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context) ([]*User, error) {
	query, args := builder.Select(userColumns...).
		From(builder.Table(tableUsers)).
		OrderBy("id").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list users", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap("scan user", err)
		}
		out = append(out, u)
	}
	return out, wrap("list users", rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u                   User
		quietStart, quietTo sql.NullInt64
		created             int64
	)
	if err := row.Scan(&u.ID, &u.Timezone, &quietStart, &quietTo, &u.MaxChallengesPerDay, &created); err != nil {
		return nil, err
	}
	u.QuietStart = intPtr(quietStart)
	u.QuietEnd = intPtr(quietTo)
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

var skillColumns = []string{"id", "name", "description", "active"}

// skillRepo implements SkillRepo.
type skillRepo struct {
	db *sql.DB
}

func (r *skillRepo) Create(ctx context.Context, s *Skill) error {
	query, args := builder.Insert(tableSkills).
		Columns(skillColumns...).
		Values(s.ID, s.Name, s.Description, boolInt(s.Active)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("create skill", err)
	}
	return nil
}

func (r *skillRepo) Get(ctx context.Context, id string) (*Skill, error) {
	query, args := builder.Select(skillColumns...).
		From(builder.Table(tableSkills)).
		Where(entsql.EQ("id", id)).
		Query()
	s, err := scanSkill(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get skill", err)
	}
	return s, nil
}

func (r *skillRepo) List(ctx context.Context) ([]*Skill, error) {
	query, args := builder.Select(skillColumns...).
		From(builder.Table(tableSkills)).
		OrderBy("id").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list skills", err)
	}
	defer rows.Close()

	var out []*Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, wrap("scan skill", err)
		}
		out = append(out, s)
	}
	return out, wrap("list skills", rows.Err())
}

func (r *skillRepo) SetActive(ctx context.Context, id string, active bool) error {
	query, args := builder.Update(tableSkills).
		Set("active", boolInt(active)).
		Where(entsql.EQ("id", id)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap("set skill active", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("skill %q: %w", id, ErrNotFound)
	}
	return nil
}

func scanSkill(row rowScanner) (*Skill, error) {
	var (
		s      Skill
		active int
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &active); err != nil {
		return nil, err
	}
	s.Active = active != 0
	return &s, nil
}
