// Package audit delivers scheduling decisions to the append-only log.
// Delivery is fire-and-forget: a failed write is logged and dropped, never
// returned to the scheduler.
package audit

import (
	"context"

	"github.com/abhisek/skillissue/internal/logger"
	"github.com/abhisek/skillissue/internal/store"
)

// Sink receives scheduling log entries.
type Sink interface {
	Record(ctx context.Context, e *store.SchedulingLogEntry)
}

// Direct writes each entry synchronously.
type Direct struct {
	repo store.AuditRepo
	log  *logger.Logger
}

// NewDirect creates a Sink that appends straight to repo.
func NewDirect(repo store.AuditRepo, log *logger.Logger) *Direct {
	if log == nil {
		log = logger.Nop()
	}
	return &Direct{repo: repo, log: log}
}

// Record appends e. The write is not cancelled with ctx so an entry for a
// decision already taken is not lost to a caller's deadline.
func (d *Direct) Record(ctx context.Context, e *store.SchedulingLogEntry) {
	if err := d.repo.Append(context.WithoutCancel(ctx), e); err != nil {
		d.log.Warn("audit write failed",
			"tick_id", e.TickID,
			"user_id", e.UserID,
			"skill_id", e.SkillID,
			"decision", string(e.Decision),
			"error", err,
		)
	}
}
