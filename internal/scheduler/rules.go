package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/abhisek/skillissue/internal/store"
)

// Skip reasons recorded in the scheduling log.
const (
	reasonUnknownUser   = "unknown user"
	reasonSkillInactive = "skill inactive"
	reasonNeedsCalib    = "needs calibration"
	reasonPending       = "pending challenge exists"
	reasonQuietHours    = "quiet hours"
	reasonDailyLimit    = "daily limit reached"
	reasonTooRecent     = "too recent"
	reasonSelected      = "selected"
)

func lowerPriorityReason(rank int) string {
	return fmt.Sprintf("lower priority (rank %d)", rank)
}

// neverChallenged is the hoursSinceLast value for a pair that has never
// received a challenge. It outranks any real elapsed time.
const neverChallenged = math.MaxFloat64

// inQuietHours reports whether hour falls in [start, end). The window wraps
// midnight when start > end and is empty when start == end or either bound
// is unset.
func inQuietHours(hour int, start, end *int) bool {
	if start == nil || end == nil || *start == *end {
		return false
	}
	s, e := *start, *end
	if s < e {
		return hour >= s && hour < e
	}
	return hour >= s || hour < e
}

// accuracy is correct/attempts, or 1 for a pair with no attempts so new
// learners never outrank strugglers.
func accuracy(st *store.UserSkillState) float64 {
	if st.AttemptsTotal == 0 {
		return 1
	}
	return st.Accuracy()
}

func hoursSinceLast(st *store.UserSkillState, now time.Time) float64 {
	if st.LastChallengedAt == nil {
		return neverChallenged
	}
	return now.Sub(*st.LastChallengedAt).Hours()
}

// priority ranks an eligible pair. Pairs below the accuracy threshold get a
// bonus proportional to the deficit on top of the time since their last
// challenge.
func priority(acc, hours, threshold float64) float64 {
	if acc < threshold {
		return (threshold-acc)*100 + hours
	}
	return hours
}

// localMidnight returns the start of now's day in loc.
func localMidnight(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
