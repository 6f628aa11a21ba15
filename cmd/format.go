package cmd

import (
	"fmt"
	"math"
	"time"
)

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

// formatPriority prints never-challenged priorities as "new" instead of
// a 309-digit number.
func formatPriority(p float64) string {
	if p >= math.MaxFloat64/2 {
		return "new"
	}
	return fmt.Sprintf("%.1f", p)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func optionLetter(i int) string {
	return string(rune('A' + i))
}
