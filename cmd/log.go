package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillissue/internal/store"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show scheduling decisions, newest first",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")
		tickID, _ := cmd.Flags().GetInt64("tick")
		userID, _ := cmd.Flags().GetString("user")
		since, _ := cmd.Flags().GetDuration("since")

		opts := store.QueryOpts{Limit: limit, TickID: tickID, UserID: userID}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		entries, err := a.Store.AuditLog().Query(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query scheduling log: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No scheduling decisions found.")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		skipped := make([]bool, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				fmt.Sprint(e.TickID),
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.UserID,
				e.SkillID,
				string(e.Decision),
				e.Reason,
				fmt.Sprint(e.DifficultyTarget),
				formatPriority(e.Priority),
			})
			skipped = append(skipped, e.Decision == store.DecisionSkipped)
		}

		t := newTable(
			[]string{"Tick", "Time", "User", "Skill", "Decision", "Reason", "Diff", "Priority"},
			rows,
			func(row int) bool { return row >= 0 && row < len(skipped) && skipped[row] },
		)
		fmt.Println(t.Render())
		return nil
	},
}

func init() {
	logCmd.Flags().IntP("limit", "n", 50, "Number of entries to show")
	logCmd.Flags().Int64("tick", 0, "Only entries from this tick")
	logCmd.Flags().StringP("user", "u", "", "Only entries for this learner")
	logCmd.Flags().Duration("since", 0, "Only entries newer than this, e.g. 24h")
}
