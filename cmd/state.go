package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillissue/internal/store"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show mastery state per learner and skill",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		userID, _ := cmd.Flags().GetString("user")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		states, err := a.Store.States().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list states: %w", err)
		}

		var (
			rows         [][]string
			uncalibrated []bool
		)
		for _, st := range states {
			if userID != "" && st.UserID != userID {
				continue
			}
			difficulty := fmt.Sprint(st.DifficultyTarget)
			if st.DifficultyTarget == store.DifficultyUncalibrated {
				difficulty = "uncalibrated"
			}
			accuracy := "-"
			if st.AttemptsTotal > 0 {
				accuracy = fmt.Sprintf("%.0f%%", st.Accuracy()*100)
			}
			last := string(st.LastResult)
			if last == "" {
				last = "-"
			}
			rows = append(rows, []string{
				st.UserID,
				st.SkillID,
				difficulty,
				fmt.Sprintf("%d/%d", st.CorrectTotal, st.AttemptsTotal),
				accuracy,
				fmt.Sprintf("+%d / -%d", st.StreakCorrect, st.StreakIncorrect),
				last,
				formatTime(st.LastChallengedAt),
			})
			uncalibrated = append(uncalibrated, st.DifficultyTarget == store.DifficultyUncalibrated)
		}

		if len(rows) == 0 {
			fmt.Println("No enrollments found.")
			return nil
		}

		t := newTable(
			[]string{"User", "Skill", "Difficulty", "Correct", "Accuracy", "Streak", "Last", "Last challenged"},
			rows,
			func(row int) bool { return row >= 0 && row < len(uncalibrated) && uncalibrated[row] },
		)
		fmt.Println(t.Render())
		return nil
	},
}

func init() {
	stateCmd.Flags().StringP("user", "u", "", "Only show this learner")
}
