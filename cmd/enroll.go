package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillissue/internal/store"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <user-id> <skill-id>",
	Short: "Enroll a learner in a skill",
	Long: "Enroll a learner in a skill. Without --difficulty the learner starts " +
		"uncalibrated and is not scheduled until calibration completes.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		seed, _ := cmd.Flags().GetInt("difficulty")
		if seed != store.DifficultyUncalibrated && (seed < store.MinDifficulty || seed > store.MaxDifficulty) {
			return fmt.Errorf("--difficulty must be 0 or between %d and %d", store.MinDifficulty, store.MaxDifficulty)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		st, err := a.Enroll(cmd.Context(), args[0], args[1], seed)
		if err != nil {
			return fmt.Errorf("enroll: %w", err)
		}
		if st.DifficultyTarget == store.DifficultyUncalibrated {
			fmt.Printf("Enrolled %s in %s. Run `skillissue calibrate start %s %s` next.\n",
				st.UserID, st.SkillID, st.UserID, st.SkillID)
			return nil
		}
		fmt.Printf("Enrolled %s in %s at difficulty %d.\n", st.UserID, st.SkillID, st.DifficultyTarget)
		return nil
	},
}

func init() {
	enrollCmd.Flags().Int("difficulty", 0, "Starting difficulty 1-10, skipping calibration")
}
