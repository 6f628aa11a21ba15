package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillissue/internal/store"
)

var answerCmd = &cobra.Command{
	Use:   "answer <challenge-id> <user-id> <option>",
	Short: "Answer a scheduled challenge (option A-D or 0-3)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		responseMs, _ := cmd.Flags().GetInt("response-ms")
		option, err := parseOption(args[2])
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		res, err := a.SubmitChallengeAnswer(cmd.Context(), args[0], args[1], option, responseMs)
		if err != nil {
			return fmt.Errorf("submit answer: %w", err)
		}
		printVerdict(res.IsCorrect, res.CorrectOption, res.Explanation)
		fmt.Printf("Next difficulty for %s: %d (streak +%d / -%d)\n",
			res.State.SkillID, res.State.DifficultyTarget, res.State.StreakCorrect, res.State.StreakIncorrect)
		if res.State.DifficultyTarget == store.MaxDifficulty && res.IsCorrect {
			fmt.Println("Top difficulty reached.")
		}
		return nil
	},
}

func init() {
	answerCmd.Flags().Int("response-ms", 0, "How long the learner took to answer, in milliseconds")
}
