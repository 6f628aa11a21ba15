package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillissue/internal/calibration"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Place a learner at a starting difficulty",
}

var calibrateGenerateCmd = &cobra.Command{
	Use:   "generate <skill-id>",
	Short: "Generate the skill's calibration questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		res, err := a.GenerateCalibrationQuestions(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("generate calibration questions: %w", err)
		}
		if res.Status == calibration.GenerateAlreadyExists {
			fmt.Printf("All %d calibration questions already exist for %s.\n", len(res.Questions), args[0])
			return nil
		}
		fmt.Printf("Calibration questions ready for %s (%d levels).\n", args[0], len(res.Questions))
		return nil
	},
}

var calibrateStartCmd = &cobra.Command{
	Use:   "start <user-id> <skill-id>",
	Short: "Start or resume a calibration and print its questions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		res, err := a.StartCalibration(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("start calibration: %w", err)
		}
		switch res.Status {
		case calibration.StartPending:
			fmt.Printf("Questions are not ready. Run `skillissue calibrate generate %s` first.\n", args[1])
			return nil
		case calibration.StartCompleted:
			fmt.Println("Calibration already completed.")
			return nil
		}

		for _, q := range res.Questions {
			fmt.Printf("[%d] %s\n", q.Difficulty, q.Question)
			for i, opt := range q.Options {
				fmt.Printf("    %s) %s\n", optionLetter(i), opt)
			}
			fmt.Println()
		}
		fmt.Printf("Answer with `skillissue calibrate submit %s %s <difficulty> <option>`.\n", args[0], args[1])
		return nil
	},
}

var calibrateSubmitCmd = &cobra.Command{
	Use:   "submit <user-id> <skill-id> <difficulty> <option>",
	Short: "Answer one calibration question (option A-D or 0-3)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		difficulty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid difficulty %q: %w", args[2], err)
		}
		option, err := parseOption(args[3])
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		res, err := a.SubmitCalibrationAnswer(cmd.Context(), args[0], args[1], difficulty, option)
		if err != nil {
			return fmt.Errorf("submit calibration answer: %w", err)
		}
		printVerdict(res.IsCorrect, res.CorrectOption, res.Explanation)
		fmt.Printf("Progress: %d/%d answered, %d correct.\n",
			res.Progress.Answered, res.Progress.Total, res.Progress.Correct)
		return nil
	},
}

var calibrateCompleteCmd = &cobra.Command{
	Use:   "complete <user-id> <skill-id>",
	Short: "Finish calibration and set the starting difficulty",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		res, err := a.CompleteCalibration(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("complete calibration: %w", err)
		}
		if res.Replayed {
			fmt.Printf("Calibration was already completed on %s.\n", res.CompletedAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Printf("Starting difficulty: %d (%d/%d correct, %.0f%%)\n",
			res.CalculatedDifficultyTarget, res.TotalCorrect, res.TotalAnswered, res.Accuracy*100)
		return nil
	},
}

// parseOption accepts a letter A-D or an index 0-3.
func parseOption(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		if c := strings.ToUpper(s)[0]; c >= 'A' && c <= 'D' {
			return int(c - 'A'), nil
		}
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || i > 3 {
		return 0, fmt.Errorf("invalid option %q: want A-D or 0-3", s)
	}
	return i, nil
}

func printVerdict(correct bool, correctOption int, explanation string) {
	if correct {
		fmt.Println(okStyle.Render("Correct!"))
	} else {
		fmt.Println(failStyle.Render(fmt.Sprintf("Incorrect. The answer was %s.", optionLetter(correctOption))))
	}
	if explanation != "" {
		fmt.Println(explanation)
	}
}

func init() {
	calibrateCmd.AddCommand(calibrateGenerateCmd)
	calibrateCmd.AddCommand(calibrateStartCmd)
	calibrateCmd.AddCommand(calibrateSubmitCmd)
	calibrateCmd.AddCommand(calibrateCompleteCmd)
}
