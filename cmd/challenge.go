package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Inspect scheduled challenges",
}

var challengeShowCmd = &cobra.Command{
	Use:   "show <challenge-id>",
	Short: "Print a challenge's question and options",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.Store.Challenges().Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get challenge: %w", err)
		}

		status := "pending"
		switch {
		case c.AnsweredAt != nil:
			status = "answered " + formatTime(c.AnsweredAt)
		case c.ExpiredAt != nil:
			status = "expired " + formatTime(c.ExpiredAt)
		}

		fmt.Printf("ID:         %s\n", c.ID)
		fmt.Printf("Learner:    %s\n", c.UserID)
		fmt.Printf("Skill:      %s\n", c.SkillID)
		fmt.Printf("Difficulty: %d\n", c.Difficulty)
		fmt.Printf("Created:    %s\n", formatTime(&c.CreatedAt))
		fmt.Printf("Status:     %s\n", status)
		fmt.Println()
		fmt.Println(c.Question)
		for i, opt := range c.Options {
			fmt.Printf("  %s) %s\n", optionLetter(i), opt)
		}
		return nil
	},
}

func init() {
	challengeCmd.AddCommand(challengeShowCmd)
}
