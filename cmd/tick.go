package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one scheduling tick now",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		expire, _ := cmd.Flags().GetBool("expire")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		ctx := cmd.Context()
		now := time.Now().UTC()

		if expire {
			n, err := a.ExpireStaleChallenges(ctx, now)
			if err != nil {
				return fmt.Errorf("expire stale challenges: %w", err)
			}
			if n > 0 {
				fmt.Printf("Expired %d stale challenge(s).\n", n)
			}
		}

		selections, err := a.RunTick(ctx, now)
		if err != nil {
			return fmt.Errorf("run tick: %w", err)
		}
		if len(selections) == 0 {
			fmt.Println("No challenges scheduled. See `skillissue log` for reasons.")
			return nil
		}

		fmt.Printf("%-20s  %-20s  %4s  %10s  %s\n",
			"User", "Skill", "Diff", "Priority", "Challenge")
		fmt.Println(strings.Repeat("\u2500", 96))
		for _, s := range selections {
			fmt.Printf("%-20s  %-20s  %4d  %10s  %s\n",
				truncate(s.UserID, 20), truncate(s.SkillID, 20), s.Difficulty, formatPriority(s.Priority), s.ChallengeID)
		}
		return nil
	},
}

func init() {
	tickCmd.Flags().Bool("expire", true, "Expire stale challenges before the tick")
}
