package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillissue/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage learners and their scheduling preferences",
}

var userSetCmd = &cobra.Command{
	Use:   "set <user-id>",
	Short: "Create a learner or replace their preferences",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		tz, _ := cmd.Flags().GetString("timezone")
		maxPerDay, _ := cmd.Flags().GetInt("max-per-day")

		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		if maxPerDay < 0 {
			return fmt.Errorf("--max-per-day must not be negative")
		}

		u := &store.User{ID: args[0], Timezone: tz, MaxChallengesPerDay: maxPerDay}
		for _, f := range []struct {
			name string
			dst  **int
		}{{"quiet-start", &u.QuietStart}, {"quiet-end", &u.QuietEnd}} {
			if !cmd.Flags().Changed(f.name) {
				continue
			}
			h, _ := cmd.Flags().GetInt(f.name)
			if h < 0 || h > 23 {
				return fmt.Errorf("--%s must be an hour between 0 and 23", f.name)
			}
			*f.dst = &h
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.UpsertUser(cmd.Context(), u); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		fmt.Printf("Saved user %s.\n", u.ID)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learners",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		users, err := a.Store.Users().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		if len(users) == 0 {
			fmt.Println("No users yet.")
			return nil
		}

		fmt.Printf("%-24s  %-24s  %-11s  %s\n", "ID", "Timezone", "Quiet", "Max/day")
		fmt.Println(strings.Repeat("\u2500", 72))
		for _, u := range users {
			quiet := "-"
			if u.QuietStart != nil && u.QuietEnd != nil {
				quiet = fmt.Sprintf("%02d:00-%02d:00", *u.QuietStart, *u.QuietEnd)
			}
			fmt.Printf("%-24s  %-24s  %-11s  %d\n",
				truncate(u.ID, 24), truncate(u.Timezone, 24), quiet, u.MaxChallengesPerDay)
		}
		return nil
	},
}

func init() {
	userSetCmd.Flags().String("timezone", "UTC", "IANA timezone, e.g. America/New_York")
	userSetCmd.Flags().Int("quiet-start", 0, "Local hour (0-23) when quiet hours begin")
	userSetCmd.Flags().Int("quiet-end", 0, "Local hour (0-23) when quiet hours end")
	userSetCmd.Flags().Int("max-per-day", 3, "Maximum challenges per local day (0 pauses the learner)")

	userCmd.AddCommand(userSetCmd)
	userCmd.AddCommand(userListCmd)
}
