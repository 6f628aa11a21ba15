package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillissue/internal/store"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage skills",
}

var skillAddCmd = &cobra.Command{
	Use:   "add <skill-id> <name>",
	Short: "Add a skill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		desc, _ := cmd.Flags().GetString("description")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		s := &store.Skill{ID: args[0], Name: args[1], Description: desc, Active: true}
		if err := a.Store.Skills().Create(cmd.Context(), s); err != nil {
			return fmt.Errorf("add skill: %w", err)
		}
		fmt.Printf("Added skill %s.\n", s.ID)
		return nil
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all skills",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		skills, err := a.Store.Skills().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list skills: %w", err)
		}

		// Header.
		fmt.Printf("%-24s  %-30s  %-6s  %s\n", "ID", "Name", "Active", "Description")
		fmt.Println(strings.Repeat("\u2500", 100))

		for _, s := range skills {
			name := s.Name
			if len(name) > 30 {
				name = name[:27] + "..."
			}
			active := "yes"
			if !s.Active {
				active = "no"
			}
			fmt.Printf("%-24s  %-30s  %-6s  %s\n",
				truncate(s.ID, 24), name, active, truncate(s.Description, 34))
		}

		fmt.Printf("\n%d skills\n", len(skills))
		return nil
	},
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <skill-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			if err := a.Store.Skills().SetActive(cmd.Context(), args[0], active); err != nil {
				return fmt.Errorf("%s skill: %w", use, err)
			}
			fmt.Printf("Skill %s %sd.\n", args[0], use)
			return nil
		},
	}
}

func init() {
	skillAddCmd.Flags().StringP("description", "d", "", "Context passed to the challenge generator")

	skillCmd.AddCommand(skillAddCmd)
	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(setActiveCmd("deactivate", "Stop scheduling challenges for a skill", false))
	skillCmd.AddCommand(setActiveCmd("activate", "Resume scheduling challenges for a skill", true))
}
