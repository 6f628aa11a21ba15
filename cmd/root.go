package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillissue/internal/app"
	"github.com/abhisek/skillissue/internal/config"
	"github.com/abhisek/skillissue/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "skillissue",
	Short: "Adaptive micro-challenge scheduler",
	Long: "skillissue decides which learner gets a practice challenge on which skill, " +
		"at what difficulty, and adapts that difficulty as answers come in.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides SKILLISSUE_DB env var)")
	rootCmd.PersistentFlags().String("log-mode", "", "Log mode: dev or prod (overrides SKILLISSUE_LOG_MODE env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tickCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(challengeCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment, then applies --db and --log-mode, which
// take priority over SKILLISSUE_DB and SKILLISSUE_LOG_MODE.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if m, _ := cmd.Flags().GetString("log-mode"); m != "" {
		cfg.LogMode = m
	}
	return cfg, nil
}

// openApp builds the application for one command. The caller must Close it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open app: %w", err)
	}
	return a, nil
}

// closeApp closes a and folds its error into err.
func closeApp(a *app.App, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close: %w", cerr)
	}
	a.Log.Sync()
}
