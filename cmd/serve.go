package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduling ticks on an interval until interrupted",
	Long: "Run scheduling ticks on an interval until SIGINT or SIGTERM. " +
		"SIGUSR1 requests an extra tick. Queued audit entries are drained before exit.",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := a.Runner()

		usr1 := make(chan os.Signal, 1)
		signal.Notify(usr1, syscall.SIGUSR1)
		defer signal.Stop(usr1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-usr1:
					if !runner.Trigger() {
						a.Log.Debug("tick already requested")
					}
				}
			}
		}()

		return runner.Run(ctx)
	},
}
