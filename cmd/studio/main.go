// Command studio runs the tattoo studio backend: the appointment chat, the
// artist SMS notifications, admin login and the portfolio image store.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:   "studio",
		Short: "Jay's Tattoos studio backend",
		Long: `studio serves the booking chat, texts the artist about new, changed and
canceled appointments, and manages the portfolio gallery behind an admin login.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadDotEnv()
			if logLevel == "" {
				logLevel = os.Getenv("LOG_LEVEL")
			}
			initializeLogger(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	root.AddCommand(newServeCmd(), newChatCmd(), newHashPasswordCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
