package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"calendar-service/internal/app"
	"calendar-service/internal/config"
	"calendar-service/internal/email"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the calendar HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		var mailer *email.Client
		if config.Cfg.Email.Host != "" {
			mailer = email.NewClient(config.Cfg.Email)
		} else {
			slog.Warn("SMTP host not configured, invitation emails disabled")
		}

		if err := app.ServerMain(provider, mailer); err != nil {
			slog.Error("Server exited", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
