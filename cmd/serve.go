package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VrtlyJoe/bug-cutter-frontend/internal/atlassian"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/config"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/logging"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/notify"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/server"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/service"
)

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Bug Cutter HTTP API",
	Long: `Start the HTTP API serving the bug form: OAuth login, form options,
bug submission with attachments and sub-tasks, and issue search.

Required environment variables: JIRA_CLIENT_ID, JIRA_CLIENT_SECRET,
JIRA_REDIRECT_URI. Slack notifications activate when SLACK_BOT_TOKEN and
SLACK_CHANNEL_ID are both set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := config.ValidateOAuthConfig(cfg); err != nil {
			return err
		}

		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return err
		}
		if port != 0 {
			cfg.Server.Port = port
		}

		resolver := atlassian.NewResolver(cfg.Jira.APIBaseURL)
		svc := service.New(resolver, service.JiraTrackerFactory(cfg.Jira.APIBaseURL, cfg.Jira.ProjectKey))
		notifier := notify.NewNotifier(cfg.Slack.BotToken, cfg.Slack.ChannelID, cfg.Jira.SiteURL)
		srv := server.New(cfg, svc, notifier)

		logging.Info("starting bug cutter api",
			"port", cfg.Server.Port,
			"project", cfg.Jira.ProjectKey,
			"slack_configured", cfg.Slack.BotToken != "" && cfg.Slack.ChannelID != "")

		return srv.Run(fmt.Sprintf(":%d", cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides PORT)")
}
