// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration parameters for the application.
type Config struct {
	Server ServerConfig
	Jira   JiraConfig
	Slack  SlackConfig
}

// ServerConfig holds HTTP server specific configuration.
type ServerConfig struct {
	Port        int
	FrontendURL string
}

// JiraConfig holds Jira Cloud specific configuration.
type JiraConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	ProjectKey   string
	SiteURL      string
	APIBaseURL   string
}

// SlackConfig holds the notification destination. Both values are optional;
// when either is missing, notifications are disabled.
type SlackConfig struct {
	BotToken  string
	ChannelID string
}

// LoadConfig initializes and loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	v.BindEnv("port", "PORT")
	v.BindEnv("frontend.url", "FRONTEND_URL")
	v.BindEnv("jira.client.id", "JIRA_CLIENT_ID")
	v.BindEnv("jira.client.secret", "JIRA_CLIENT_SECRET")
	v.BindEnv("jira.redirect.uri", "JIRA_REDIRECT_URI")
	v.BindEnv("jira.project.key", "JIRA_PROJECT_KEY")
	v.BindEnv("jira.site.url", "JIRA_SITE_URL")
	v.BindEnv("atlassian.api.url", "ATLASSIAN_API_URL")
	v.BindEnv("slack.bot.token", "SLACK_BOT_TOKEN")
	v.BindEnv("slack.channel.id", "SLACK_CHANNEL_ID")

	v.SetDefault("port", 8000)
	v.SetDefault("frontend.url", "https://bug-cutter-frontend.streamlit.app")
	v.SetDefault("jira.project.key", "VT")
	v.SetDefault("jira.site.url", "https://vrtlyai.atlassian.net")
	v.SetDefault("atlassian.api.url", "https://api.atlassian.com")

	config := &Config{
		Server: ServerConfig{
			Port:        v.GetInt("port"),
			FrontendURL: v.GetString("frontend.url"),
		},
		Jira: JiraConfig{
			ClientID:     v.GetString("jira.client.id"),
			ClientSecret: v.GetString("jira.client.secret"),
			RedirectURI:  v.GetString("jira.redirect.uri"),
			ProjectKey:   v.GetString("jira.project.key"),
			SiteURL:      strings.TrimSuffix(v.GetString("jira.site.url"), "/"),
			APIBaseURL:   strings.TrimSuffix(v.GetString("atlassian.api.url"), "/"),
		},
		Slack: SlackConfig{
			BotToken:  v.GetString("slack.bot.token"),
			ChannelID: v.GetString("slack.channel.id"),
		},
	}

	return config, nil
}

// ValidateOAuthConfig ensures the OAuth client settings required to serve the
// authorization flow are present.
func ValidateOAuthConfig(config *Config) error {
	var missingVars []string

	if config.Jira.ClientID == "" {
		missingVars = append(missingVars, "JIRA_CLIENT_ID")
	}
	if config.Jira.ClientSecret == "" {
		missingVars = append(missingVars, "JIRA_CLIENT_SECRET")
	}
	if config.Jira.RedirectURI == "" {
		missingVars = append(missingVars, "JIRA_REDIRECT_URI")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}
