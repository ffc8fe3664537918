// Package config provides centralized configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration parameters for the application.
type Config struct {
	GitHub  GitHubConfig
	Jira    JiraConfig
	Matcher MatcherConfig
	Log     LogConfig
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token  string
	Domain string
	// Owner is the user or organization that bare repository names belong to.
	Owner string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
	// DevStatusApplication is the applicationType passed to the dev-status API.
	DevStatusApplication string
	// DevelopmentField is the custom field holding the development summary.
	DevelopmentField string
}

// MatcherConfig holds correlation engine settings.
type MatcherConfig struct {
	CacheTTL time.Duration
	States   []string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	File  string
}

// LoadConfig loads configuration from environment variables and, when present,
// a prlink.yaml file in the working directory or $HOME/.prlink.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile is LoadConfig with an explicit configuration file. An empty
// path searches the default locations.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("github.domain", "github.com")
	v.SetDefault("jira.dev_status_application", "GitHub")
	v.SetDefault("jira.development_field", "customfield_10000")
	v.SetDefault("matcher.cache_ttl", "10m")
	v.SetDefault("matcher.states", "OPEN,MERGED")
	v.SetDefault("log.level", "info")

	// Map specific environment variables
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("github.owner", "GITHUB_OWNER")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("jira.dev_status_application", "JIRA_DEV_STATUS_APPLICATION")
	v.BindEnv("jira.development_field", "JIRA_DEVELOPMENT_FIELD")
	v.BindEnv("matcher.cache_ttl", "PRLINK_CACHE_TTL")
	v.BindEnv("matcher.states", "PRLINK_STATES")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.file", "LOG_FILE")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("prlink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.prlink")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	ttl, err := time.ParseDuration(v.GetString("matcher.cache_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid matcher.cache_ttl: %w", err)
	}

	domain := v.GetString("github.domain")
	if domain == "" {
		domain = "github.com"
	}

	config := &Config{
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: domain,
			Owner:  v.GetString("github.owner"),
		},
		Jira: JiraConfig{
			URL:                  v.GetString("jira.url"),
			Username:             v.GetString("jira.username"),
			Token:                v.GetString("jira.token"),
			DevStatusApplication: v.GetString("jira.dev_status_application"),
			DevelopmentField:     v.GetString("jira.development_field"),
		},
		Matcher: MatcherConfig{
			CacheTTL: ttl,
			States:   parseStates(v.GetStringSlice("matcher.states")),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}

	return config, nil
}

// parseStates accepts both list values and comma separated strings and
// normalizes states to upper case.
func parseStates(raw []string) []string {
	var states []string
	for _, item := range raw {
		for _, state := range strings.Split(item, ",") {
			state = strings.ToUpper(strings.TrimSpace(state))
			if state != "" {
				states = append(states, state)
			}
		}
	}
	return states
}

// ValidateGitHubConfig validates GitHub-specific configuration.
func ValidateGitHubConfig(config *Config) error {
	var missingVars []string

	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}
	if config.GitHub.Owner == "" {
		missingVars = append(missingVars, "GITHUB_OWNER")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	// JIRA validation
	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}
