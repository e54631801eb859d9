// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Tracker backend names accepted by TRIAGE_TRACKER and the --tracker flag.
const (
	TrackerJira   = "jira"
	TrackerGitHub = "github"
	TrackerTrello = "trello"
)

// Config holds all configuration parameters for the application.
type Config struct {
	LLM    LLMConfig
	Jira   JiraConfig
	GitHub GitHubConfig
	Trello TrelloConfig

	// Tracker is the default tracker backend (jira, github, or trello)
	Tracker string
}

// LLMConfig holds language-model gateway configuration.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token  string
	Domain string
}

// TrelloConfig holds Trello specific configuration.
type TrelloConfig struct {
	APIKey string
	Token  string
}

// LoadConfig initializes and loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Initialize Viper for environment variables
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	v.BindEnv("llm.apikey", "OPENAI_API_KEY")
	v.BindEnv("llm.baseurl", "OPENAI_BASE_URL")
	v.BindEnv("llm.model", "TRIAGE_MODEL")
	v.BindEnv("tracker", "TRIAGE_TRACKER")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("trello.apikey", "TRELLO_API_KEY")
	v.BindEnv("trello.token", "TRELLO_TOKEN")

	config := &Config{
		LLM: LLMConfig{
			APIKey:  v.GetString("llm.apikey"),
			BaseURL: v.GetString("llm.baseurl"),
			Model:   v.GetString("llm.model"),
		},
		Jira: JiraConfig{
			URL:      v.GetString("jira.url"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
		},
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		Trello: TrelloConfig{
			APIKey: v.GetString("trello.apikey"),
			Token:  v.GetString("trello.token"),
		},
		Tracker: v.GetString("tracker"),
	}

	if config.Tracker == "" {
		config.Tracker = TrackerJira
	}

	return config, nil
}

// ValidateLLMConfig ensures the language-model credentials are present.
func ValidateLLMConfig(config *Config) error {
	if config.LLM.APIKey == "" {
		return fmt.Errorf("missing required environment variables: [OPENAI_API_KEY]")
	}
	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

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

// ValidateGitHubConfig validates GitHub-specific configuration.
func ValidateGitHubConfig(config *Config) error {
	if config.GitHub.Token == "" {
		return fmt.Errorf("missing required environment variables: [GITHUB_TOKEN]")
	}
	return nil
}

// ValidateTrelloConfig validates Trello-specific configuration.
func ValidateTrelloConfig(config *Config) error {
	var missingVars []string

	if config.Trello.APIKey == "" {
		missingVars = append(missingVars, "TRELLO_API_KEY")
	}
	if config.Trello.Token == "" {
		missingVars = append(missingVars, "TRELLO_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}

// ValidateTrackerConfig validates the configuration of the named tracker backend.
func ValidateTrackerConfig(config *Config, tracker string) error {
	switch tracker {
	case TrackerJira:
		return ValidateJiraConfig(config)
	case TrackerGitHub:
		return ValidateGitHubConfig(config)
	case TrackerTrello:
		return ValidateTrelloConfig(config)
	default:
		return fmt.Errorf("unknown tracker backend: %q (want jira, github, or trello)", tracker)
	}
}
