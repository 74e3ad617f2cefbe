package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

var ErrEmptyRosterPath = errors.New("error getting CW_ROSTER_PATH: variable not specified or contains an empty string")

type Config struct {
	Env         string // Env is the current environment: local, dev, prod.
	StoragePath string // StoragePath is the sqlite database file location.
	RosterPath  string // RosterPath points to the competitors YAML roster.
	Channel     string // Channel selects the delivery transport: slack or telegram.
	Slack       Slack
	Tg          Telegram
	LLM         LLM
	Diff        Diff
	Schedule    Schedule
}

type Slack struct {
	WebhookURL string        // WebhookURL is the Slack incoming webhook endpoint.
	Timeout    time.Duration // Timeout bounds one webhook POST.
}

type Telegram struct {
	Token  string        // Token is an unique telegram bot token.
	ChatID int64         // ChatID is the destination chat for alerts.
	Poller time.Duration // Poller is a poller timeout duration.
}

type LLM struct {
	APIKey  string        // APIKey is the Anthropic API key; empty disables the reasoning collaborator.
	Model   string        // Model is the Anthropic model name.
	Timeout time.Duration // Timeout bounds one collaborator call.
}

type Diff struct {
	MinorEditThreshold float64 // MinorEditThreshold is the noise-filter fraction, 0..1.
	SemanticBar        float64 // SemanticBar is the fraction below which semantic refinement is consulted.
}

type Schedule struct {
	CheckInterval  time.Duration // CheckInterval is how often due assets are looked up.
	MaxConcurrent  int64         // MaxConcurrent bounds parallel per-asset pipeline runs.
	DailyDigestAt  string        // DailyDigestAt is the daily flush wall-clock time, HH:MM.
	WeeklyDigestAt string        // WeeklyDigestAt is the weekly flush wall-clock time, HH:MM.
	WeeklyDay      time.Weekday  // WeeklyDay is the weekday of the weekly flush.
}

// MustLoad loads the configuration from environment variables and returns a Config struct.
func MustLoad() *Config {
	// Automatically binds environment variables to config keys
	viper.SetEnvPrefix("CW")
	viper.AutomaticEnv()

	// optional args
	viper.SetDefault("ENV", "production")
	viper.SetDefault("STORAGE_PATH", "watchdog.db")
	viper.SetDefault("CHANNEL", "slack")
	viper.SetDefault("SLACK_TIMEOUT", "10s")
	viper.SetDefault("TELEGRAM_POLLER", "15s")
	viper.SetDefault("LLM_MODEL", "claude-sonnet-4-5-20250929")
	viper.SetDefault("LLM_TIMEOUT", "30s")
	viper.SetDefault("DIFF_MINOR_EDIT_THRESHOLD", 0.05)
	viper.SetDefault("DIFF_SEMANTIC_BAR", 0.30)
	viper.SetDefault("CHECK_INTERVAL", "5m")
	viper.SetDefault("MAX_CONCURRENT_ASSETS", 4)
	viper.SetDefault("DAILY_DIGEST_AT", "09:00")
	viper.SetDefault("WEEKLY_DIGEST_AT", "09:00")

	if viper.GetString("ROSTER_PATH") == "" {
		panic(ErrEmptyRosterPath)
	}

	return &Config{
		Env:         viper.GetString("ENV"),
		StoragePath: viper.GetString("STORAGE_PATH"),
		RosterPath:  viper.GetString("ROSTER_PATH"),
		Channel:     viper.GetString("CHANNEL"),
		Slack: Slack{
			WebhookURL: viper.GetString("SLACK_WEBHOOK_URL"),
			Timeout:    viper.GetDuration("SLACK_TIMEOUT"),
		},
		Tg: Telegram{
			Token:  viper.GetString("TELEGRAM_TOKEN"),
			ChatID: viper.GetInt64("TELEGRAM_CHAT_ID"),
			Poller: viper.GetDuration("TELEGRAM_POLLER"),
		},
		LLM: LLM{
			APIKey:  viper.GetString("LLM_API_KEY"),
			Model:   viper.GetString("LLM_MODEL"),
			Timeout: viper.GetDuration("LLM_TIMEOUT"),
		},
		Diff: Diff{
			MinorEditThreshold: viper.GetFloat64("DIFF_MINOR_EDIT_THRESHOLD"),
			SemanticBar:        viper.GetFloat64("DIFF_SEMANTIC_BAR"),
		},
		Schedule: Schedule{
			CheckInterval:  viper.GetDuration("CHECK_INTERVAL"),
			MaxConcurrent:  viper.GetInt64("MAX_CONCURRENT_ASSETS"),
			DailyDigestAt:  viper.GetString("DAILY_DIGEST_AT"),
			WeeklyDigestAt: viper.GetString("WEEKLY_DIGEST_AT"),
			WeeklyDay:      time.Monday,
		},
	}
}
