// Package core contains the bot's behaviour: command routing, helper
// output formatting, the timer queue, the session controller and the
// main-loop scheduler, plus configuration and localization.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valter-silva-au/dmb/pkg/models"
)

// Default file names used when dmb.yaml does not override them.
const (
	DefaultConfigName   = "dmb"
	DefaultHelpersFile  = "helpers.yaml"
	DefaultEventsFile   = ".dmb_events.jsonl"
	DefaultQueueFile    = "word_of_the_day_next.txt"
	DefaultDoneFile     = "word_of_the_day_done.txt"
	DefaultHelperWait   = 60 * time.Second
	DefaultPollInterval = 5 * time.Minute
	DefaultAlertWindow  = time.Hour
)

// ConfigLoader loads and validates the bot's tunable settings.
type ConfigLoader interface {
	Load() (*models.BotConfig, error)
	Validate(cfg *models.BotConfig) error
}

// viperConfigLoader reads dmb.yaml with Viper. Every key can be overridden
// from the environment with a DMB_ prefix, e.g. DMB_LINE_BUDGET or
// DMB_TIMERS_MAX_DELAY.
type viperConfigLoader struct {
	// basePath is the directory searched for dmb.yaml when file is empty.
	basePath string
	// file is an explicit configuration file, which must exist.
	file string
}

// NewConfigLoader creates a loader that searches basePath for dmb.yaml.
func NewConfigLoader(basePath string) ConfigLoader {
	return &viperConfigLoader{basePath: basePath}
}

// NewConfigFileLoader creates a loader for an explicit configuration file.
func NewConfigFileLoader(file string) ConfigLoader {
	return &viperConfigLoader{file: file}
}

// DefaultBotConfig returns the settings used when nothing is configured.
func DefaultBotConfig() *models.BotConfig {
	return &models.BotConfig{
		LineBudget:    DefaultLineBudget,
		MaxLines:      DefaultMaxLines,
		TickInterval:  DefaultTickInterval,
		HelperTimeout: DefaultHelperWait,
		PollInterval:  DefaultPollInterval,
		HelpersFile:   DefaultHelpersFile,
		EventsFile:    DefaultEventsFile,
		Timers: models.TimerLimits{
			MaxEntries: DefaultMaxTimers,
			MaxDelay:   DefaultMaxTimerWait,
		},
		WordOfTheDay: models.WordOfTheDayConfig{
			Enabled:   true,
			QueueFile: DefaultQueueFile,
			DoneFile:  DefaultDoneFile,
			Marker:    DefaultTopicMarker,
		},
		Alerts: models.AlertConfig{
			Enabled:            true,
			Window:             DefaultAlertWindow,
			MaxHelperFailures:  5,
			MaxDispatchErrors:  3,
			MaxTimerRejections: 20,
		},
	}
}

// Load reads the configuration file, if any, over the defaults.
func (l *viperConfigLoader) Load() (*models.BotConfig, error) {
	defaults := DefaultBotConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(l.basePath)
	}
	v.SetEnvPrefix("DMB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("line_budget", defaults.LineBudget)
	v.SetDefault("max_lines", defaults.MaxLines)
	v.SetDefault("tick_interval", defaults.TickInterval)
	v.SetDefault("helper_timeout", defaults.HelperTimeout)
	v.SetDefault("poll_interval", defaults.PollInterval)
	v.SetDefault("helpers_file", defaults.HelpersFile)
	v.SetDefault("events_file", defaults.EventsFile)
	v.SetDefault("language", defaults.Language)
	v.SetDefault("timers.max_entries", defaults.Timers.MaxEntries)
	v.SetDefault("timers.max_delay", defaults.Timers.MaxDelay)
	v.SetDefault("word_of_the_day.enabled", defaults.WordOfTheDay.Enabled)
	v.SetDefault("word_of_the_day.queue_file", defaults.WordOfTheDay.QueueFile)
	v.SetDefault("word_of_the_day.done_file", defaults.WordOfTheDay.DoneFile)
	v.SetDefault("word_of_the_day.marker", defaults.WordOfTheDay.Marker)
	v.SetDefault("alerts.enabled", defaults.Alerts.Enabled)
	v.SetDefault("alerts.window", defaults.Alerts.Window)
	v.SetDefault("alerts.max_helper_failures", defaults.Alerts.MaxHelperFailures)
	v.SetDefault("alerts.max_dispatch_errors", defaults.Alerts.MaxDispatchErrors)
	v.SetDefault("alerts.max_timer_rejections", defaults.Alerts.MaxTimerRejections)
	v.SetDefault("alerts.webhook_url", defaults.Alerts.WebhookURL)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading bot config: %w", err)
		}
	}

	cfg := &models.BotConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding bot config: %w", err)
	}
	if err := l.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg for values the bot cannot run with.
func (l *viperConfigLoader) Validate(cfg *models.BotConfig) error {
	if cfg == nil {
		return fmt.Errorf("bot configuration is nil")
	}

	var errs []string

	if cfg.LineBudget <= 0 {
		errs = append(errs, fmt.Sprintf("line_budget must be positive, got %d", cfg.LineBudget))
	}
	if cfg.MaxLines <= 0 {
		errs = append(errs, fmt.Sprintf("max_lines must be positive, got %d", cfg.MaxLines))
	}
	if cfg.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("tick_interval must be positive, got %v", cfg.TickInterval))
	}
	if cfg.HelperTimeout < 0 {
		errs = append(errs, fmt.Sprintf("helper_timeout must not be negative, got %v", cfg.HelperTimeout))
	}
	if cfg.Timers.MaxEntries < 0 {
		errs = append(errs, fmt.Sprintf("timers.max_entries must not be negative, got %d", cfg.Timers.MaxEntries))
	}
	if cfg.Timers.MaxDelay < 0 {
		errs = append(errs, fmt.Sprintf("timers.max_delay must not be negative, got %v", cfg.Timers.MaxDelay))
	}
	if cfg.WordOfTheDay.Enabled {
		if cfg.WordOfTheDay.QueueFile == "" || cfg.WordOfTheDay.DoneFile == "" {
			errs = append(errs, "word_of_the_day.queue_file and word_of_the_day.done_file must be set")
		}
		if cfg.WordOfTheDay.Marker == "" {
			errs = append(errs, "word_of_the_day.marker must not be empty")
		}
	}

	if cfg.Alerts.Enabled {
		if cfg.Alerts.Window <= 0 {
			errs = append(errs, fmt.Sprintf("alerts.window must be positive, got %v", cfg.Alerts.Window))
		}
		if cfg.Alerts.MaxHelperFailures < 0 || cfg.Alerts.MaxDispatchErrors < 0 || cfg.Alerts.MaxTimerRejections < 0 {
			errs = append(errs, "alerts maximums must not be negative")
		}
		if u := cfg.Alerts.WebhookURL; u != "" && !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
			errs = append(errs, fmt.Sprintf("alerts.webhook_url must be an http(s) URL, got %q", u))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("bot config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
