package models

import "time"

// WordOfTheDayConfig configures the daily topic rotation.
type WordOfTheDayConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	QueueFile string `yaml:"queue_file" mapstructure:"queue_file"`
	DoneFile  string `yaml:"done_file" mapstructure:"done_file"`
	Marker    string `yaml:"marker" mapstructure:"marker"`
}

// TimerLimits caps the timer queue.
type TimerLimits struct {
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
	MaxDelay   time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

// AlertConfig sets the journal thresholds that raise operator alerts.
// A zero maximum disables that check.
type AlertConfig struct {
	Enabled            bool          `yaml:"enabled" mapstructure:"enabled"`
	Window             time.Duration `yaml:"window" mapstructure:"window"`
	MaxHelperFailures  int           `yaml:"max_helper_failures" mapstructure:"max_helper_failures"`
	MaxDispatchErrors  int           `yaml:"max_dispatch_errors" mapstructure:"max_dispatch_errors"`
	MaxTimerRejections int           `yaml:"max_timer_rejections" mapstructure:"max_timer_rejections"`
	WebhookURL         string        `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig holds the connection parameters taken from the command line.
type ServerConfig struct {
	Host             string
	Port             int
	Channels         []string
	Nickname         string
	NickServPassword string
	UseTLS           bool
}

// BotConfig holds tunable settings read from dmb.yaml via Viper.
type BotConfig struct {
	LineBudget    int                `yaml:"line_budget" mapstructure:"line_budget"`
	MaxLines      int                `yaml:"max_lines" mapstructure:"max_lines"`
	TickInterval  time.Duration      `yaml:"tick_interval" mapstructure:"tick_interval"`
	HelperTimeout time.Duration      `yaml:"helper_timeout" mapstructure:"helper_timeout"`
	PollInterval  time.Duration      `yaml:"poll_interval" mapstructure:"poll_interval"`
	HelpersFile   string             `yaml:"helpers_file" mapstructure:"helpers_file"`
	EventsFile    string             `yaml:"events_file" mapstructure:"events_file"`
	Language      string             `yaml:"language" mapstructure:"language"`
	Timers        TimerLimits        `yaml:"timers" mapstructure:"timers"`
	WordOfTheDay  WordOfTheDayConfig `yaml:"word_of_the_day" mapstructure:"word_of_the_day"`
	Alerts        AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
}
