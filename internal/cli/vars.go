package cli

import (
	"context"

	"github.com/valter-silva-au/dmb/internal/observability"
	"github.com/valter-silva-au/dmb/internal/storage"
	"github.com/valter-silva-au/dmb/pkg/models"
)

// BotRunner runs the bot until ctx is cancelled or an operator stops it.
type BotRunner interface {
	Run(ctx context.Context, server models.ServerConfig) error
}

// HelperLister exposes the loaded helper registry.
type HelperLister interface {
	Describe() []string
}

// WordLister exposes the word-of-the-day queue.
type WordLister interface {
	Remaining() ([]string, error)
}

// Initialize builds the application for the given config file path. It is
// set by main and must populate the service instances below.
var Initialize func(configPath string) error

// Service instances, set during app initialization in app.go.
var (
	Bot         BotRunner
	Helpers     HelperLister
	Words       WordLister
	HelperStore storage.HelperStore
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
)
