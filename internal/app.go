// Package internal provides the App struct that wires all components of the
// dmb bot together and initializes the CLI layer.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/dmb/internal/cli"
	"github.com/valter-silva-au/dmb/internal/core"
	"github.com/valter-silva-au/dmb/internal/integration"
	"github.com/valter-silva-au/dmb/internal/observability"
	"github.com/valter-silva-au/dmb/internal/storage"
	"github.com/valter-silva-au/dmb/pkg/models"
)

// App holds all service dependencies of the bot.
type App struct {
	BasePath string

	// Configuration
	ConfigLdr core.ConfigLoader
	Config    *models.BotConfig

	// Storage layer
	HelperStore storage.HelperStore
	Words       *storage.WordQueue

	// Core services
	Registry *core.HelperRegistry
	Messages *core.Messages
	Clock    core.Clock

	// Integration services
	Runner       integration.Runner
	NewTransport func(server models.ServerConfig) core.Transport

	// Observability
	Console     *observability.Console
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
}

// NewApp creates and wires all components of the bot. configPath names an
// explicit dmb.yaml; when empty, dmb.yaml is looked up in the base path.
// Console output goes to out.
func NewApp(configPath string, out io.Writer) (*App, error) {
	basePath := ResolveBasePath()
	app := &App{BasePath: basePath, Clock: core.SystemClock}

	// --- Observability (console) ---
	app.Console = observability.NewConsole(out)
	logger := app.Console.Logger()

	// --- Configuration ---
	if configPath != "" {
		app.ConfigLdr = core.NewConfigFileLoader(configPath)
	} else {
		app.ConfigLdr = core.NewConfigLoader(basePath)
	}
	cfg, err := app.ConfigLdr.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	app.Config = cfg

	// --- Observability (journal) ---
	app.EventLog, err = observability.NewJSONLEventLog(app.resolve(cfg.EventsFile))
	if err != nil {
		// Non-fatal: run without a journal if it can't be created.
		logger.Warn("event journal disabled", "error", err)
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	// --- Storage layer ---
	app.HelperStore = storage.NewHelperStore(app.resolve(cfg.HelpersFile), core.DefaultHelpers())
	bindings, err := app.HelperStore.Load()
	if err != nil {
		return nil, err
	}
	if cfg.WordOfTheDay.Enabled {
		app.Words = storage.NewWordQueue(app.resolve(cfg.WordOfTheDay.QueueFile), app.resolve(cfg.WordOfTheDay.DoneFile))
	}

	// --- Core services ---
	app.Registry, err = core.NewHelperRegistry(bindings)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", app.HelperStore.Path(), err)
	}
	lang := cfg.Language
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	app.Messages = core.NewMessages(lang)

	// --- Integration services ---
	app.Runner = integration.NewProcessRunner(cfg.HelperTimeout)
	app.NewTransport = func(server models.ServerConfig) core.Transport {
		return integration.NewIRCTransport(server, logger)
	}

	// --- Wire CLI package-level variables ---
	cli.Bot = app
	cli.Helpers = app.Registry
	cli.HelperStore = app.HelperStore
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc
	if app.Words != nil {
		cli.Words = app.Words
	}

	return app, nil
}

// Run connects to server and runs the main loop until an operator stops
// the bot or ctx is cancelled. Cancellation quits with the farewell
// message and is not an error.
func (a *App) Run(ctx context.Context, server models.ServerConfig) error {
	defer a.Close()
	logger := a.Console.Logger()
	cfg := a.Config

	timers := core.NewTimerQueue(a.Clock, cfg.Timers)
	router, err := core.NewRouter(core.RouterConfig{
		MainChannel: server.Channels[0],
		Runner:      a.Runner,
		Registry:    a.Registry,
		Timers:      timers,
		Messages:    a.Messages,
		EventLog:    a.EventLog,
		Metrics:     a.MetricsCalc,
		Logger:      logger,
		StartedAt:   a.Clock.Now(),
	})
	if err != nil {
		return err
	}

	var words core.WordSource
	if a.Words != nil {
		words = a.Words
	}
	session, err := core.NewSession(core.SessionConfig{
		Server:      server,
		LineBudget:  cfg.LineBudget,
		MaxLines:    cfg.MaxLines,
		TopicMarker: cfg.WordOfTheDay.Marker,
		Transport:   a.NewTransport(server),
		Router:      router,
		Words:       words,
		Console:     a.Console,
		EventLog:    a.EventLog,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	a.Console.Printf("Connecting to %s:%d as %s", server.Host, server.Port, server.Nickname)
	if err := session.Start(); err != nil {
		return err
	}
	a.Console.ShowAdminKey(router.AdminToken())

	now := a.Clock.Now()
	checks := []core.Check{
		&core.TimerCheck{Timers: timers, Router: router, Session: session},
		&core.TransportCheck{Session: session},
		core.NewDailyCheck(now, session.RotateWordOfTheDay),
		core.NewPollCheck(now, cfg.PollInterval, session.Heartbeat),
	}
	if monitor := a.alertMonitor(); monitor != nil {
		checks = append(checks, core.NewPollCheck(now, cfg.PollInterval, monitor.Check))
	}
	scheduler := core.NewScheduler(core.SchedulerConfig{
		Interval: cfg.TickInterval,
		Clock:    a.Clock,
		Logger:   logger,
		Stopped:  session.Stopped,
	}, checks...)

	err = scheduler.Run(ctx)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		a.Console.Printf("Shutting down... (Press Ctrl+C again to force exit)")
		session.Quit(a.Messages.Get(core.MsgFarewell))
		err = nil
	}
	if err == nil {
		a.Console.Printf("Exiting...")
	}
	return err
}

// alertMonitor builds the journal alert monitor, or returns nil when alerts
// are disabled or there is no journal to read.
func (a *App) alertMonitor() *observability.AlertMonitor {
	alerts := a.Config.Alerts
	if !alerts.Enabled || a.EventLog == nil {
		return nil
	}
	engine := observability.NewAlertEngine(a.EventLog, observability.AlertThresholds{
		Window:             alerts.Window,
		MaxHelperFailures:  alerts.MaxHelperFailures,
		MaxDispatchErrors:  alerts.MaxDispatchErrors,
		MaxTimerRejections: alerts.MaxTimerRejections,
	})
	var webhook observability.Notifier
	if alerts.WebhookURL != "" {
		webhook = observability.NewSlackNotifier(alerts.WebhookURL)
	}
	notifier := observability.NewMultiNotifier(observability.NewConsoleNotifier(a.Console), webhook)
	return observability.NewAlertMonitor(engine, notifier, a.EventLog)
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// resolve makes a configured path absolute relative to the base path.
func (a *App) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.BasePath, path)
}

// ResolveBasePath determines the directory holding dmb.yaml, helpers.yaml
// and the data files. It checks the DMB_HOME env var, then walks up from the
// current directory looking for dmb.yaml, then falls back to the current
// directory.
func ResolveBasePath() string {
	if home := os.Getenv("DMB_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.DefaultConfigName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
