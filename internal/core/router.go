package core

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"runtime/debug"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/valter-silva-au/dmb/internal/integration"
	"github.com/valter-silva-au/dmb/internal/observability"
	"github.com/valter-silva-au/dmb/pkg/models"
)

// TriggerChar marks a channel message as a bot command.
const TriggerChar = '!'

// AdminTokenLength is the number of characters in a generated admin token.
const AdminTokenLength = 8

const adminTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ResponseKind tells the session controller what to do with a Response.
type ResponseKind int

const (
	ResponseNone    ResponseKind = iota
	ResponseReply                // Text goes to the invocation's reply target
	ResponsePrivmsg              // Text goes to Target
	ResponseJoin                 // join channel Target
	ResponsePart                 // leave channel Target
	ResponseRaw                  // Text is sent as a literal protocol line
	ResponseQuit                 // disconnect with reason Text and stop
)

// Response is the outcome of routing one command line.
type Response struct {
	Kind   ResponseKind
	Target string
	Text   string
}

func reply(text string) Response {
	return Response{Kind: ResponseReply, Text: text}
}

// RouterConfig holds the Router's collaborators.
type RouterConfig struct {
	// AdminToken gates administrator commands. A random token is generated
	// when empty.
	AdminToken  string
	MainChannel string
	Runner      integration.Runner
	Registry    *HelperRegistry
	Timers      *TimerQueue
	Messages    *Messages
	EventLog    observability.EventLog
	Metrics     observability.MetricsCalculator
	Logger      *slog.Logger
	StartedAt   time.Time
}

// Router turns command lines into Responses, running helpers and
// scheduling their timer directives on the way.
type Router struct {
	adminToken  string
	mainChannel string
	runner      integration.Runner
	registry    *HelperRegistry
	timers      *TimerQueue
	msgs        *Messages
	eventLog    observability.EventLog
	metrics     observability.MetricsCalculator
	logger      *slog.Logger
	startedAt   time.Time
}

// NewRouter creates a Router. Runner, Registry and Timers are required.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Runner == nil || cfg.Registry == nil || cfg.Timers == nil {
		return nil, fmt.Errorf("creating router: runner, registry and timers are required")
	}
	token := cfg.AdminToken
	if token == "" {
		var err error
		if token, err = NewAdminToken(); err != nil {
			return nil, fmt.Errorf("creating router: %w", err)
		}
	}
	r := &Router{
		adminToken:  token,
		mainChannel: cfg.MainChannel,
		runner:      cfg.Runner,
		registry:    cfg.Registry,
		timers:      cfg.Timers,
		msgs:        cfg.Messages,
		eventLog:    cfg.EventLog,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		startedAt:   cfg.StartedAt,
	}
	if r.msgs == nil {
		r.msgs = NewMessages("")
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.startedAt.IsZero() {
		r.startedAt = time.Now()
	}
	return r, nil
}

// NewAdminToken draws a token uniformly from [A-Za-z0-9].
func NewAdminToken() (string, error) {
	buf := make([]byte, AdminTokenLength)
	limit := big.NewInt(int64(len(adminTokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generating admin token: %w", err)
		}
		buf[i] = adminTokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// AdminToken returns the token gating admin commands.
func (r *Router) AdminToken() string {
	return r.adminToken
}

// Handle routes line and never fails: errors and panics are logged with a
// stack trace and produce no chat output.
func (r *Router) Handle(ctx context.Context, line string, inv models.InvocationContext) Response {
	return r.guard("command", func() (Response, error) {
		return r.Route(ctx, line, inv)
	})
}

// Fire replays an expired timer entry. Like Handle it never fails.
func (r *Router) Fire(ctx context.Context, entry models.TimerEntry) Response {
	return r.guard("timer", func() (Response, error) {
		out := r.runHelper(ctx, entry.HelperPath, entry.Argument, entry.Invocation, true)
		body := r.applyTimers(true, entry.HelperPath, out, entry.Invocation, entry.SayTarget)
		observability.Emit(r.eventLog, "INFO", observability.EventTimerFired, "timer fired", map[string]any{
			"id":       entry.ID,
			"helper":   entry.HelperPath,
			"argument": entry.Argument,
		})
		return Response{Kind: ResponsePrivmsg, Target: entry.SayTarget, Text: body}, nil
	})
}

func (r *Router) guard(what string, fn func() (Response, error)) (resp Response) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("dispatch panicked", "what", what, "panic", p, "stack", string(debug.Stack()))
			observability.Emit(r.eventLog, "ERROR", observability.EventDispatchError, "dispatch panicked", map[string]any{
				"what":  what,
				"panic": fmt.Sprint(p),
			})
			resp = Response{}
		}
	}()

	resp, err := fn()
	if err != nil {
		r.logger.Error("dispatch failed", "what", what, "error", err, "stack", string(debug.Stack()))
		observability.Emit(r.eventLog, "ERROR", observability.EventDispatchError, "dispatch failed", map[string]any{
			"what":  what,
			"error": err.Error(),
		})
		return Response{}
	}
	return resp
}

// Route parses line as an admin command when it carries the admin token,
// otherwise as a user command. Unknown user commands yield ResponseNone.
func (r *Router) Route(ctx context.Context, line string, inv models.InvocationContext) (Response, error) {
	if rest, ok := r.stripAdminToken(line); ok {
		return r.admin(ctx, rest, inv)
	}
	return r.user(ctx, line, inv)
}

func (r *Router) stripAdminToken(line string) (string, bool) {
	if !strings.HasPrefix(line, r.adminToken) {
		return "", false
	}
	rest := line[len(r.adminToken):]
	if rest == "" {
		return "", true
	}
	sep, _ := utf8.DecodeRuneInString(rest)
	if !isCommandSeparator(sep) {
		return "", false
	}
	return strings.TrimLeftFunc(rest, isCommandSeparator), true
}

func (r *Router) user(ctx context.Context, line string, inv models.InvocationContext) (Response, error) {
	word, arg := SplitCommand(line)
	switch word {
	case CommandVersion:
		return reply(r.msgs.Get(MsgVersion)), nil
	case CommandHelp:
		return reply(r.HelpText()), nil
	}

	binding, ok := r.registry.Lookup(word)
	if !ok {
		return Response{}, nil
	}
	out := r.runHelper(ctx, binding.Path, arg, inv, false)
	return reply(r.applyTimers(binding.TimersAllowed(), binding.Path, out, inv, inv.ReplyTarget)), nil
}

// HelpText lists every command word with the trigger character, sorted.
func (r *Router) HelpText() string {
	names := append(r.registry.Names(), CommandVersion)
	sort.Strings(names)
	for i, n := range names {
		names[i] = string(TriggerChar) + n
	}
	return strings.Join(names, ", ")
}

// runHelper runs a helper and maps failures to the localized error string,
// or to "" when ignoreErrors is set.
func (r *Router) runHelper(ctx context.Context, path, arg string, inv models.InvocationContext, ignoreErrors bool) string {
	result, err := r.runner.Run(ctx, integration.RunRequest{Path: path, Argument: arg, Invocation: inv})
	if err != nil {
		r.logger.Warn("helper failed", "helper", path, "argument", arg, "error", err)
		observability.Emit(r.eventLog, "WARN", observability.EventHelperFailed, "helper failed", map[string]any{
			"helper": path,
			"error":  err.Error(),
		})
		if ignoreErrors {
			return ""
		}
		return r.msgs.Get(MsgError)
	}
	if result.ExitCode != 0 {
		r.logger.Warn("helper exited with non-zero status", "helper", path, "exit_code", result.ExitCode, "stderr", result.Stderr)
	}
	observability.Emit(r.eventLog, "INFO", observability.EventHelperRun, "helper ran", map[string]any{
		"helper":    path,
		"exit_code": result.ExitCode,
		"sender":    inv.Source,
	})
	return result.Stdout
}

// applyTimers schedules the /timer directives in out and returns the
// remaining text. When timers are not allowed out is returned unchanged.
func (r *Router) applyTimers(allowed bool, path, out string, inv models.InvocationContext, sayTarget string) string {
	if !allowed {
		return out
	}
	body, directives := ExtractTimers(out)
	for _, d := range directives {
		entry, err := r.timers.Schedule(d.Delay, path, d.Argument, inv, sayTarget)
		if err != nil {
			r.logger.Warn("timer rejected", "helper", path, "error", err)
			observability.Emit(r.eventLog, "WARN", observability.EventTimerRejected, "timer rejected", map[string]any{
				"helper": path,
				"error":  err.Error(),
			})
			continue
		}
		observability.Emit(r.eventLog, "INFO", observability.EventTimerScheduled, "timer scheduled", map[string]any{
			"id":      entry.ID,
			"helper":  path,
			"fire_at": entry.FireAt,
		})
	}
	return body
}

func (r *Router) admin(ctx context.Context, line string, inv models.InvocationContext) (Response, error) {
	cmd, args, _ := strings.Cut(line, " ")
	observability.Emit(r.eventLog, "INFO", observability.EventAdminCommand, "admin command", map[string]any{
		"command": cmd,
		"sender":  inv.Source,
	})

	switch cmd {
	case "die":
		if args == "" {
			args = r.msgs.Get(MsgFarewell)
		}
		return Response{Kind: ResponseQuit, Text: args}, nil
	case "join", "part":
		if args == "" {
			return reply(r.msgs.Get(MsgMissingChannel)), nil
		}
		kind := ResponseJoin
		if cmd == "part" {
			kind = ResponsePart
		}
		return Response{Kind: kind, Target: args}, nil
	case "raw":
		if args == "" {
			return reply(r.msgs.Get(MsgRawUsage)), nil
		}
		return Response{Kind: ResponseRaw, Text: args}, nil
	case "privmsg":
		target, msg, _ := strings.Cut(args, " ")
		if target == "" || msg == "" {
			return reply(r.msgs.Get(MsgPrivmsgUsage)), nil
		}
		return Response{Kind: ResponsePrivmsg, Target: target, Text: msg}, nil
	case "say":
		if args == "" || r.mainChannel == "" {
			return reply(r.msgs.Get(MsgSayUsage)), nil
		}
		return Response{Kind: ResponsePrivmsg, Target: r.mainChannel, Text: args}, nil
	case "timers":
		text := r.msgs.Get(MsgPendingTimers, r.timers.Len())
		if next, ok := r.timers.Next(); ok {
			text += "\n" + r.msgs.Get(MsgNextTimer, next.HelperPath, next.Argument, next.FireAt.Format(time.TimeOnly))
		}
		return reply(text), nil
	case "stats":
		if r.metrics == nil {
			return reply(r.msgs.Get(MsgNoStats)), nil
		}
		m, err := r.metrics.Calculate(r.startedAt)
		if err != nil {
			return Response{}, fmt.Errorf("admin stats: %w", err)
		}
		return reply(m.Summary()), nil
	default:
		return reply(r.msgs.Get(MsgUnknownCommand)), nil
	}
}

// SplitCommand splits line at the first ASCII or ideographic space into a
// command word and its (possibly empty) argument.
func SplitCommand(line string) (word, arg string) {
	i := strings.IndexFunc(line, isCommandSeparator)
	if i < 0 {
		return line, ""
	}
	_, size := utf8.DecodeRuneInString(line[i:])
	return line[:i], line[i+size:]
}

func isCommandSeparator(r rune) bool {
	return r == ' ' || r == '　'
}
