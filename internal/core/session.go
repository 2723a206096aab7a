package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/valter-silva-au/dmb/internal/observability"
	"github.com/valter-silva-au/dmb/pkg/models"
)

// DefaultTopicMarker precedes the word of the day in the main channel topic.
const DefaultTopicMarker = "Wort des Tages: "

const nickSuffix = "_"

// Transport is the chat connection the session drives. Implementations
// queue inbound events until Poll is called from the main loop.
type Transport interface {
	Connect() error
	Send(command string, params ...string) error
	SendRaw(line string) error
	Quit(message string) error
	Poll(max int) []models.ChatEvent
}

// WordSource yields the next word of the day and records the retired one.
// ok is false when the queue is exhausted.
type WordSource interface {
	Next(retired string) (word string, ok bool, err error)
}

// Printer receives operator console output.
type Printer interface {
	Printf(format string, args ...any)
}

// SessionConfig holds the session controller's settings and collaborators.
type SessionConfig struct {
	Server      models.ServerConfig
	LineBudget  int
	MaxLines    int
	TopicMarker string
	Transport   Transport
	Router      *Router
	Words       WordSource
	Console     Printer
	EventLog    observability.EventLog
	Logger      *slog.Logger
}

// Session owns the connection lifecycle and executes Router responses.
// All methods must be called from the main loop.
type Session struct {
	server    models.ServerConfig
	budget    int
	maxLines  int
	marker    string
	transport Transport
	router    *Router
	words     WordSource
	console   Printer
	eventLog  observability.EventLog
	logger    *slog.Logger

	state   models.SessionState
	stopped bool
}

// NewSession creates a disconnected session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Transport == nil || cfg.Router == nil {
		return nil, fmt.Errorf("creating session: transport and router are required")
	}
	if len(cfg.Server.Channels) == 0 {
		return nil, fmt.Errorf("creating session: no channels configured")
	}
	s := &Session{
		server:    cfg.Server,
		budget:    cfg.LineBudget,
		maxLines:  cfg.MaxLines,
		marker:    cfg.TopicMarker,
		transport: cfg.Transport,
		router:    cfg.Router,
		words:     cfg.Words,
		console:   cfg.Console,
		eventLog:  cfg.EventLog,
		logger:    cfg.Logger,
		state: models.SessionState{
			Phase:    models.PhaseDisconnected,
			Channels: append([]string(nil), cfg.Server.Channels...),
			Nickname: cfg.Server.Nickname,
		},
	}
	if s.budget <= 0 {
		s.budget = DefaultLineBudget
	}
	if s.maxLines <= 0 {
		s.maxLines = DefaultMaxLines
	}
	if s.marker == "" {
		s.marker = DefaultTopicMarker
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s, nil
}

// State returns a snapshot of the session state.
func (s *Session) State() models.SessionState {
	st := s.state
	st.Channels = append([]string(nil), s.state.Channels...)
	return st
}

// Stopped reports whether the session has quit.
func (s *Session) Stopped() bool {
	return s.stopped
}

// Start connects the transport.
func (s *Session) Start() error {
	s.state.Phase = models.PhaseConnecting
	if err := s.transport.Connect(); err != nil {
		s.state.Phase = models.PhaseDisconnected
		return fmt.Errorf("starting session: %w", err)
	}
	return nil
}

// Pump handles at most max pending transport events.
func (s *Session) Pump(ctx context.Context, max int) {
	for _, ev := range s.transport.Poll(max) {
		if s.stopped {
			return
		}
		s.HandleEvent(ctx, ev)
	}
}

// HandleEvent applies one inbound chat event.
func (s *Session) HandleEvent(ctx context.Context, ev models.ChatEvent) {
	switch ev.Kind {
	case models.EventWelcome:
		if ev.Text != "" {
			s.state.Nickname = ev.Text
		}
		s.onWelcome()
	case models.EventNickInUse:
		s.onNickInUse(ev.Text)
	case models.EventNickChange:
		if ev.Text != "" {
			s.state.Nickname = ev.Text
		}
	case models.EventTopicSnapshot, models.EventTopicChange:
		if strings.EqualFold(ev.Target, s.state.MainChannel()) {
			s.state.Topic = ev.Text
			s.state.TopicSeen = true
		}
	case models.EventPrivmsg:
		s.onPrivmsg(ctx, ev)
	case models.EventDisconnect:
		if !s.stopped {
			s.logger.Warn("disconnected", "reason", ev.Text)
			s.state.Phase = models.PhaseReconnecting
			s.state.Topic = ""
			s.state.TopicSeen = false
		}
	}
}

func (s *Session) onWelcome() {
	if s.server.NickServPassword != "" {
		s.send("PRIVMSG", "NickServ", "identify "+s.server.NickServPassword)
	}
	s.send("MODE", s.state.Nickname, "+B")
	for _, ch := range s.state.Channels {
		s.send("JOIN", ch)
	}
	s.state.Phase = models.PhaseJoined
	observability.Emit(s.eventLog, "INFO", observability.EventSessionJoined, "joined channels", map[string]any{
		"nick":     s.state.Nickname,
		"channels": s.state.Channels,
	})
}

// onNickInUse retries with the rejected nickname plus a suffix. There is
// no retry limit.
func (s *Session) onNickInUse(rejected string) {
	if rejected == "" || rejected == "*" {
		rejected = s.state.Nickname
	}
	next := rejected + nickSuffix
	s.state.Nickname = next
	s.send("NICK", next)
	observability.Emit(s.eventLog, "WARN", observability.EventSessionNick, "nickname in use", map[string]any{
		"rejected": rejected,
		"next":     next,
	})
}

func (s *Session) onPrivmsg(ctx context.Context, ev models.ChatEvent) {
	direct := !models.IsChannel(ev.Target)
	inv := models.InvocationContext{Source: ev.Source, ReplyTarget: ev.Target}
	if direct {
		inv.ReplyTarget = ev.Source
	}

	line, triggered := strings.CutPrefix(ev.Text, string(TriggerChar))
	if !triggered && !direct {
		return
	}
	if direct && s.console != nil {
		s.console.Printf("<%s> %s", ev.Source, line)
	}

	s.Execute(s.router.Handle(ctx, line, inv), inv.ReplyTarget)
}

// Execute carries out a Router response. Replies go to replyTarget.
func (s *Session) Execute(resp Response, replyTarget string) {
	switch resp.Kind {
	case ResponseNone:
	case ResponseReply:
		s.say(replyTarget, resp.Text)
	case ResponsePrivmsg:
		s.say(resp.Target, resp.Text)
	case ResponseJoin:
		s.send("JOIN", resp.Target)
	case ResponsePart:
		s.send("PART", resp.Target)
	case ResponseRaw:
		if err := s.transport.SendRaw(resp.Text); err != nil {
			s.logger.Warn("sending raw line failed", "error", err)
		}
	case ResponseQuit:
		s.Quit(resp.Text)
	}
}

// Quit disconnects with reason and stops the session. Later calls are no-ops.
func (s *Session) Quit(reason string) {
	if s.stopped {
		return
	}
	s.stopped = true
	s.state.Phase = models.PhaseDisconnected
	if err := s.transport.Quit(reason); err != nil {
		s.logger.Warn("quit failed", "error", err)
	}
	observability.Emit(s.eventLog, "INFO", observability.EventSessionShutdown, "session stopped", map[string]any{
		"reason": reason,
	})
}

func (s *Session) say(target, text string) {
	if target == "" {
		return
	}
	for _, line := range SendLines(text, s.maxLines, s.budget) {
		s.send("PRIVMSG", target, line)
	}
}

func (s *Session) send(command string, params ...string) {
	if err := s.transport.Send(command, params...); err != nil {
		s.logger.Warn("send failed", "command", command, "error", err)
	}
}

// RotateWordOfTheDay replaces the word after the topic marker in the main
// channel topic with the next queued word. It does nothing when the topic
// is unknown, lacks the marker or the queue is empty.
func (s *Session) RotateWordOfTheDay(_ context.Context, now time.Time) error {
	s.state.LastDaily = now
	if s.words == nil || !s.state.TopicSeen {
		return nil
	}
	_, old, found := RotateTopic(s.state.Topic, s.marker, "")
	if !found {
		return nil
	}

	word, ok, err := s.words.Next(old)
	if err != nil {
		return fmt.Errorf("rotating word of the day: %w", err)
	}
	if !ok {
		return nil
	}

	topic, _, _ := RotateTopic(s.state.Topic, s.marker, word)
	s.send("TOPIC", s.state.MainChannel(), topic)
	s.state.Topic = topic
	s.logger.Info("new topic", "topic", topic)
	observability.Emit(s.eventLog, "INFO", observability.EventTopicRotated, "word of the day rotated", map[string]any{
		"old": old,
		"new": word,
	})
	return nil
}

// Heartbeat records the session's liveness in the event journal.
func (s *Session) Heartbeat(_ context.Context, now time.Time) error {
	s.state.LastPoll = now
	observability.Emit(s.eventLog, "INFO", observability.EventHeartbeat, "heartbeat", map[string]any{
		"phase": string(s.state.Phase),
		"nick":  s.state.Nickname,
	})
	return nil
}

// RotateTopic replaces the word following marker in topic with word. The
// old word ends at the next space; anything after it is kept. ok is false
// when topic does not contain marker.
func RotateTopic(topic, marker, word string) (newTopic, oldWord string, ok bool) {
	pos := strings.Index(topic, marker)
	if pos < 0 {
		return topic, "", false
	}
	prefix := topic[:pos]
	rest := topic[pos+len(marker):]
	oldWord, suffix := rest, ""
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		oldWord, suffix = rest[:i], rest[i:]
	}
	return prefix + marker + word + suffix, oldWord, true
}
