package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"

	"github.com/valter-silva-au/dmb/pkg/models"
)

const (
	eventBuffer = 256

	// ReconnectDelay is the pause between connection attempts.
	ReconnectDelay = 2 * time.Minute

	rplTopic          = "332"
	errNicknameInUse  = "433"
	errNickCollision  = "436"
	errUnavailableRes = "437"
)

var nickErrors = []string{errNicknameInUse, errNickCollision, errUnavailableRes}

// IRCTransport adapts an ircevent connection to the bot's polling model.
// ircevent reads the socket on its own goroutine and handles reconnection;
// its callbacks only translate messages into ChatEvents and queue them until
// the main loop polls. Nickname recovery is left to the caller: rejected
// nicknames are reported as EventNickInUse and NICK sends become the
// connection's preferred nickname.
type IRCTransport struct {
	conn   *ircevent.Connection
	events chan models.ChatEvent
	done   chan struct{}
	quit   chan struct{}

	started  atomic.Bool
	doneOnce sync.Once
	quitOnce sync.Once
}

// NewIRCTransport creates a transport for the given server. ircevent's own
// log output goes to logger. Connect must be called before any events are
// delivered.
func NewIRCTransport(cfg models.ServerConfig, logger *slog.Logger) *IRCTransport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	conn := &ircevent.Connection{
		Server:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Nick:          cfg.Nickname,
		User:          cfg.Nickname,
		RealName:      cfg.Nickname,
		UseTLS:        cfg.UseTLS,
		ReconnectFreq: ReconnectDelay,
		Log:           slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
	}
	t := &IRCTransport{
		conn:   conn,
		events: make(chan models.ChatEvent, eventBuffer),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
	}

	dialer := &net.Dialer{}
	conn.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		// ircevent registers its base callbacks on the first Connect, before
		// dialing. Nothing has been read from the server yet.
		t.takeNickErrors()
		return dialer.DialContext(ctx, network, addr)
	}

	conn.AddConnectCallback(func(e ircmsg.Message) {
		t.push(models.ChatEvent{Kind: models.EventWelcome, Text: conn.CurrentNick()})
	})
	conn.AddDisconnectCallback(func(e ircmsg.Message) {
		t.push(models.ChatEvent{Kind: models.EventDisconnect, Text: "connection closed"})
	})
	conn.AddCallback("NICK", func(e ircmsg.Message) {
		// ircevent's own NICK handler runs first and updates CurrentNick
		// only for our own nickname.
		if len(e.Params) == 0 || e.Nick() == e.Params[0] || e.Params[0] != conn.CurrentNick() {
			return
		}
		t.push(models.ChatEvent{Kind: models.EventNickChange, Source: e.Nick(), Text: e.Params[0]})
	})
	conn.AddCallback("PRIVMSG", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		t.push(models.ChatEvent{
			Kind:   models.EventPrivmsg,
			Source: SourceNick(e.Source),
			Target: e.Params[0],
			Text:   e.Params[1],
		})
	})
	conn.AddCallback("TOPIC", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		t.push(models.ChatEvent{Kind: models.EventTopicChange, Source: SourceNick(e.Source), Target: e.Params[0], Text: e.Params[1]})
	})
	conn.AddCallback(rplTopic, func(e ircmsg.Message) {
		if len(e.Params) < 3 {
			return
		}
		t.push(models.ChatEvent{Kind: models.EventTopicSnapshot, Target: e.Params[1], Text: e.Params[2]})
	})

	return t
}

// takeNickErrors replaces ircevent's nickname fallback with forwarding to
// the event queue.
func (t *IRCTransport) takeNickErrors() {
	for _, code := range nickErrors {
		t.conn.ClearCallback(code)
		t.conn.AddCallback(code, t.onNickError)
	}
}

func (t *IRCTransport) onNickError(e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}
	t.push(models.ChatEvent{Kind: models.EventNickInUse, Text: e.Params[1]})
}

// SourceNick extracts the nickname from a nick!user@host source.
func SourceNick(source string) string {
	nick, _, _ := strings.Cut(source, "!")
	return nick
}

func (t *IRCTransport) push(ev models.ChatEvent) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

// Connect starts connecting in the background and returns at once.
// Registration replies, including rejected nicknames, arrive through Poll.
// Failed attempts are reported as EventDisconnect and retried every
// ReconnectDelay until Quit.
func (t *IRCTransport) Connect() error {
	if !t.started.CompareAndSwap(false, true) {
		return fmt.Errorf("connecting to %s: already started", t.conn.Server)
	}
	go t.run()
	return nil
}

func (t *IRCTransport) run() {
	defer t.doneOnce.Do(func() { close(t.done) })
	for {
		err := t.conn.Connect()
		if err == nil {
			t.conn.Loop()
			return
		}
		select {
		case <-t.quit:
			return
		default:
		}
		t.push(models.ChatEvent{Kind: models.EventDisconnect, Text: fmt.Sprintf("connecting to %s: %v", t.conn.Server, err)})

		timer := time.NewTimer(t.conn.ReconnectFreq)
		select {
		case <-timer.C:
		case <-t.quit:
			timer.Stop()
			return
		}
	}
}

// Send writes one protocol command. NICK also becomes the nickname ircevent
// restores after reconnecting.
func (t *IRCTransport) Send(command string, params ...string) error {
	if command == "NICK" && len(params) == 1 {
		t.conn.SetNick(params[0])
		return nil
	}
	if err := t.conn.Send(command, params...); err != nil {
		return fmt.Errorf("sending %s: %w", command, err)
	}
	return nil
}

// SendRaw writes a literal protocol line.
func (t *IRCTransport) SendRaw(line string) error {
	if err := t.conn.SendRaw(line); err != nil {
		return fmt.Errorf("sending raw line: %w", err)
	}
	return nil
}

// Quit disconnects with the given reason and stops reconnection.
func (t *IRCTransport) Quit(message string) error {
	t.quitOnce.Do(func() { close(t.quit) })
	t.conn.QuitMessage = message
	t.conn.Quit()
	return nil
}

// Poll returns up to max queued events without blocking.
func (t *IRCTransport) Poll(max int) []models.ChatEvent {
	var batch []models.ChatEvent
	for len(batch) < max {
		select {
		case ev := <-t.events:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
	return batch
}
