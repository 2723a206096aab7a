package integration

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valter-silva-au/dmb/pkg/models"
)

func TestSourceNick(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"alice!~alice@example.org", "alice"},
		{"irc.example.org", "irc.example.org"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SourceNick(tt.source); got != tt.want {
			t.Errorf("SourceNick(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestIRCTransport_PollDrainsAtMostMax(t *testing.T) {
	tr := NewIRCTransport(models.ServerConfig{Host: "irc.example.org", Port: 6667, Nickname: "dmb"}, nil)
	for i := 0; i < 5; i++ {
		tr.push(models.ChatEvent{Kind: models.EventPrivmsg, Text: string(rune('a' + i))})
	}

	first := tr.Poll(3)
	if len(first) != 3 {
		t.Fatalf("first batch = %d events, want 3", len(first))
	}
	if first[0].Text != "a" || first[2].Text != "c" {
		t.Errorf("first batch out of order: %+v", first)
	}

	second := tr.Poll(3)
	if len(second) != 2 {
		t.Fatalf("second batch = %d events, want 2", len(second))
	}

	if empty := tr.Poll(3); len(empty) != 0 {
		t.Errorf("third batch = %d events, want 0", len(empty))
	}
}

func TestNewIRCTransport_ServerAddress(t *testing.T) {
	tr := NewIRCTransport(models.ServerConfig{Host: "irc.example.org", Port: 6697, Nickname: "dmb", UseTLS: true}, nil)
	if tr.conn.Server != "irc.example.org:6697" {
		t.Errorf("server = %q, want %q", tr.conn.Server, "irc.example.org:6697")
	}
	if tr.conn.Nick != "dmb" {
		t.Errorf("nick = %q, want dmb", tr.conn.Nick)
	}
	if !tr.conn.UseTLS {
		t.Error("UseTLS = false, want true")
	}
	if tr.conn.Log == nil {
		t.Error("ircevent logger not set")
	}
}

// ircServer is a minimal IRC server that rejects one nickname during
// registration and records every line it receives.
type ircServer struct {
	ln       net.Listener
	taken    string
	mu       sync.Mutex
	lines    []string
	conn     net.Conn
	accepted chan struct{}
}

func newIRCServer(t *testing.T, taken string) *ircServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &ircServer{ln: ln, taken: taken, accepted: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s
}

func (s *ircServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *ircServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	close(s.accepted)
	defer conn.Close()

	var nick string
	var user, welcomed bool
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		s.mu.Lock()
		s.lines = append(s.lines, line)
		s.mu.Unlock()

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "NICK":
			if arg == s.taken {
				fmt.Fprintf(conn, ":irc.test 433 * %s :Nickname is already in use\r\n", arg)
				continue
			}
			if welcomed {
				fmt.Fprintf(conn, ":%s!u@h NICK %s\r\n", nick, arg)
			}
			nick = arg
		case "USER":
			user = true
		case "QUIT":
			return
		}
		if nick != "" && user && !welcomed {
			welcomed = true
			fmt.Fprintf(conn, ":irc.test 001 %s :Welcome\r\n", nick)
			fmt.Fprintf(conn, ":irc.test 376 %s :End of MOTD\r\n", nick)
		}
	}
}

func (s *ircServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *ircServer) hangUp() {
	<-s.accepted
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.Close()
}

// awaitEvent polls tr until an event of kind arrives. Events of other kinds
// are passed to onOther.
func awaitEvent(t *testing.T, tr *IRCTransport, kind models.ChatEventKind, onOther func(models.ChatEvent)) models.ChatEvent {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range tr.Poll(8) {
			if ev.Kind == kind {
				return ev
			}
			if onOther != nil {
				onOther(ev)
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s event within 5s", kind)
	return models.ChatEvent{}
}

func TestIRCTransport_NickRecoveryIsCallers(t *testing.T) {
	srv := newIRCServer(t, "dmb")
	tr := NewIRCTransport(models.ServerConfig{Host: "127.0.0.1", Port: srv.port(), Nickname: "dmb"}, nil)
	t.Cleanup(func() { tr.Quit("bye") })

	if err := tr.Connect(); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := tr.Connect(); err == nil {
		t.Error("second Connect() succeeded, want error")
	}

	inUse := awaitEvent(t, tr, models.EventNickInUse, nil)
	if inUse.Text != "dmb" {
		t.Errorf("rejected nick = %q, want dmb", inUse.Text)
	}
	if err := tr.Send("NICK", "dmb_"); err != nil {
		t.Fatalf("Send(NICK) error: %v", err)
	}

	welcome := awaitEvent(t, tr, models.EventWelcome, nil)
	if welcome.Text != "dmb_" {
		t.Errorf("registered nick = %q, want dmb_", welcome.Text)
	}
	if tr.conn.PreferredNick() != "dmb_" {
		t.Errorf("preferred nick = %q, want dmb_", tr.conn.PreferredNick())
	}

	var nicks []string
	for _, line := range srv.received() {
		if strings.HasPrefix(line, "NICK ") {
			nicks = append(nicks, line)
		}
	}
	want := []string{"NICK dmb", "NICK dmb_"}
	if strings.Join(nicks, ",") != strings.Join(want, ",") {
		t.Errorf("server saw %v, want %v", nicks, want)
	}
}

func TestIRCTransport_NickChangeReported(t *testing.T) {
	srv := newIRCServer(t, "")
	tr := NewIRCTransport(models.ServerConfig{Host: "127.0.0.1", Port: srv.port(), Nickname: "dmb"}, nil)
	t.Cleanup(func() { tr.Quit("bye") })

	if err := tr.Connect(); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	awaitEvent(t, tr, models.EventWelcome, nil)

	if err := tr.Send("NICK", "dmb2"); err != nil {
		t.Fatalf("Send(NICK) error: %v", err)
	}
	ev := awaitEvent(t, tr, models.EventNickChange, nil)
	if ev.Source != "dmb" || ev.Text != "dmb2" {
		t.Errorf("nick change = %+v, want dmb -> dmb2", ev)
	}
}

func TestIRCTransport_SocketDropReportsDisconnect(t *testing.T) {
	srv := newIRCServer(t, "")
	tr := NewIRCTransport(models.ServerConfig{Host: "127.0.0.1", Port: srv.port(), Nickname: "dmb"}, nil)
	t.Cleanup(func() { tr.Quit("bye") })

	if err := tr.Connect(); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	awaitEvent(t, tr, models.EventWelcome, nil)

	srv.hangUp()
	awaitEvent(t, tr, models.EventDisconnect, nil)
}
