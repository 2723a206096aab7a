package observability

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const bannerWidth = 60

// Console is the operator's local terminal. It keeps the admin key banner on
// the last line: every write first blanks the banner, prints the text, then
// redraws the banner. The key never leaves this console.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	key    string
	keyFmt lipgloss.Style
	logger *slog.Logger
}

// NewConsole creates a console writing to out.
func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	c := &Console{
		out:    out,
		keyFmt: r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
	}
	c.logger = slog.New(slog.NewTextHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return c
}

// Logger returns a structured logger that writes through the console.
func (c *Console) Logger() *slog.Logger {
	return c.logger
}

// ShowAdminKey records the admin key and prints the banner.
func (c *Console) ShowAdminKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
	c.banner()
}

// Printf writes one formatted line to the console.
func (c *Console) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, _ = c.Write([]byte(line))
}

// Write implements io.Writer so slog handlers can target the console.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != "" {
		if _, err := fmt.Fprintf(c.out, "\r%s\r", strings.Repeat(" ", bannerWidth)); err != nil {
			return 0, err
		}
	}
	n, err := c.out.Write(p)
	if err != nil {
		return n, err
	}
	c.banner()
	return n, nil
}

func (c *Console) banner() {
	if c.key == "" {
		return
	}
	fmt.Fprintf(c.out, "Today's magic key for admin commands: %s", c.keyFmt.Render(c.key))
}
