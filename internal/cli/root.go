package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/dmb/pkg/models"
)

// DefaultPort is used when the server argument carries no port.
const DefaultPort = 6667

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var (
	configPath string
	useTLS     bool
)

var rootCmd = &cobra.Command{
	Use:   "dmb <server[:port]> <channel[,channel...]> <nickname> [NickServ-password]",
	Short: "A very simple IRC bot that dispatches commands to helper programs",
	Long: `dmb connects to an IRC server, joins the given channels and answers
"!command argument" messages by running the helper program bound to the
command and relaying its output. The first channel is the main channel.

Helpers are listed in helpers.yaml (see "dmb helpers"); tunables live in
dmb.yaml. The admin key printed on the console unlocks operator commands
such as "<key> die" or "<key> join #channel" in a direct message.`,
	Args:          cobra.RangeArgs(3, 4),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := ParseServerArgs(args)
		if err != nil {
			return err
		}
		server.UseTLS = useTLS

		if err := initialize(); err != nil {
			return err
		}
		if Bot == nil {
			return fmt.Errorf("bot not initialized")
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()
		// After the first signal the default handlers are restored, so a
		// second one terminates the process.
		go func() {
			<-ctx.Done()
			stop()
		}()
		return Bot.Run(ctx, server)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dmb %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to dmb.yaml (default: ./dmb.yaml if present)")
	rootCmd.Flags().BoolVar(&useTLS, "tls", false, "Connect using TLS")
	rootCmd.AddCommand(versionCmd)
}

// initialize runs the Initialize hook once the flags are parsed.
func initialize() error {
	if Initialize == nil {
		return nil
	}
	if err := Initialize(configPath); err != nil {
		return fmt.Errorf("initializing dmb: %w", err)
	}
	return nil
}

// ParseServerArgs turns the positional arguments into a ServerConfig:
// server[:port], comma-separated channels, nickname and an optional
// NickServ password.
func ParseServerArgs(args []string) (models.ServerConfig, error) {
	if len(args) < 3 || len(args) > 4 {
		return models.ServerConfig{}, fmt.Errorf("expected 3 or 4 arguments, got %d", len(args))
	}

	host, port, err := parseServerAddress(args[0])
	if err != nil {
		return models.ServerConfig{}, err
	}

	var channels []string
	for _, ch := range strings.Split(args[1], ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		return models.ServerConfig{}, fmt.Errorf("no channels specified")
	}

	nick := strings.TrimSpace(args[2])
	if nick == "" {
		return models.ServerConfig{}, fmt.Errorf("nickname must not be empty")
	}

	cfg := models.ServerConfig{
		Host:     host,
		Port:     port,
		Channels: channels,
		Nickname: nick,
	}
	if len(args) == 4 {
		cfg.NickServPassword = args[3]
	}
	return cfg, nil
}

func parseServerAddress(addr string) (string, int, error) {
	if addr == "" {
		return "", 0, fmt.Errorf("server address must not be empty")
	}
	if !strings.Contains(addr, ":") {
		return addr, DefaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("parsing server address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q in server address %q", portStr, addr)
	}
	if host == "" {
		return "", 0, fmt.Errorf("server address %q has no host", addr)
	}
	return host, port, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
