package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/dmb/internal/observability"
)

var (
	eventsType  string
	eventsLevel string
	eventsSince string
	eventsLast  int
	eventsJSON  bool
	eventsStats bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the bot's event journal",
	Long: `Show events recorded in the JSONL journal: helper runs, timers,
admin commands, session changes and heartbeats.

With --stats, print the aggregated counters instead, in the same form as
the "stats" admin command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initialize(); err != nil {
			return err
		}
		if EventLog == nil {
			return fmt.Errorf("event log not initialized")
		}

		sinceTime, err := parseSinceDuration(eventsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		out := cmd.OutOrStdout()

		if eventsStats {
			if MetricsCalc == nil {
				return fmt.Errorf("metrics calculator not initialized")
			}
			m, err := MetricsCalc.Calculate(sinceTime)
			if err != nil {
				return fmt.Errorf("calculating metrics: %w", err)
			}
			fmt.Fprintln(out, m.Summary())
			return nil
		}

		events, err := EventLog.Read(observability.EventFilter{
			Since: &sinceTime,
			Type:  eventsType,
			Level: strings.ToUpper(eventsLevel),
			Last:  eventsLast,
		})
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}

		if eventsJSON {
			enc := json.NewEncoder(out)
			for _, e := range events {
				if err := enc.Encode(e); err != nil {
					return fmt.Errorf("encoding event: %w", err)
				}
			}
			return nil
		}

		if len(events) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}
		for _, e := range events {
			printEvent(out, e)
		}
		return nil
	},
}

// printEvent writes one event as "time LEVEL type msg key=value ...".
func printEvent(w io.Writer, e observability.Event) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %-18s %s", e.Time.Format(time.RFC3339), e.Level, e.Type, e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	fmt.Fprintln(w, b.String())
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "Only show events of this type (e.g. helper.run)")
	eventsCmd.Flags().StringVar(&eventsLevel, "level", "", "Only show events of this level (INFO, WARN, ERROR)")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "7d", "Time window (e.g. 7d, 24h)")
	eventsCmd.Flags().IntVar(&eventsLast, "last", 50, "Show at most this many of the newest events (0 for all)")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output events as JSON lines")
	eventsCmd.Flags().BoolVar(&eventsStats, "stats", false, "Print aggregated counters instead of events")
	rootCmd.AddCommand(eventsCmd)
}
