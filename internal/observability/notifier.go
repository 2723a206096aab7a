package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const webhookTimeout = 10 * time.Second

// Notifier delivers triggered alerts to the operator.
type Notifier interface {
	Notify(alerts []Alert) error
}

// Printer is the part of Console a notifier needs.
type Printer interface {
	Printf(format string, args ...any)
}

type consoleNotifier struct {
	out Printer
}

// NewConsoleNotifier creates a Notifier that prints one line per alert.
func NewConsoleNotifier(out Printer) Notifier {
	return &consoleNotifier{out: out}
}

func (c *consoleNotifier) Notify(alerts []Alert) error {
	for _, a := range alerts {
		c.out.Printf("ALERT [%s] %s", strings.ToUpper(string(a.Severity)), a.Message)
	}
	return nil
}

// slackNotifier posts alerts to a Slack-compatible incoming webhook.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts to the given webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts the alerts as one message. An empty slice sends nothing.
func (s *slackNotifier) Notify(alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(buildSlackMessage(alerts))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildSlackMessage(alerts []Alert) slackMessage {
	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: "dmb alerts"},
	}}
	for _, a := range alerts {
		text := fmt.Sprintf("%s *[%s]* %s\n_%s_",
			severityEmoji(a.Severity),
			strings.ToUpper(string(a.Severity)),
			a.Message,
			a.TriggeredAt.UTC().Format("2006-01-02 15:04 UTC"),
		)
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}})
	}
	return slackMessage{Blocks: blocks}
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}

// multiNotifier fans alerts out to every notifier and joins their errors.
type multiNotifier []Notifier

// NewMultiNotifier combines notifiers; nil entries are skipped.
func NewMultiNotifier(notifiers ...Notifier) Notifier {
	var m multiNotifier
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multiNotifier) Notify(alerts []Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(alerts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
