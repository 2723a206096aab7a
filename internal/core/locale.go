package core

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// User-visible strings. They double as catalog keys.
const (
	MsgError          = "An error occurred."
	MsgUnknownCommand = "Unknown command."
	MsgVersion        = "A very simple bot with 日本語 support."
	MsgFarewell       = "さようなら"
	MsgMissingChannel = "Missing channel name"
	MsgPrivmsgUsage   = "Usage: privmsg <target> <message>"
	MsgSayUsage       = "Usage: say <message>"
	MsgRawUsage       = "Usage: raw <line>"
	MsgNoStats        = "Statistics are unavailable."
	MsgPendingTimers  = "Pending timers: %d"
	MsgNextTimer      = "Next timer: %s %q at %s"
)

var supportedLanguages = []language.Tag{language.English, language.German, language.Japanese}

var translations = map[language.Tag]map[string]string{
	language.German: {
		MsgError:          "Ein Fehler ist aufgetreten.",
		MsgUnknownCommand: "Unbekannter Befehl.",
		MsgVersion:        "Ein sehr einfacher Bot mit 日本語-Unterstützung.",
		MsgMissingChannel: "Kanalname fehlt",
		MsgNoStats:        "Statistiken sind nicht verfügbar.",
		MsgPendingTimers:  "Ausstehende Timer: %d",
		MsgNextTimer:      "Nächster Timer: %s %q um %s",
	},
	language.Japanese: {
		MsgError:          "エラーが発生しました。",
		MsgUnknownCommand: "不明なコマンドです。",
		MsgVersion:        "日本語対応のとてもシンプルなボットです。",
		MsgMissingChannel: "チャンネル名がありません",
		MsgNoStats:        "統計情報は利用できません。",
		MsgPendingTimers:  "保留中のタイマー: %d",
		MsgNextTimer:      "次のタイマー: %s %q (%s)",
	},
}

func init() {
	for tag, table := range translations {
		for key, msg := range table {
			_ = message.SetString(tag, key, msg)
		}
	}
}

// Messages renders user-visible strings in one language.
type Messages struct {
	printer *message.Printer
}

// NewMessages picks the closest supported language for a POSIX locale
// name such as "de_DE.UTF-8". Unknown or empty names fall back to English.
func NewMessages(locale string) *Messages {
	return &Messages{printer: message.NewPrinter(matchLanguage(locale))}
}

// Get returns the translation of key formatted with args.
func (m *Messages) Get(key string, args ...any) string {
	return m.printer.Sprintf(key, args...)
}

func matchLanguage(locale string) language.Tag {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.English
	}
	_, idx, _ := language.NewMatcher(supportedLanguages).Match(tag)
	return supportedLanguages[idx]
}
