package models

import "strings"

// ChatEventKind classifies an inbound event delivered by the chat transport.
type ChatEventKind string

const (
	EventWelcome       ChatEventKind = "welcome"
	EventPrivmsg       ChatEventKind = "privmsg"
	EventTopicSnapshot ChatEventKind = "topic_snapshot"
	EventTopicChange   ChatEventKind = "topic_change"
	EventNickInUse     ChatEventKind = "nick_in_use"
	EventNickChange    ChatEventKind = "nick_change"
	EventDisconnect    ChatEventKind = "disconnect"
)

// ChatEvent is a transport-neutral view of an inbound chat event.
//
// For EventPrivmsg, Source is the sender nickname, Target the addressed
// channel or nickname and Text the message body. For topic events Target is
// the channel and Text the topic. For EventNickInUse Text is the rejected
// nickname. For EventWelcome and EventNickChange Text is the nickname the
// server has registered, when the transport knows it.
type ChatEvent struct {
	Kind   ChatEventKind
	Source string
	Target string
	Text   string
}

// IsChannel reports whether name looks like an IRC channel.
func IsChannel(name string) bool {
	return name != "" && strings.ContainsRune("#&+!", rune(name[0]))
}
