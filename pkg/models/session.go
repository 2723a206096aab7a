package models

import "time"

// SessionPhase is the connection lifecycle state of the bot.
type SessionPhase string

const (
	PhaseDisconnected SessionPhase = "disconnected"
	PhaseConnecting   SessionPhase = "connecting"
	PhaseJoined       SessionPhase = "joined"
	PhaseReconnecting SessionPhase = "reconnecting"
)

// SessionState is the mutable state owned by the session controller.
type SessionState struct {
	Phase     SessionPhase
	Channels  []string
	Nickname  string
	Topic     string
	TopicSeen bool
	LastDaily time.Time
	LastPoll  time.Time
}

// MainChannel returns the first configured channel, or "" if none.
func (s SessionState) MainChannel() string {
	if len(s.Channels) == 0 {
		return ""
	}
	return s.Channels[0]
}
