package models

import "strings"

// HelperBinding ties one or more command aliases to an external helper
// executable. Bindings are registered at startup and never change afterwards.
type HelperBinding struct {
	Aliases []string `yaml:"aliases" mapstructure:"aliases"`
	Path    string   `yaml:"path" mapstructure:"path"`
	// Timers controls whether /timer directives in the helper's output are
	// honoured. A nil value means enabled.
	Timers *bool `yaml:"timers,omitempty" mapstructure:"timers"`
}

// TimersAllowed reports whether the helper may schedule timers.
func (b HelperBinding) TimersAllowed() bool {
	return b.Timers == nil || *b.Timers
}

// String renders the binding as "alias1|alias2 -> path".
func (b HelperBinding) String() string {
	return strings.Join(b.Aliases, "|") + " -> " + b.Path
}

// InvocationContext identifies who triggered a command and where the
// reply goes. For a direct message both fields hold the sender's nickname;
// for a channel message ReplyTarget is the channel.
type InvocationContext struct {
	Source      string `json:"source"`
	ReplyTarget string `json:"reply_target"`
}
