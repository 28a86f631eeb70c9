package app

import "github.com/dkeye/VoiceCall/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose send queue is full.
type Policy interface {
	OnBackPressure(conn core.SignalConnection) BackpressureAction
}

type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(core.SignalConnection) BackpressureAction {
	return p.Action
}

// ParseBackpressure maps the config value to an action; unknown values kick.
func ParseBackpressure(s string) BackpressureAction {
	switch s {
	case "drop":
		return DropFrame
	case "none":
		return NoAction
	default:
		return KickMember
	}
}
