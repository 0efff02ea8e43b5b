package dispatch

import (
	"fmt"

	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropEvent
	KickConnection
)

// Policy decides what happens to a recipient whose outbound queue is full.
// The event itself is always lost for that recipient.
type Policy interface {
	OnBackPressure(user domain.UserID, conn core.SignalConnection) BackpressureAction
}

// DropPolicy loses the event and keeps the connection.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.UserID, core.SignalConnection) BackpressureAction {
	return DropEvent
}

// KickPolicy closes the slow connection; the client reconnects and refetches
// persisted state.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.UserID, core.SignalConnection) BackpressureAction {
	return KickConnection
}

// PolicyByName maps the config value to a Policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
