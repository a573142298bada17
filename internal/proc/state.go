package proc

import (
	"fmt"
	"time"

	"github.com/psantana5/procwatch/internal/event"
)

// StateKind enumerates the lifecycle states of a supervised process.
type StateKind int

const (
	// StateStarting means a spawn was requested but no liveness confirmed.
	StateStarting StateKind = iota
	// StateRunning means at least one stat sample has been observed.
	StateRunning
	// StateKilling means termination was requested, exit not yet observed.
	StateKilling
	// StateStopped means the OS exit has been observed.
	StateStopped
)

func (k StateKind) String() string {
	switch k {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateKilling:
		return "killing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// RestartIntent records whether and when a stopped process should respawn.
// The zero value is NoRestart.
type RestartIntent struct {
	Restart bool
	At      time.Time
}

// NoRestart is the terminal intent.
func NoRestart() RestartIntent { return RestartIntent{} }

// RestartAt schedules a respawn at t.
func RestartAt(t time.Time) RestartIntent { return RestartIntent{Restart: true, At: t} }

// State is one point in the lifecycle. Intent is meaningful for Killing and
// Stopped; Exit only for Stopped.
type State struct {
	Kind   StateKind
	Intent RestartIntent
	Exit   event.ExitStatus
}

func (s State) String() string {
	switch s.Kind {
	case StateStopped:
		if s.Intent.Restart {
			return fmt.Sprintf("stopped (exit %d, restart pending)", s.Exit.Code)
		}
		return fmt.Sprintf("stopped (exit %d)", s.Exit.Code)
	default:
		return s.Kind.String()
	}
}

// IsTerminal reports whether no further automatic transition can occur.
func (s State) IsTerminal() bool {
	return s.Kind == StateStopped && !s.Intent.Restart
}

// validTransitions maps from-state to allowed to-states. The authoritative
// move to Stopped always comes from an observed OS exit; Killing is a label
// applied when a kill is requested before that exit arrives.
var validTransitions = map[StateKind]map[StateKind]bool{
	StateStarting: {
		StateRunning: true, // first stat sample observed
		StateKilling: true, // kill requested before liveness
		StateStopped: true, // exited before any sample
	},
	StateRunning: {
		StateKilling: true, // kill requested
		StateStopped: true, // OS exit observed
	},
	StateKilling: {
		StateRunning: true, // late sample while the kill is in flight
		StateStopped: true, // OS exit observed
	},
	StateStopped: {
		StateStarting: true, // respawn after cooloff
		StateRunning:  true, // reused PID showed activity through the sample path
	},
}

// ValidateTransition checks whether moving between the two states is legal.
func ValidateTransition(from, to StateKind) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}
