package proc

import "time"

// View is a read-only snapshot of one process for presentation layers. It
// shares nothing mutable with the live Process.
type View struct {
	Name      string        `json:"name"`
	Display   string        `json:"display"`
	State     string        `json:"state"`
	Restarts  int           `json:"restarts"`
	HasPID    bool          `json:"has_pid"`
	PID       int32         `json:"pid,omitempty"`
	ExitCode  int           `json:"exit_code"`
	RestartAt *time.Time    `json:"restart_at,omitempty"`
	LastStart time.Time     `json:"last_start"`
	LastStop  time.Time     `json:"last_stop"`
	Stats     []Stats       `json:"-"`
	StatsMax  Stats         `json:"-"`
	Uptime    time.Duration `json:"uptime"`
}

// Snapshot copies the collection for rendering or the status API. The
// returned views are detached; presentation code must not reach back into
// live state.
func (m *Manager) Snapshot() []View {
	views := make([]View, 0, len(m.processes))
	for _, p := range m.processes {
		v := View{
			Name:      p.Name,
			Display:   p.Display,
			State:     p.State.String(),
			Restarts:  p.Restarts,
			HasPID:    p.PID != 0,
			PID:       p.PID,
			ExitCode:  p.State.Exit.Code,
			LastStart: p.LastStart,
			LastStop:  p.LastStop,
			Stats:     append([]Stats(nil), p.Stats...),
			StatsMax:  p.StatsMax,
		}
		if p.State.Kind == StateStopped && p.State.Intent.Restart {
			at := p.State.Intent.At
			v.RestartAt = &at
		}
		if !p.LastStart.IsZero() && p.State.Kind != StateStopped {
			v.Uptime = time.Since(p.LastStart)
		}
		views = append(views, v)
	}
	return views
}
