package proc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/psantana5/procwatch/internal/event"
	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/metrics"
)

// ErrNotFound is returned for operations on names nobody tracks.
var ErrNotFound = errors.New("no such process")

// Manager owns the process collection and is its sole mutator. All methods
// must be called from the event loop consumer; background tasks reach the
// manager only through the event queue.
type Manager struct {
	processes []*Process
	events    *event.Handler
	sampler   *Sampler
	log       *logging.Logger
	metrics   *metrics.Set
	now       func() time.Time
}

// NewManager creates a manager publishing to the given event handler.
func NewManager(events *event.Handler, log *logging.Logger) *Manager {
	return &Manager{
		events:  events,
		sampler: NewSampler(),
		log:     log.WithComponent("proc"),
		now:     time.Now,
	}
}

// SetMetrics attaches Prometheus collectors. Optional.
func (m *Manager) SetMetrics(set *metrics.Set) { m.metrics = set }

// StartRefresh emits a StatsRefresh event at the given interval until ctx
// is cancelled. Keep the interval at second scale; every refresh triggers a
// full sampler pass.
func (m *Manager) StartRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.events.Send(event.AppEvent{Kind: event.StatsRefresh})
			}
		}
	}()
}

// Processes exposes the collection for snapshotting. Callers must not
// mutate the returned processes.
func (m *Manager) Processes() []*Process { return m.processes }

func (m *Manager) find(name string) *Process {
	for _, p := range m.processes {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Upsert appends a new Process for the spec and spawns it. The manager does
// not deduplicate by name: callers diff configs and Drop an existing record
// before re-adding one under the same name.
func (m *Manager) Upsert(spec Spec) (uuid.UUID, error) {
	p, err := NewProcess(spec, m.log)
	if err != nil {
		return uuid.Nil, err
	}
	m.processes = append(m.processes, p)
	return m.spawn(spec.Name)
}

func (m *Manager) spawn(name string) (uuid.UUID, error) {
	p := m.find(name)
	if p == nil {
		return uuid.Nil, ErrNotFound
	}
	id, err := p.Spawn(m.events)
	if err != nil {
		if m.metrics != nil {
			m.metrics.SpawnFailures.WithLabelValues(name).Inc()
		}
		return uuid.Nil, err
	}
	if m.metrics != nil {
		m.metrics.ProcessUp.WithLabelValues(name).Set(1)
	}
	// Prime the sampler so the first real refresh yields a CPU delta.
	m.sampler.Sample(m.pids())
	return id, nil
}

// Remove requests termination of the named process. The record itself stays
// in the collection; dropping it is the caller's concern, tied to config
// diffing.
func (m *Manager) Remove(name string) error {
	p := m.find(name)
	if p == nil {
		return ErrNotFound
	}
	m.log.Info("killing process %s", name)
	if p.State.Kind == StateStarting || p.State.Kind == StateRunning {
		p.setState(State{Kind: StateKilling})
	}
	p.Kill()
	return nil
}

// Drop kills the named process and removes its record. A death notification
// arriving after the drop is ignored as an unknown incarnation.
func (m *Manager) Drop(name string) error {
	if err := m.Remove(name); err != nil {
		return err
	}
	for i, p := range m.processes {
		if p.Name == name {
			m.processes = append(m.processes[:i], m.processes[i+1:]...)
			break
		}
	}
	if m.metrics != nil {
		m.metrics.Forget(name)
	}
	return nil
}

// ProcessDied records an observed OS exit for an incarnation. Notifications
// for incarnations no longer tracked are logged and ignored; that race is
// benign across a restart boundary.
func (m *Manager) ProcessDied(id uuid.UUID, status event.ExitStatus) {
	for _, p := range m.processes {
		if p.ID != id {
			continue
		}
		now := m.now()
		if p.Policy.Enabled && p.Restarts < p.Policy.MaxRestarts {
			p.setState(State{
				Kind:   StateStopped,
				Intent: RestartAt(now.Add(p.Policy.Cooloff)),
				Exit:   status,
			})
		} else {
			p.setState(State{Kind: StateStopped, Intent: NoRestart(), Exit: status})
		}
		p.LastStop = now
		if m.metrics != nil {
			m.metrics.ProcessUp.WithLabelValues(p.Name).Set(0)
		}
		return
	}
	m.log.Warn("received process died for unknown incarnation %s", id)
}

// Tick is the periodic maintenance pass: refresh stats for all tracked PIDs
// in one batch, distribute them, then respawn processes whose cooloff has
// elapsed. Intended cadence is once per couple of seconds.
func (m *Manager) Tick() {
	m.log.Debug("process manager tick")
	m.assignStats(m.sampler.Sample(m.pids()))
	m.checkRestarts()
}

func (m *Manager) pids() []int32 {
	pids := make([]int32, 0, len(m.processes))
	for _, p := range m.processes {
		if p.PID != 0 {
			pids = append(pids, p.PID)
		}
	}
	return pids
}

func (m *Manager) assignStats(samples map[int32]Stats) {
	for _, p := range m.processes {
		if p.PID == 0 {
			continue
		}
		st, ok := samples[p.PID]
		if !ok {
			continue
		}
		p.PushStats(st)
		if m.metrics != nil {
			m.metrics.CPUPercent.WithLabelValues(p.Name).Set(st.CPUPercent)
			m.metrics.MemoryMB.WithLabelValues(p.Name).Set(st.MemoryMB)
		}
	}
}

func (m *Manager) checkRestarts() {
	now := m.now()
	var due []string
	for _, p := range m.processes {
		if p.State.Kind != StateStopped || !p.State.Intent.Restart {
			continue
		}
		if p.State.Intent.At.After(now) {
			continue
		}
		p.Restarts++
		due = append(due, p.Name)
	}
	for _, name := range due {
		m.log.Info("restarting process %s", name)
		if m.metrics != nil {
			m.metrics.RestartsTotal.WithLabelValues(name).Inc()
		}
		if _, err := m.spawn(name); err != nil {
			// Reported only; the next successful upsert or config edit
			// retries, not this tick.
			m.log.Error("failed to restart process %s: %v", name, err)
		}
	}
}
