package proc

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/psantana5/procwatch/internal/event"
	"github.com/psantana5/procwatch/internal/logging"
)

// maxStatsHistory bounds the per-process sample history. Old samples fall
// off the front; the dashboard only ever windows the recent past.
const maxStatsHistory = 512

// Process is one supervised unit. All fields are owned by the Manager and
// mutated only on the event loop; background tasks communicate exclusively
// through the event queue and the kill channel.
type Process struct {
	Name     string
	Display  string
	Spec     Spec
	ID       uuid.UUID // incarnation id, regenerated on every spawn
	PID      int32     // 0 until the first spawn succeeds
	State    State
	Restarts int
	Policy   RestartPolicySnapshot
	LastStart time.Time
	LastStop  time.Time
	Stats    []Stats
	StatsMax Stats

	killc chan struct{}
	log   *logging.Logger
}

// RestartPolicySnapshot is the policy captured at upsert time. Later config
// edits only take effect through a remove/re-add cycle.
type RestartPolicySnapshot struct {
	Enabled     bool
	Cooloff     time.Duration
	MaxRestarts int
}

// NewProcess builds a Process from a spec. The command is constructed once
// here to surface malformed specs early; every spawn rebuilds it because an
// exec.Cmd cannot be started twice.
func NewProcess(spec Spec, log *logging.Logger) (*Process, error) {
	if _, err := BuildCommand(spec); err != nil {
		return nil, err
	}
	return &Process{
		Name:    spec.Name,
		Display: spec.DisplayName(),
		Spec:    spec,
		Policy: RestartPolicySnapshot{
			Enabled:     spec.Restart.Enabled,
			Cooloff:     spec.Restart.Cooloff,
			MaxRestarts: spec.Restart.MaxRestarts,
		},
		log: log.WithComponent(spec.Name),
	}, nil
}

// Spawn starts a new incarnation: builds the OS command, captures stdout
// and stderr as line streams, and starts the output pumps plus the death
// watcher. Returns the fresh incarnation id.
func (p *Process) Spawn(events *event.Handler) (uuid.UUID, error) {
	cmd, err := BuildCommand(p.Spec)
	if err != nil {
		return uuid.Nil, err
	}
	// Children get their own process group so a kill can take the whole
	// tree, not just the shell-spawned leader.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return uuid.Nil, &SpawnError{Name: p.Name, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return uuid.Nil, &SpawnError{Name: p.Name, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return uuid.Nil, &SpawnError{Name: p.Name, Err: err}
	}

	id := uuid.New()
	p.ID = id
	p.PID = int32(cmd.Process.Pid)
	p.LastStart = time.Now()
	p.setState(State{Kind: StateStarting})
	p.killc = make(chan struct{})

	p.log.Info("spawning incarnation %s (pid %d)", id, p.PID)

	// Wait closes the pipes; it must not run until both pumps have read
	// them to EOF or tail output is lost.
	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		linePump(p.log, "stdout", stdout)
	}()
	go func() {
		defer pumps.Done()
		linePump(p.log, "stderr", stderr)
	}()
	go deathWatch(p.log, id, cmd, &pumps, p.killc, events)

	return id, nil
}

// Kill requests termination of the current incarnation. Idempotent and
// non-blocking; the state transition to Stopped happens only when the death
// watcher observes the actual OS exit.
func (p *Process) Kill() {
	if p.killc == nil {
		return
	}
	close(p.killc)
	p.killc = nil
}

// PushStats appends a sample, folds it into the running maxima, and marks
// the process Running: an observed sample is the liveness signal.
func (p *Process) PushStats(s Stats) {
	p.Stats = append(p.Stats, s)
	if len(p.Stats) > maxStatsHistory {
		p.Stats = p.Stats[len(p.Stats)-maxStatsHistory:]
	}
	p.StatsMax.MergeMax(s)
	p.setState(State{Kind: StateRunning})
}

// setState applies a lifecycle transition, checking it against the
// transition table. An illegal move is applied anyway (the OS already
// decided) but logged so the invariant violation is visible.
func (p *Process) setState(next State) {
	if next.Kind != p.State.Kind {
		if err := ValidateTransition(p.State.Kind, next.Kind); err != nil {
			p.log.Warn("%v", err)
		}
	}
	p.State = next
}

// linePump forwards each output line as a tagged log entry until the stream
// closes (process exited and pipe drained).
func linePump(log *logging.Logger, stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		log.Info("%s", scanner.Text())
	}
	log.Debug("%s reader exiting", stream)
}

// deathWatch waits concurrently for the OS exit and for a kill request. A
// kill request forcefully terminates the process group and keeps waiting;
// only the observed exit produces the (single) ProcessDied notification.
// The reap happens only after both output pumps hit EOF, so the death
// notification implies all output lines have landed in the log ring.
func deathWatch(log *logging.Logger, id uuid.UUID, cmd *exec.Cmd, pumps *sync.WaitGroup, killc <-chan struct{}, events *event.Handler) {
	waitc := make(chan error, 1)
	go func() {
		pumps.Wait()
		waitc <- cmd.Wait()
	}()

	for {
		select {
		case err := <-waitc:
			status := exitStatusFrom(err)
			log.Info("process exit: code %d", status.Code)
			events.Send(event.AppEvent{Kind: event.ProcessDied, ID: id, Status: status})
			return
		case <-killc:
			log.Info("process kill requested")
			if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
				// Fall back to the single process; the group may be gone.
				if killErr := cmd.Process.Kill(); killErr != nil {
					log.Error("can't kill process: %v", killErr)
				}
			}
			// A closed channel is always ready; block on the exit alone
			// from here on.
			killc = nil
		}
	}
}

func exitStatusFrom(err error) event.ExitStatus {
	if err == nil {
		return event.ExitStatus{Code: 0}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status := event.ExitStatus{Code: exitErr.ExitCode()}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			status.Signal = ws.Signal().String()
		}
		return status
	}
	// Wait itself failed; report it as an abnormal exit.
	return event.ExitStatus{Code: -1, Signal: err.Error()}
}
