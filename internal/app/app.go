// Package app wires the event loop to the process manager, config manager,
// and presentation surfaces, and owns the dispatch loop.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/psantana5/procwatch/internal/api"
	"github.com/psantana5/procwatch/internal/config"
	"github.com/psantana5/procwatch/internal/event"
	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/proc"
)

// renderTick is the dashboard frame cadence.
const renderTick = 250 * time.Millisecond

// statsInterval is the stat-refresh cadence. Coarser than the render tick;
// every refresh runs a full sampler pass.
const statsInterval = 2 * time.Second

// Renderer is the presentation surface the driver pushes frames to.
type Renderer interface {
	Render(views []proc.View, logs []logging.Entry, now time.Time)
	Sync()
}

// App is the application driver: the single consumer of the event stream
// and the only mutator of supervisor state.
type App struct {
	running bool
	events  *event.Handler
	config  *config.Manager
	proc    *proc.Manager
	log     *logging.Logger
	ring    *logging.Ring

	dash   Renderer    // nil when running headless
	status *api.Server // nil when no http_addr configured
}

// Options carries the optional collaborators.
type Options struct {
	Dashboard Renderer
	Status    *api.Server
}

// New loads the config at path and assembles the driver. The config watcher
// feeds Reload events into the queue; the process manager feeds deaths and
// stat-refresh ticks.
func New(path string, log *logging.Logger, ring *logging.Ring, opts Options) (*App, error) {
	events := event.NewHandler(renderTick)
	cfgMgr, err := config.NewManager(path, func() {
		events.Send(event.AppEvent{Kind: event.Reload})
	})
	if err != nil {
		return nil, err
	}

	return &App{
		running: true,
		events:  events,
		config:  cfgMgr,
		proc:    proc.NewManager(events, log),
		log:     log.WithComponent("app"),
		ring:    ring,
		dash:    opts.Dashboard,
		status:  opts.Status,
	}, nil
}

// Proc exposes the process manager, e.g. for attaching metrics.
func (a *App) Proc() *proc.Manager { return a.proc }

// Events exposes the event handler so input pumps can feed the queue.
func (a *App) Events() *event.Handler { return a.events }

// Run starts the supervised fleet and consumes events until a Quit event or
// context cancellation. Background pumps and watchers are not force-stopped
// on exit; they end with their OS processes.
func (a *App) Run(ctx context.Context) error {
	defer a.config.Close()
	defer a.events.Stop()

	a.proc.StartRefresh(ctx, statsInterval)
	if a.status != nil {
		a.status.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			a.status.Shutdown(shutdownCtx)
		}()
	}

	a.start(a.config.Current())

	for a.running {
		ev, err := a.events.Next(ctx)
		if err != nil {
			// Cancellation is how SIGINT/SIGTERM stop the loop; it is a
			// clean shutdown, not a failure.
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		a.Handle(ev)
	}
	return nil
}

// Handle dispatches one event. Exported so tests can drive the loop
// directly.
func (a *App) Handle(ev event.Event) {
	switch ev.Kind {
	case event.KindTick:
		a.render()
	case event.KindInput:
		a.handleInput(ev.Input)
	case event.KindApp:
		switch ev.App.Kind {
		case event.Reload:
			a.reloadConfig()
		case event.Quit:
			a.running = false
		case event.ProcessDied:
			a.proc.ProcessDied(ev.App.ID, ev.App.Status)
		case event.StatsRefresh:
			a.proc.Tick()
		}
	}
}

// Running reports whether the loop will keep consuming.
func (a *App) Running() bool { return a.running }

func (a *App) handleInput(in tcell.Event) {
	switch ev := in.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyCtrlC:
			a.events.Send(event.AppEvent{Kind: event.Quit})
		case ev.Rune() == 'q':
			a.events.Send(event.AppEvent{Kind: event.Quit})
		case ev.Rune() == 'r':
			a.events.Send(event.AppEvent{Kind: event.Reload})
		}
	case *tcell.EventResize:
		if a.dash != nil {
			a.dash.Sync()
		}
	}
}

func (a *App) render() {
	views := a.proc.Snapshot()
	if a.dash != nil {
		a.dash.Render(views, a.ring.Tail(a.ring.Len()), time.Now())
	}
	if a.status != nil {
		a.status.Publish(api.Snapshot{Processes: views, Config: a.config.Current()})
	}
}

func (a *App) reloadConfig() {
	a.log.Debug("reload")
	cfg, err := a.config.Reload()
	if err != nil {
		// Keep the previous config running; surface the failure only.
		a.log.Error("config reload failed: %v", err)
		return
	}
	a.start(cfg)
}

// start diffs the tracked fleet against the document: every tracked record
// is dropped (stale names stop for good, surviving names stop and restart
// with their fresh spec), then all declared services and stubs spawn.
func (a *App) start(cfg *config.Config) {
	var tracked []string
	for _, p := range a.proc.Processes() {
		tracked = append(tracked, p.Name)
	}
	for _, name := range tracked {
		if cfg.Contains(name) {
			a.log.Debug("stop process %s for restart", name)
		} else {
			a.log.Info("removing process %s, no longer declared", name)
		}
		if err := a.proc.Drop(name); err != nil {
			a.log.Error("failed to stop %s: %v", name, err)
		}
	}

	for _, svc := range cfg.Services {
		a.log.Debug("start service %s", svc.Name)
		if _, err := a.proc.Upsert(proc.SpecFromService(svc)); err != nil {
			a.log.Error("failed to start service %s: %v", svc.Name, err)
		}
	}
	for _, stub := range cfg.Stubs {
		a.log.Debug("start stub %s", stub.Name)
		if _, err := a.proc.Upsert(proc.SpecFromStub(stub)); err != nil {
			a.log.Error("failed to start stub %s: %v", stub.Name, err)
		}
	}
	for _, agent := range cfg.Agents {
		// Agents are declared but inert.
		a.log.Debug("agent %s (scenario %s) declared, not started", agent.Name, agent.Scenario)
	}
}
