package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/psantana5/procwatch/internal/config"
	"github.com/psantana5/procwatch/internal/event"
	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/proc"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	ring := logging.NewRing(256)
	log := logging.NewLogger(logging.INFO, ring)
	events := event.NewHandler(time.Hour)
	t.Cleanup(events.Stop)
	return &App{
		running: true,
		events:  events,
		proc:    proc.NewManager(events, log),
		log:     log,
		ring:    ring,
	}
}

func drainApp(t *testing.T, a *App) event.AppEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for {
		ev, err := a.events.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if ev.Kind == event.KindApp {
			return ev.App
		}
	}
}

func TestHandleQuitStopsLoop(t *testing.T) {
	a := newTestApp(t)
	if !a.Running() {
		t.Fatal("expected app to start running")
	}
	a.Handle(event.Event{Kind: event.KindApp, App: event.AppEvent{Kind: event.Quit}})
	if a.Running() {
		t.Fatal("expected Quit to stop the loop")
	}
}

func TestInputKeysEnqueueEvents(t *testing.T) {
	tests := []struct {
		name string
		key  tcell.Event
		want event.AppKind
	}{
		{"q quits", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), event.Quit},
		{"ctrl-c quits", tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), event.Quit},
		{"r reloads", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone), event.Reload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t)
			a.Handle(event.Event{Kind: event.KindInput, Input: tt.key})
			got := drainApp(t, a)
			if got.Kind != tt.want {
				t.Fatalf("got app event %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestUnboundKeysAreIgnored(t *testing.T) {
	a := newTestApp(t)
	a.Handle(event.Event{
		Kind:  event.KindInput,
		Input: tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if ev, err := a.events.Next(ctx); err == nil {
		t.Fatalf("expected empty queue, got %+v", ev)
	}
}

func TestStartDiffsFleet(t *testing.T) {
	a := newTestApp(t)

	first := &config.Config{
		Services: []config.Service{{Name: "alpha", Command: "sleep 60"}},
		Stubs:    []config.Stub{{Name: "beta", Command: "sleep 60"}},
	}
	a.start(first)

	procs := a.proc.Processes()
	if len(procs) != 2 {
		t.Fatalf("got %d processes, want 2", len(procs))
	}
	alphaID := procs[0].ID
	if procs[0].Name != "alpha" || procs[1].Name != "beta" {
		t.Fatalf("unexpected names %q, %q", procs[0].Name, procs[1].Name)
	}
	if procs[1].Policy.Enabled {
		t.Fatal("stub restart policy should be disabled")
	}

	// beta dropped from the document, alpha restarted under a fresh
	// incarnation.
	second := &config.Config{
		Services: []config.Service{{Name: "alpha", Command: "sleep 60"}},
	}
	a.start(second)

	var removedBeta bool
	for _, e := range a.ring.Tail(a.ring.Len()) {
		if strings.Contains(e.Message, "removing process beta") {
			removedBeta = true
		}
	}
	if !removedBeta {
		t.Error("stale process removal not logged")
	}

	procs = a.proc.Processes()
	if len(procs) != 1 {
		t.Fatalf("got %d processes after reload, want 1", len(procs))
	}
	if procs[0].Name != "alpha" {
		t.Fatalf("got %q, want alpha", procs[0].Name)
	}
	if procs[0].ID == alphaID {
		t.Fatal("expected a new incarnation after reload")
	}

	a.start(&config.Config{})
	if got := len(a.proc.Processes()); got != 0 {
		t.Fatalf("got %d processes after empty config, want 0", got)
	}
}

func TestRunTreatsCancellationAsCleanShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procwatch.yaml")
	if err := os.WriteFile(path, []byte("services: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ring := logging.NewRing(64)
	log := logging.NewLogger(logging.ERROR, ring)
	a, err := New(path, log, ring, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// SIGINT/SIGTERM surface as context cancellation; Run must report a
	// clean exit, not an error.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run after cancellation = %v, want nil", err)
	}
}

func TestRenderPublishesWithoutSurfaces(t *testing.T) {
	// Headless: no dashboard, no status server. Render must be a no-op
	// rather than a nil dereference.
	a := newTestApp(t)
	a.Handle(event.Event{Kind: event.KindTick})
}
