// Package event merges the supervisor's event sources into one ordered
// stream: a fixed-rate render tick, terminal input, and an internal queue
// fed by background tasks (process deaths, reload signals, stat-refresh
// ticks, quit requests).
package event

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
)

// Kind discriminates the top-level event union.
type Kind int

const (
	// KindTick is the render cadence.
	KindTick Kind = iota
	// KindInput is a raw terminal event.
	KindInput
	// KindApp is an application event from the internal queue.
	KindApp
)

// AppKind discriminates application events.
type AppKind int

const (
	// Reload requests a config reload and diff.
	Reload AppKind = iota
	// Quit asks the driver to stop its loop.
	Quit
	// ProcessDied reports one observed OS exit for one incarnation.
	ProcessDied
	// StatsRefresh asks the process manager to run its maintenance tick.
	StatsRefresh
)

// ExitStatus is the terminal status of one process incarnation.
type ExitStatus struct {
	// Code is the exit code; -1 when the process was terminated by a signal.
	Code int
	// Signal names the terminating signal, if any.
	Signal string
}

// Success reports a clean zero exit.
func (s ExitStatus) Success() bool { return s.Code == 0 && s.Signal == "" }

// AppEvent is one entry on the internal queue.
type AppEvent struct {
	Kind   AppKind
	ID     uuid.UUID  // ProcessDied only: the incarnation that exited
	Status ExitStatus // ProcessDied only
}

// Event is the tagged union handed to the driver.
type Event struct {
	Kind  Kind
	Input tcell.Event // KindInput only
	App   AppEvent    // KindApp only
}

const queueCapacity = 1024

// Handler merges the three sources. The merge is fair but unordered across
// sources; the only guarantee is FIFO within a single source. Next never
// busy-polls.
type Handler struct {
	tick  *time.Ticker
	input chan tcell.Event
	app   chan AppEvent
}

// NewHandler creates a handler ticking at the given render rate.
func NewHandler(tickRate time.Duration) *Handler {
	return &Handler{
		tick:  time.NewTicker(tickRate),
		input: make(chan tcell.Event, 64),
		app:   make(chan AppEvent, queueCapacity),
	}
}

// Send enqueues an application event. Never blocks: when the queue is full
// (the consumer has stopped draining, e.g. after Quit) the event is dropped.
func (h *Handler) Send(ev AppEvent) {
	select {
	case h.app <- ev:
	default:
	}
}

// SendInput enqueues a terminal event from the input pump.
func (h *Handler) SendInput(ev tcell.Event) {
	select {
	case h.input <- ev:
	default:
	}
}

// Next blocks until one source has an item ready, or ctx is cancelled.
func (h *Handler) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-h.tick.C:
		return Event{Kind: KindTick}, nil
	case in := <-h.input:
		return Event{Kind: KindInput, Input: in}, nil
	case app := <-h.app:
		return Event{Kind: KindApp, App: app}, nil
	}
}

// Stop halts the render ticker. Queued events remain readable.
func (h *Handler) Stop() {
	h.tick.Stop()
}
