// Package ui renders read-only supervisor snapshots to the terminal. It
// never mutates supervisor state; its only outputs are pixels and the raw
// input events it forwards to the event queue.
package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/psantana5/procwatch/internal/event"
	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/proc"
)

// Dashboard owns the tcell screen.
type Dashboard struct {
	screen tcell.Screen
}

// New initializes the terminal screen.
func New() (*Dashboard, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to init screen: %w", err)
	}
	return &Dashboard{screen: screen}, nil
}

// NewWithScreen wraps an existing screen; used by tests with a simulation
// screen.
func NewWithScreen(screen tcell.Screen) *Dashboard {
	return &Dashboard{screen: screen}
}

// StartInputPump forwards terminal events to the handler until the screen
// is finalized. PollEvent unblocks with nil when Fini runs.
func (d *Dashboard) StartInputPump(h *event.Handler) {
	go func() {
		for {
			ev := d.screen.PollEvent()
			if ev == nil {
				return
			}
			h.SendInput(ev)
		}
	}()
}

// Close restores the terminal.
func (d *Dashboard) Close() {
	d.screen.Fini()
}

// Sync forces a full repaint, used after terminal resizes.
func (d *Dashboard) Sync() {
	d.screen.Sync()
}

var (
	styleHeader  = tcell.StyleDefault.Bold(true)
	styleDefault = tcell.StyleDefault
	styleRunning = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleStopped = tcell.StyleDefault.Foreground(tcell.ColorRed)
	stylePending = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleDim     = tcell.StyleDefault.Dim(true)
)

func stateStyle(v proc.View) tcell.Style {
	switch {
	case v.State == "running":
		return styleRunning
	case v.State == "starting" || v.RestartAt != nil:
		return stylePending
	default:
		return styleStopped
	}
}

// Render draws one frame from detached snapshots.
func (d *Dashboard) Render(views []proc.View, logs []logging.Entry, now time.Time) {
	d.screen.Clear()
	width, height := d.screen.Size()

	d.puts(0, 0, styleHeader, fmt.Sprintf("procwatch  %d processes  (q quit, r reload)", len(views)))

	row := 2
	d.puts(0, 1, styleDim, fmt.Sprintf("%-16s %-28s %8s %8s %9s  %s",
		"NAME", "STATE", "RESTARTS", "CPU%", "MEM MB", "CPU HISTORY"))
	for _, v := range views {
		if row >= height-1 {
			break
		}
		var cpu, mem float64
		if len(v.Stats) > 0 {
			last := v.Stats[len(v.Stats)-1]
			cpu, mem = last.CPUPercent, last.MemoryMB
		}
		line := fmt.Sprintf("%-16s %-28s %8d %8.1f %9.1f  %s",
			truncate(v.Display, 16), truncate(v.State, 28), v.Restarts, cpu, mem,
			Sparkline(v.Stats, v.StatsMax, 20, now))
		d.puts(0, row, stateStyle(v), line)
		row++
	}

	// Log tail fills the remaining rows.
	row++
	remaining := height - row
	if remaining > 0 {
		start := len(logs) - remaining
		if start < 0 {
			start = 0
		}
		for _, e := range logs[start:] {
			if row >= height {
				break
			}
			msg := fmt.Sprintf("%s %-5s %s: %s",
				e.Time.Format("15:04:05"), e.Level, e.Component, e.Message)
			d.puts(0, row, styleDim, truncate(msg, width))
			row++
		}
	}

	d.screen.Show()
}

func (d *Dashboard) puts(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		d.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
