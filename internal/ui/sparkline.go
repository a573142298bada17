package ui

import (
	"strings"
	"time"

	"github.com/psantana5/procwatch/internal/proc"
	"github.com/psantana5/procwatch/internal/resample"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkWindow is how much history one sparkline covers.
const sparkWindow = 60 * time.Second

// Sparkline renders the CPU series of a process into a fixed-width string.
// Samples are bucketed max-hold over the trailing window and scaled against
// the series maximum so spikes stay visible; empty buckets render as spaces.
func Sparkline(stats []proc.Stats, statsMax proc.Stats, width int, now time.Time) string {
	if width <= 0 {
		return ""
	}
	values := make([]float64, len(stats))
	times := make([]time.Time, len(stats))
	for i, s := range stats {
		values[i] = s.CPUPercent
		times[i] = s.Timestamp
	}

	bins := resample.Max(values, times, now.Add(-sparkWindow), now, width)
	if len(bins) == 0 {
		return strings.Repeat(" ", width)
	}

	scale := statsMax.CPUPercent
	var b strings.Builder
	for _, bin := range bins {
		if !bin.Present {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(sparkRunes[sparkIndex(bin.Value, scale)])
	}
	return b.String()
}

func sparkIndex(value, scale float64) int {
	if scale <= 0 {
		return 0
	}
	idx := int(value / scale * float64(len(sparkRunes)))
	if idx >= len(sparkRunes) {
		idx = len(sparkRunes) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
