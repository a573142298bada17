package proc

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Stats is one resource usage sample for a live process.
type Stats struct {
	Timestamp  time.Time
	CPUPercent float64
	MemoryMB   float64
	Uptime     time.Duration
}

// MergeMax folds s into the running per-field maximum. The timestamp always
// tracks the most recent sample so chart axes know the series endpoint.
func (m *Stats) MergeMax(s Stats) {
	if s.CPUPercent > m.CPUPercent {
		m.CPUPercent = s.CPUPercent
	}
	if s.MemoryMB > m.MemoryMB {
		m.MemoryMB = s.MemoryMB
	}
	if s.Uptime > m.Uptime {
		m.Uptime = s.Uptime
	}
	m.Timestamp = s.Timestamp
}

// Sampler reads OS-level CPU/memory/uptime for a set of PIDs. It caches
// gopsutil handles per PID so CPU percentages are deltas between refreshes
// rather than lifetime averages.
type Sampler struct {
	handles map[int32]*process.Process
}

// NewSampler creates an empty sampler.
func NewSampler() *Sampler {
	return &Sampler{handles: make(map[int32]*process.Process)}
}

// Sample refreshes stats for the given PIDs in one pass. PIDs that have
// vanished or cannot be read are simply absent from the result; a missing
// entry is not an error.
func (s *Sampler) Sample(pids []int32) map[int32]Stats {
	now := time.Now()
	out := make(map[int32]Stats, len(pids))
	wanted := make(map[int32]bool, len(pids))

	for _, pid := range pids {
		wanted[pid] = true
		h, ok := s.handles[pid]
		if !ok {
			var err error
			h, err = process.NewProcess(pid)
			if err != nil {
				continue
			}
			s.handles[pid] = h
		}

		cpu, err := h.CPUPercent()
		if err != nil {
			delete(s.handles, pid)
			continue
		}
		mem, err := h.MemoryInfo()
		if err != nil || mem == nil {
			delete(s.handles, pid)
			continue
		}
		created, err := h.CreateTime()
		if err != nil {
			delete(s.handles, pid)
			continue
		}

		out[pid] = Stats{
			Timestamp:  now,
			CPUPercent: cpu,
			MemoryMB:   float64(mem.RSS) / 1_000_000.0,
			Uptime:     now.Sub(time.UnixMilli(created)),
		}
	}

	// Drop handles for PIDs we no longer track.
	for pid := range s.handles {
		if !wanted[pid] {
			delete(s.handles, pid)
		}
	}
	return out
}
