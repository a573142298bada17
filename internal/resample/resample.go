// Package resample converts irregularly timed samples into fixed-width bins
// suitable for sparkline rendering.
package resample

import "time"

// Sample is one resampled bin. Present is false when no source sample fell
// into the bin.
type Sample struct {
	Value   float64
	Present bool
}

// Max resamples a series of values taken at irregular intervals into a fixed
// number of bins over [start, end). Each bin holds the maximum of the values
// whose timestamp falls in the bin's half-open interval (binStart, binEnd],
// so a spike is never averaged away.
//
// Empty values, empty times, or zero bins yield an empty result. Values and
// times must have equal length; a mismatch is a caller bug and panics.
func Max(values []float64, times []time.Time, start, end time.Time, bins int) []Sample {
	if len(values) == 0 || len(times) == 0 || bins == 0 {
		return nil
	}
	if len(values) != len(times) {
		panic("resample: values and times must have the same length")
	}

	result := make([]Sample, bins)
	binDur := end.Sub(start) / time.Duration(bins)

	for i := 0; i < bins; i++ {
		binStart := start.Add(binDur * time.Duration(i))
		binEnd := binStart.Add(binDur)

		for j, ts := range times {
			if ts.After(binStart) && !ts.After(binEnd) {
				if !result[i].Present || values[j] > result[i].Value {
					result[i] = Sample{Value: values[j], Present: true}
				}
			}
		}
	}
	return result
}
