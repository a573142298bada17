package resample

import (
	"math"
	"testing"
	"time"
)

const epsilon = 1e-9

func some(v float64) Sample { return Sample{Value: v, Present: true} }
func none() Sample          { return Sample{} }

func assertSamples(t *testing.T, got, want []Sample) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Present != want[i].Present {
			t.Errorf("bin %d: present = %v, want %v", i, got[i].Present, want[i].Present)
			continue
		}
		if want[i].Present && math.Abs(got[i].Value-want[i].Value) > epsilon {
			t.Errorf("bin %d: value = %v, want %v", i, got[i].Value, want[i].Value)
		}
	}
}

func TestMax(t *testing.T) {
	now := time.Now()
	at := func(ms int) time.Time { return now.Add(time.Duration(ms) * time.Millisecond) }

	tests := []struct {
		name     string
		values   []float64
		timesMs  []int
		startMs  int
		endMs    int
		bins     int
		expected []Sample
	}{
		{
			name:     "exact alignment",
			values:   []float64{0, 1, 2, 3},
			timesMs:  []int{50, 150, 250, 350},
			startMs:  0, endMs: 400, bins: 4,
			expected: []Sample{some(0), some(1), some(2), some(3)},
		},
		{
			name:     "single sample in middle bin",
			values:   []float64{42},
			timesMs:  []int{100},
			startMs:  0, endMs: 200, bins: 5,
			expected: []Sample{none(), none(), some(42), none(), none()},
		},
		{
			name:    "sample exactly at window start is excluded",
			values:  []float64{10},
			timesMs: []int{0},
			startMs: 0, endMs: 100, bins: 4,
			expected: []Sample{none(), none(), none(), none()},
		},
		{
			name:    "sample exactly at window end lands in last bin",
			values:  []float64{20},
			timesMs: []int{100},
			startMs: 0, endMs: 100, bins: 4,
			expected: []Sample{none(), none(), none(), some(20)},
		},
		{
			name:    "sample before window",
			values:  []float64{30},
			timesMs: []int{50},
			startMs: 100, endMs: 200, bins: 3,
			expected: []Sample{none(), none(), none()},
		},
		{
			name:    "sample after window",
			values:  []float64{40},
			timesMs: []int{250},
			startMs: 100, endMs: 200, bins: 3,
			expected: []Sample{none(), none(), none()},
		},
		{
			name:    "two samples in one bin keep the max",
			values:  []float64{10, 20},
			timesMs: []int{10, 20},
			startMs: 0, endMs: 100, bins: 4,
			expected: []Sample{some(20), none(), none(), none()},
		},
		{
			name:    "two samples in adjacent bins",
			values:  []float64{10, 20},
			timesMs: []int{20, 30},
			startMs: 0, endMs: 100, bins: 4,
			expected: []Sample{some(10), some(20), none(), none()},
		},
		{
			name:    "mixture of samples",
			values:  []float64{5, 15, 25, 35, 45},
			timesMs: []int{10, 50, 90, 160, 170},
			startMs: 0, endMs: 200, bins: 4,
			expected: []Sample{some(15), some(25), none(), some(45)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times := make([]time.Time, len(tt.timesMs))
			for i, ms := range tt.timesMs {
				times[i] = at(ms)
			}
			got := Max(tt.values, times, at(tt.startMs), at(tt.endMs), tt.bins)
			assertSamples(t, got, tt.expected)
		})
	}
}

func TestMaxEmptyInputs(t *testing.T) {
	now := time.Now()
	end := now.Add(time.Second)

	if got := Max(nil, nil, now, end, 4); len(got) != 0 {
		t.Errorf("empty values: got %d bins, want 0", len(got))
	}
	if got := Max([]float64{1}, []time.Time{now}, now, end, 0); len(got) != 0 {
		t.Errorf("zero bins: got %d bins, want 0", len(got))
	}
	if got := Max([]float64{}, []time.Time{now}, now, end, 4); len(got) != 0 {
		t.Errorf("empty values with times: got %d bins, want 0", len(got))
	}
}

func TestMaxLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on length mismatch")
		}
	}()
	now := time.Now()
	Max([]float64{1, 2}, []time.Time{now}, now, now.Add(time.Second), 2)
}

func TestMaxBinCount(t *testing.T) {
	now := time.Now()
	for _, bins := range []int{1, 3, 7, 64} {
		got := Max([]float64{1}, []time.Time{now.Add(time.Millisecond)}, now, now.Add(time.Second), bins)
		if len(got) != bins {
			t.Errorf("bins=%d: got %d results", bins, len(got))
		}
	}
}
