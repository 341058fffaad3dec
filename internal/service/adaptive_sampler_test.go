package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptiveSampler_SampleProbability(t *testing.T) {
	s := NewAdaptiveSampler(DefaultTuning())

	tests := []struct {
		name  string
		count int64
		found bool
		want  float64
	}{
		{name: "cold start always samples", count: 0, found: false, want: 1},
		{name: "zero count floors to one", count: 0, found: true, want: 1},
		{name: "negative count floors to one", count: -5, found: true, want: 1},
		{name: "small classroom", count: 30, found: true, want: 1},
		{name: "exactly target", count: 100, found: true, want: 1},
		{name: "just above target", count: 101, found: true, want: 100.0 / 101},
		{name: "large classroom", count: 1000, found: true, want: 0.1},
		{name: "floor at minimum", count: 10_000_000, found: true, want: 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.SampleProbability(tt.count, tt.found), 1e-12)
		})
	}
}

func TestAdaptiveSampler_Bounds(t *testing.T) {
	s := NewAdaptiveSampler(DefaultTuning())

	for count := int64(-3); count <= 500_000; count += 997 {
		p := s.SampleProbability(count, true)
		assert.LessOrEqual(t, p, 1.0)
		assert.GreaterOrEqual(t, p, 0.001)

		if count > 100 {
			assert.Less(t, p, 1.0, "count %d", count)
		}
	}
}

func TestAdaptiveSampler_Sample(t *testing.T) {
	s := NewAdaptiveSampler(DefaultTuning())

	p, ok := s.WithDraw(func() float64 { return 0.1 }).Sample(1000, true)
	assert.InDelta(t, 0.1, p, 1e-12)
	assert.True(t, ok, "draw equal to probability applies")

	_, ok = s.WithDraw(func() float64 { return 0.11 }).Sample(1000, true)
	assert.False(t, ok)

	_, ok = s.WithDraw(func() float64 { return 0.999 }).Sample(0, false)
	assert.True(t, ok)
}

func TestTuning_WithDefaults(t *testing.T) {
	got := Tuning{SplashThreshold: 0.8, StudentDNANewWeight: 2}.WithDefaults()

	assert.InDelta(t, 0.8, got.SplashThreshold, 1e-12)
	assert.InDelta(t, DefaultStudentDNANewWeight, got.StudentDNANewWeight, 1e-12)
	assert.InDelta(t, DefaultSplashGain, got.SplashGain, 1e-12)
	assert.Equal(t, int64(DefaultColdStartStudentCount), got.ColdStartStudentCount)
	assert.Equal(t, DefaultMasteryMaxAttempts, got.MasteryMaxAttempts)
}
