package service

import "math/rand/v2"

// AdaptiveSampler decides whether a classroom aggregate write is applied. The expected number
// of applied writes per classroom stays near target regardless of classroom size.
type AdaptiveSampler struct {
	target         float64
	minProbability float64
	coldStart      int64
	draw           func() float64
}

// NewAdaptiveSampler builds a sampler from tuning, drawing from math/rand/v2.
func NewAdaptiveSampler(tuning Tuning) *AdaptiveSampler {
	tuning = tuning.WithDefaults()

	return &AdaptiveSampler{
		target:         tuning.ClassroomSampleTarget,
		minProbability: tuning.ClassroomMinSampleProbability,
		coldStart:      tuning.ColdStartStudentCount,
		draw:           rand.Float64,
	}
}

// WithDraw replaces the uniform [0,1) source. Used by tests.
func (s *AdaptiveSampler) WithDraw(draw func() float64) *AdaptiveSampler {
	cp := *s
	cp.draw = draw

	return &cp
}

// SampleProbability returns clamp(target/count, minProbability, 1). A classroom without an
// aggregate (found=false) counts as the cold-start size; counts below 1 are floored to 1.
func (s *AdaptiveSampler) SampleProbability(studentCount int64, found bool) float64 {
	if !found {
		studentCount = s.coldStart
	}

	studentCount = max(studentCount, 1)

	p := s.target / float64(studentCount)

	return min(1.0, max(s.minProbability, p))
}

// Sample returns the probability for studentCount and whether this write should be applied.
func (s *AdaptiveSampler) Sample(studentCount int64, found bool) (float64, bool) {
	p := s.SampleProbability(studentCount, found)

	return p, s.draw() <= p
}
