package service

// Default tunables. All of them are overridable through config.
const (
	DefaultSplashThreshold               = 0.65
	DefaultSplashGain                    = 5.0
	DefaultSplashPenalty                 = 3.0
	DefaultStudentDNANewWeight           = 0.1
	DefaultGradedMasteryWeight           = 0.3
	DefaultClassroomSampleTarget         = 100.0
	DefaultClassroomMinSampleProbability = 0.001
	// DefaultColdStartStudentCount is assumed for a classroom with no aggregate yet.
	DefaultColdStartStudentCount = 10
	// DefaultMasteryMaxAttempts bounds the optimistic-concurrency retry loop per record.
	DefaultMasteryMaxAttempts = 5
	// positiveSignalCutoff splits interactions into gains (signal > cutoff) and losses.
	positiveSignalCutoff = 0.5
)

// Tuning holds the numeric knobs of the knowledge engine.
type Tuning struct {
	SplashThreshold               float64
	SplashGain                    float64
	SplashPenalty                 float64
	StudentDNANewWeight           float64
	GradedMasteryWeight           float64
	ClassroomSampleTarget         float64
	ClassroomMinSampleProbability float64
	ColdStartStudentCount         int64
	MasteryMaxAttempts            int
}

// DefaultTuning returns the stock tunables.
func DefaultTuning() Tuning {
	return Tuning{
		SplashThreshold:               DefaultSplashThreshold,
		SplashGain:                    DefaultSplashGain,
		SplashPenalty:                 DefaultSplashPenalty,
		StudentDNANewWeight:           DefaultStudentDNANewWeight,
		GradedMasteryWeight:           DefaultGradedMasteryWeight,
		ClassroomSampleTarget:         DefaultClassroomSampleTarget,
		ClassroomMinSampleProbability: DefaultClassroomMinSampleProbability,
		ColdStartStudentCount:         DefaultColdStartStudentCount,
		MasteryMaxAttempts:            DefaultMasteryMaxAttempts,
	}
}

// WithDefaults fills every non-positive field from DefaultTuning.
func (t Tuning) WithDefaults() Tuning {
	d := DefaultTuning()

	if t.SplashThreshold <= 0 {
		t.SplashThreshold = d.SplashThreshold
	}

	if t.SplashGain <= 0 {
		t.SplashGain = d.SplashGain
	}

	if t.SplashPenalty <= 0 {
		t.SplashPenalty = d.SplashPenalty
	}

	if t.StudentDNANewWeight <= 0 || t.StudentDNANewWeight > 1 {
		t.StudentDNANewWeight = d.StudentDNANewWeight
	}

	if t.GradedMasteryWeight <= 0 || t.GradedMasteryWeight > 1 {
		t.GradedMasteryWeight = d.GradedMasteryWeight
	}

	if t.ClassroomSampleTarget <= 0 {
		t.ClassroomSampleTarget = d.ClassroomSampleTarget
	}

	if t.ClassroomMinSampleProbability <= 0 || t.ClassroomMinSampleProbability > 1 {
		t.ClassroomMinSampleProbability = d.ClassroomMinSampleProbability
	}

	if t.ColdStartStudentCount <= 0 {
		t.ColdStartStudentCount = d.ColdStartStudentCount
	}

	if t.MasteryMaxAttempts <= 0 {
		t.MasteryMaxAttempts = d.MasteryMaxAttempts
	}

	return t
}
