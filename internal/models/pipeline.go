package models

import "github.com/google/uuid"

// PipelineStep names one stage of the knowledge pipeline.
type PipelineStep string

// Pipeline stages in execution order.
const (
	StepResolveContext       PipelineStep = "resolve_context"
	StepEmbed                PipelineStep = "embed"
	StepStudentEntry         PipelineStep = "student_entry"
	StepSplash               PipelineStep = "splash"
	StepMastery              PipelineStep = "mastery"
	StepStudentDNA           PipelineStep = "student_dna"
	StepClassroomInteraction PipelineStep = "classroom_interaction"
	StepClassroomDNA         PipelineStep = "classroom_dna"
)

// StepOutcome is the result of a pipeline stage.
type StepOutcome string

// Step outcomes.
const (
	OutcomeApplied    StepOutcome = "applied"
	OutcomeSkipped    StepOutcome = "skipped"
	OutcomeSampledOut StepOutcome = "sampled_out"
	OutcomeFailed     StepOutcome = "failed"
)

// PipelineReport records what one pipeline run did. Partial completion is normal.
type PipelineReport struct {
	EventID        uuid.UUID                    `json:"event_id"`
	Context        TopicContext                 `json:"context"`
	Steps          map[PipelineStep]StepOutcome `json:"steps"`
	Splash         []SplashResult               `json:"splash,omitempty"`
	MasteryUpdated int                          `json:"mastery_updated"`
}

// NewPipelineReport returns an empty report for eventID.
func NewPipelineReport(eventID uuid.UUID) *PipelineReport {
	return &PipelineReport{
		EventID: eventID,
		Steps:   make(map[PipelineStep]StepOutcome),
	}
}

// Record sets the outcome of step.
func (r *PipelineReport) Record(step PipelineStep, outcome StepOutcome) {
	r.Steps[step] = outcome
}

// Failed returns the steps that failed.
func (r *PipelineReport) Failed() []PipelineStep {
	var failed []PipelineStep

	for _, step := range pipelineStepOrder {
		if r.Steps[step] == OutcomeFailed {
			failed = append(failed, step)
		}
	}

	return failed
}

var pipelineStepOrder = []PipelineStep{
	StepResolveContext,
	StepEmbed,
	StepStudentEntry,
	StepSplash,
	StepMastery,
	StepStudentDNA,
	StepClassroomInteraction,
	StepClassroomDNA,
}
