package runner

import "time"

type UpdateKind int

const (
	FeatureStarted UpdateKind = iota + 1
	ScenarioStarted
	StepStarted
	StepCompleted
	ScenarioCompleted
	FeatureCompleted
)

func (k UpdateKind) String() string {
	switch k {
	case FeatureStarted:
		return "feature_started"
	case ScenarioStarted:
		return "scenario_started"
	case StepStarted:
		return "step_started"
	case StepCompleted:
		return "step_completed"
	case ScenarioCompleted:
		return "scenario_completed"
	case FeatureCompleted:
		return "feature_completed"
	}
	return "unknown"
}

// Update is one lifecycle event. Renderers work from these alone.
type Update struct {
	Kind     UpdateKind
	Feature  string
	FilePath string
	Scenario string
	Step     string
	// Result is set on ScenarioCompleted.
	Result *ScenarioResult
	// FeatureResult and Duration are set on FeatureCompleted.
	FeatureResult *FeatureResult
	Duration      time.Duration
}
