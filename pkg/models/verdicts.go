package models

// Complexity classifies a task for routing purposes.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// TaskAnalysis is the analysis-phase verdict.
type TaskAnalysis struct {
	Complexity           Complexity `json:"complexity"`
	RequiredCapabilities []string   `json:"required_capabilities,omitempty"`
	RecommendedTools     []string   `json:"recommended_tools,omitempty"`
	NeedsWebSearch       bool       `json:"needs_web_search"`
	SearchQuery          string     `json:"search_query,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	// Fallback marks heuristic analysis produced without the reasoner.
	Fallback bool `json:"fallback,omitempty"`
}

// RoutingMode selects the execution topology.
type RoutingMode string

const (
	ModeDelegated  RoutingMode = "delegated"
	ModeSequential RoutingMode = "sequential"
	ModeParallel   RoutingMode = "parallel"
	ModeHandoff    RoutingMode = "handoff"
	ModeDiscussion RoutingMode = "discussion"
)

// ValidRoutingMode reports whether m is in the closed mode set.
func ValidRoutingMode(m RoutingMode) bool {
	switch m {
	case ModeDelegated, ModeSequential, ModeParallel, ModeHandoff, ModeDiscussion:
		return true
	}
	return false
}

// RoutingDecision is the routing-phase verdict.
// Assigned is ordered; Subtasks aligns index-for-index with Assigned.
type RoutingDecision struct {
	Mode             RoutingMode         `json:"mode"`
	Assigned         []string            `json:"assigned"`
	Subtasks         []string            `json:"subtasks,omitempty"`
	ToolRequirements map[string][]string `json:"tool_requirements,omitempty"`
	Confidence       float64             `json:"confidence"`
	// Cached marks decisions served from the routing cache.
	Cached bool `json:"cached,omitempty"`
	// Fallback marks heuristic decisions produced without the reasoner.
	Fallback bool `json:"fallback,omitempty"`
}

// SubtaskFor returns the subtask aligned with agent index i, or fallback when absent.
func (d RoutingDecision) SubtaskFor(i int, fallback string) string {
	if i >= 0 && i < len(d.Subtasks) && d.Subtasks[i] != "" {
		return d.Subtasks[i]
	}
	return fallback
}

// ProgressStatus is the progress-phase outcome.
type ProgressStatus string

const (
	ProgressComplete ProgressStatus = "complete"
	ProgressRefine   ProgressStatus = "refine"
	ProgressContinue ProgressStatus = "continue"
)

// ProgressVerdict is the progress-phase verdict.
type ProgressVerdict struct {
	Status    ProgressStatus `json:"status"`
	Missing   []string       `json:"missing,omitempty"`
	NextFocus string         `json:"next_focus,omitempty"`
}

// QualityVerdict is the quality-phase verdict. Score is on a 0-10 scale.
type QualityVerdict struct {
	Score      float64            `json:"score"`
	Missing    []string           `json:"missing,omitempty"`
	Feedback   string             `json:"feedback,omitempty"`
	Dimensions map[string]float64 `json:"dimensions,omitempty"`
	Fallback   bool               `json:"fallback,omitempty"`
}
