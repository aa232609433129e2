package reasoner

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/maestro-ai/maestro/pkg/models"
)

// DefaultRecentYearThreshold marks 4-digit years at or above it as
// time-sensitive when no artifact overrides it.
const DefaultRecentYearThreshold = 2023

// fallbackQualityScore is the fixed score when quality assessment is heuristic.
const fallbackQualityScore = 6

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

var timeSensitiveMarkers = []string{"today", "latest", "current"}

// TimeSensitive reports whether the task carries freshness markers or a
// recent 4-digit year.
func TimeSensitive(task string, recentYearThreshold int) bool {
	if recentYearThreshold <= 0 {
		recentYearThreshold = DefaultRecentYearThreshold
	}
	lower := strings.ToLower(task)
	for _, marker := range timeSensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, match := range yearPattern.FindAllString(task, -1) {
		if year, err := strconv.Atoi(match); err == nil && year >= recentYearThreshold {
			return true
		}
	}
	return false
}

// Heuristics produces deterministic verdicts without any reasoner. It backs
// the façade's fallback path and runs standalone when no artifact is loaded.
type Heuristics struct {
	DefaultAgent        string
	RecentYearThreshold int
}

// FallbackAnalysis builds the heuristic analysis verdict.
func (h Heuristics) FallbackAnalysis(task string, webSearchTools []string) models.TaskAnalysis {
	analysis := models.TaskAnalysis{
		Complexity:     models.ComplexityMedium,
		NeedsWebSearch: TimeSensitive(task, h.RecentYearThreshold),
		Fallback:       true,
	}
	if analysis.NeedsWebSearch {
		analysis.RequiredCapabilities = []string{"web_search"}
		analysis.RecommendedTools = webSearchTools
		analysis.SearchQuery = strings.TrimSpace(task)
	}
	return analysis
}

// FallbackRouting builds the heuristic routing verdict: a single delegated
// agent, or researcher then writer when the task is time-sensitive and a
// researcher is configured.
func (h Heuristics) FallbackRouting(task string, agents []models.AgentDescriptor) models.RoutingDecision {
	if TimeSensitive(task, h.RecentYearThreshold) {
		researcher, hasResearcher := findAgent(agents, "researcher")
		writer, hasWriter := findAgent(agents, "writer")
		if hasResearcher && hasWriter {
			return models.RoutingDecision{
				Mode:       models.ModeSequential,
				Assigned:   []string{researcher.Name, writer.Name},
				Confidence: 0.5,
				Fallback:   true,
			}
		}
	}
	return models.RoutingDecision{
		Mode:       models.ModeDelegated,
		Assigned:   []string{h.defaultAgentName(agents)},
		Confidence: 0.5,
		Fallback:   true,
	}
}

// FallbackProgress reports the run complete; heuristic refinement would loop
// without a signal to stop.
func (h Heuristics) FallbackProgress() models.ProgressVerdict {
	return models.ProgressVerdict{Status: models.ProgressComplete}
}

// FallbackQuality returns the fixed heuristic verdict.
func (h Heuristics) FallbackQuality() models.QualityVerdict {
	return models.QualityVerdict{
		Score:    fallbackQualityScore,
		Missing:  []string{},
		Feedback: "fallback scoring",
		Fallback: true,
	}
}

func (h Heuristics) defaultAgentName(agents []models.AgentDescriptor) string {
	if h.DefaultAgent != "" {
		return h.DefaultAgent
	}
	if len(agents) > 0 {
		return agents[0].Name
	}
	return ""
}

func findAgent(agents []models.AgentDescriptor, name string) (models.AgentDescriptor, bool) {
	for _, a := range agents {
		if a.Name == name {
			return a, true
		}
	}
	return models.AgentDescriptor{}, false
}
