package reasoner

import (
	"encoding/json"
	"fmt"
	"os"
)

// Artifact is the pre-compiled reasoner bundle referenced by
// REASONER_ARTIFACT. It carries the prompt templates for the four operations
// plus tuning constants. Absence of an artifact means the façade runs on
// fallback heuristics alone.
type Artifact struct {
	Version             string `json:"version"`
	RecentYearThreshold int    `json:"recent_year_threshold,omitempty"`
	Prompts             struct {
		Analyze  string `json:"analyze"`
		Route    string `json:"route"`
		Progress string `json:"progress"`
		Quality  string `json:"quality"`
	} `json:"prompts"`
}

// LoadArtifact reads and validates a reasoner bundle from path.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reasoner artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing reasoner artifact: %w", err)
	}
	if a.Version == "" {
		return nil, fmt.Errorf("reasoner artifact missing version")
	}
	if a.Prompts.Analyze == "" || a.Prompts.Route == "" || a.Prompts.Progress == "" || a.Prompts.Quality == "" {
		return nil, fmt.Errorf("reasoner artifact %s missing prompt templates", a.Version)
	}
	if a.RecentYearThreshold == 0 {
		a.RecentYearThreshold = DefaultRecentYearThreshold
	}
	return &a, nil
}
