package observe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_observe/internal/engine"
)

// ParseObservation decodes a provider answer into a validated report.
// Prose around the JSON object is tolerated; anything else is ErrMalformedReport.
func ParseObservation(text string) (*engine.ObservationResult, error) {
	raw := extractObject(text)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformedReport)
	}
	var out engine.ObservationResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	out.Sources = engine.FilterSources(out.Sources)
	return &out, nil
}

// extractObject returns the outermost {...} span of s, or "".
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// mergeSources appends provider citations to those the model listed itself,
// dropping duplicates by URI.
func mergeSources(fromReport, fromProvider []engine.GroundingSource) []engine.GroundingSource {
	if len(fromProvider) == 0 {
		return fromReport
	}
	seen := make(map[string]bool, len(fromReport)+len(fromProvider))
	out := make([]engine.GroundingSource, 0, len(fromReport)+len(fromProvider))
	for _, list := range [][]engine.GroundingSource{fromReport, fromProvider} {
		for _, s := range engine.FilterSources(list) {
			if seen[s.URI] {
				continue
			}
			seen[s.URI] = true
			out = append(out, s)
		}
	}
	return out
}
