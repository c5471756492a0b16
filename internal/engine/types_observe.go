package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// --- Observation report (the provider's response contract) ---

// Rating is the verdict of a single summary-table row.
type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
)

// ratingAliases maps the labels the Thai prompt produces onto canonical values.
var ratingAliases = map[string]Rating{
	"excellent":         RatingExcellent,
	"very good":         RatingExcellent,
	"ดีมาก":             RatingExcellent,
	"good":              RatingGood,
	"ดี":                RatingGood,
	"needs-improvement": RatingNeedsImprovement,
	"needs improvement": RatingNeedsImprovement,
	"ควรพัฒนา":          RatingNeedsImprovement,
}

// ParseRating normalizes a provider label. Unknown labels are an error.
func ParseRating(s string) (Rating, error) {
	if r, ok := ratingAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown rating %q", s)
}

func (r Rating) Valid() bool {
	switch r {
	case RatingExcellent, RatingGood, RatingNeedsImprovement:
		return true
	}
	return false
}

func (r *Rating) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRating(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ObservationEvents holds the nine per-category observations.
type ObservationEvents struct {
	TeacherBehavior string `json:"teacherBehavior"`
	StudentBehavior string `json:"studentBehavior"`
	ActiveLearning  string `json:"activeLearning"`
	Questioning     string `json:"questioning"`
	Relationships   string `json:"relationships"`
	Engagement      string `json:"engagement"`
	Technology      string `json:"technology"`
	Assessment      string `json:"assessment"`
	Conclusion      string `json:"conclusion"`
}

// EventKeys lists the event fields in report order.
var EventKeys = []string{
	"teacherBehavior", "studentBehavior", "activeLearning", "questioning",
	"relationships", "engagement", "technology", "assessment", "conclusion",
}

// Get returns the observation stored under one of EventKeys.
func (e ObservationEvents) Get(key string) string {
	switch key {
	case "teacherBehavior":
		return e.TeacherBehavior
	case "studentBehavior":
		return e.StudentBehavior
	case "activeLearning":
		return e.ActiveLearning
	case "questioning":
		return e.Questioning
	case "relationships":
		return e.Relationships
	case "engagement":
		return e.Engagement
	case "technology":
		return e.Technology
	case "assessment":
		return e.Assessment
	case "conclusion":
		return e.Conclusion
	}
	return ""
}

// SummaryRow is one row of the tabulated ratings.
type SummaryRow struct {
	Item        string `json:"item"`
	Observation string `json:"observation"`
	Result      Rating `json:"result"`
}

// GroundingSource is a citation the provider consulted.
type GroundingSource struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// ObservationResult is the structured supervision report.
type ObservationResult struct {
	Overview        string            `json:"overview"`
	Events          ObservationEvents `json:"events"`
	TableSummary    []SummaryRow      `json:"tableSummary"`
	Strengths       []string          `json:"strengths"`
	Recommendations []string          `json:"recommendations"`
	Sources         []GroundingSource `json:"sources,omitempty"`
}

// Validate checks the invariants a renderer relies on.
func (o *ObservationResult) Validate() error {
	if strings.TrimSpace(o.Overview) == "" {
		return fmt.Errorf("overview is empty")
	}
	for i, row := range o.TableSummary {
		if !row.Result.Valid() {
			return fmt.Errorf("tableSummary[%d]: invalid result %q", i, row.Result)
		}
	}
	return nil
}

// FilterSources drops citations without a locator.
func FilterSources(in []GroundingSource) []GroundingSource {
	var out []GroundingSource
	for _, s := range in {
		if strings.TrimSpace(s.URI) != "" {
			out = append(out, s)
		}
	}
	return out
}

// --- Video metadata ---

// VideoMeta is the public oEmbed description of a video.
type VideoMeta struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name,omitempty"`
	AuthorURL    string `json:"author_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// --- Analysis (what the service returns and caches) ---

// Analysis is a report bound to the video it was produced for.
type Analysis struct {
	VideoID     string             `json:"video_id"`
	VideoURL    string             `json:"video_url"`
	Video       *VideoMeta         `json:"video,omitempty"`
	Report      *ObservationResult `json:"report"`
	Lang        string             `json:"lang"`
	Provider    string             `json:"provider"`
	Model       string             `json:"model"`
	GeneratedAt time.Time          `json:"generated_at"`
	Cached      bool               `json:"cached"`
}
