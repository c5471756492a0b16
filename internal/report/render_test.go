package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_observe/internal/engine"
)

func sampleAnalysis(lang string) *engine.Analysis {
	return &engine.Analysis{
		VideoID:  "dQw4w9WgXcQ",
		VideoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Video:    &engine.VideoMeta{Title: "Fractions <grade 4>", AuthorName: "Teacher A"},
		Lang:     lang,
		Report: &engine.ObservationResult{
			Overview: "Clear lesson structure.",
			Events: engine.ObservationEvents{
				TeacherBehavior: "Explains step by step.",
				Conclusion:      "Summarizes at the end.",
			},
			TableSummary: []engine.SummaryRow{
				{Item: "Questioning", Observation: "Open questions", Result: engine.RatingExcellent},
				{Item: "Closure", Observation: "Rushed", Result: engine.RatingNeedsImprovement},
			},
			Strengths:       []string{"Warm climate"},
			Recommendations: []string{"Leave time for closure"},
			Sources:         []engine.GroundingSource{{Title: "Channel page", URI: "https://example.com/c"}},
		},
		Provider:    "fake",
		Model:       "fake-1",
		GeneratedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestScreen(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Screen(&buf, sampleAnalysis("en")))
	out := buf.String()

	assert.Contains(t, out, `src="https://www.youtube.com/embed/dQw4w9WgXcQ"`)
	assert.Contains(t, out, "Clear lesson structure.")
	assert.Contains(t, out, "Teacher and delivery")
	assert.Contains(t, out, "Lesson conclusion")
	// Empty events are skipped.
	assert.NotContains(t, out, "Questioning</h3>")
	assert.Contains(t, out, "<td>Excellent</td>")
	assert.Contains(t, out, "<td>Needs improvement</td>")
	assert.Contains(t, out, `href="https://example.com/c"`)
	assert.Contains(t, out, "Fractions &lt;grade 4&gt;")
	assert.Contains(t, out, `href="/report/dQw4w9WgXcQ/print"`)
}

func TestPrint_HasNoPlayer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, sampleAnalysis("en")))
	out := buf.String()

	assert.NotContains(t, out, "<iframe")
	assert.Contains(t, out, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg")
	assert.Contains(t, out, "2026-03-14")
	assert.Contains(t, out, `href="https://www.youtube.com/watch?v=dQw4w9WgXcQ"`)
}

func TestThaiLabels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Screen(&buf, sampleAnalysis("th")))
	out := buf.String()

	assert.Contains(t, out, "ภาพรวมการสอน")
	assert.Contains(t, out, "<td>ดีมาก</td>")
	assert.Contains(t, out, "<td>ควรพัฒนา</td>")
	assert.Contains(t, out, `lang="th"`)
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(sampleAnalysis("en"))
	require.NoError(t, err)

	assert.Contains(t, md, "Teaching supervision report")
	assert.Contains(t, md, "Clear lesson structure.")
	assert.Contains(t, md, "Warm climate")
	assert.Contains(t, md, "[Channel page](https://example.com/c)")
	assert.NotContains(t, md, "<iframe")
}

func TestRender_NoReport(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Screen(&buf, nil), ErrNoReport)
	assert.ErrorIs(t, Print(&buf, &engine.Analysis{VideoID: "dQw4w9WgXcQ"}), ErrNoReport)
	_, err := Markdown(nil)
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestPage(t *testing.T) {
	tests := []struct {
		name    string
		data    PageData
		want    []string
		notWant []string
	}{
		{
			name:    "idle",
			data:    PageData{Lang: "en"},
			want:    []string{`action="/analyze"`, "YouTube video link"},
			notWant: []string{"role=\"alert\"", "Clear", "disabled"},
		},
		{
			name: "loading",
			data: PageData{Lang: "en", Input: "https://youtu.be/dQw4w9WgXcQ", Loading: true},
			want: []string{"Analyzing...", "disabled", `value="https://youtu.be/dQw4w9WgXcQ"`},
		},
		{
			name: "failure",
			data: PageData{Lang: "th", Message: For("th").InvalidLink},
			want: []string{"role=\"alert\"", "กรุณาวางลิงก์วิดีโอ YouTube ที่ถูกต้อง", `action="/reset"`},
		},
		{
			name: "success",
			data: PageData{Lang: "en", Analysis: sampleAnalysis("en")},
			want: []string{"<iframe", "Clear lesson structure.", `action="/reset"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Page(&buf, tt.data))
			out := buf.String()
			for _, w := range tt.want {
				assert.True(t, strings.Contains(out, w), "missing %q", w)
			}
			for _, w := range tt.notWant {
				assert.False(t, strings.Contains(out, w), "unexpected %q", w)
			}
		})
	}
}
