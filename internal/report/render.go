// Package report renders a finished analysis as an on-screen page, a
// one-page print document or Markdown. Output is unstyled HTML.
package report

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/video"
)

//go:embed templates/*.html
var templateFS embed.FS

var tmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ErrNoReport is returned when an analysis carries no report to render.
var ErrNoReport = errors.New("report: nothing to render")

type eventView struct {
	Heading string
	Text    string
}

type rowView struct {
	Item        string
	Observation string
	Result      string
}

type docView struct {
	A     *engine.Analysis
	L     *Labels
	Lang  string
	Print bool

	EmbedURL  string
	WatchURL  string
	Thumbnail string
	Date      string
	Events    []eventView
	Rows      []rowView
}

func newDocView(a *engine.Analysis, print bool) (*docView, error) {
	if a == nil || a.Report == nil {
		return nil, ErrNoReport
	}
	ref, err := video.ParseID(a.VideoID)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	lang := engine.NormLang(a.Lang)
	l := For(lang)

	v := &docView{
		A:         a,
		L:         l,
		Lang:      lang,
		Print:     print,
		EmbedURL:  ref.EmbedURL(),
		WatchURL:  ref.WatchURL(),
		Thumbnail: ref.ThumbnailURL(),
		Date:      a.GeneratedAt.Format("2006-01-02"),
	}
	if a.Video != nil && a.Video.ThumbnailURL != "" {
		v.Thumbnail = a.Video.ThumbnailURL
	}
	for _, key := range engine.EventKeys {
		v.Events = append(v.Events, eventView{Heading: l.Events[key], Text: a.Report.Events.Get(key)})
	}
	for _, row := range a.Report.TableSummary {
		v.Rows = append(v.Rows, rowView{Item: row.Item, Observation: row.Observation, Result: l.Rating(row.Result)})
	}
	return v, nil
}

// Screen writes the interactive page: embedded player plus the full report.
func Screen(w io.Writer, a *engine.Analysis) error {
	v, err := newDocView(a, false)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "screen.html", v)
}

// Print writes the one-page document: no player, a thumbnail and watch link
// instead, and the generation date.
func Print(w io.Writer, a *engine.Analysis) error {
	v, err := newDocView(a, true)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "print.html", v)
}

// Markdown converts the print document to Markdown.
func Markdown(a *engine.Analysis) (string, error) {
	v, err := newDocView(a, true)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "report", v); err != nil {
		return "", err
	}
	md, err := htmltomarkdown.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("report: markdown: %w", err)
	}
	return md, nil
}

// PageData is the state of the analysis form page.
type PageData struct {
	Lang     string
	Input    string
	Message  string
	Loading  bool
	Analysis *engine.Analysis
}

type pageView struct {
	L       *Labels
	Lang    string
	Input   string
	Message string
	Loading bool
	Report  *docView
}

// Page writes the form page with whatever the session currently shows.
func Page(w io.Writer, d PageData) error {
	lang := engine.NormLang(d.Lang)
	pv := pageView{
		L:       For(lang),
		Lang:    lang,
		Input:   d.Input,
		Message: d.Message,
		Loading: d.Loading,
	}
	if d.Analysis != nil {
		v, err := newDocView(d.Analysis, false)
		if err != nil {
			return err
		}
		pv.Report = v
	}
	return tmpl.ExecuteTemplate(w, "page.html", pv)
}
