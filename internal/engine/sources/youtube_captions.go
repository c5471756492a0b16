package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/video"
	"golang.org/x/net/html"
)

// YouTube captions: the watch page embeds ytInitialPlayerResponse, whose
// caption tracks point at timedtext XML documents.

const (
	playerResponseMarker = "ytInitialPlayerResponse = "
	captionPageMaxBytes  = 6 * 1024 * 1024
	timedTextMaxBytes    = 512 * 1024
)

// ErrNoCaptions means the video exposes no caption track usable server-side.
var ErrNoCaptions = errors.New("youtube: no captions")

type playerResponse struct {
	Captions *struct {
		Tracklist struct {
			Tracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	Playability *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// FetchCaptions returns the plain text of the best caption track of ref,
// preferring langs in order.
func FetchCaptions(ctx context.Context, ref video.Reference, langs []string) (string, error) {
	if ref.IsZero() {
		return "", video.ErrInvalidReference
	}

	page, err := engine.FetchBody(ctx, WatchPageBase+ref.ID(), engine.AcceptHTML, captionPageMaxBytes)
	if err != nil {
		engine.IncrCaptions("failed")
		return "", fmt.Errorf("watch page: %w", err)
	}

	tracks, err := captionTracks(page)
	if err != nil {
		engine.IncrCaptions("none")
		return "", fmt.Errorf("%w: %s: %w", ErrNoCaptions, ref.ID(), err)
	}
	track, ok := pickTrack(tracks, langs)
	if !ok {
		engine.IncrCaptions("none")
		return "", fmt.Errorf("%w: %s: every track needs a browser token", ErrNoCaptions, ref.ID())
	}

	body, err := engine.FetchBody(ctx, track.BaseURL, "*/*", timedTextMaxBytes)
	if err != nil {
		engine.IncrCaptions("failed")
		return "", fmt.Errorf("timedtext: %w", err)
	}
	text, err := parseTimedText(body)
	if err != nil {
		engine.IncrCaptions("failed")
		return "", err
	}
	if text == "" {
		engine.IncrCaptions("none")
		return "", fmt.Errorf("%w: %s: empty track", ErrNoCaptions, ref.ID())
	}

	engine.IncrCaptions("ok")
	slog.Debug("youtube: captions fetched",
		slog.String("video_id", ref.ID()),
		slog.String("lang", track.LanguageCode),
		slog.Bool("auto", track.Kind == "asr"),
		slog.Int("chars", len(text)),
	)
	return text, nil
}

func captionTracks(page []byte) ([]captionTrack, error) {
	idx := bytes.Index(page, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("player response not found")
	}
	raw := scanObject(page[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, errors.New("player response truncated")
	}
	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	if pr.Captions == nil || len(pr.Captions.Tracklist.Tracks) == 0 {
		if pr.Playability != nil && pr.Playability.Reason != "" {
			return nil, fmt.Errorf("unplayable: %s", pr.Playability.Reason)
		}
		return nil, errors.New("no caption tracks")
	}
	return pr.Captions.Tracklist.Tracks, nil
}

// scanObject returns the JSON object starting at b[0], tracking brace depth
// outside string literals.
func scanObject(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, esc := false, false
	for i, c := range b {
		switch {
		case esc:
			esc = false
		case inStr && c == '\\':
			esc = true
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// pickTrack prefers an uploaded track in langs order, then an auto-generated
// one, then English, then whatever is left. Tracks that need a browser
// proof-of-origin token (exp=xpe) cannot be fetched here.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !strings.Contains(t.BaseURL, "&exp=xpe") {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

func parseTimedText(body []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}
	parts := make([]string, 0, len(tt.Lines))
	for _, l := range tt.Lines {
		// Captions arrive entity-encoded twice (&amp;#39;).
		if s := engine.CollapseSpace(html.UnescapeString(l.Text)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}
