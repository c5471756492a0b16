package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/video"
	"golang.org/x/net/html"
)

// Endpoints are variables so tests can point them at httptest servers.
var (
	OEmbedEndpoint = "https://www.youtube.com/oembed"
	WatchPageBase  = "https://www.youtube.com/watch?v="
)

const (
	oembedMaxBytes    = 64 * 1024
	watchPageMaxBytes = 1024 * 1024
	titleMaxRunes     = 200
)

// ErrNoMetadata means neither oEmbed nor the watch page described the video.
var ErrNoMetadata = errors.New("youtube: no metadata")

type oembedResp struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// FetchVideoMeta looks up the public title and channel of ref. oEmbed is
// tried first; the watch page <title> is the fallback. The result is advisory.
func FetchVideoMeta(ctx context.Context, ref video.Reference) (*engine.VideoMeta, error) {
	if ref.IsZero() {
		return nil, video.ErrInvalidReference
	}

	meta, err := fetchOEmbed(ctx, ref)
	if err == nil {
		engine.IncrOEmbed("ok")
		return meta, nil
	}
	slog.Debug("youtube: oembed failed, trying watch page", slog.String("video_id", ref.ID()), slog.Any("error", err))

	title, perr := fetchWatchTitle(ctx, ref)
	if perr != nil || title == "" {
		engine.IncrOEmbed("miss")
		return nil, fmt.Errorf("%w: %s: %w", ErrNoMetadata, ref.ID(), errors.Join(err, perr))
	}
	engine.IncrOEmbed("fallback")
	return &engine.VideoMeta{Title: title, ThumbnailURL: ref.ThumbnailURL()}, nil
}

func fetchOEmbed(ctx context.Context, ref video.Reference) (*engine.VideoMeta, error) {
	u := OEmbedEndpoint + "?" + url.Values{
		"url":    {ref.WatchURL()},
		"format": {"json"},
	}.Encode()

	body, err := engine.FetchBody(ctx, u, engine.AcceptJSON, oembedMaxBytes)
	if err != nil {
		return nil, err
	}
	var r oembedResp
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("youtube: oembed decode: %w", err)
	}
	title := engine.TruncateRunes(engine.CollapseSpace(r.Title), titleMaxRunes, "…")
	if title == "" {
		return nil, fmt.Errorf("youtube: oembed: empty title")
	}
	thumb := r.ThumbnailURL
	if thumb == "" {
		thumb = ref.ThumbnailURL()
	}
	return &engine.VideoMeta{
		Title:        title,
		AuthorName:   engine.CollapseSpace(r.AuthorName),
		AuthorURL:    r.AuthorURL,
		ThumbnailURL: thumb,
	}, nil
}

func fetchWatchTitle(ctx context.Context, ref video.Reference) (string, error) {
	body, err := engine.FetchBody(ctx, WatchPageBase+ref.ID(), engine.AcceptHTML, watchPageMaxBytes)
	if err != nil {
		return "", err
	}
	return engine.TruncateRunes(parseWatchTitle(body), titleMaxRunes, "…"), nil
}

// parseWatchTitle prefers og:title and falls back to <title> minus the
// " - YouTube" suffix. The bare "YouTube" title of a missing video yields "".
func parseWatchTitle(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var ogTitle, docTitle string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if ogTitle != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if getAttr(n, "property") == "og:title" {
					ogTitle = engine.CollapseSpace(getAttr(n, "content"))
				}
			case "title":
				if docTitle == "" && n.FirstChild != nil {
					docTitle = engine.CollapseSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if ogTitle != "" {
		return ogTitle
	}
	docTitle = strings.TrimSpace(strings.TrimSuffix(docTitle, "- YouTube"))
	if strings.EqualFold(docTitle, "YouTube") {
		return ""
	}
	return docTitle
}

// getAttr returns the value of an attribute on a node, or "".
func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
