package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/video"
)

func withEndpoints(t *testing.T, oembed, watch string) {
	t.Helper()
	prevO, prevW := OEmbedEndpoint, WatchPageBase
	OEmbedEndpoint, WatchPageBase = oembed, watch
	t.Cleanup(func() { OEmbedEndpoint, WatchPageBase = prevO, prevW })
}

func mustRef(t *testing.T, id string) video.Reference {
	t.Helper()
	ref, err := video.ParseID(id)
	if err != nil {
		t.Fatalf("ParseID(%q): %v", id, err)
	}
	return ref
}

func TestFetchVideoMeta_OEmbed(t *testing.T) {
	engine.Init(engine.Config{})
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"  Grade 4   fractions lesson ","author_name":"Teacher A","author_url":"https://www.youtube.com/@a","thumbnail_url":"https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"}`))
	}))
	defer srv.Close()
	withEndpoints(t, srv.URL, srv.URL+"/watch?v=")

	meta, err := FetchVideoMeta(context.Background(), mustRef(t, "dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("FetchVideoMeta: %v", err)
	}
	if gotURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("oembed url param = %q", gotURL)
	}
	if meta.Title != "Grade 4 fractions lesson" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.AuthorName != "Teacher A" {
		t.Errorf("AuthorName = %q", meta.AuthorName)
	}
}

func TestFetchVideoMeta_WatchPageFallback(t *testing.T) {
	engine.Init(engine.Config{})
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Science lab demo - YouTube</title></head><body></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	withEndpoints(t, srv.URL+"/oembed", srv.URL+"/watch?v=")

	meta, err := FetchVideoMeta(context.Background(), mustRef(t, "dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("FetchVideoMeta: %v", err)
	}
	if meta.Title != "Science lab demo" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.ThumbnailURL != "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Errorf("ThumbnailURL = %q", meta.ThumbnailURL)
	}
}

func TestFetchVideoMeta_NotFound(t *testing.T) {
	engine.Init(engine.Config{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	withEndpoints(t, srv.URL, srv.URL+"/watch?v=")

	_, err := FetchVideoMeta(context.Background(), mustRef(t, "dQw4w9WgXcQ"))
	if !errors.Is(err, ErrNoMetadata) {
		t.Fatalf("err = %v, want ErrNoMetadata", err)
	}
}

func TestFetchVideoMeta_ZeroReference(t *testing.T) {
	_, err := FetchVideoMeta(context.Background(), video.Reference{})
	if !errors.Is(err, video.ErrInvalidReference) {
		t.Fatalf("err = %v, want ErrInvalidReference", err)
	}
}

func TestParseWatchTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"og title wins", `<html><head><title>Other - YouTube</title><meta property="og:title" content="Real title"></head></html>`, "Real title"},
		{"title suffix stripped", `<html><head><title>Math class - YouTube</title></head></html>`, "Math class"},
		{"missing video", `<html><head><title>YouTube</title></head></html>`, ""},
		{"no title", `<html><body>nothing</body></html>`, ""},
		{"thai title", `<html><head><title>การสอนคณิตศาสตร์ ป.4 - YouTube</title></head></html>`, "การสอนคณิตศาสตร์ ป.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseWatchTitle([]byte(tt.body)); got != tt.want {
				t.Errorf("parseWatchTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
