package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/report"
	"github.com/anatolykoptev/go_observe/internal/video"
)

const maxBodyBytes = 16 * 1024

type analyzeRequest struct {
	VideoURL string `json:"videoUrl"`
}

func (s *Server) labels() *report.Labels { return report.For(s.cfg.Lang) }

func (s *Server) renderPage(w http.ResponseWriter, status int, st State) {
	var buf bytes.Buffer
	err := report.Page(&buf, report.PageData{
		Lang:     s.cfg.Lang,
		Input:    st.Input,
		Message:  st.Message,
		Loading:  st.Phase == PhaseLoading,
		Analysis: st.Analysis,
	})
	if err != nil {
		slog.Error("webui: render page", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	s.renderPage(w, http.StatusOK, s.sessions.Get(id))
}

// runAnalysis drives one session through loading to success or failure and
// returns the status a client should see.
func (s *Server) runAnalysis(ctx context.Context, id, input string) (*engine.Analysis, int, string) {
	l := s.labels()
	if _, ok := video.Resolve(input); !ok {
		engine.IncrResolve(false)
		if err := s.sessions.Reject(id, input, l.InvalidLink); errors.Is(err, ErrBusy) {
			engine.IncrSessionConflict()
			return nil, http.StatusConflict, l.Busy
		}
		return nil, http.StatusBadRequest, l.InvalidLink
	}

	ticket, err := s.sessions.Begin(id, input)
	if err != nil {
		engine.IncrSessionConflict()
		return nil, http.StatusConflict, l.Busy
	}

	a, err := s.cfg.Analyze(ctx, input)
	switch {
	case err == nil:
		s.sessions.Succeed(id, ticket, a)
		return a, http.StatusOK, ""
	case errors.Is(err, context.Canceled):
		// Client went away; nothing will read the result.
		s.sessions.Abandon(id, ticket)
		return nil, http.StatusServiceUnavailable, l.AnalysisFailed
	case errors.Is(err, video.ErrInvalidReference):
		s.sessions.Fail(id, ticket, l.InvalidLink)
		return nil, http.StatusBadRequest, l.InvalidLink
	default:
		slog.Warn("webui: analysis failed", slog.String("input", input), slog.Any("error", err))
		s.sessions.Fail(id, ticket, l.AnalysisFailed)
		return nil, http.StatusInternalServerError, l.AnalysisFailed
	}
}

func (s *Server) handleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.renderPage(w, http.StatusBadRequest, State{Phase: PhaseFailure, Message: s.labels().InvalidLink})
		return
	}
	_, status, _ := s.runAnalysis(r.Context(), id, r.PostFormValue("videoUrl"))
	if status == http.StatusConflict {
		st := s.sessions.Get(id)
		st.Message = s.labels().Busy
		s.renderPage(w, http.StatusConflict, st)
		return
	}
	// The outcome lives in the session; the page shows it.
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAnalyzeAPI(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	var req analyzeRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, status, msg := s.runAnalysis(r.Context(), id, req.VideoURL)
	switch status {
	case http.StatusOK:
		writeJSON(w, http.StatusOK, a)
	case http.StatusInternalServerError:
		writeError(w, status, "analysis failed")
	default:
		writeError(w, status, msg)
	}
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	ref, ok := video.Resolve(r.URL.Query().Get("url"))
	engine.IncrResolve(ok)
	out := engine.VideoResolveOutput{Found: ok}
	if ok {
		out.VideoID = ref.ID()
		out.WatchURL = ref.WatchURL()
		out.EmbedURL = ref.EmbedURL()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Get(sessionID(w, r)))
}

func (s *Server) handleResetAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Reset(sessionID(w, r)))
}

func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request) {
	s.sessions.Reset(sessionID(w, r))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReport(printView bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.cfg.Cached(r.Context(), chi.URLParam(r, "videoID"))
		if !ok {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}

		switch r.URL.Query().Get("format") {
		case "json":
			writeJSON(w, http.StatusOK, a)
			return
		case "md", "markdown":
			md, err := report.Markdown(a)
			if err != nil {
				slog.Error("webui: render markdown", slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "render failed")
				return
			}
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			_, _ = io.WriteString(w, md)
			return
		}

		var buf bytes.Buffer
		render := report.Screen
		if printView {
			render = report.Print
		}
		if err := render(&buf, a); err != nil {
			slog.Error("webui: render report", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "render failed")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}
