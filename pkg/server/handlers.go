package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/storymap/pkg/controller"
	"github.com/vanderheijden86/storymap/pkg/export"
	"github.com/vanderheijden86/storymap/pkg/metrics"
	"github.com/vanderheijden86/storymap/pkg/story"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": metrics.Enabled(),
		"timings": metrics.AllTimingStats(),
	})
}

type storyResponse struct {
	Title   string               `json:"title,omitempty"`
	Profile string               `json:"profile"`
	Slides  []story.Slide        `json:"slides"`
	Lines   []controller.LineRef `json:"lines"`
	Map     any                  `json:"map"`
	Archive string               `json:"archive,omitempty"`
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	b := s.Bundle()
	lines := controller.PlanLines(b.Story)
	if lines == nil {
		lines = []controller.LineRef{}
	}
	writeJSON(w, http.StatusOK, storyResponse{
		Title:   b.Story.Title,
		Profile: s.profile.Name,
		Slides:  b.Story.Slides,
		Lines:   lines,
		Map:     controller.InitialOptions(b.Story, s.profile, b.Header, b.Archive),
		Archive: b.Archive,
	})
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	slide, err := intParam(r, "slide", 0)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	b := s.Bundle()
	sc, err := export.BuildScene(b.Story, export.SceneOptions{
		Profile: s.profile,
		Slide:   slide,
		Header:  b.Header,
		Archive: b.Archive,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := export.WriteGeoJSON(w, sc); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

type createRequest struct {
	Start int `json:"start"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		jsonError(w, "reading body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Start, err = intParam(r, "start", req.Start); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.createSession(req.Start)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteSession(chi.URLParam(r, "id")); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNavigate moves a session. With ?wait=1 the response is sent after
// the transition completes; otherwise a running transition yields 202.
func (s *Server) handleNavigate(d controller.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.session(chi.URLParam(r, "id"))
		if err != nil {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		t, err := sess.Navigate(d)
		switch {
		case errors.Is(err, ErrAnimating):
			jsonError(w, err.Error(), http.StatusConflict)
			return
		case errors.Is(err, ErrOutOfRange):
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		case err != nil:
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		status := http.StatusOK
		if t != nil {
			if r.URL.Query().Get("wait") == "1" {
				if err := t.Wait(r.Context()); err != nil {
					jsonError(w, err.Error(), http.StatusRequestTimeout)
					return
				}
			} else {
				status = http.StatusAccepted
			}
		}
		writeJSON(w, status, sess.Snapshot())
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
