// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/websocket"

	"github.com/pdiddy/cabinet/internal/knowledge"
	"github.com/pdiddy/cabinet/pkg/types"
)

// maxBodyBytes bounds NER request bodies.
const maxBodyBytes = 1 << 20

var (
	errEmptyText       = errors.New("text is required")
	errUnknownTerminal = errors.New("terminal node not found")
)

// Release is one entry of the releases file.
type Release struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Uptime    string          `json:"uptime"`
	Knowledge knowledge.Stats `json:"knowledge"`
	Phrases   int             `json:"phrases"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.log.WithField("request_id", middleware.GetReqID(r.Context())).
		WithError(err).Debug("request error")
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Hello": "World"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.state.Load()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Knowledge: st.kb.Stats(),
		Phrases:   st.tagger.Size(),
	})
}

// handleUpper echoes the text query parameter in upper case.
func (s *Server) handleUpper(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"text": strings.ToUpper(r.URL.Query().Get("text"))})
}

// recognize tags text and keeps the matches whose SNOMED CT concept is
// terminal or one of its descendants. An empty terminal keeps every match.
func (st *state) recognize(req types.NERRequest) ([]types.NEROutput, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errEmptyText
	}
	if req.TerminalNode != "" && !st.kb.Contains(req.TerminalNode) {
		return nil, fmt.Errorf("%w: %s", errUnknownTerminal, req.TerminalNode)
	}

	outputs := st.tagger.Tag(req.Text)
	if req.TerminalNode == "" {
		return outputs, nil
	}

	kept := []types.NEROutput{}
	for _, out := range outputs {
		sctid, ok := st.kb.Convert(out.CUI)
		if ok && st.kb.IsDescendant(sctid, req.TerminalNode) {
			kept = append(kept, out)
		}
	}
	return kept, nil
}

func (s *Server) handleNER(w http.ResponseWriter, r *http.Request) {
	var req types.NERRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	outputs, err := s.state.Load().recognize(req)
	switch {
	case errors.Is(err, errEmptyText):
		s.writeError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, errUnknownTerminal):
		s.writeError(w, r, http.StatusNotFound, err)
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, outputs)
	}
}

// handleNERSocket answers every {"text"} message with one NER output: the
// first match, or an empty output when nothing matched.
func (s *Server) handleNERSocket() http.Handler {
	return websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			log := s.log.WithField("remote", ws.Request().RemoteAddr)
			for {
				var msg []byte
				if err := websocket.Message.Receive(ws, &msg); err != nil {
					log.WithError(err).Debug("websocket closed")
					return
				}

				var reply types.NEROutput
				var req types.NERRequest
				if err := json.Unmarshal(msg, &req); err != nil {
					log.WithError(err).Warn("decoding websocket message")
				} else if outputs, err := s.state.Load().recognize(req); err != nil {
					log.WithError(err).Debug("websocket request rejected")
				} else if len(outputs) > 0 {
					reply = outputs[0]
				}

				data, err := json.Marshal(reply)
				if err != nil {
					log.WithError(err).Error("encoding websocket reply")
					return
				}
				if err := websocket.Message.Send(ws, data); err != nil {
					log.WithError(err).Debug("websocket send failed")
					return
				}
			}
		},
	}
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.cfg.ReleasesFile == "" {
		s.writeError(w, r, http.StatusNotFound, fmt.Errorf("release %q not found", name))
		return
	}

	releases, err := loadReleases(s.cfg.ReleasesFile)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	for _, rel := range releases {
		if rel.Name == name {
			http.Redirect(w, r, rel.URL, http.StatusTemporaryRedirect)
			return
		}
	}
	s.writeError(w, r, http.StatusNotFound, fmt.Errorf("release %q not found", name))
}

func loadReleases(path string) ([]Release, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading releases: %w", err)
	}
	var releases []Release
	if err := json.Unmarshal(data, &releases); err != nil {
		return nil, fmt.Errorf("parsing releases: %w", err)
	}
	return releases, nil
}
