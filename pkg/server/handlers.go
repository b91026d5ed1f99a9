package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	terrors "github.com/vango-dev/signaltower/internal/errors"
	"github.com/vango-dev/signaltower/pkg/snapshot"
	"github.com/vango-dev/signaltower/pkg/tower"
)

// LogLevelRequest is the body of PUT /log-level.
type LogLevelRequest struct {
	Level *tower.LogLevel `json:"level"`
}

// DispatchResponse is returned by POST /channels/{name}/dispatch.
// Dispatches is the channel's dispatch count as of this dispatch, even when
// other dispatches run concurrently.
type DispatchResponse struct {
	Channel    string `json:"channel"`
	Dispatches uint64 `json:"dispatches"`
}

// ArchiveResponse is returned by POST /snapshot.
type ArchiveResponse struct {
	ID       string `json:"id"`
	Location string `json:"location"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes err as the JSON form of a coded error.
func writeError(w http.ResponseWriter, status int, err *terrors.TowerError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, err.FormatJSON())
}

// lookup resolves the {name} URL parameter. It writes a 404 and returns
// false when the channel does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (tower.AnyChannel, bool) {
	name := chi.URLParam(r, "name")
	ch, ok := s.registry.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, terrors.FromTower(&tower.NameError{Name: name, Err: tower.ErrUnknownChannel}))
		return nil, false
	}
	return ch, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"channels": s.registry.Len(),
		"streams":  s.ActiveStreams(),
	})
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Channels())
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snapshot.Describe(ch))
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.lookup(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, terrors.New("T010").Wrap(err))
		return
	}
	seq, err := ch.DispatchJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, terrors.New("T010").Wrap(err).
			WithSuggestion("Send a JSON value of type "+ch.PayloadType().String()))
		return
	}

	writeJSON(w, http.StatusAccepted, DispatchResponse{
		Channel:    ch.Name(),
		Dispatches: seq,
	})
}

func (s *Server) handleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, terrors.New("T006").Wrap(err))
		return
	}
	if req.Level == nil || *req.Level < tower.ResetLevel {
		writeError(w, http.StatusBadRequest, terrors.New("T006").
			WithSuggestion(`Send {"level": n} with n >= 0, or -1 to reset`))
		return
	}

	s.registry.SetLogLevel(*req.Level)
	s.logger.Info("log level changed", "level", req.Level.String())
	writeJSON(w, http.StatusOK, s.registry.Channels())
}

func (s *Server) handleResetLogLevels(w http.ResponseWriter, r *http.Request) {
	s.registry.ResetLogLevels()
	s.logger.Info("log levels reset")
	writeJSON(w, http.StatusOK, s.registry.Channels())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshot.Take(s.registry))
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.config.Archiver == nil {
		writeError(w, http.StatusNotImplemented, terrors.New("T151"))
		return
	}

	snap := snapshot.Take(s.registry)
	location, err := s.config.Archiver.Archive(r.Context(), snap)
	if err != nil {
		s.logger.Error("snapshot archive failed", "id", snap.ID, "error", err)
		writeError(w, http.StatusBadGateway, terrors.New("T150").Wrap(err))
		return
	}

	s.logger.Info("snapshot archived", "id", snap.ID, "location", location)
	writeJSON(w, http.StatusCreated, ArchiveResponse{ID: snap.ID, Location: location})
}
