// Package web exposes the offline queue over a small local JSON API.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agrione/offline-sync/pkg/notice"
	"github.com/agrione/offline-sync/pkg/offline"
	"github.com/agrione/offline-sync/pkg/queue"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Queue is the part of offline.Service the API drives
type Queue interface {
	EnqueueRaw(ctx context.Context, actionType string, payload json.RawMessage) string
	SyncAll(ctx context.Context) offline.Summary
	RemoveFromQueue(ctx context.Context, id string)
	ClearQueue(ctx context.Context)
	Actions() []queue.QueuedAction
	Status() offline.Status
}

// NoticeFeed hands out notices not yet delivered to a UI surface
type NoticeFeed interface {
	Drain() []notice.Notice
}

type enqueueRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type enqueueResponse struct {
	ID string `json:"id"`
}

type webService struct {
	queue   Queue
	notices NoticeFeed
	known   map[string]bool
}

// NewWebService creates the API. notices may be nil. When knownTypes is
// non-empty, enqueues of other types are rejected with 400.
func NewWebService(q Queue, notices NoticeFeed, knownTypes []string) *webService {
	s := &webService{queue: q, notices: notices, known: make(map[string]bool, len(knownTypes))}
	for _, t := range knownTypes {
		s.known[t] = true
	}
	return s
}

func (s *webService) RegisterEndpoint(router *mux.Router) *mux.Router {
	router.HandleFunc("/status", s.status).Methods(http.MethodGet)
	router.HandleFunc("/queue", s.list).Methods(http.MethodGet)
	router.HandleFunc("/queue", s.enqueue).Methods(http.MethodPost)
	router.HandleFunc("/queue", s.clear).Methods(http.MethodDelete)
	router.HandleFunc("/queue/{id}", s.remove).Methods(http.MethodDelete)
	router.HandleFunc("/sync", s.sync).Methods(http.MethodPost)
	router.HandleFunc("/notices", s.drainNotices).Methods(http.MethodGet)
	return router
}

// Handler returns the routes wrapped with request logging
func (s *webService) Handler(logger zerolog.Logger) http.Handler {
	router := s.RegisterEndpoint(mux.NewRouter())

	var h http.Handler = router
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Dur("duration", duration).
			Msg("HTTP request")
	})(h)
	return hlog.NewHandler(logger)(h)
}

func (s *webService) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.Status())
}

func (s *webService) list(w http.ResponseWriter, r *http.Request) {
	actions := s.queue.Actions()
	if actions == nil {
		actions = []queue.QueuedAction{}
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *webService) enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reportError(w, r, http.StatusBadRequest, fmt.Errorf("Error parsing request: %s", err))
		return
	}
	if req.Type == "" {
		reportError(w, r, http.StatusBadRequest, fmt.Errorf("Missing mandatory field 'type'"))
		return
	}
	if len(s.known) > 0 && !s.known[req.Type] {
		reportError(w, r, http.StatusBadRequest, fmt.Errorf("Unknown action type '%s'", req.Type))
		return
	}

	id := s.queue.EnqueueRaw(r.Context(), req.Type, req.Payload)
	writeJSON(w, http.StatusCreated, enqueueResponse{ID: id})
}

func (s *webService) remove(w http.ResponseWriter, r *http.Request) {
	s.queue.RemoveFromQueue(r.Context(), mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *webService) clear(w http.ResponseWriter, r *http.Request) {
	s.queue.ClearQueue(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// sync runs the pass to completion even if the client goes away
func (s *webService) sync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.SyncAll(context.WithoutCancel(r.Context())))
}

func (s *webService) drainNotices(w http.ResponseWriter, r *http.Request) {
	notices := []notice.Notice{}
	if s.notices != nil {
		notices = append(notices, s.notices.Drain()...)
	}
	writeJSON(w, http.StatusOK, notices)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Error writing response")
	}
}

func reportError(w http.ResponseWriter, r *http.Request, status int, err error) {
	hlog.FromRequest(r).Warn().Err(err).Msg("Rejected request")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	fmt.Fprint(w, err.Error())
}
