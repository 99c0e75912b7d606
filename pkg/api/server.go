// OpenXR Launcher
// Copyright (c) 2026 The OpenXR Launcher Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of OpenXR Launcher.
//
// OpenXR Launcher is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// OpenXR Launcher is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with OpenXR Launcher.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the launcher over HTTP and a websocket on localhost.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/oxrlauncher/oxrlauncher/pkg/api/middleware"
	"github.com/oxrlauncher/oxrlauncher/pkg/api/models"
	"github.com/oxrlauncher/oxrlauncher/pkg/api/validation"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/config"
	"github.com/oxrlauncher/oxrlauncher/pkg/database/historydb"
	"github.com/oxrlauncher/oxrlauncher/pkg/launcher"
	"github.com/oxrlauncher/oxrlauncher/pkg/ui/frame"
	"github.com/rs/zerolog/log"
)

const (
	defaultHistoryLimit = 50
	maxBodyBytes        = 64 << 10
	shutdownTimeout     = 5 * time.Second
)

var ErrHistoryDisabled = errors.New("launch history is disabled")

// Controller is the frame loop as seen by the API.
type Controller interface {
	Launch(ctx context.Context, title catalog.Title) error
	Kill(ctx context.Context) error
	State() launcher.State
	Subscribe(obs frame.Observer) func()
}

// Catalog returns the current list of titles.
type Catalog func(ctx context.Context) ([]catalog.Title, error)

type History interface {
	Recent(ctx context.Context, limit int) ([]historydb.Entry, error)
}

type Server struct {
	ctrl    Controller
	titles  Catalog
	history History
	limiter *middleware.IPRateLimiter
	ws      *melody.Melody
	origins []string
}

type Option func(*Server)

// WithHistory enables GET /api/history.
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithAllowedOrigins adds browser origins beyond localhost.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

func WithRateLimiter(l *middleware.IPRateLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

func NewServer(ctrl Controller, titles Catalog, opts ...Option) *Server {
	s := &Server{
		ctrl:    ctrl,
		titles:  titles,
		limiter: middleware.NewIPRateLimiter(),
		ws:      melody.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ws.Upgrader.CheckOrigin = s.originAllowed
	s.ws.HandleConnect(s.handleConnect)
	s.ws.HandleMessage(middleware.WebSocketRateLimitHandler(s.limiter, s.handleMessage))
	return s
}

// Handler returns the router. It does not subscribe to notifications;
// Serve does.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoopbackOnly)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return s.originAllowed(r)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))

	r.Route("/api", func(r chi.Router) {
		r.Get("/titles", s.handleTitles)
		r.Get("/state", s.handleState)
		r.Post("/launch", s.handleLaunchQuery)
		r.Post("/launch/{id}", s.handleLaunchID)
		r.Post("/kill", s.handleKill)
		r.Get("/history", s.handleHistory)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln and broadcasts launch notifications until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	unsubscribe := s.ctrl.Subscribe(s.broadcast)
	defer unsubscribe()
	s.limiter.StartCleanup(ctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: config.APIReqTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")

	select {
	case err := <-errCh:
		_ = s.ws.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	if err := s.ws.Close(); err != nil {
		log.Debug().Err(err).Msg("closing websocket hub")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Hostname() == "localhost" {
		return true
	}
	ip := net.ParseIP(u.Hostname())
	return ip != nil && ip.IsLoopback()
}

func (s *Server) handleTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := s.titles(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("listing titles")
		writeError(w, http.StatusServiceUnavailable, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, models.Titles{Titles: titles})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.NewState(s.ctrl.State()))
}

func (s *Server) handleLaunchID(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, validation.ErrInvalidParams, nil)
		return
	}

	titles, err := s.titles(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err, nil)
		return
	}
	ids := make([]string, len(titles))
	byID := make(map[string]catalog.Title, len(titles))
	for i, t := range titles {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	params := models.LaunchByID{ID: id}
	err = validation.DefaultValidator.ValidateCtx(r.Context(), &params, validation.NewContext(ids))
	if err != nil {
		status := http.StatusBadRequest
		var ve *validation.Error
		if errors.As(err, &ve) && ve.HasTag("known") {
			status = http.StatusNotFound
		}
		writeValidationError(w, status, err)
		return
	}

	s.launch(w, r, byID[params.ID])
}

func (s *Server) handleLaunchQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err, nil)
		return
	}
	var params models.LaunchRequest
	if err := validation.DecodeAndValidate(body, &params); err != nil {
		writeValidationError(w, http.StatusBadRequest, err)
		return
	}

	titles, err := s.titles(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err, nil)
		return
	}
	title, err := catalog.Search(titles, params.Query)
	switch {
	case errors.Is(err, catalog.ErrNoMatch):
		writeError(w, http.StatusNotFound, err, nil)
		return
	case errors.Is(err, catalog.ErrAmbiguousMatch):
		writeError(w, http.StatusUnprocessableEntity, err, nil)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err, nil)
		return
	}

	s.launch(w, r, title)
}

func (s *Server) launch(w http.ResponseWriter, r *http.Request, title catalog.Title) {
	err := s.ctrl.Launch(r.Context(), title)
	if err == nil {
		log.Info().Str("titleID", title.ID).Str("remote", r.RemoteAddr).Msg("launch requested over api")
		writeJSON(w, http.StatusAccepted, models.Launched{Title: title})
		return
	}

	var launchErr *launcher.LaunchError
	switch {
	case errors.Is(err, launcher.ErrSessionBusy):
		writeError(w, http.StatusConflict, err, nil)
	case errors.Is(err, frame.ErrQueueFull), errors.Is(err, frame.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err, nil)
	case errors.As(err, &launchErr):
		writeError(w, http.StatusBadGateway, err, nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, err, nil)
	default:
		log.Error().Err(err).Str("titleID", title.ID).Msg("launch over api failed")
		writeError(w, http.StatusInternalServerError, err, nil)
	}
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Kill(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, frame.ErrQueueFull) || errors.Is(err, frame.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err, nil)
		return
	}
	writeJSON(w, http.StatusAccepted, models.NewState(s.ctrl.State()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, ErrHistoryDisabled, nil)
		return
	}

	q := models.HistoryQuery{Limit: defaultHistoryLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, validation.ErrInvalidParams, nil)
			return
		}
		q.Limit = n
	}
	if err := validation.DefaultValidator.Validate(&q); err != nil {
		writeValidationError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := s.history.Recent(r.Context(), q.Limit)
	if err != nil {
		log.Error().Err(err).Msg("reading launch history")
		writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	if entries == nil {
		entries = []historydb.Entry{}
	}
	writeJSON(w, http.StatusOK, models.History{Launches: entries})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.HandleRequest(w, r); err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
	}
}

func (s *Server) handleConnect(session *melody.Session) {
	log.Debug().Str("remote", session.Request.RemoteAddr).Msg("websocket client connected")
	s.sendState(session)
}

// handleMessage answers "state" with the current state; other messages are
// ignored.
func (s *Server) handleMessage(session *melody.Session, msg []byte) {
	if string(msg) == models.EventState {
		s.sendState(session)
	}
}

func (s *Server) sendState(session *melody.Session) {
	data, err := json.Marshal(models.Event{Event: models.EventState, State: models.NewState(s.ctrl.State())})
	if err != nil {
		log.Error().Err(err).Msg("marshalling state event")
		return
	}
	if err := session.Write(data); err != nil {
		log.Debug().Err(err).Msg("writing state event")
	}
}

// broadcast runs on the frame loop goroutine.
func (s *Server) broadcast(n launcher.Notification, st launcher.State) {
	data, err := json.Marshal(models.NewEvent(n, st))
	if err != nil {
		log.Error().Err(err).Msg("marshalling notification")
		return
	}
	if s.ws.IsClosed() {
		return
	}
	if err := s.ws.Broadcast(data); err != nil {
		log.Error().Err(err).Msg("broadcasting notification")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("writing api response")
	}
}

func writeError(w http.ResponseWriter, status int, err error, fields any) {
	writeJSON(w, status, models.Error{Error: err.Error(), Fields: fields})
}

func writeValidationError(w http.ResponseWriter, status int, err error) {
	var ve *validation.Error
	if errors.As(err, &ve) {
		writeError(w, status, err, ve.Fields)
		return
	}
	writeError(w, status, err, nil)
}
