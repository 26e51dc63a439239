// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the HTTP control surface of the daemon.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/gstbackend/internal/backend"
	"github.com/ManuGH/gstbackend/internal/health"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/media/devices"
	"github.com/ManuGH/gstbackend/internal/media/player"
	"github.com/ManuGH/gstbackend/internal/telemetry"
)

const (
	defaultCallTimeout = 5 * time.Second
	defaultService     = "gstbackend"
)

// Server exposes a Backend over HTTP.
type Server struct {
	backend     *backend.Backend
	health      *health.Manager
	version     string
	service     string
	callTimeout time.Duration
}

type ctxKey struct{}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithService names the service on request spans.
func WithService(name string) Option {
	return func(s *Server) { s.service = name }
}

func New(b *backend.Backend, opts ...Option) *Server {
	s := &Server{backend: b, service: defaultService, callTimeout: defaultCallTimeout}
	for _, opt := range opts {
		opt(s)
	}
	s.health = health.NewManager(s.version)
	s.health.RegisterChecker(health.ErrorCheck("control_loop", b.Ping))
	s.health.RegisterChecker(health.CheckFunc("players", s.checkPlayers))
	return s
}

// Router builds the chi router with the middleware stack applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(OTelHTTP(s.service))
	r.Use(Observe)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/devices", s.handleDevices)

	r.Route("/v1/players", func(r chi.Router) {
		r.Get("/", s.handleListPlayers)
		r.Post("/", s.handleCreatePlayer)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.playerCtx)
			r.Get("/", s.handleStatus)
			r.Delete("/", s.handleDeletePlayer)
			r.Post("/play", s.control((*backend.Player).Play))
			r.Post("/pause", s.control((*backend.Player).Pause))
			r.Post("/stop", s.control((*backend.Player).Stop))
			r.Post("/seek", s.handleSeek)
			r.Put("/source", s.handleSetSource)
			r.Put("/next-source", s.handleSetNextSource)
			r.Delete("/next-source", s.control((*backend.Player).ClearNextSource))
			r.Put("/title", s.handleSetTitle)
			r.Put("/device", s.handleSetDevice)
			r.Get("/events", s.handleEvents)
		})
	})
	return r
}

func (s *Server) callCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.callTimeout)
}

func (s *Server) playerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.backend.Player(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		telemetry.Annotate(r.Context(), telemetry.PlayerAttributes(p.ID())...)
		ctx := xglog.ContextWithPlayerID(r.Context(), p.ID())
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKey{}, p)))
	})
}

func playerFrom(r *http.Request) *backend.Player {
	p, _ := r.Context().Value(ctxKey{}).(*backend.Player)
	return p
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// checkPlayers degrades health while any player holds a fatal error.
func (s *Server) checkPlayers(ctx context.Context) health.CheckResult {
	players := s.backend.Players()
	failed := 0
	for _, p := range players {
		st, err := p.Status(ctx)
		if err != nil {
			return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
		}
		if st.ErrorType == player.FatalError {
			failed++
		}
	}
	res := health.CheckResult{Status: health.StatusHealthy, Message: fmt.Sprintf("%d player(s)", len(players))}
	if failed > 0 {
		res.Status = health.StatusDegraded
		res.Message = fmt.Sprintf("%d of %d player(s) in fatal error", failed, len(players))
	}
	return res
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	c := s.backend.Catalog()
	writeJSON(w, http.StatusOK, map[string][]devices.Device{
		"audio": c.List(devices.Audio),
		"video": c.List(devices.Video),
	})
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callCtx(r)
	defer cancel()
	out := make([]backend.Status, 0)
	for _, p := range s.backend.Players() {
		st, err := p.Status(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, out)
}

type createPlayerRequest struct {
	ID     string `json:"id,omitempty"`
	Device string `json:"device,omitempty"`
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	ctx, cancel := s.callCtx(r)
	defer cancel()

	p, err := s.backend.CreateMediaObject(ctx, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.backend.AttachAudioOutput(ctx, p, req.Device); err != nil {
		_ = s.backend.RemovePlayer(ctx, p.ID())
		writeError(w, err)
		return
	}
	st, err := p.Status(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/players/"+p.ID())
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callCtx(r)
	defer cancel()
	st, err := playerFrom(r).Status(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callCtx(r)
	defer cancel()
	if err := s.backend.RemovePlayer(ctx, playerFrom(r).ID()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// control adapts a no-argument player operation to a handler that answers
// with the resulting status.
func (s *Server) control(op func(*backend.Player, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.apply(w, r, func(ctx context.Context, p *backend.Player) error { return op(p, ctx) })
	}
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request, fn func(context.Context, *backend.Player) error) {
	ctx, cancel := s.callCtx(r)
	defer cancel()
	p := playerFrom(r)
	if err := fn(ctx, p); err != nil {
		logger := xglog.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "player.call_failed").
			Str("path", r.URL.Path).
			Msg("player operation failed")
		writeError(w, err)
		return
	}
	st, err := p.Status(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if st.ErrorType != player.NoError {
		telemetry.Annotate(ctx, telemetry.ErrorTypeKey.String(st.ErrorType.String()))
	}
	writeJSON(w, http.StatusOK, st)
}

type seekRequest struct {
	PositionMS int64 `json:"positionMs"`
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.apply(w, r, func(ctx context.Context, p *backend.Player) error {
		return p.Seek(ctx, time.Duration(req.PositionMS)*time.Millisecond)
	})
}

func (s *Server) handleSetSource(w http.ResponseWriter, r *http.Request) {
	var src player.Source
	if err := decode(r, &src); err != nil {
		writeError(w, err)
		return
	}
	telemetry.Annotate(r.Context(), telemetry.SourceAttributes(src.Kind.String(), src.Device)...)
	s.apply(w, r, func(ctx context.Context, p *backend.Player) error { return p.SetSource(ctx, src) })
}

func (s *Server) handleSetNextSource(w http.ResponseWriter, r *http.Request) {
	var src player.Source
	if err := decode(r, &src); err != nil {
		writeError(w, err)
		return
	}
	if !src.Playable() {
		writeError(w, fmt.Errorf("%w: next source must be playable", player.ErrInvalidSource))
		return
	}
	s.apply(w, r, func(ctx context.Context, p *backend.Player) error { return p.SetNextSource(ctx, src) })
}

type titleRequest struct {
	Title int `json:"title"`
}

func (s *Server) handleSetTitle(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.apply(w, r, func(ctx context.Context, p *backend.Player) error { return p.SetCurrentTitle(ctx, req.Title) })
}

type deviceRequest struct {
	Device string `json:"device"`
}

func (s *Server) handleSetDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	telemetry.Annotate(r.Context(), telemetry.OutputDeviceKey.String(req.Device))
	s.apply(w, r, func(ctx context.Context, p *backend.Player) error {
		return s.backend.SetPlayerDevice(ctx, p, req.Device)
	})
}

// handleEvents streams the player's signals as newline-delimited JSON until
// the client goes away. Ticks are included only with ?ticks=1.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, err := playerFrom(r).Subscribe(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = sub.Close() }()

	withTicks := r.URL.Query().Get("ticks") == "1"
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			ev, isEvent := msg.(player.Event)
			if !isEvent || (ev.Kind == player.EventTick && !withTicks) {
				continue
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
