// Package api exposes a session over HTTP and a websocket state stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"archuser.org/idle-game/internal/config"
	"archuser.org/idle-game/internal/game"
	"archuser.org/idle-game/internal/save"
	"archuser.org/idle-game/internal/session"
)

type Server struct {
	sess      *session.Session
	logger    *log.Logger
	limiter   *rate.Limiter
	startTime time.Time

	// StreamInterval throttles tick-driven pushes on the state stream.
	StreamInterval time.Duration
}

func NewServer(sess *session.Session, cfg config.ServerConfig, logger *log.Logger) *Server {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Server{
		sess:           sess,
		logger:         logger,
		limiter:        rate.NewLimiter(limit, max(cfg.Burst, 1)),
		startTime:      time.Now(),
		StreamInterval: 250 * time.Millisecond,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/save/export", s.handleExport)
		r.Get("/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/generators/{id}/buy", s.handleBuy)
			r.Post("/generators/{id}/unlock", s.handleUnlock)
			r.Post("/prestige", s.handlePrestige)
			r.Put("/settings/buy-mode", s.handleBuyMode)
			r.Post("/save", s.handleSave)
			r.Post("/restart", s.handleRestart)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
			"requestID", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, ErrTypeRateLimited, "too many actions", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"session": s.sess.ID().String(),
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Snapshot())
}

type buyRequest struct {
	Amount *int `json:"amount"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	id, ok := generatorID(w, r)
	if !ok {
		return
	}
	var req buyRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	var err error
	if req.Amount == nil {
		err = s.sess.BuyWithMode(id)
	} else {
		amount := *req.Amount
		if amount == 0 || (amount < 0 && !game.BuyMode(amount).Valid()) {
			writeError(w, http.StatusBadRequest, ErrTypeValidation, "amount must be positive, -1 (max) or -2 (next milestone)", nil)
			return
		}
		err = s.sess.Buy(id, amount)
	}
	s.respond(w, err, map[string]any{"generatorId": id})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	id, ok := generatorID(w, r)
	if !ok {
		return
	}
	s.respond(w, s.sess.Unlock(id), map[string]any{"generatorId": id})
}

type prestigeRequest struct {
	GeneratorID int    `json:"generatorId"`
	Bonus       string `json:"bonus"`
}

func (s *Server) handlePrestige(w http.ResponseWriter, r *http.Request) {
	var req prestigeRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	var choice *game.Choice
	if req.GeneratorID != 0 || req.Bonus != "" {
		choice = &game.Choice{GeneratorID: req.GeneratorID, Bonus: game.BonusType(req.Bonus)}
	}

	award, err := s.sess.Prestige(choice)
	if err != nil {
		s.respond(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generatorId": award.GeneratorID,
		"generator":   award.Generator,
		"bonus":       award.Bonus,
		"magnitude":   award.Magnitude,
		"value":       award.Value,
		"selectable":  award.Selectable,
	})
}

type buyModeRequest struct {
	Mode   int   `json:"mode"`
	Sticky *bool `json:"sticky"`
}

func (s *Server) handleBuyMode(w http.ResponseWriter, r *http.Request) {
	var req buyModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", nil)
		return
	}
	if err := s.sess.SetBuyMode(game.BuyMode(req.Mode), req.Sticky); err != nil {
		writeError(w, http.StatusBadRequest, ErrTypeValidation, err.Error(), map[string]any{"mode": req.Mode})
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Snapshot())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Save(r.Context()); err != nil {
		s.logger.Error("save failed", "err", err)
		writeError(w, http.StatusInternalServerError, ErrTypeInternal, "save failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	blob, err := s.sess.Export(r.Context())
	switch {
	case errors.Is(err, save.ErrNoSave), errors.Is(err, save.ErrCorrupt):
		writeError(w, http.StatusNotFound, ErrTypeNotFound, "no save to export", nil)
		return
	case err != nil:
		s.logger.Error("export failed", "err", err)
		writeError(w, http.StatusInternalServerError, ErrTypeInternal, "export failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, blob)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Restart(r.Context()); err != nil {
		s.logger.Error("restart failed", "err", err)
		writeError(w, http.StatusInternalServerError, ErrTypeInternal, "restart failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Snapshot())
}

// respond maps a session error onto a status, or writes the new state.
func (s *Server) respond(w http.ResponseWriter, err error, ctx map[string]any) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.sess.Snapshot())
	case errors.Is(err, session.ErrUnknownGenerator):
		writeError(w, http.StatusNotFound, ErrTypeNotFound, err.Error(), ctx)
	case errors.Is(err, session.ErrRejected):
		writeError(w, http.StatusConflict, ErrTypeRejected, err.Error(), ctx)
	default:
		s.logger.Error("action failed", "err", err)
		writeError(w, http.StatusInternalServerError, ErrTypeInternal, "internal error", nil)
	}
}

func generatorID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid generator id", map[string]any{"id": chi.URLParam(r, "id")})
		return 0, false
	}
	return id, true
}

// decodeOptional accepts an empty body and rejects malformed JSON.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", nil)
		return false
	}
	return true
}
