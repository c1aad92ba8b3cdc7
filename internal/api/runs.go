package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jfapp/reactix/internal/engine"
	"github.com/jfapp/reactix/internal/game"
	"github.com/jfapp/reactix/internal/session"
)

// POST /api/v1/runs
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidParams, "body", err.Error())
		return
	}
	if req.Mode == "" {
		req.Mode = string(game.ModeClassic)
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidMode, "mode", err.Error())
		return
	}

	sess, err := s.sessions.Start(mode, strings.TrimSpace(req.Seed))
	if errors.Is(err, session.ErrSeedNotAllowed) {
		s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidParams, "seed", err.Error())
		return
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeRun(w, http.StatusCreated, sess.Snapshot())
}

// GET /api/v1/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeRun(w, http.StatusOK, sess.Snapshot())
}

// POST /api/v1/runs/{id}/tick
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeRun(w, http.StatusOK, sess.Tick(r.Context()))
}

// POST /api/v1/runs/{id}/tap
func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	var req TapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidParams, "body", err.Error())
		return
	}
	color, err := parseTapColor(req.Color)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidInput, "color", err.Error())
		return
	}
	s.writeRun(w, http.StatusOK, sess.Tap(r.Context(), color))
}

// POST /api/v1/runs/{id}/swipe
func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	var req SwipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidParams, "body", err.Error())
		return
	}
	dir, err := game.ParseDirection(req.Direction)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidInput, "direction", err.Error())
		return
	}
	s.writeRun(w, http.StatusOK, sess.Swipe(r.Context(), dir))
}

// POST /api/v1/runs/{id}/boost
func (s *Server) handleBoost(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	var req BoostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidParams, "body", err.Error())
		return
	}
	b, err := game.ParseBoost(req.Boost)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidBoost, "boost", err.Error())
		return
	}
	s.writeRun(w, http.StatusOK, sess.UseBoost(r.Context(), b))
}

// POST /api/v1/runs/{id}/revive
func (s *Server) handleRevive(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeRun(w, http.StatusOK, sess.Revive(r.Context()))
}

// POST /api/v1/runs/{id}/finish
func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeRun(w, http.StatusOK, sess.Finish(r.Context()))
}

// GET /api/v1/profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.progress.Profile(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// GET /api/v1/history?mode=&page=&per_page=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode != "" {
		if _, err := game.ParseMode(mode); err != nil {
			s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidMode, "mode", err.Error())
			return
		}
	}
	page := clampInt(qInt(r, "page", 1), 1, 1<<20)
	perPage := clampInt(qInt(r, "per_page", 50), 1, 200)

	list, err := s.progress.History(r.Context(), mode, page, perPage)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/daily
func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	now := s.clock()
	day := engine.EpochDay(now, s.loc)
	resp := DailyResponse{
		Date:     now.In(s.loc).Format("2006-01-02"),
		EpochDay: day,
		Seed:     engine.DailySeed(now, s.loc, s.game.DailySalt),
	}

	p, err := s.progress.Profile(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if p.LastDailyEpochDay == day {
		resp.Played = true
		resp.Best = p.DailyBest
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		s.errorHandler.HandleRunNotFound(w, r, id)
		return nil, false
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) writeRun(w http.ResponseWriter, status int, snap session.Snapshot) {
	s.writeJSON(w, status, RunResponse{Snapshot: snap, EngineVersion: EngineVersion})
}

// parseTapColor maps an empty color to a tap on no target and rejects
// unknown names.
func parseTapColor(name string) (game.Color, error) {
	if name == "" {
		return game.ColorNone, nil
	}
	c := game.ParseColor(name)
	if c == game.ColorNone {
		return game.ColorNone, EngineError{Type: ErrTypeInvalidInput, Message: "unknown color " + name}
	}
	return c, nil
}

// applyAction routes a stream action to the session.
func applyAction(ctx context.Context, sess *session.Session, a StreamAction) (session.Snapshot, error) {
	switch a.Type {
	case "tick":
		return sess.Tick(ctx), nil
	case "tap":
		color, err := parseTapColor(a.Color)
		if err != nil {
			return session.Snapshot{}, err
		}
		return sess.Tap(ctx, color), nil
	case "swipe":
		dir, err := game.ParseDirection(a.Direction)
		if err != nil {
			return session.Snapshot{}, err
		}
		return sess.Swipe(ctx, dir), nil
	case "boost":
		b, err := game.ParseBoost(a.Boost)
		if err != nil {
			return session.Snapshot{}, err
		}
		return sess.UseBoost(ctx, b), nil
	case "revive":
		return sess.Revive(ctx), nil
	case "finish":
		return sess.Finish(ctx), nil
	}
	return session.Snapshot{}, EngineError{Type: ErrTypeInvalidInput, Message: "unknown action " + a.Type}
}
