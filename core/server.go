package core

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"skyauth/scheduler"
)

// Server is the operator-facing admin API.
type Server struct {
	sched      scheduler.Scheduler
	gatekeeper *Gatekeeper
	resolver   *Resolver
	bans       BanList
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
}

func NewServer(s scheduler.Scheduler, gatekeeper *Gatekeeper, resolver *Resolver, bans BanList, gatherer prometheus.Gatherer, opts ...Option) *Server {
	o := buildOptions(opts)
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		sched:      s,
		gatekeeper: gatekeeper,
		resolver:   resolver,
		bans:       bans,
		gatherer:   gatherer,
		logger:     o.logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/profiles/{providerUserID}", s.HandleGetProfile)
	r.Post("/bans/{providerUserID}", s.HandleBan)
	r.Delete("/bans/{providerUserID}", s.HandleUnban)
	r.Post("/kick/{providerUserID}", s.HandleKick)
	return r
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type profileResponse struct {
	ProviderUserID string `json:"provider_user_id"`
	ProfileID      int    `json:"profile_id"`
	Banned         bool   `json:"banned"`
}

func (s *Server) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	providerUserID := chi.URLParam(r, "providerUserID")

	ctx := r.Context()
	profileID, err := s.resolver.Lookup(ctx, providerUserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "Unknown provider user id")
			return
		}
		s.logger.Error("profile lookup failed", "provider_user_id", providerUserID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to look up profile")
		return
	}

	banned, err := s.bans.IsBanned(ctx, providerUserID)
	if err != nil {
		s.logger.Error("ban lookup failed", "provider_user_id", providerUserID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to look up ban")
		return
	}

	respondJSON(w, http.StatusOK, profileResponse{
		ProviderUserID: providerUserID,
		ProfileID:      profileID,
		Banned:         banned,
	})
}

func (s *Server) HandleBan(w http.ResponseWriter, r *http.Request) {
	providerUserID := chi.URLParam(r, "providerUserID")

	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	if err := s.bans.Ban(r.Context(), providerUserID, req.Reason); err != nil {
		s.logger.Error("ban failed", "provider_user_id", providerUserID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to ban user")
		return
	}
	s.logger.Info("user banned", "provider_user_id", providerUserID, "reason", req.Reason)
	s.kick(providerUserID)

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "banned",
	})
}

func (s *Server) HandleUnban(w http.ResponseWriter, r *http.Request) {
	providerUserID := chi.URLParam(r, "providerUserID")

	if err := s.bans.Unban(r.Context(), providerUserID); err != nil {
		s.logger.Error("unban failed", "provider_user_id", providerUserID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to unban user")
		return
	}
	s.logger.Info("user unbanned", "provider_user_id", providerUserID)

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "unbanned",
	})
}

// HandleKick disconnects a user whose group membership was revoked.
func (s *Server) HandleKick(w http.ResponseWriter, r *http.Request) {
	s.kick(chi.URLParam(r, "providerUserID"))

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "kick_scheduled",
	})
}

func (s *Server) kick(providerUserID string) {
	if s.gatekeeper == nil {
		return
	}
	s.sched.Post(func() {
		s.gatekeeper.Kick(providerUserID)
	})
}

// Helper functions

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	respondJSON(w, statusCode, map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
