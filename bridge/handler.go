package bridge

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"skyauth/core"
	"skyauth/scheduler"
)

const maxPacketSize = 64 << 10

// LoginHandler is the gatekeeper side of the bridge. Calls are made on the
// scheduler loop.
type LoginHandler interface {
	HandleCustomPacket(connID int, raw []byte)
	HandleDisconnect(connID int)
}

type SessionSource interface {
	Get(connID int) (core.Session, bool)
	MaxCharacterSlots(connID int) int
}

type HandlerConfig struct {
	// Secret, when set, must be presented as a bearer token.
	Secret string
	Logger *slog.Logger
}

// Handler is the HTTP ingress the game server calls on connection events.
type Handler struct {
	sched    scheduler.Scheduler
	registry *Registry
	logins   LoginHandler
	sessions SessionSource
	secret   string
	logger   *slog.Logger
}

func NewHandler(s scheduler.Scheduler, registry *Registry, logins LoginHandler, sessions SessionSource, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sched:    s,
		registry: registry,
		logins:   logins,
		sessions: sessions,
		secret:   cfg.Secret,
		logger:   logger,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.authenticate)

	r.Route("/connections/{connID}", func(r chi.Router) {
		r.Post("/connect", h.HandleConnect)
		r.Post("/disconnect", h.HandleDisconnect)
		r.Post("/packets", h.HandlePacket)
		r.Get("/session", h.HandleSession)
	})
	return r
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.secret != "" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
				respondError(w, http.StatusUnauthorized, "unauthorized", "Invalid bridge secret")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	connID, ok := parseConnID(w, r)
	if !ok {
		return
	}

	var req struct {
		RemoteIP string `json:"remote_ip"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	h.sched.Post(func() {
		guid, replaced := h.registry.Connect(connID, req.RemoteIP)
		if replaced {
			h.logins.HandleDisconnect(connID)
		}
		h.logger.Info("connection registered", "connection_id", connID, "remote_ip", req.RemoteIP,
			"session_guid", guid, "replaced", replaced)
	})

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}

func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	connID, ok := parseConnID(w, r)
	if !ok {
		return
	}

	h.sched.Post(func() {
		if h.registry.Disconnect(connID) {
			h.logger.Info("connection closed", "connection_id", connID)
		}
		h.logins.HandleDisconnect(connID)
	})

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}

func (h *Handler) HandlePacket(w http.ResponseWriter, r *http.Request) {
	connID, ok := parseConnID(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPacketSize))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "invalid_request", "Packet too large")
		return
	}

	h.sched.Post(func() {
		if !h.registry.IsConnected(connID) {
			h.logger.Warn("dropping packet for unknown connection", "connection_id", connID)
			return
		}
		h.logins.HandleCustomPacket(connID, raw)
	})

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}

type sessionResponse struct {
	ProfileID         int      `json:"profile_id"`
	ProviderUserID    string   `json:"provider_user_id,omitempty"`
	Roles             []string `json:"roles"`
	MaxCharacterSlots int      `json:"max_character_slots"`
}

// HandleSession reports the accepted session for character selection.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	connID, ok := parseConnID(w, r)
	if !ok {
		return
	}

	sess, found := h.sessions.Get(connID)
	if !found {
		respondError(w, http.StatusNotFound, "not_found", "No accepted session for connection")
		return
	}

	roles := sess.Roles
	if roles == nil {
		roles = []string{}
	}
	respondJSON(w, http.StatusOK, sessionResponse{
		ProfileID:         sess.ProfileID,
		ProviderUserID:    sess.ProviderUserID,
		Roles:             roles,
		MaxCharacterSlots: h.sessions.MaxCharacterSlots(connID),
	})
}

func parseConnID(w http.ResponseWriter, r *http.Request) (int, bool) {
	connID, err := strconv.Atoi(chi.URLParam(r, "connID"))
	if err != nil || connID < 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid connection id")
		return 0, false
	}
	return connID, true
}

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
