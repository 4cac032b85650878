package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"skyauth/events"
	"skyauth/protocol"
	"skyauth/scheduler"
)

// GameServer is the slice of the game server the gatekeeper drives.
type GameServer interface {
	SendCustomPacket(connID int, payload []byte) error
	SetEnabled(connID int, enabled bool)
	IsConnected(connID int) bool
	// SessionGUID changes whenever a new connection takes the slot.
	SessionGUID(connID int) string
	RemoteIP(connID int) string
}

type GatekeeperDeps struct {
	Server    GameServer
	Validator *TokenValidator
	Resolver  *Resolver
	Bans      BanList
	// Provider serves the guild role lookup. Required when FetchRoles is set.
	Provider IdentityProvider
}

// Gatekeeper decides whether a connection may proceed. All methods must be
// called on the scheduler loop; provider and store calls run off the loop.
type Gatekeeper struct {
	sched     scheduler.Scheduler
	server    GameServer
	validator *TokenValidator
	resolver  *Resolver
	bans      BanList
	provider  IdentityProvider
	cfg       Config
	metrics   *Metrics
	logger    *slog.Logger

	attempts map[int]*LoginAttempt
	sessions *Sessions

	// Verdicts carries exactly one event per accepted login.
	Verdicts *events.Bus[Verdict]
}

func NewGatekeeper(s scheduler.Scheduler, deps GatekeeperDeps, cfg Config, opts ...Option) (*Gatekeeper, error) {
	if s == nil || deps.Server == nil || deps.Validator == nil || deps.Resolver == nil || deps.Bans == nil {
		return nil, errors.New("gatekeeper: scheduler, server, validator, resolver and ban list are required")
	}
	if cfg.FetchRoles && deps.Provider == nil {
		return nil, errors.New("gatekeeper: role lookup enabled without provider")
	}
	cfg.Sanitize()
	o := buildOptions(opts)

	g := &Gatekeeper{
		sched:     s,
		server:    deps.Server,
		validator: deps.Validator,
		resolver:  deps.Resolver,
		bans:      deps.Bans,
		provider:  deps.Provider,
		cfg:       cfg,
		metrics:   o.metrics,
		logger:    o.logger,
		attempts:  map[int]*LoginAttempt{},
		sessions:  NewSessions(cfg.Characters),
		Verdicts:  events.NewBus[Verdict](),
	}
	g.Verdicts.Subscribe(g.sessions.Accept)
	return g, nil
}

func (g *Gatekeeper) Sessions() *Sessions {
	return g.sessions
}

// Pending reports whether connID has a login attempt in flight.
func (g *Gatekeeper) Pending(connID int) bool {
	_, ok := g.attempts[connID]
	return ok
}

// HandleCustomPacket processes a custom packet from connID. Only login
// packets are acted on.
func (g *Gatekeeper) HandleCustomPacket(connID int, raw []byte) {
	pkt, err := protocol.Decode(raw)
	if err != nil {
		g.logger.Error("dropping malformed custom packet", "connection_id", connID, "error", err)
		return
	}
	if pkt.Kind != protocol.KindLoginWithProvider {
		return
	}

	login := pkt.Login
	token := ""
	if login.AccessToken != nil {
		token = strings.TrimSpace(*login.AccessToken)
	}

	logger := g.logger.With("connection_id", connID, "remote_ip", g.server.RemoteIP(connID))

	if token == "" {
		if login.ProfileID != nil && g.cfg.OfflineMode {
			g.metrics.IncrementAttempt("local")
			g.acceptLocal(connID, *login.ProfileID, logger)
			return
		}
		g.metrics.IncrementAttempt("empty")
		logger.Info("login without access token")
		g.deny(connID, DenyNotLoggedIn, logger)
		return
	}

	g.metrics.IncrementAttempt("remote")
	attempt := &LoginAttempt{
		ID:           uuid.New(),
		ConnectionID: connID,
		SessionGUID:  g.server.SessionGUID(connID),
		AccessToken:  token,
		StartedAt:    g.sched.Now(),
	}
	g.attempts[connID] = attempt
	logger.Info("login attempt started", "attempt_id", attempt.ID.String())

	scheduler.Await(g.sched, func() (loginOutcome, error) {
		return g.evaluate(context.Background(), attempt.AccessToken), nil
	}, func(out loginOutcome, _ error) {
		g.apply(attempt, out, logger)
	})
}

func (g *Gatekeeper) acceptLocal(connID, profileID int, logger *slog.Logger) {
	logger.Info("offline login accepted", "profile_id", profileID)
	g.metrics.IncrementVerdict("success")
	g.Verdicts.Publish(Verdict{ConnectionID: connID, ProfileID: profileID})
}

type loginOutcome struct {
	user      *UserInfo
	profileID int
	roles     []string
	deny      DenyReason
	err       error
}

// evaluate runs off the loop. The profile id is persisted before any
// policy check so the mapping stays stable for denied users too.
func (g *Gatekeeper) evaluate(ctx context.Context, token string) loginOutcome {
	user, err := g.validator.Validate(ctx, token)
	if err != nil {
		return loginOutcome{deny: DenyNotLoggedIn, err: err}
	}

	profileID, err := g.resolver.Resolve(ctx, user.ProviderUserID)
	if err != nil {
		return loginOutcome{user: user, deny: DenyNotLoggedIn, err: fmt.Errorf("resolve profile: %w", err)}
	}
	out := loginOutcome{user: user, profileID: profileID}

	banned, err := g.bans.IsBanned(ctx, user.ProviderUserID)
	if err != nil {
		out.deny, out.err = DenyBanned, fmt.Errorf("ban lookup: %w", err)
		return out
	}
	if banned {
		out.deny = DenyBanned
		return out
	}

	if !g.cfg.FetchRoles {
		return out
	}

	rolesCtx, cancel := context.WithTimeout(ctx, g.cfg.ValidateTimeout)
	defer cancel()

	start := time.Now()
	roles, err := g.provider.GetMemberRoles(rolesCtx, user.ProviderUserID)
	g.metrics.ObserveProvider("guild_member", start)

	// Membership only gates the login when a whitelist role is required.
	switch {
	case err != nil && g.cfg.WhitelistRoleID != "":
		out.deny, out.err = DenyNotInGuild, err
		return out
	case errors.Is(err, ErrMemberNotFound):
		g.logger.Info("user is not a guild member, continuing without roles",
			"provider_user_id", user.ProviderUserID)
		roles = nil
	case err != nil:
		g.logger.Warn("member roles unavailable, continuing without roles",
			"provider_user_id", user.ProviderUserID, "error", err)
		roles = nil
	}

	if g.cfg.WhitelistRoleID != "" && !slices.Contains(roles, g.cfg.WhitelistRoleID) {
		out.deny = DenyNotInGuild
		return out
	}
	out.roles = roles
	return out
}

// apply runs on the loop once evaluation finishes. Attempts whose slot has
// since been taken by another connection are dropped without a reply.
func (g *Gatekeeper) apply(attempt *LoginAttempt, out loginOutcome, logger *slog.Logger) {
	connID := attempt.ConnectionID
	if g.attempts[connID] != attempt {
		g.metrics.IncrementVerdict("discarded")
		logger.Debug("discarding superseded login attempt", "attempt_id", attempt.ID.String())
		return
	}
	delete(g.attempts, connID)

	if !g.server.IsConnected(connID) || g.server.SessionGUID(connID) != attempt.SessionGUID {
		g.metrics.IncrementVerdict("discarded")
		logger.Info("connection changed during login, discarding attempt", "attempt_id", attempt.ID.String())
		return
	}

	if out.user != nil {
		attempt.ProviderUserID = out.user.ProviderUserID
		logger = logger.With("provider_user_id", out.user.ProviderUserID)
	}

	if out.deny != 0 {
		if out.err != nil {
			logger.Warn("login denied", "reason", out.deny.String(), "error", out.err)
		} else {
			logger.Info("login denied", "reason", out.deny.String())
		}
		g.deny(connID, out.deny, logger)
		return
	}

	attempt.ProfileID = out.profileID
	attempt.Roles = out.roles
	logger.Info("login accepted", "profile_id", out.profileID, "roles", len(out.roles),
		"duration", g.sched.Now().Sub(attempt.StartedAt).String())

	g.metrics.IncrementVerdict("success")
	g.Verdicts.Publish(Verdict{
		ConnectionID:   connID,
		ProfileID:      out.profileID,
		Roles:          slices.Clone(out.roles),
		ProviderUserID: out.user.ProviderUserID,
	})
}

func (g *Gatekeeper) deny(connID int, reason DenyReason, logger *slog.Logger) {
	g.metrics.IncrementVerdict(reason.String())
	if err := g.server.SendCustomPacket(connID, protocol.EncodeNotice(reason.Packet())); err != nil {
		logger.Warn("failed to send login denial", "reason", reason.String(), "error", err)
	}
	g.server.SetEnabled(connID, false)
}

// HandleDisconnect forgets everything bound to connID. An attempt still in
// flight for it is discarded on resume.
func (g *Gatekeeper) HandleDisconnect(connID int) {
	delete(g.attempts, connID)
	g.sessions.Remove(connID)
}

// Kick disables every live connection bound to providerUserID and returns
// the affected connection ids.
func (g *Gatekeeper) Kick(providerUserID string) []int {
	ids := g.sessions.ConnectionsFor(providerUserID)
	for _, connID := range ids {
		g.logger.Info("kicking connection", "connection_id", connID, "provider_user_id", providerUserID)
		g.server.SetEnabled(connID, false)
		g.sessions.Remove(connID)
	}
	return ids
}
