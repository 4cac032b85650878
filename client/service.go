// Package client implements the game client side of the login flow: the
// auth state machine behind the login UI, the broker poller and the
// reconnection watchdog.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"skyauth/events"
	"skyauth/protocol"
	"skyauth/scheduler"
)

var ErrMissingDependency = errors.New("missing dependency")

// UI is the embedded login surface. It only reflects pushed snapshots and
// relays user intents through OnUIEvent.
type UI interface {
	PushState(state AuthUIState) error
	SetVisible(visible bool)
	SetFocused(focused bool)
	LoadUI() error
	OpenURL(url string) error
	NotifyAuthCompleted()
	NotifyBackToLogin()
}

// Connection is the game connection's control surface.
type Connection interface {
	SendReliable(payload []byte) error
	Close()
	Reconnect()
}

type IdentitySource interface {
	ReadRemoteIdentity() (*RemoteIdentity, error)
}

type InputLocker interface {
	DisablePlayerControls()
}

// UI event keys.
const (
	EventOpenLogin      = "open-login"
	EventConnect        = "connect"
	EventBackToLogin    = "back-to-login"
	EventRequestState   = "request-state"
	EventHide           = "hide"
	EventOpenGithub     = "open-github"
	EventOpenPatreon    = "open-patreon"
	EventJoinDiscord    = "join-discord"
	EventUpdateRequired = "update-required"
)

const defaultInitialPushDelay = 500 * time.Millisecond

type State int

const (
	StateIdle State = iota
	StateAwaitingTriggers
	StatePolling
	StateAwaitingUserConfirm
	StateConnecting
	StateConnected
	StateDenied
	StateTimedOut
)

var stateNames = [...]string{
	"idle", "awaiting_triggers", "polling", "awaiting_user_confirm",
	"connecting", "connected", "denied", "timed_out",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var denialReasons = map[protocol.Kind]string{
	protocol.KindLoginFailedNotLoggedViaDiscord:   "please login via discord",
	protocol.KindLoginFailedNotInTheDiscordServer: "please join the discord server",
	protocol.KindLoginFailedBanned:                "you are banned",
	protocol.KindLoginFailedIpMismatch:            "what was that?",
	protocol.KindLoginFailedSessionNotFound:       "session expired, please login again",
	protocol.KindLoginFailedTokenExpired:          "session expired, please login again",
}

type Settings struct {
	// LoginPage builds the provider OAuth page URL for a state token.
	LoginPage func(state string) string
	// Local enables the offline bypass when no identity file exists.
	Local *LocalIdentity

	GithubURL  string
	PatreonURL string
	DiscordURL string
	UpdateURL  string

	WatchdogDeadline time.Duration
	InitialPushDelay time.Duration
	Retry            RetryPolicy
}

type Deps struct {
	UI         UI
	Connection Connection
	Identities IdentitySource
	Input      InputLocker
	Broker     Broker
}

// AuthService is the client auth state machine. All methods must be called
// on the scheduler loop.
type AuthService struct {
	sched    scheduler.Scheduler
	ui       UI
	conn     Connection
	ids      IdentitySource
	input    InputLocker
	settings Settings
	logger   *slog.Logger

	poller   *Poller
	watchdog *Watchdog
	gate     TriggerGate

	// ConnectAttempts asks the networking layer to connect.
	ConnectAttempts *events.Bus[ConnectAttempt]
	// ServerPackets forwards character select packets.
	ServerPackets *events.Bus[protocol.Packet]

	ticks   *events.Bus[struct{}]
	updates *events.Bus[struct{}]

	state     State
	listening bool
	uiOpen    bool

	identity *RemoteIdentity
	connData *AuthData

	comment       string
	failureReason string
	connecting    bool

	progressCounter int
	lastSlow        int
}

type Option func(*options)

type options struct {
	logger     *slog.Logger
	state      string
	pollerOpts []PollerOption
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStateToken fixes the OAuth state token instead of generating one.
func WithStateToken(state string) Option {
	return func(o *options) {
		o.state = state
	}
}

func WithPollerOptions(opts ...PollerOption) Option {
	return func(o *options) {
		o.pollerOpts = append(o.pollerOpts, opts...)
	}
}

func NewAuthService(s scheduler.Scheduler, deps Deps, settings Settings, opts ...Option) (*AuthService, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: scheduler", ErrMissingDependency)
	}
	if deps.UI == nil || deps.Connection == nil || deps.Identities == nil || deps.Broker == nil {
		return nil, fmt.Errorf("%w: ui, connection, identity source and broker are required", ErrMissingDependency)
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.state == "" {
		token, err := NewStateToken()
		if err != nil {
			return nil, err
		}
		o.state = token
	}

	if settings.InitialPushDelay <= 0 {
		settings.InitialPushDelay = defaultInitialPushDelay
	}
	if settings.Retry.MaxDelay == 0 {
		settings.Retry = DefaultRetryPolicy()
	}

	svc := &AuthService{
		sched:           s,
		ui:              deps.UI,
		conn:            deps.Connection,
		ids:             deps.Identities,
		input:           deps.Input,
		settings:        settings,
		logger:          o.logger,
		watchdog:        NewWatchdog(settings.WatchdogDeadline),
		ConnectAttempts: events.NewBus[ConnectAttempt](),
		ServerPackets:   events.NewBus[protocol.Packet](),
		ticks:           events.NewBus[struct{}](),
		updates:         events.NewBus[struct{}](),
		lastSlow:        -1,
	}

	pollerOpts := append([]PollerOption{WithPollerLogger(o.logger)}, o.pollerOpts...)
	svc.poller = NewPoller(s, deps.Broker, settings.Retry, o.state, svc.Listening, PollHooks{
		Comment:   svc.onPollComment,
		Succeeded: svc.onPollSucceeded,
	}, pollerOpts...)

	svc.updates.SubscribeOnce(func(struct{}) {
		svc.watchdog.MarkGameplaySeen()
	})

	return svc, nil
}

func (s *AuthService) State() State {
	return s.state
}

func (s *AuthService) Listening() bool {
	return s.listening
}

func (s *AuthService) Poller() *Poller {
	return s.poller
}

// Identity returns the identity currently held for the login form.
func (s *AuthService) Identity() *RemoteIdentity {
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Snapshot returns the state the UI should be showing.
func (s *AuthService) Snapshot() AuthUIState {
	return AuthUIState{
		Identity:      s.Identity(),
		StatusComment: s.comment,
		FailureReason: s.failureReason,
		Connecting:    s.connecting,
	}
}

// OnLoginNeeded is raised by the game when it requires authentication.
func (s *AuthService) OnLoginNeeded() {
	s.logger.Debug("login needed")
	s.listening = true

	s.identity = s.readIdentity()

	if s.identity == nil && s.settings.Local != nil {
		local := *s.settings.Local
		s.logger.Info("no identity file, using offline profile", "profile_id", local.ProfileID)
		s.raiseConnectAttempt(AuthData{Local: &local})
		return
	}

	s.ui.SetVisible(true)
	s.ui.SetFocused(true)
	if err := s.ui.LoadUI(); err != nil {
		s.logger.Error("failed to load login ui", "error", err)
	}

	if !s.gate.Fired() {
		s.state = StateAwaitingTriggers
	}
	if s.gate.SetLoginNeeded() {
		s.onGateFired()
	}
}

// OnUIReady is raised once the login UI has mounted.
func (s *AuthService) OnUIReady() {
	s.logger.Debug("login ui ready")
	if s.gate.SetUIReady() {
		s.onGateFired()
	}
}

func (s *AuthService) onGateFired() {
	if !s.listening {
		s.logger.Error("login gate fired while not listening, aborting")
		return
	}

	s.state = StatePolling
	if id := s.readIdentity(); id != nil {
		s.identity = id
	}

	s.sched.AfterFunc(s.settings.InitialPushDelay, func() {
		s.ui.SetVisible(true)
		s.ui.SetFocused(true)
		s.push()
	})

	s.poller.Start()
}

// OnUserConnectIntent handles the connect button.
func (s *AuthService) OnUserConnectIntent() {
	switch {
	case s.identity != nil:
		remote := *s.identity
		s.raiseConnectAttempt(AuthData{Remote: &remote})
		s.push()
	case s.settings.Local != nil:
		local := *s.settings.Local
		s.raiseConnectAttempt(AuthData{Local: &local})
		s.push()
	default:
		s.logger.Warn("connect requested without identity")
		s.comment = "please login first"
		s.push()
	}
}

func (s *AuthService) raiseConnectAttempt(data AuthData) {
	s.connData = &data
	s.connecting = true
	s.state = StateConnecting
	s.ConnectAttempts.Publish(ConnectAttempt{Data: data})
}

// OnConnectionAccepted sends the login packet for the connection-scoped
// identity. Only the access token travels for remote identities.
func (s *AuthService) OnConnectionAccepted() {
	var packet []byte
	switch {
	case s.connData != nil && s.connData.Local != nil:
		s.logger.Info("logging in offline", "profile_id", s.connData.Local.ProfileID)
		packet = protocol.EncodeLoginLocal(s.connData.Local.ProfileID)
	case s.connData != nil && s.connData.Remote != nil:
		s.logger.Info("logging in with provider identity")
		packet = protocol.EncodeLoginRemote(s.connData.Remote.AccessToken)
	default:
		s.logger.Error("connection accepted without authentication method")
		return
	}

	s.watchdog.Start(s.sched.Now())
	if err := s.conn.SendReliable(packet); err != nil {
		s.logger.Error("failed to send login packet", "error", err)
	}
}

// OnConnectionDenied handles a connection refusal from the transport.
func (s *AuthService) OnConnectionDenied(reason string) {
	s.connecting = false
	s.watchdog.Clear()

	if !isInvalidCredential(reason) {
		s.logger.Warn("connection denied", "reason", reason)
		s.push()
		return
	}

	s.logger.Warn("connection denied, invalid credential", "reason", reason)
	s.ticks.SubscribeOnce(func(struct{}) {
		s.conn.Close()
	})
	s.updates.SubscribeOnce(func(struct{}) {
		if s.input != nil {
			s.input.DisablePlayerControls()
		}
	})

	s.state = StateDenied
	s.failureReason = "invalid password"
	s.push()
	s.ui.SetVisible(true)
	s.ui.SetFocused(true)
	s.listening = true
}

func isInvalidCredential(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "invalid password") || strings.Contains(r, "invalid credential")
}

// OnCustomPacket dispatches a custom packet received from the server.
func (s *AuthService) OnCustomPacket(raw []byte) {
	pkt, err := protocol.Decode(raw)
	if err != nil {
		s.logger.Error("failed to decode custom packet", "error", err, "payload", string(raw))
		return
	}

	switch {
	case pkt.Kind == protocol.KindCharacterList:
		s.connecting = false
		s.progressCounter = 0
		s.lastSlow = -1
		s.comment = ""
		s.ServerPackets.Publish(pkt)
	case pkt.Kind == protocol.KindCharacterError:
		s.ServerPackets.Publish(pkt)
	case pkt.Kind.IsLoginDenial():
		s.OnCustomServerNotice(pkt.Kind)
	default:
		s.logger.Debug("ignoring custom packet", "type", pkt.Type)
	}
}

// OnCustomServerNotice applies a server login denial.
func (s *AuthService) OnCustomServerNotice(kind protocol.Kind) {
	reason, ok := denialReasons[kind]
	if !ok {
		s.logger.Warn("unexpected server notice", "kind", kind.String())
		return
	}

	s.logger.Info("login denied by server", "kind", kind.String())
	s.connecting = false
	s.conn.Close()
	s.failureReason = reason
	s.comment = ""
	s.listening = true
	s.watchdog.Clear()
	s.state = StateDenied
	s.ui.SetVisible(true)
	s.ui.SetFocused(true)
	s.push()
}

// OnUIEvent handles an intent relayed by the login UI.
func (s *AuthService) OnUIEvent(key string, payload json.RawMessage) {
	if !s.listening {
		s.logger.Debug("ignoring ui event, not listening", "key", key)
		return
	}
	s.logger.Debug("ui event", "key", key)

	switch key {
	case EventOpenLogin:
		s.comment = "opening browser..."
		s.push()
		if s.settings.LoginPage != nil {
			if err := s.ui.OpenURL(s.settings.LoginPage(s.poller.state)); err != nil {
				s.logger.Error("failed to open login page", "error", err)
			}
		}
		s.poller.Start()
	case EventConnect:
		s.OnUserConnectIntent()
	case EventBackToLogin:
		s.backToLogin()
	case EventRequestState:
		s.push()
	case EventHide:
		s.ui.SetVisible(false)
		s.ui.SetFocused(false)
	case EventOpenGithub:
		s.openLink(s.settings.GithubURL)
	case EventOpenPatreon:
		s.openLink(s.settings.PatreonURL)
	case EventJoinDiscord:
		s.openLink(s.settings.DiscordURL)
	case EventUpdateRequired:
		s.openLink(s.settings.UpdateURL)
	default:
		s.logger.Error("unknown ui event", "key", key, "payload", string(payload))
	}
}

func (s *AuthService) openLink(url string) {
	if url == "" {
		return
	}
	if err := s.ui.OpenURL(url); err != nil {
		s.logger.Error("failed to open link", "url", url, "error", err)
	}
}

func (s *AuthService) backToLogin() {
	s.logger.Info("back to login")
	s.connecting = false
	s.watchdog.Clear()
	s.failureReason = ""
	s.comment = ""
	s.connData = nil
	s.progressCounter = 0
	s.lastSlow = -1
	s.state = StateAwaitingTriggers

	if s.gate.Rearm() {
		s.onGateFired()
	}

	s.push()
	s.ui.NotifyBackToLogin()
}

// OnPlayerSpawned is raised when the server creates the player's own actor.
func (s *AuthService) OnPlayerSpawned() {
	if s.uiOpen {
		s.logger.Debug("own actor created, hiding login ui")
		s.ui.NotifyAuthCompleted()
		s.uiOpen = false
	}
	s.watchdog.Clear()
	s.connecting = false
	s.state = StateConnected
}

// OnGameUpdate is raised on every live game simulation update.
func (s *AuthService) OnGameUpdate() {
	s.updates.Publish(struct{}{})
}

// OnTick is raised on every scheduler tick.
func (s *AuthService) OnTick() {
	s.ticks.Publish(struct{}{})

	switch s.watchdog.Check(s.sched.Now()) {
	case WatchdogReconnect:
		s.logger.Warn("login attempt stalled after gameplay, reconnecting")
		s.conn.Reconnect()
	case WatchdogResetToLogin:
		s.logger.Warn("login attempt stalled, returning to login")
		s.connecting = false
		s.conn.Close()
		s.comment = ""
		s.failureReason = technicalDifficultiesReason
		s.identity = nil
		s.connData = nil
		s.state = StateTimedOut
		s.push()
	}

	if !s.connecting {
		return
	}

	s.progressCounter++
	if s.progressCounter == 1_000_000 {
		s.progressCounter = 0
	}
	slow := s.progressCounter / 15
	if slow == s.lastSlow {
		return
	}
	s.lastSlow = slow
	s.comment = "connecting" + strings.Repeat(".", slow%3+1)
	s.push()
}

func (s *AuthService) onPollComment(comment string) {
	if comment == s.comment {
		return
	}
	s.comment = comment
	s.push()
}

func (s *AuthService) onPollSucceeded(id RemoteIdentity) {
	s.identity = &id
	s.comment = "connected successfully"
	s.state = StateAwaitingUserConfirm
	s.push()
}

func (s *AuthService) readIdentity() *RemoteIdentity {
	id, err := s.ids.ReadRemoteIdentity()
	if err != nil {
		s.logger.Error("failed to read identity file, treating as absent", "error", err)
		return nil
	}
	return id
}

func (s *AuthService) push() {
	if err := s.ui.PushState(s.Snapshot()); err != nil {
		s.logger.Warn("failed to push login state", "error", err)
	}
	s.uiOpen = true
}
