// Package bridge connects the gatekeeper to a game server running out of
// process. The game server reports connections and custom packets over HTTP
// and receives outbound packets and enable/disable calls on a webhook.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"skyauth/core"
)

var (
	ErrNotConnected = errors.New("connection not present")
	ErrOutboxFull   = errors.New("outbox queue full")
)

const (
	DefaultQueueSize       = 1024
	DefaultDeliveryTimeout = 5 * time.Second
)

// Outbox delivers calls to the game server.
type Outbox interface {
	SendPacket(ctx context.Context, connID int, payload []byte) error
	SetEnabled(ctx context.Context, connID int, enabled bool) error
}

type connection struct {
	guid        string
	remoteIP    string
	connectedAt time.Time
}

type delivery struct {
	connID  int
	payload []byte
	enable  *bool
}

// Registry mirrors the game server's connection table. Outbound calls are
// queued and delivered in order by Run.
type Registry struct {
	outbox  Outbox
	logger  *slog.Logger
	timeout time.Duration

	mu    sync.RWMutex
	conns map[int]*connection

	queue chan delivery
}

var _ core.GameServer = (*Registry)(nil)

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithQueueSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.queue = make(chan delivery, n)
		}
	}
}

func WithDeliveryTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRegistry(outbox Outbox, opts ...Option) *Registry {
	r := &Registry{
		outbox:  outbox,
		logger:  slog.Default(),
		timeout: DefaultDeliveryTimeout,
		conns:   map[int]*connection{},
		queue:   make(chan delivery, DefaultQueueSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect registers connID with a fresh session GUID. It reports whether an
// earlier connection held the slot.
func (r *Registry) Connect(connID int, remoteIP string) (guid string, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced = r.conns[connID]
	guid = uuid.NewString()
	r.conns[connID] = &connection{
		guid:        guid,
		remoteIP:    remoteIP,
		connectedAt: time.Now(),
	}
	return guid, replaced
}

func (r *Registry) Disconnect(connID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.conns[connID]
	delete(r.conns, connID)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) IsConnected(connID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[connID]
	return ok
}

func (r *Registry) SessionGUID(connID int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.conns[connID]; ok {
		return c.guid
	}
	return ""
}

func (r *Registry) RemoteIP(connID int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.conns[connID]; ok {
		return c.remoteIP
	}
	return ""
}

func (r *Registry) SendCustomPacket(connID int, payload []byte) error {
	if !r.IsConnected(connID) {
		return ErrNotConnected
	}
	return r.enqueue(delivery{connID: connID, payload: append([]byte(nil), payload...)})
}

func (r *Registry) SetEnabled(connID int, enabled bool) {
	if !r.IsConnected(connID) {
		return
	}
	if err := r.enqueue(delivery{connID: connID, enable: &enabled}); err != nil {
		r.logger.Error("dropping enable call", "connection_id", connID, "enabled", enabled, "error", err)
	}
}

func (r *Registry) enqueue(d delivery) error {
	select {
	case r.queue <- d:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Run delivers queued calls until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-r.queue:
			r.deliver(ctx, d)
		}
	}
}

func (r *Registry) deliver(ctx context.Context, d delivery) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if d.enable != nil {
		if err := r.outbox.SetEnabled(ctx, d.connID, *d.enable); err != nil {
			r.logger.Warn("enable call failed", "connection_id", d.connID, "enabled", *d.enable, "error", err)
		}
		return
	}
	if err := r.outbox.SendPacket(ctx, d.connID, d.payload); err != nil {
		r.logger.Warn("packet delivery failed", "connection_id", d.connID, "error", err)
	}
}
