package client

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"skyauth/scheduler"
)

const defaultPollRequestTimeout = 10 * time.Second

// PollHooks receive the poller's progress on the scheduler loop.
type PollHooks struct {
	// Comment updates the status line shown under the login form.
	Comment func(comment string)
	// Succeeded delivers the final identity. The poll loop has stopped.
	Succeeded func(id RemoteIdentity)
}

// Poller polls the broker until the provider login completes, then trades
// the broker token for a play session.
type Poller struct {
	sched     scheduler.Scheduler
	broker    Broker
	policy    RetryPolicy
	state     string
	listening func() bool
	hooks     PollHooks

	random         func() float64
	requestTimeout time.Duration
	logger         *slog.Logger

	active    bool
	failCount int
}

type PollerOption func(*Poller)

func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// WithRandom replaces the jitter source. fn must return values in [0, 1).
func WithRandom(fn func() float64) PollerOption {
	return func(p *Poller) {
		p.random = fn
	}
}

func WithRequestTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.requestTimeout = d
		}
	}
}

// NewPoller builds a poller. listening is checked before every reschedule
// and after every resume; a false result ends the loop.
func NewPoller(s scheduler.Scheduler, broker Broker, policy RetryPolicy, state string, listening func() bool, hooks PollHooks, opts ...PollerOption) *Poller {
	p := &Poller{
		sched:          s,
		broker:         broker,
		policy:         policy,
		state:          state,
		listening:      listening,
		hooks:          hooks,
		random:         rand.Float64,
		requestTimeout: defaultPollRequestTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling unless a loop is already running.
func (p *Poller) Start() {
	if !p.listening() {
		p.logger.Debug("poll start skipped, not listening")
		return
	}
	if p.active {
		return
	}
	p.active = true
	p.poll()
}

func (p *Poller) Active() bool {
	return p.active
}

func (p *Poller) FailCount() int {
	return p.failCount
}

func (p *Poller) poll() {
	if !p.listening() {
		p.active = false
		return
	}

	p.logger.Debug("checking login state", "state_prefix", ShortState(p.state))

	scheduler.Await(p.sched, func() (StatusResult, error) {
		ctx, cancel := context.WithTimeout(context.Background(), p.requestTimeout)
		defer cancel()
		return p.broker.Status(ctx, p.state)
	}, p.handleStatus)
}

func (p *Poller) handleStatus(res StatusResult, err error) {
	if !p.listening() {
		p.active = false
		return
	}

	if err != nil {
		p.failCount++
		status := "???"
		if res.StatusCode != 0 {
			status = fmt.Sprint(res.StatusCode)
		}
		detail := res.Body
		if detail == "" {
			detail = err.Error()
		}
		p.logger.Warn("login status request failed", "status", status, "fail_count", p.failCount, "error", err)
		p.comment(fmt.Sprintf("Server returned %s %q", status, detail))
		p.retryCounted()
		return
	}

	switch p.policy.Classify(res.StatusCode) {
	case OutcomeProceed:
		if res.Login == nil {
			p.failCount++
			p.logger.Warn("login status without login body", "fail_count", p.failCount)
			p.comment(fmt.Sprintf("Server returned %d %q", res.StatusCode, res.Body))
			p.retryCounted()
			return
		}
		p.failCount = 0
		p.handshake(*res.Login)
	case OutcomeRetry:
		p.failCount = 0
		p.comment("")
		p.reschedule()
	case OutcomeTerminal:
		p.active = false
		p.logger.Warn("login status terminal", "status", res.StatusCode)
		p.comment("Fail: " + res.Body)
	default:
		p.failCount++
		p.logger.Warn("login status unexpected", "status", res.StatusCode, "fail_count", p.failCount)
		p.comment(fmt.Sprintf("Server returned %d %q", res.StatusCode, res.Body))
		p.retryCounted()
	}
}

func (p *Poller) handshake(login BrokerLogin) {
	scheduler.Await(p.sched, func() (string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), p.requestTimeout)
		defer cancel()
		return p.broker.PlaySession(ctx, login.Token)
	}, func(session string, err error) {
		if !p.listening() {
			p.active = false
			return
		}
		if err != nil {
			p.failCount = 0
			p.logger.Warn("play session handshake failed", "error", err)
			p.comment(err.Error())
			p.reschedule()
			return
		}

		p.active = false
		id := login.Identity(session)
		p.logger.Info("provider login completed", "provider_user_id", id.ProviderUserID)
		if p.hooks.Succeeded != nil {
			p.hooks.Succeeded(id)
		}
	})
}

func (p *Poller) retryCounted() {
	if p.policy.Exhausted(p.failCount) {
		p.active = false
		p.logger.Warn("login status retries exhausted", "fail_count", p.failCount)
		return
	}
	p.reschedule()
}

func (p *Poller) reschedule() {
	if !p.listening() {
		p.active = false
		return
	}
	p.sched.AfterFunc(p.policy.Delay(p.random()), p.poll)
}

func (p *Poller) comment(c string) {
	if p.hooks.Comment != nil {
		p.hooks.Comment(c)
	}
}
