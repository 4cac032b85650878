package client

import "time"

const (
	DefaultWatchdogDeadline = 15 * time.Second

	technicalDifficultiesReason = "technical difficulties\nplease try again\nor contact us on discord"
)

type WatchdogAction int

const (
	WatchdogNone WatchdogAction = iota
	WatchdogReconnect
	WatchdogResetToLogin
)

// Watchdog detects a login attempt stuck past its deadline.
type Watchdog struct {
	Deadline time.Duration

	startedAt    time.Time
	gameplaySeen bool
}

func NewWatchdog(deadline time.Duration) *Watchdog {
	if deadline <= 0 {
		deadline = DefaultWatchdogDeadline
	}
	return &Watchdog{Deadline: deadline}
}

func (w *Watchdog) Start(now time.Time) {
	w.startedAt = now
}

func (w *Watchdog) Clear() {
	w.startedAt = time.Time{}
}

func (w *Watchdog) Pending() bool {
	return !w.startedAt.IsZero()
}

// MarkGameplaySeen latches once the game simulation has ticked after spawn.
func (w *Watchdog) MarkGameplaySeen() {
	w.gameplaySeen = true
}

func (w *Watchdog) GameplaySeen() bool {
	return w.gameplaySeen
}

// Check disarms the watchdog and returns the action to take once the
// pending attempt is older than Deadline.
func (w *Watchdog) Check(now time.Time) WatchdogAction {
	if !w.Pending() || now.Sub(w.startedAt) <= w.Deadline {
		return WatchdogNone
	}
	w.Clear()
	if w.gameplaySeen {
		return WatchdogReconnect
	}
	return WatchdogResetToLogin
}
