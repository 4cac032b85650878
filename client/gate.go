package client

// TriggerGate fires one action once both the UI and the game have signalled
// readiness. The action fires at most once per login cycle.
type TriggerGate struct {
	uiReady     bool
	loginNeeded bool
	fired       bool
}

// SetUIReady records UI readiness and reports whether the gated action must
// fire now.
func (g *TriggerGate) SetUIReady() bool {
	g.uiReady = true
	return g.tryFire()
}

// SetLoginNeeded records the login request and reports whether the gated
// action must fire now.
func (g *TriggerGate) SetLoginNeeded() bool {
	g.loginNeeded = true
	return g.tryFire()
}

// Rearm clears the latch for a new login cycle and reports whether the
// action must fire again because both flags are still set.
func (g *TriggerGate) Rearm() bool {
	g.fired = false
	return g.tryFire()
}

func (g *TriggerGate) Satisfied() bool {
	return g.uiReady && g.loginNeeded
}

func (g *TriggerGate) Fired() bool {
	return g.fired
}

func (g *TriggerGate) tryFire() bool {
	if !g.Satisfied() || g.fired {
		return false
	}
	g.fired = true
	return true
}
