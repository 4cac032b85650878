package client_test

import (
	"net/http"
	"testing"
	"time"

	"skyauth/client"

	"github.com/stretchr/testify/assert"
)

// Every sequence of up to eight trigger calls fires the gated action exactly
// once when both triggers appear, and never otherwise.
func TestTriggerGateFiresOncePerCycle(t *testing.T) {
	for length := 1; length <= 8; length++ {
		for mask := 0; mask < 1<<length; mask++ {
			var g client.TriggerGate
			fires := 0
			sawUI, sawLogin := false, false

			for i := 0; i < length; i++ {
				if mask&(1<<i) != 0 {
					sawUI = true
					if g.SetUIReady() {
						fires++
					}
				} else {
					sawLogin = true
					if g.SetLoginNeeded() {
						fires++
					}
				}
			}

			want := 0
			if sawUI && sawLogin {
				want = 1
			}
			assert.Equal(t, want, fires, "length=%d mask=%b", length, mask)
		}
	}
}

func TestTriggerGateRearm(t *testing.T) {
	var g client.TriggerGate
	assert.False(t, g.Rearm())

	g.SetUIReady()
	assert.True(t, g.SetLoginNeeded())
	assert.False(t, g.SetUIReady())

	assert.True(t, g.Rearm())
	assert.False(t, g.SetLoginNeeded())
	assert.True(t, g.Fired())
}

func TestRetryPolicyClassifyIsTotal(t *testing.T) {
	p := client.DefaultRetryPolicy()

	assert.Equal(t, client.OutcomeProceed, p.Classify(http.StatusOK))
	assert.Equal(t, client.OutcomeRetry, p.Classify(http.StatusUnauthorized))
	assert.Equal(t, client.OutcomeTerminal, p.Classify(http.StatusForbidden))
	assert.Equal(t, client.OutcomeTerminal, p.Classify(http.StatusNotFound))

	for status := -1; status < 1000; status++ {
		switch status {
		case 200, 401, 403, 404:
			continue
		}
		assert.Equal(t, client.OutcomeRetryCounted, p.Classify(status), "status %d", status)
		assert.Equal(t, p.Classify(status), p.Classify(status))
	}
}

func TestRetryPolicyDelayBounds(t *testing.T) {
	p := client.DefaultRetryPolicy()

	assert.Equal(t, 1500*time.Millisecond, p.Delay(0))
	assert.Equal(t, 2500*time.Millisecond, p.Delay(0.5))
	assert.Equal(t, 3500*time.Millisecond, p.Delay(1))
	assert.Equal(t, 1500*time.Millisecond, p.Delay(-3))
	assert.Equal(t, 3500*time.Millisecond, p.Delay(7))

	for i := 0; i < 100; i++ {
		d := p.Delay(float64(i) / 100)
		assert.GreaterOrEqual(t, d, p.MinDelay)
		assert.LessOrEqual(t, d, p.MaxDelay)
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	p := client.DefaultRetryPolicy()
	assert.False(t, p.Exhausted(1_000_000))

	p.MaxAttempts = 2
	assert.False(t, p.Exhausted(1))
	assert.True(t, p.Exhausted(2))
}

func TestWatchdog(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	w := client.NewWatchdog(0)
	assert.Equal(t, client.DefaultWatchdogDeadline, w.Deadline)
	assert.Equal(t, client.WatchdogNone, w.Check(start.Add(time.Hour)))

	w.Start(start)
	assert.Equal(t, client.WatchdogNone, w.Check(start.Add(15*time.Second)))
	assert.Equal(t, client.WatchdogResetToLogin, w.Check(start.Add(16*time.Second)))
	assert.False(t, w.Pending())

	w.MarkGameplaySeen()
	w.Start(start)
	assert.Equal(t, client.WatchdogReconnect, w.Check(start.Add(16*time.Second)))

	w.Start(start)
	w.Clear()
	assert.Equal(t, client.WatchdogNone, w.Check(start.Add(time.Minute)))
}
