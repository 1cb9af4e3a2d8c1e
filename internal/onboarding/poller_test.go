package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitUntilStopped(t *testing.T, p *Poller) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !p.Running() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("poller did not stop in time")
}

func TestPoller_TimesOutWhenStatusNeverAdvances(t *testing.T) {
	api := newFakeAPI() // status stays awaiting_callback
	s := newTestSession(api)
	p := NewPoller(s, 5*time.Millisecond, 40*time.Millisecond)

	p.Start(context.Background())
	waitUntilStopped(t, p)

	snap := s.Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, KindPollTimeout, snap.Error.Kind)
	// The step is left where it was; timeout is not a terminal failure.
	assert.NotEqual(t, StepFailed, snap.Step)

	// No more requests are issued after the timeout.
	count := api.callCount("status")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, api.callCount("status"))
}

func TestPoller_StopsOnTerminalStep(t *testing.T) {
	api := newFakeAPI()
	api.statusResp.EsbStatus.Status = "waba_activated"
	s := newTestSession(api)
	p := NewPoller(s, 5*time.Millisecond, time.Minute)

	p.Start(context.Background())
	waitUntilStopped(t, p)

	assert.Equal(t, StepComplete, s.Step())
	assert.Equal(t, 1, api.callCount("status"))
}

func TestPoller_StopCancelsRequests(t *testing.T) {
	api := newFakeAPI()
	s := newTestSession(api)
	p := NewPoller(s, 5*time.Millisecond, time.Minute)

	p.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	p.Stop()
	waitUntilStopped(t, p)

	count := api.callCount("status")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, api.callCount("status"))
}

func TestPoller_StartIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	s := newTestSession(api)
	p := NewPoller(s, 10*time.Millisecond, time.Minute)

	p.Start(context.Background())
	p.Start(context.Background())
	assert.True(t, p.Running())
	p.Stop()
	waitUntilStopped(t, p)
}

func TestNewPoller_Defaults(t *testing.T) {
	p := NewPoller(nil, 0, 0)
	assert.Equal(t, 3*time.Second, p.Interval)
	assert.Equal(t, 5*time.Minute, p.MaxDuration)
}
