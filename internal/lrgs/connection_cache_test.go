package lrgs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendcs/odcsapi/internal/db/models"
)

type fakeLddsClient struct {
	mu           sync.Mutex
	lastActivity time.Time
	disconnected bool
	messages     []string
}

func (f *fakeLddsClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeLddsClient) LastActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActivity
}

func (f *fakeLddsClient) Info(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeLddsClient) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

type fakeEventClient struct {
	mu           sync.Mutex
	appID        int64
	disconnected bool
}

func (f *fakeEventClient) AppID() int64 { return f.appID }

func (f *fakeEventClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeEventClient) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

type fakeStatusProvider struct {
	mu       sync.Mutex
	statuses []models.AppStatus
	err      error
	calls    int
}

func (f *fakeStatusProvider) AppStatuses(ctx context.Context) ([]models.AppStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.statuses, nil
}

func (f *fakeStatusProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func runningStatus(appID int64, heartbeatAge time.Duration) models.AppStatus {
	pid := int64(4321)
	hb := time.Now().Add(-heartbeatAge)
	return models.AppStatus{AppID: appID, PID: &pid, Hostname: "cwms-host", Heartbeat: &hb}
}

func TestConnectionCacheStoresAndReturnsClients(t *testing.T) {
	cache := NewConnectionCache(&fakeStatusProvider{})

	_, ok := cache.LddsClient("session-1")
	assert.False(t, ok)

	ldds := &fakeLddsClient{lastActivity: time.Now()}
	cache.SetLddsClient("session-1", ldds)

	got, ok := cache.LddsClient("session-1")
	require.True(t, ok)
	assert.Same(t, LddsClient(ldds), got)

	ev := &fakeEventClient{appID: 7}
	cache.AddEventClient("session-1", ev)

	gotEv, ok := cache.EventClient("session-1", 7)
	require.True(t, ok)
	assert.Same(t, EventClient(ev), gotEv)

	_, ok = cache.EventClient("session-1", 8)
	assert.False(t, ok)
	_, ok = cache.EventClient("session-2", 7)
	assert.False(t, ok)
}

func TestSetLddsClientReplaceLeavesPreviousToCaller(t *testing.T) {
	cache := NewConnectionCache(&fakeStatusProvider{})

	first := &fakeLddsClient{lastActivity: time.Now()}
	second := &fakeLddsClient{lastActivity: time.Now()}
	cache.SetLddsClient("session-1", first)
	cache.SetLddsClient("session-1", second)

	// Replacing never hangs up the old handle; its owner does.
	assert.False(t, first.isDisconnected())
	assert.False(t, second.isDisconnected())

	got, ok := cache.LddsClient("session-1")
	require.True(t, ok)
	assert.Same(t, LddsClient(second), got)
}

func TestRemoveEventClientDisconnectsOnlyThatApp(t *testing.T) {
	cache := NewConnectionCache(&fakeStatusProvider{})

	ev7 := &fakeEventClient{appID: 7}
	ev9 := &fakeEventClient{appID: 9}
	cache.AddEventClient("session-1", ev7)
	cache.AddEventClient("session-1", ev9)

	cache.RemoveEventClient("session-1", 7)

	assert.True(t, ev7.isDisconnected())
	assert.False(t, ev9.isDisconnected())

	_, ok := cache.EventClient("session-1", 7)
	assert.False(t, ok)
	_, ok = cache.EventClient("session-1", 9)
	assert.True(t, ok)

	// Unknown app is a no-op.
	cache.RemoveEventClient("session-1", 42)
}

func TestRemoveSessionDisconnectsEverything(t *testing.T) {
	cache := NewConnectionCache(&fakeStatusProvider{})

	ldds := &fakeLddsClient{lastActivity: time.Now()}
	ev := &fakeEventClient{appID: 7}
	cache.SetLddsClient("session-1", ldds)
	cache.AddEventClient("session-1", ev)

	cache.RemoveSession("session-1")

	assert.True(t, ldds.isDisconnected())
	assert.True(t, ev.isDisconnected())

	_, ok := cache.LddsClient("session-1")
	assert.False(t, ok)

	// Idempotent: a second removal and an unknown session are no-ops.
	cache.RemoveSession("session-1")
	cache.RemoveSession("never-seen")
}

func TestSweepHangsUpIdleLddsClients(t *testing.T) {
	cache := NewConnectionCache(&fakeStatusProvider{})

	idle := &fakeLddsClient{lastActivity: time.Now().Add(-2 * time.Minute)}
	fresh := &fakeLddsClient{lastActivity: time.Now()}
	cache.SetLddsClient("idle-session", idle)
	cache.SetLddsClient("fresh-session", fresh)

	cache.sweep(context.Background())

	assert.True(t, idle.isDisconnected())
	require.NotEmpty(t, idle.messages)
	assert.Contains(t, idle.messages[0], "inactivity")
	assert.False(t, fresh.isDisconnected())

	_, ok := cache.LddsClient("idle-session")
	assert.False(t, ok)
	_, ok = cache.LddsClient("fresh-session")
	assert.True(t, ok)
}

func TestSweepEvictsOrphanedEventClients(t *testing.T) {
	deadPID := models.AppStatus{AppID: 2, Hostname: "cwms-host"}
	noHeartbeatPID := int64(99)
	noHeartbeat := models.AppStatus{AppID: 3, PID: &noHeartbeatPID, Hostname: "cwms-host"}

	provider := &fakeStatusProvider{statuses: []models.AppStatus{
		runningStatus(1, time.Second),
		deadPID,
		noHeartbeat,
		runningStatus(4, time.Minute),
	}}
	cache := NewConnectionCache(provider)

	alive := &fakeEventClient{appID: 1}
	noPID := &fakeEventClient{appID: 2}
	noHB := &fakeEventClient{appID: 3}
	staleHB := &fakeEventClient{appID: 4}
	unknownApp := &fakeEventClient{appID: 5}
	for _, ec := range []*fakeEventClient{alive, noPID, noHB, staleHB, unknownApp} {
		cache.AddEventClient("session-1", ec)
	}

	cache.sweep(context.Background())

	assert.False(t, alive.isDisconnected())
	assert.True(t, noPID.isDisconnected())
	assert.True(t, noHB.isDisconnected())
	assert.True(t, staleHB.isDisconnected())
	assert.True(t, unknownApp.isDisconnected())

	_, ok := cache.EventClient("session-1", 1)
	assert.True(t, ok)
	_, ok = cache.EventClient("session-1", 4)
	assert.False(t, ok)

	assert.Equal(t, 1, provider.callCount(), "one status fetch per sweep")
}

func TestSweepKeepsEventClientsWhenStatusFetchFails(t *testing.T) {
	provider := &fakeStatusProvider{err: errors.New("connection refused")}
	cache := NewConnectionCache(provider)

	ev := &fakeEventClient{appID: 1}
	cache.AddEventClient("session-1", ev)

	cache.sweep(context.Background())

	assert.False(t, ev.isDisconnected())
	_, ok := cache.EventClient("session-1", 1)
	assert.True(t, ok)
}

func TestReaperRunsImmediatelyAndStops(t *testing.T) {
	provider := &fakeStatusProvider{}
	cache := NewConnectionCache(provider,
		WithSweepInterval(10*time.Millisecond))

	idle := &fakeLddsClient{lastActivity: time.Now().Add(-2 * time.Minute)}
	cache.SetLddsClient("session-1", idle)

	cache.Start(context.Background())
	defer cache.Stop()

	require.Eventually(t, idle.isDisconnected, time.Second, 5*time.Millisecond,
		"first sweep should run without waiting a full interval")
	require.Eventually(t, func() bool { return provider.callCount() >= 2 },
		time.Second, 5*time.Millisecond)

	cache.Stop()
	calls := provider.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, provider.callCount(), "no sweeps after Stop")
}
