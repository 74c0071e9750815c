package lrgs

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/opendcs/odcsapi/internal/db/models"
	"github.com/opendcs/odcsapi/internal/repository"
	"github.com/opendcs/odcsapi/internal/telemetry"
)

const (
	// DefaultSweepInterval is how often the reaper scans the cache.
	DefaultSweepInterval = 30 * time.Second

	// DefaultLddsIdleTimeout is how long an LDDS connection may sit
	// without traffic before the reaper hangs it up.
	DefaultLddsIdleTimeout = 90 * time.Second

	// DefaultHeartbeatTimeout is the maximum age of an application
	// heartbeat before its event clients are considered orphaned.
	DefaultHeartbeatTimeout = 20 * time.Second
)

// CacheRecord holds the live connections owned by a single session.
// The record mutex guards the LDDS handle and the event client list;
// the cache-level mutex only covers record creation and removal.
type CacheRecord struct {
	mu     sync.Mutex
	ldds   LddsClient
	events []EventClient
}

// ConnectionCache tracks client connections per session and reaps the
// ones that go stale. Sessions are keyed by the API session ID, so the
// session store's destroy hook can cascade into RemoveSession.
type ConnectionCache struct {
	mu      sync.Mutex
	records map[string]*CacheRecord

	statuses repository.AppStatusProvider
	metrics  *telemetry.CacheMetrics

	sweepInterval    time.Duration
	lddsIdleTimeout  time.Duration
	heartbeatTimeout time.Duration

	stop chan struct{}
	done chan struct{}
}

// Option configures a ConnectionCache.
type Option func(*ConnectionCache)

// WithSweepInterval overrides how often the reaper runs.
func WithSweepInterval(d time.Duration) Option {
	return func(c *ConnectionCache) { c.sweepInterval = d }
}

// WithLddsIdleTimeout overrides the LDDS inactivity threshold.
func WithLddsIdleTimeout(d time.Duration) Option {
	return func(c *ConnectionCache) { c.lddsIdleTimeout = d }
}

// WithHeartbeatTimeout overrides the application heartbeat threshold.
func WithHeartbeatTimeout(d time.Duration) Option {
	return func(c *ConnectionCache) { c.heartbeatTimeout = d }
}

// WithCacheMetrics attaches metric instruments to the reaper.
func WithCacheMetrics(m *telemetry.CacheMetrics) Option {
	return func(c *ConnectionCache) { c.metrics = m }
}

// NewConnectionCache creates an empty cache. The status provider is
// consulted once per sweep to decide which event clients are orphaned.
func NewConnectionCache(statuses repository.AppStatusProvider, opts ...Option) *ConnectionCache {
	c := &ConnectionCache{
		records:          make(map[string]*CacheRecord),
		statuses:         statuses,
		sweepInterval:    DefaultSweepInterval,
		lddsIdleTimeout:  DefaultLddsIdleTimeout,
		heartbeatTimeout: DefaultHeartbeatTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// record returns the session's record, creating it on first use.
func (c *ConnectionCache) record(sessionID string) *CacheRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[sessionID]
	if !ok {
		rec = &CacheRecord{}
		c.records[sessionID] = rec
	}
	return rec
}

// SetLddsClient stores the session's LDDS connection, replacing any
// previous one. The caller owns disconnecting a replaced handle; the
// cache never hangs up a connection it is handing back.
func (c *ConnectionCache) SetLddsClient(sessionID string, client LddsClient) {
	rec := c.record(sessionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.ldds = client
}

// LddsClient returns the session's LDDS connection, if it has one.
func (c *ConnectionCache) LddsClient(sessionID string) (LddsClient, bool) {
	rec := c.record(sessionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ldds == nil {
		return nil, false
	}
	return rec.ldds, true
}

// AddEventClient attaches an event connection to the session.
func (c *ConnectionCache) AddEventClient(sessionID string, client EventClient) {
	rec := c.record(sessionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.events = append(rec.events, client)
}

// EventClient returns the session's event connection for the given
// application, if one is attached.
func (c *ConnectionCache) EventClient(sessionID string, appID int64) (EventClient, bool) {
	rec := c.record(sessionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, ec := range rec.events {
		if ec.AppID() == appID {
			return ec, true
		}
	}
	return nil, false
}

// RemoveEventClient disconnects and detaches the session's event
// connection for the given application. Removing an application that is
// not attached is a no-op.
func (c *ConnectionCache) RemoveEventClient(sessionID string, appID int64) {
	rec := c.record(sessionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	kept := rec.events[:0]
	for _, ec := range rec.events {
		if ec.AppID() == appID {
			ec.Disconnect()
			continue
		}
		kept = append(kept, ec)
	}
	rec.events = kept
}

// RemoveSession drops the session's record and disconnects everything
// it held. Safe to call for unknown sessions and safe to call twice;
// the session store's destroy hook may race a logout handler.
func (c *ConnectionCache) RemoveSession(sessionID string) {
	c.mu.Lock()
	rec, ok := c.records[sessionID]
	if ok {
		delete(c.records, sessionID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ldds != nil {
		log.Printf("Disconnecting LDDS connection for removed session %s", sessionID)
		rec.ldds.Disconnect()
		rec.ldds = nil
	}
	for _, ec := range rec.events {
		ec.Disconnect()
	}
	rec.events = nil
}

// Start launches the reaper goroutine. The first sweep runs
// immediately so restarts do not wait a full interval to clean up.
func (c *ConnectionCache) Start(ctx context.Context) {
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.sweep(ctx)
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.sweep(ctx)
			}
		}
	}()
}

// Stop halts the reaper and waits for an in-flight sweep to finish.
func (c *ConnectionCache) Stop() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop = nil
}

// sweep runs one reaper pass: hang up idle LDDS connections, then evict
// event clients whose application is no longer alive.
func (c *ConnectionCache) sweep(ctx context.Context) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "odcsapi/lrgs", "cache.sweep")
	defer span.End()

	c.mu.Lock()
	snapshot := make(map[string]*CacheRecord, len(c.records))
	for id, rec := range c.records {
		snapshot[id] = rec
	}
	c.mu.Unlock()

	now := time.Now()
	for id, rec := range snapshot {
		rec.mu.Lock()
		if rec.ldds != nil && now.Sub(rec.ldds.LastActivity()) > c.lddsIdleTimeout {
			log.Printf("Hanging up idle LDDS connection for session %s", id)
			rec.ldds.Info("hanging up due to inactivity")
			rec.ldds.Disconnect()
			rec.ldds = nil
		}
		rec.mu.Unlock()
	}

	disconnected, err := c.evictOrphanedEventClients(ctx, snapshot, now)
	if err != nil {
		log.Printf("Connection cache sweep: app status fetch failed: %v", err)
		telemetry.RecordError(span, err)
	}
	if c.metrics != nil {
		c.metrics.RecordSweep(ctx, disconnected,
			float64(time.Since(start).Milliseconds()), err)
	}
	if disconnected > 0 {
		telemetry.AddEvent(span, "event_clients_evicted",
			attribute.Int("count", disconnected))
	}
}

// evictOrphanedEventClients disconnects event clients whose application
// holds no process lock, has no heartbeat, or has gone quiet. A status
// fetch failure aborts the pass; clients stay attached until the next
// sweep rather than being dropped on bad data.
func (c *ConnectionCache) evictOrphanedEventClients(ctx context.Context, snapshot map[string]*CacheRecord, now time.Time) (int, error) {
	statuses, err := c.statuses.AppStatuses(ctx)
	if err != nil {
		return 0, err
	}
	byApp := make(map[int64]models.AppStatus, len(statuses))
	for _, st := range statuses {
		byApp[st.AppID] = st
	}

	disconnected := 0
	for id, rec := range snapshot {
		rec.mu.Lock()
		kept := rec.events[:0]
		for _, ec := range rec.events {
			st, ok := byApp[ec.AppID()]
			alive := ok && st.PID != nil && st.Heartbeat != nil &&
				now.Sub(*st.Heartbeat) <= c.heartbeatTimeout
			if alive {
				kept = append(kept, ec)
				continue
			}
			log.Printf("Disconnecting event client for app %d (session %s): application not running",
				ec.AppID(), id)
			ec.Disconnect()
			disconnected++
		}
		rec.events = kept
		rec.mu.Unlock()
	}
	return disconnected, nil
}
