package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics holds metric instruments for authorization telemetry.
// Initialize once at server startup and reuse throughout the application lifecycle.
type AuthMetrics struct {
	AuthAttempts   metric.Int64Counter     // Total authorization attempts
	AuthDuration   metric.Float64Histogram // Authorization check latency
	SessionHits    metric.Int64Counter     // Authorizations served from the session cache
	ActiveSessions metric.Int64UpDownCounter
}

// NewAuthMetrics creates a new AuthMetrics instance with pre-configured instruments.
func NewAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter("odcsapi/auth")

	authAttempts, err := meter.Int64Counter(
		"auth.check.count",
		metric.WithDescription("Total number of authorization checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	// Histogram: authorization check duration in milliseconds.
	// Credential checks open a database connection, so the upper buckets
	// are wider than typical request latency buckets.
	authDuration, err := meter.Float64Histogram(
		"auth.check.duration",
		metric.WithDescription("Authorization check duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000),
	)
	if err != nil {
		return nil, err
	}

	sessionHits, err := meter.Int64Counter(
		"auth.session.hit.count",
		metric.WithDescription("Authorization checks satisfied by a cached session"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	activeSessions, err := meter.Int64UpDownCounter(
		"auth.session.active",
		metric.WithDescription("Number of active authenticated sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		AuthAttempts:   authAttempts,
		AuthDuration:   authDuration,
		SessionHits:    sessionHits,
		ActiveSessions: activeSessions,
	}, nil
}

// RecordCheck records an authorization check with its scheme, outcome, and duration.
// Call this from the security filter after each full (non-cached) check.
func (m *AuthMetrics) RecordCheck(ctx context.Context, scheme, outcome string, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("auth.scheme", scheme),
		attribute.String("auth.outcome", outcome),
	)
	m.AuthAttempts.Add(ctx, 1, attrs)
	m.AuthDuration.Record(ctx, durationMs, attrs)
}

// RecordSessionHit records an authorization check satisfied from the session cache.
func (m *AuthMetrics) RecordSessionHit(ctx context.Context) {
	m.SessionHits.Add(ctx, 1)
}

// SessionOpened increments the active sessions counter.
func (m *AuthMetrics) SessionOpened(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionClosed decrements the active sessions counter.
func (m *AuthMetrics) SessionClosed(ctx context.Context) {
	m.ActiveSessions.Add(ctx, -1)
}

// CacheMetrics holds metric instruments for the client connection cache.
type CacheMetrics struct {
	SweepCounter metric.Int64Counter     // Total reaper sweeps
	SweepErrors  metric.Int64Counter     // Sweeps skipped due to status fetch failures
	Disconnects  metric.Int64Counter     // Clients disconnected by the reaper
	SweepTime    metric.Float64Histogram // Sweep duration
}

// NewCacheMetrics creates metric instruments for connection cache telemetry.
func NewCacheMetrics() (*CacheMetrics, error) {
	meter := otel.Meter("odcsapi/cache")

	sweepCounter, err := meter.Int64Counter(
		"cache.sweep.count",
		metric.WithDescription("Total number of connection cache sweeps"),
		metric.WithUnit("{sweep}"),
	)
	if err != nil {
		return nil, err
	}

	sweepErrors, err := meter.Int64Counter(
		"cache.sweep.error.count",
		metric.WithDescription("Connection cache sweeps aborted by status fetch errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	disconnects, err := meter.Int64Counter(
		"cache.client.disconnect.count",
		metric.WithDescription("Clients disconnected by the connection cache reaper"),
		metric.WithUnit("{client}"),
	)
	if err != nil {
		return nil, err
	}

	sweepTime, err := meter.Float64Histogram(
		"cache.sweep.duration",
		metric.WithDescription("Connection cache sweep duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2000),
	)
	if err != nil {
		return nil, err
	}

	return &CacheMetrics{
		SweepCounter: sweepCounter,
		SweepErrors:  sweepErrors,
		Disconnects:  disconnects,
		SweepTime:    sweepTime,
	}, nil
}

// RecordSweep records a completed reaper sweep.
func (c *CacheMetrics) RecordSweep(ctx context.Context, disconnected int, durationMs float64, err error) {
	c.SweepCounter.Add(ctx, 1)
	c.SweepTime.Record(ctx, durationMs)
	if disconnected > 0 {
		c.Disconnects.Add(ctx, int64(disconnected))
	}
	if err != nil {
		c.SweepErrors.Add(ctx, 1)
	}
}
