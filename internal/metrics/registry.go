package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all fraud-domain metrics for the application. A nil
// registry is safe to record against, so components can run unmetered.
type Registry struct {
	meter metric.Meter

	// Per-event detection metrics
	LoginCheckDuration    metric.Float64Histogram
	SuspiciousLoginCount  metric.Int64Counter
	VelocityFlagCount     metric.Int64Counter
	CoPresenceSuspicious  metric.Int64Counter
	GeoLookupFailureCount metric.Int64Counter

	// Batch scan metrics
	ScanDuration     metric.Float64Histogram
	ScanTransactions metric.Int64Histogram
	FlagsRaisedCount metric.Int64Counter

	// Trust ledger metrics
	TrustChangeCount  metric.Int64Counter
	VerificationCount metric.Int64Counter
}

// NewRegistry creates a new metrics registry with all domain metrics.
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{meter: meter}

	var err error
	if r.LoginCheckDuration, err = meter.Float64Histogram(
		"fraud.login_check.duration",
		metric.WithDescription("Login check latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if r.SuspiciousLoginCount, err = meter.Int64Counter(
		"fraud.login.suspicious",
		metric.WithDescription("Logins judged suspicious"),
	); err != nil {
		return nil, err
	}
	if r.VelocityFlagCount, err = meter.Int64Counter(
		"fraud.velocity.flags",
		metric.WithDescription("Velocity rule threshold crossings"),
	); err != nil {
		return nil, err
	}
	if r.CoPresenceSuspicious, err = meter.Int64Counter(
		"fraud.copresence.suspicious",
		metric.WithDescription("Co-presence records crossing the user threshold"),
	); err != nil {
		return nil, err
	}
	if r.GeoLookupFailureCount, err = meter.Int64Counter(
		"fraud.geo.lookup_failures",
		metric.WithDescription("IP geolocation lookups that did not resolve"),
	); err != nil {
		return nil, err
	}
	if r.ScanDuration, err = meter.Float64Histogram(
		"fraud.scan.duration",
		metric.WithDescription("Batch scan duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if r.ScanTransactions, err = meter.Int64Histogram(
		"fraud.scan.transactions",
		metric.WithDescription("Transactions evaluated per scan"),
	); err != nil {
		return nil, err
	}
	if r.FlagsRaisedCount, err = meter.Int64Counter(
		"fraud.scan.flags_raised",
		metric.WithDescription("New flags emitted by batch scans"),
	); err != nil {
		return nil, err
	}
	if r.TrustChangeCount, err = meter.Int64Counter(
		"trust.rescoring.changes",
		metric.WithDescription("Trust score movements applied by rescoring"),
	); err != nil {
		return nil, err
	}
	if r.VerificationCount, err = meter.Int64Counter(
		"trust.verifications",
		metric.WithDescription("Account verifications applied"),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// RecordLoginCheck records one per-event login check.
func (r *Registry) RecordLoginCheck(ctx context.Context, d time.Duration, suspicious bool) {
	if r == nil {
		return
	}
	r.LoginCheckDuration.Record(ctx, float64(d.Milliseconds()))
	if suspicious {
		r.SuspiciousLoginCount.Add(ctx, 1)
	}
}

// RecordVelocityFlag records one velocity threshold crossing.
func (r *Registry) RecordVelocityFlag(ctx context.Context, rule string) {
	if r == nil {
		return
	}
	r.VelocityFlagCount.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
}

// RecordCoPresenceSuspicious records a co-presence threshold crossing.
func (r *Registry) RecordCoPresenceSuspicious(ctx context.Context) {
	if r == nil {
		return
	}
	r.CoPresenceSuspicious.Add(ctx, 1)
}

// RecordGeoLookupFailure records an unresolved geolocation lookup.
func (r *Registry) RecordGeoLookupFailure(ctx context.Context) {
	if r == nil {
		return
	}
	r.GeoLookupFailureCount.Add(ctx, 1)
}

// RecordScan records one completed batch scan.
func (r *Registry) RecordScan(ctx context.Context, d time.Duration, transactions, newFlags int) {
	if r == nil {
		return
	}
	r.ScanDuration.Record(ctx, float64(d.Milliseconds()))
	r.ScanTransactions.Record(ctx, int64(transactions))
	if newFlags > 0 {
		r.FlagsRaisedCount.Add(ctx, int64(newFlags))
	}
}

// RecordTrustChange records one applied trust movement.
func (r *Registry) RecordTrustChange(ctx context.Context, delta int) {
	if r == nil {
		return
	}
	r.TrustChangeCount.Add(ctx, 1, metric.WithAttributes(attribute.Int("delta", delta)))
}

// RecordVerification records one account verification.
func (r *Registry) RecordVerification(ctx context.Context) {
	if r == nil {
		return
	}
	r.VerificationCount.Add(ctx, 1)
}
