package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/flag"
	"github.com/davidleathers/trustguard-backend/internal/domain/transaction"
	"github.com/davidleathers/trustguard-backend/internal/metrics"
)

// ScanOrchestrator is the batch entry point. It pulls a time-bounded
// transaction set, runs the batch rules in order, suppresses candidates that
// overlap previously raised flags, and emits the survivors as one batch
// insert. Re-running an unchanged window yields zero new flags.
type ScanOrchestrator struct {
	transactions TransactionStore
	flags        FlagStore
	profiles     ProfileStore
	locker       ScanLocker
	rules        Rules
	logger       *slog.Logger
	metrics      *metrics.Registry
	nowFn        func() time.Time
}

// NewScanOrchestrator wires the batch scanner. locker may be nil when the
// caller provides exclusivity by other means (tests, single-node deploys).
func NewScanOrchestrator(
	transactions TransactionStore,
	flags FlagStore,
	profiles ProfileStore,
	locker ScanLocker,
	rules Rules,
	logger *slog.Logger,
	reg *metrics.Registry,
) *ScanOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanOrchestrator{
		transactions: transactions,
		flags:        flags,
		profiles:     profiles,
		locker:       locker,
		rules:        rules,
		logger:       logger,
		metrics:      reg,
		nowFn:        time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (o *ScanOrchestrator) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		o.nowFn = nowFn
	}
}

// Scan evaluates all batch rules over transactions created in
// [windowStart, windowEnd] and returns the newly raised flags. Only one scan
// may run over overlapping windows at a time; the lock enforces that.
func (o *ScanOrchestrator) Scan(ctx context.Context, windowStart, windowEnd time.Time) ([]flag.Flag, error) {
	if !windowStart.Before(windowEnd) {
		return nil, errors.NewValidationError("INVALID_WINDOW", "window start must precede window end")
	}

	if o.locker != nil {
		acquired, err := o.locker.Acquire(ctx, ScanLockKey, ScanLockTTL)
		if err != nil {
			return nil, errors.Wrap(err, "acquiring scan lock")
		}
		if !acquired {
			return nil, errors.ErrScanInProgress
		}
		defer func() {
			if err := o.locker.Release(ctx, ScanLockKey); err != nil {
				o.logger.Warn("failed to release scan lock", "error", err)
			}
		}()
	}

	started := o.nowFn()

	txs, err := o.transactions.ListBetween(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, errors.Wrap(err, "loading scan window transactions")
	}

	existing, err := o.flags.ListSince(ctx, windowStart)
	if err != nil {
		return nil, errors.Wrap(err, "loading existing flags")
	}
	flagged := flag.UnionIDs(existing)

	now := o.nowFn()
	var newFlags []flag.Flag

	accept := func(candidate flag.Flag) {
		if candidate.OverlapsAny(flagged) {
			return
		}
		newFlags = append(newFlags, candidate)
		for id := range candidate.IDSet() {
			flagged[id] = struct{}{}
		}
	}

	for _, candidate := range o.pairVolumeCandidates(txs, now) {
		accept(candidate)
	}
	amountCandidates, err := o.amountCandidates(ctx, txs, now)
	if err != nil {
		return nil, err
	}
	for _, candidate := range amountCandidates {
		accept(candidate)
	}
	for _, candidate := range o.routeCandidates(txs, now) {
		accept(candidate)
	}

	if len(newFlags) > 0 {
		if err := o.flags.InsertBatch(ctx, newFlags); err != nil {
			return nil, errors.Wrap(err, "inserting new flags")
		}
	}

	elapsed := o.nowFn().Sub(started)
	o.metrics.RecordScan(ctx, elapsed, len(txs), len(newFlags))
	o.logger.Info("fraud scan completed",
		"window_start", windowStart,
		"window_end", windowEnd,
		"transactions", len(txs),
		"new_flags", len(newFlags),
		"duration", elapsed)

	return newFlags, nil
}

// pairVolumeCandidates groups window transactions by unordered user pair and
// raises a circular-flow candidate once a pair's count reaches the
// threshold. This is the cheap batch proxy for true cycle search; the live
// path keeps the general CycleDetector.
func (o *ScanOrchestrator) pairVolumeCandidates(txs []transaction.Transaction, now time.Time) []flag.Flag {
	byPair := make(map[string][]transaction.Transaction)
	var pairOrder []string
	for _, tx := range txs {
		key := tx.PairKey()
		if _, seen := byPair[key]; !seen {
			pairOrder = append(pairOrder, key)
		}
		byPair[key] = append(byPair[key], tx)
	}

	var candidates []flag.Flag
	for _, key := range pairOrder {
		group := byPair[key]
		if len(group) < o.rules.PairVolumeThreshold {
			continue
		}
		txIDs := make([]uuid.UUID, len(group))
		for i, tx := range group {
			txIDs[i] = tx.ID
		}
		a, b := pairUsers(group[0])
		candidate, err := flag.New(txIDs, []uuid.UUID{a, b},
			fmt.Sprintf("Circular money flow between users %s and %s", a, b), now)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

// amountCandidates flags transactions whose amount exceeds ten times the
// sender's transaction limit or the absolute ceiling. Senders without a
// profile get the default limit.
func (o *ScanOrchestrator) amountCandidates(ctx context.Context, txs []transaction.Transaction, now time.Time) ([]flag.Flag, error) {
	profiles, err := o.profiles.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading user profiles")
	}
	limits := make(map[uuid.UUID]int64, len(profiles))
	for _, p := range profiles {
		limits[p.UserID] = p.TransactionLimit
	}

	var candidates []flag.Flag
	for _, tx := range txs {
		limit, ok := limits[tx.FromUserID]
		if !ok {
			limit = o.rules.UnknownSenderLimit
		}
		over := tx.Amount.GreaterThanMinorUnits(limit * o.rules.AmountLimitMultiplier)
		overCeiling := tx.Amount.GreaterThanMinorUnits(o.rules.AbsoluteAmountCeiling)
		if !over && !overCeiling {
			continue
		}
		candidate, err := flag.New([]uuid.UUID{tx.ID}, []uuid.UUID{tx.FromUserID},
			fmt.Sprintf("Huge transaction amount (%s)", tx.Amount), now)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// routeCandidates applies the configured fixed-route rule: a named pair
// accumulating too many pending transfers within the window.
func (o *ScanOrchestrator) routeCandidates(txs []transaction.Transaction, now time.Time) []flag.Flag {
	route := o.rules.Route
	if route == nil {
		return nil
	}
	threshold := route.Threshold
	if threshold <= 0 {
		threshold = DefaultRouteThreshold
	}

	var matched []uuid.UUID
	for _, tx := range txs {
		if tx.FromUserID == route.FromUserID &&
			tx.ToUserID == route.ToUserID &&
			tx.Status == transaction.StatusPending {
			matched = append(matched, tx.ID)
		}
	}
	if len(matched) < threshold {
		return nil
	}

	candidate, err := flag.New(matched, []uuid.UUID{route.FromUserID, route.ToUserID},
		fmt.Sprintf("Multiple pending transactions from user %s to %s", route.FromUserID, route.ToUserID), now)
	if err != nil {
		return nil
	}
	return []flag.Flag{candidate}
}

func pairUsers(tx transaction.Transaction) (uuid.UUID, uuid.UUID) {
	a, b := tx.FromUserID, tx.ToUserID
	if b.String() < a.String() {
		a, b = b, a
	}
	return a, b
}
