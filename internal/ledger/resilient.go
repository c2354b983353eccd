package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"afyalink/pkg/platform/circuit"
)

// Resilient wraps a Ledger with a circuit breaker so record creation never
// fails because the ledger is down. While the circuit is open, Record hands
// out placeholder transaction IDs and Verify reports unverified; callers
// surface the degradation instead of an error.
type Resilient struct {
	inner   Ledger
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewResilient wraps inner with failure tracking and fallback behavior.
func NewResilient(inner Ledger, logger *slog.Logger, opts ...circuit.Option) *Resilient {
	return &Resilient{
		inner:   inner,
		breaker: circuit.New("ledger", opts...),
		logger:  logger,
	}
}

// Degraded reports whether the ledger is currently in fallback mode.
func (r *Resilient) Degraded() bool {
	return r.breaker.IsOpen()
}

func (r *Resilient) Record(ctx context.Context, fingerprint string) (string, error) {
	if r.breaker.IsOpen() {
		return r.placeholder(ctx, fingerprint, nil)
	}
	txID, err := r.inner.Record(ctx, fingerprint)
	if err != nil {
		if change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "ledger circuit opened", "breaker", r.breaker.Name())
		}
		return r.placeholder(ctx, fingerprint, err)
	}
	if change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "ledger circuit closed", "breaker", r.breaker.Name())
	}
	return txID, nil
}

func (r *Resilient) Verify(ctx context.Context, fingerprint, txID string) (bool, error) {
	if IsPlaceholder(txID) || r.breaker.IsOpen() {
		return false, nil
	}
	verified, err := r.inner.Verify(ctx, fingerprint, txID)
	if err != nil {
		if change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "ledger circuit opened", "breaker", r.breaker.Name())
		}
		r.logger.WarnContext(ctx, "ledger verification unavailable", "error", err)
		return false, nil
	}
	r.breaker.RecordSuccess()
	return verified, nil
}

// placeholder issues a pending transaction ID so the record can be stored
// and re-anchored later.
func (r *Resilient) placeholder(ctx context.Context, fingerprint string, cause error) (string, error) {
	txID := placeholderPrefix + uuid.New().String()
	r.logger.WarnContext(ctx, "ledger unavailable, issued placeholder transaction",
		"tx_id", txID,
		"fingerprint", fingerprint,
		"error", cause,
	)
	return txID, nil
}

const placeholderPrefix = "pending_"

// IsPlaceholder reports whether a transaction ID was issued while the ledger
// was unavailable. Placeholder-anchored records always read as unverified.
func IsPlaceholder(txID string) bool {
	return len(txID) > len(placeholderPrefix) && txID[:len(placeholderPrefix)] == placeholderPrefix
}
