// Package ledger anchors record fingerprints in an append-only store so that
// record integrity can be verified independently of the record store.
package ledger

import "context"

// Ledger records and verifies record fingerprints. A fingerprint is the hex
// SHA-256 of the sealed record payload; the transaction ID returned by Record
// is the handle stored alongside the record.
type Ledger interface {
	// Record anchors a fingerprint and returns its transaction ID.
	Record(ctx context.Context, fingerprint string) (string, error)

	// Verify reports whether the fingerprint is anchored under the given
	// transaction ID.
	Verify(ctx context.Context, fingerprint, txID string) (bool, error)
}
