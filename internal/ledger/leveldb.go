package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	dErrors "afyalink/pkg/domain-errors"
)

var writeSync = &opt.WriteOptions{Sync: true}

// LevelDBLedger anchors fingerprints in a local LevelDB database. Keys are
// fingerprints, values are transaction IDs. Writes are synced so an anchored
// fingerprint survives a crash.
type LevelDBLedger struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) the ledger database at path.
func OpenLevelDB(path string) (*LevelDBLedger, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open ledger database")
	}
	return &LevelDBLedger{db: db}, nil
}

// Close releases the underlying database.
func (l *LevelDBLedger) Close() error {
	return l.db.Close()
}

func (l *LevelDBLedger) Record(_ context.Context, fingerprint string) (string, error) {
	if fingerprint == "" {
		return "", dErrors.New(dErrors.CodeValidation, "fingerprint required")
	}
	txID := newTxID(fingerprint)
	if err := l.db.Put([]byte(fingerprint), []byte(txID), writeSync); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to anchor fingerprint")
	}
	return txID, nil
}

func (l *LevelDBLedger) Verify(_ context.Context, fingerprint, txID string) (bool, error) {
	stored, err := l.db.Get([]byte(fingerprint), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ledger entry")
	}
	return string(stored) == txID, nil
}

// newTxID derives a transaction ID from the fingerprint and the anchor time,
// formatted like an on-chain transaction hash.
func newTxID(fingerprint string) string {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], uint64(time.Now().UnixNano()))
	sum := sha256.Sum256(append([]byte(fingerprint), nonce[:]...))
	return "0x" + hex.EncodeToString(sum[:])
}
