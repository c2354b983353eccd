package sync

import (
	"sync"
)

// PairKey builds the canonical lock key for a (patient, doctor) relationship.
// Every consent-lifecycle writer for the same pair must lock the same key.
func PairKey(patientNIDA, doctorID string) string {
	return patientNIDA + "|" + doctorID
}

// ShardedRWMutex provides fine-grained locking using sharded read-write
// mutexes. Instead of a single global lock, operations are distributed across
// N shards based on a hash of the resource key, so writers on disjoint
// (patient, doctor) pairs run in parallel while writers on the same pair are
// serialized. Readers take the shared side of the shard and therefore observe
// either the state before or after a mutation, never a partial update.
type ShardedRWMutex struct {
	shards [32]sync.RWMutex
}

// NewShardedRWMutex creates a new ShardedRWMutex with 32 shards.
func NewShardedRWMutex() *ShardedRWMutex {
	return &ShardedRWMutex{}
}

// Lock acquires the exclusive lock for the given key's shard.
func (m *ShardedRWMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the exclusive lock for the given key's shard.
func (m *ShardedRWMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// RLock acquires the shared lock for the given key's shard.
func (m *ShardedRWMutex) RLock(key string) {
	m.shards[m.shardFor(key)].RLock()
}

// RUnlock releases the shared lock for the given key's shard.
func (m *ShardedRWMutex) RUnlock(key string) {
	m.shards[m.shardFor(key)].RUnlock()
}

// shardFor returns the shard index for the given key.
// Empty keys default to shard 0.
func (m *ShardedRWMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % uint32(len(m.shards)))
}

// hashString provides a simple hash for shard selection.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
