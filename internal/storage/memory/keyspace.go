package memory

import (
	"sync/atomic"
	"time"

	"github.com/basant256/respkv/internal/core/domain"
)

// Keyspace is the mutable key -> value mapping with per-key expiry.
type Keyspace struct {
	values  map[string][]byte
	expires map[string]int64

	now func() time.Time

	keys    atomic.Int64
	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
}

// Stats is a point-in-time view of keyspace counters.
type Stats struct {
	Keys    int64
	Hits    uint64
	Misses  uint64
	Expired uint64
}

// Option configures the Keyspace.
type Option func(*Keyspace)

// WithClock sets the wall clock used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(k *Keyspace) {
		if now != nil {
			k.now = now
		}
	}
}

// NewKeyspace creates an empty keyspace.
func NewKeyspace(opts ...Option) *Keyspace {
	k := &Keyspace{
		values:  make(map[string][]byte),
		expires: make(map[string]int64),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(k)
	}

	return k
}

// NowMillis returns the keyspace clock in Unix milliseconds.
func (k *Keyspace) NowMillis() int64 {
	return k.now().UnixMilli()
}

// Write replaces the value of key. A non-zero expiresAt (Unix ms) becomes
// the key's deadline; domain.NoExpiry removes any previous deadline.
// The value is copied.
func (k *Keyspace) Write(key string, value []byte, expiresAt int64) {
	if _, ok := k.values[key]; !ok {
		k.keys.Add(1)
	}

	v := make([]byte, len(value))
	copy(v, value)
	k.values[key] = v

	if expiresAt == domain.NoExpiry {
		delete(k.expires, key)
		return
	}
	k.expires[key] = expiresAt
}

// Read returns the value of key. A key whose deadline has been reached is
// purged and reported absent.
func (k *Keyspace) Read(key string) ([]byte, bool) {
	rec, ok := k.Record(key)
	if !ok {
		k.misses.Add(1)
		return nil, false
	}
	if rec.ExpiredAt(k.NowMillis()) {
		k.Delete(key)
		k.expired.Add(1)
		k.misses.Add(1)
		return nil, false
	}
	k.hits.Add(1)
	return rec.Value, true
}

// Record returns the full record of key without applying expiry.
func (k *Keyspace) Record(key string) (domain.KeyRecord, bool) {
	v, ok := k.values[key]
	if !ok {
		return domain.KeyRecord{}, false
	}
	return domain.KeyRecord{Key: key, Value: v, ExpiresAt: k.expires[key]}, true
}

// Delete removes key and its expiry. It reports whether the key existed.
func (k *Keyspace) Delete(key string) bool {
	delete(k.expires, key)
	if _, ok := k.values[key]; !ok {
		return false
	}
	delete(k.values, key)
	k.keys.Add(-1)
	return true
}

// Len returns the number of physically stored keys, including expired
// keys that have not been purged yet.
func (k *Keyspace) Len() int {
	return len(k.values)
}

// Stats returns the keyspace counters. Safe for concurrent use.
func (k *Keyspace) Stats() Stats {
	return Stats{
		Keys:    k.keys.Load(),
		Hits:    k.hits.Load(),
		Misses:  k.misses.Load(),
		Expired: k.expired.Load(),
	}
}
