package domain

// NoExpiry is the ExpiresAt value of a key that lives forever.
const NoExpiry int64 = 0

// KeyRecord is a single entry of the keyspace.
type KeyRecord struct {
	// Key is case-sensitive and binary-safe.
	Key string `json:"key"`

	// Value is an opaque byte string.
	Value []byte `json:"value"`

	// ExpiresAt is the absolute expiration timestamp (Unix milliseconds).
	// NoExpiry means the record never expires.
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// HasExpiry reports whether the record carries an expiry.
func (r *KeyRecord) HasExpiry() bool {
	return r.ExpiresAt != NoExpiry
}

// ExpiredAt reports whether the record is logically absent at nowMs.
// The boundary is inclusive: a record expiring at nowMs is expired.
func (r *KeyRecord) ExpiredAt(nowMs int64) bool {
	return r.HasExpiry() && nowMs >= r.ExpiresAt
}

// ExpiryAfter returns the absolute expiry nowMs+ttlMs.
func ExpiryAfter(nowMs, ttlMs int64) int64 {
	at := nowMs + ttlMs
	if at == NoExpiry {
		// 0 is reserved for "no expiry"; an expiry landing on the epoch
		// is already in the past for any real clock.
		at = -1
	}
	return at
}
