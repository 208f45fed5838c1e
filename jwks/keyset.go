package jwks

import (
	"crypto"
	"time"
)

// Key is one public signing key published by an authority.
type Key struct {
	// ID is the key's "kid". It may be empty.
	ID string
	// Algorithm is the key's "alg" hint, empty when the document omits it.
	Algorithm string
	// Public is the raw public key, e.g. *rsa.PublicKey.
	Public crypto.PublicKey
}

// KeySet is an immutable snapshot of an authority's published keys.
// The cache replaces snapshots wholesale and never mutates one, so a reader
// holding a *KeySet always sees a consistent set.
type KeySet struct {
	authority string
	keys      []Key
	fetchedAt time.Time
	expiresAt time.Time
}

func newKeySet(authority string, keys []Key, fetchedAt, expiresAt time.Time) *KeySet {
	return &KeySet{
		authority: authority,
		keys:      append([]Key(nil), keys...),
		fetchedAt: fetchedAt,
		expiresAt: expiresAt,
	}
}

// Authority returns the authority the set was fetched for.
func (s *KeySet) Authority() string { return s.authority }

// FetchedAt returns when the set was fetched.
func (s *KeySet) FetchedAt() time.Time { return s.fetchedAt }

// ExpiresAt returns when the set should be refreshed.
func (s *KeySet) ExpiresAt() time.Time { return s.expiresAt }

// Len returns the number of keys in the set.
func (s *KeySet) Len() int { return len(s.keys) }

// Keys returns a copy of the keys, in document order.
func (s *KeySet) Keys() []Key {
	return append([]Key(nil), s.keys...)
}

// Select picks the key for kid. With a non-empty kid the first key with
// that ID wins. With an empty kid only a set holding exactly one key
// resolves; anything else is ambiguous.
func (s *KeySet) Select(kid string) (Key, bool) {
	if kid == "" {
		if len(s.keys) == 1 {
			return s.keys[0], true
		}
		return Key{}, false
	}

	for _, k := range s.keys {
		if k.ID == kid {
			return k, true
		}
	}
	return Key{}, false
}
