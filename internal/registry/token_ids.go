package registry

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// TokenID is a compact integer identifier for an interned mint. The
// pathfinder tracks visited tokens by ID instead of comparing 32-byte
// keys along every path.
type TokenID uint32

// InvalidTokenID marks a mint that was never interned.
const InvalidTokenID TokenID = 0xFFFFFFFF

// TokenInterner assigns dense IDs to mints as they enter snapshots.
// IDs are stable for the life of the process.
type TokenInterner struct {
	mu     sync.RWMutex
	toID   map[solana.PublicKey]TokenID
	nextID TokenID
}

func NewTokenInterner() *TokenInterner {
	return &TokenInterner{
		toID: make(map[solana.PublicKey]TokenID, 1024),
	}
}

// GetOrCreate returns the ID for a mint, interning it on first sight.
func (r *TokenInterner) GetOrCreate(mint solana.PublicKey) TokenID {
	r.mu.RLock()
	if id, ok := r.toID[mint]; ok {
		r.mu.RUnlock()
		return id
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.toID[mint]; ok {
		return id
	}

	id := r.nextID
	r.nextID++
	r.toID[mint] = id
	return id
}

// GetID returns the ID for a mint, or InvalidTokenID if never interned.
func (r *TokenInterner) GetID(mint solana.PublicKey) (TokenID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.toID[mint]
	if !ok {
		return InvalidTokenID, false
	}
	return id, true
}

// Size returns the number of interned mints.
func (r *TokenInterner) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.toID)
}
