// storage package contains all the artifacts that are persisted by the
// node, layered on a prefixed key-value store. Encrypted records are
// stored separately from their plaintext entity sidecars, keyed by the same
// derived address, so the committer is the only writer of ciphertext state.
// The following prefixes are used:
//   - 'r/' for encrypted records
//   - 'm/' for markets
//   - 'o/' for market options
//   - 't/' for option tallies
//   - 's/' for share accounts
//   - 'vt/' for vote token accounts
//   - 'a/' for auctions
//   - 'pc/' for pending computations (cleared on callback)
//   - 'e/' for the event journal
package storage

import (
	"errors"
	"sync"

	"go.vocdoni.io/dvote/db"
)

var (
	// Prefixes for the keys in the database.
	recordPrefix    = []byte("r/")
	marketPrefix    = []byte("m/")
	optionPrefix    = []byte("o/")
	tallyPrefix     = []byte("t/")
	sharePrefix     = []byte("s/")
	voteTokenPrefix = []byte("vt/")
	auctionPrefix   = []byte("a/")
	pendingPrefix   = []byte("pc/")
	eventPrefix     = []byte("e/")
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrHandleInUse is returned when a pending computation is registered
	// with a handle that already has a computation in flight.
	ErrHandleInUse = errors.New("computation handle already in use")
)

// Storage is the layer that wraps the basic methods to interact with the
// underlying database.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	eventSeq   uint64
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	s.db.Close()
}
