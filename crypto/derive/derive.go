// Package derive implements deterministic ledger addressing. Every record
// address is a pure function of a seed tuple, so any party can recompute the
// address of an entity from its identifying fields without a registry.
package derive

import (
	"encoding/binary"

	"github.com/veilmarket/veilmarket/types"
	"github.com/zeebo/blake3"
)

// Seed tags, one per entity family. Tags keep tuples from different families
// disjoint even when their remaining seeds collide.
var (
	marketSeed    = []byte("market")
	shareSeed     = []byte("market_share")
	auctionSeed   = []byte("auction")
	voteTokenSeed = []byte("vote_token_account")
)

// RecordID derives the address for an arbitrary seed tuple. Each seed is
// length-prefixed before hashing so tuple boundaries are unambiguous.
func RecordID(seeds ...[]byte) types.RecordID {
	h := blake3.New()
	var lenbuf [4]byte
	for _, s := range seeds {
		binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(s)))
		_, _ = h.Write(lenbuf[:])
		_, _ = h.Write(s)
	}
	var id types.RecordID
	copy(id[:], h.Sum(nil))
	return id
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// MarketID derives the address of a conviction market. Options and tallies
// of a market are not separately derived: they live under the market's own
// address with their index appended, so they iterate grouped by market.
func MarketID(creator types.AccountID, index uint64) types.RecordID {
	return RecordID(marketSeed, creator.Bytes(), uint64Bytes(index))
}

// ShareID derives the address of a participant's share account in a market.
func ShareID(market types.RecordID, owner types.AccountID) types.RecordID {
	return RecordID(shareSeed, market.Bytes(), owner.Bytes())
}

// AuctionID derives the address of an auction.
func AuctionID(authority types.AccountID, index uint64) types.RecordID {
	return RecordID(auctionSeed, authority.Bytes(), uint64Bytes(index))
}

// VoteTokenID derives the address of a vote-token account. Index 0 is the
// owner's canonical account; other indexes address ephemeral accounts.
func VoteTokenID(mint, owner types.AccountID, index uint64) types.RecordID {
	return RecordID(voteTokenSeed, mint.Bytes(), owner.Bytes(), uint64Bytes(index))
}
