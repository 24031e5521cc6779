package types

// VoteTokenAccount holds a participant's encrypted vote-token balance
// (a single word) together with a plaintext escrow-accounting sidecar. The
// sidecar reconciles real collateral held by the transfer service with the
// encrypted logical balance without revealing the balance itself.
type VoteTokenAccount struct {
	ID        RecordID  `json:"id"        cbor:"0,keyasint"`
	Owner     AccountID `json:"owner"     cbor:"1,keyasint"`
	TokenMint AccountID `json:"tokenMint" cbor:"2,keyasint"`
	// Index disambiguates ephemeral accounts; the canonical account of an
	// owner has index 0.
	Index uint64 `json:"index" cbor:"3,keyasint"`
	// UserPubKey is the owner's x25519 key used to address revealed outputs
	// to them.
	UserPubKey HexBytes `json:"userPubKey" cbor:"4,keyasint"`
	// PendingDeposit is collateral transferred into escrow but not yet
	// reflected in the encrypted balance, claimable back by the owner.
	PendingDeposit uint64 `json:"pendingDeposit" cbor:"5,keyasint"`
	// Locked is set while a balance mutation is in flight.
	Locked bool `json:"locked" cbor:"6,keyasint"`
}
