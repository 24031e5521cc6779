package types

// ShareState is the explicit lifecycle tag of a share account. Accounts are
// created lazily on the first share purchase, so the engine distinguishes a
// fresh account from an active one by this tag rather than a magic owner
// value.
type ShareState uint8

const (
	ShareUninitialized ShareState = iota
	ShareActive
)

// ShareAccount is a participant's encrypted position in a market:
// [share_amount, selected_option]. The plaintext reveal fields are only set
// by a verified reveal callback.
type ShareAccount struct {
	ID     RecordID   `json:"id"     cbor:"0,keyasint"`
	Owner  AccountID  `json:"owner"  cbor:"1,keyasint"`
	Market RecordID   `json:"market" cbor:"2,keyasint"`
	State  ShareState `json:"state"  cbor:"3,keyasint"`

	// RevealedAmount is the share amount disclosed by the reveal circuit,
	// nil until revealed.
	RevealedAmount *uint64 `json:"revealedAmount,omitempty" cbor:"4,keyasint,omitempty"`
	// RevealedOption is the option the revealed amount was staked on.
	RevealedOption *uint16 `json:"revealedOption,omitempty" cbor:"5,keyasint,omitempty"`
	// RevealedInTime is true when the reveal committed before the market's
	// reveal deadline.
	RevealedInTime bool `json:"revealedInTime" cbor:"6,keyasint"`
	// TotalIncremented guards the permissionless tally: once set, further
	// increments for this share fail.
	TotalIncremented bool `json:"totalIncremented" cbor:"7,keyasint"`
}
