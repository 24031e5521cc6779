package types

// MarketPhase is the time-derived phase of a conviction market. Phases are
// computed from the market timestamps on every access, not stored: the only
// stored transitions are the one-shot open timestamp and the terminal
// selected option. A market only ever moves forward.
type MarketPhase uint8

const (
	// MarketFunding: created but not yet funded/opened; options may be added.
	MarketFunding MarketPhase = iota
	// MarketStaking: open for buying shares.
	MarketStaking
	// MarketReveal: staking ended, share positions may be revealed.
	MarketReveal
	// MarketResolved: reveal window ended, tallies may be accumulated.
	MarketResolved
)

func (p MarketPhase) String() string {
	switch p {
	case MarketFunding:
		return "funding"
	case MarketStaking:
		return "staking"
	case MarketReveal:
		return "reveal"
	case MarketResolved:
		return "resolved"
	}
	return "unknown"
}

// Market is a conviction market. Its encrypted tail (the pooled vote
// aggregates) lives in the EncryptedRecord stored at the same derived
// address; everything here is ledger-visible plaintext used for phase
// gating.
type Market struct {
	ID             RecordID  `json:"id"                       cbor:"0,keyasint"`
	Creator        AccountID `json:"creator"                  cbor:"1,keyasint"`
	Index          uint64    `json:"index"                    cbor:"2,keyasint"`
	TotalOptions   uint16    `json:"totalOptions"             cbor:"3,keyasint"`
	MaxOptions     uint16    `json:"maxOptions"               cbor:"4,keyasint"`
	OpenTimestamp  *uint64   `json:"openTimestamp,omitempty"  cbor:"5,keyasint,omitempty"`
	TimeToStake    uint64    `json:"timeToStake"              cbor:"6,keyasint"`
	TimeToReveal   uint64    `json:"timeToReveal"             cbor:"7,keyasint"`
	SelectedOption *uint16   `json:"selectedOption,omitempty" cbor:"8,keyasint,omitempty"`
	RewardAmount   uint64    `json:"rewardAmount"             cbor:"9,keyasint"`
	TokenMint      AccountID `json:"tokenMint"                cbor:"10,keyasint"`
}

// Phase derives the market phase from the current unix timestamp.
func (m *Market) Phase(now uint64) MarketPhase {
	if m.OpenTimestamp == nil {
		return MarketFunding
	}
	open := *m.OpenTimestamp
	if now < open+m.TimeToStake {
		return MarketStaking
	}
	if now < open+m.TimeToStake+m.TimeToReveal {
		return MarketReveal
	}
	return MarketResolved
}

// RevealDeadline returns the end of the reveal window, or false if the market
// has not been opened yet.
func (m *Market) RevealDeadline() (uint64, bool) {
	if m.OpenTimestamp == nil {
		return 0, false
	}
	return *m.OpenTimestamp + m.TimeToStake + m.TimeToReveal, true
}

// MarketOption is one plaintext candidate option of a market.
type MarketOption struct {
	Market  RecordID  `json:"market"  cbor:"0,keyasint"`
	Index   uint16    `json:"index"   cbor:"1,keyasint"`
	Creator AccountID `json:"creator" cbor:"2,keyasint"`
	Name    string    `json:"name"    cbor:"3,keyasint"`
}

// OptionTally is a permissionless per-option running total of revealed share
// amounts. Each participant's revealed amount is added exactly once, guarded
// by the share account's TotalIncremented flag.
type OptionTally struct {
	Market      RecordID `json:"market"      cbor:"0,keyasint"`
	OptionIndex uint16   `json:"optionIndex" cbor:"1,keyasint"`
	TotalShares uint64   `json:"totalShares" cbor:"2,keyasint"`
}
