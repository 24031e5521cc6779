package mpc

import (
	"fmt"

	"github.com/veilmarket/veilmarket/types"
)

// The decoders below turn a verified result into the strongly-typed output
// shape of its circuit. They fail when the result was produced by a different
// circuit or its tuple shape does not match, which a verified result never
// does unless the cluster contract is broken.

// InitStateOutput is the output of the init_* circuits: a single bundle
// holding the freshly encrypted zero state.
type InitStateOutput struct {
	State *types.EncryptedBundle
}

// InitState decodes the output of an initialization circuit.
func (r *SignedResult) InitState() (*InitStateOutput, error) {
	switch r.Circuit {
	case CircuitInitMarketState, CircuitInitVoteTokenBalance, CircuitInitAuctionState:
	default:
		return nil, fmt.Errorf("circuit %s has no init-state output", r.Circuit)
	}
	f, err := r.field(0, FieldBundle)
	if err != nil {
		return nil, err
	}
	return &InitStateOutput{State: f.Bundle}, nil
}

// BalanceUpdateOutput is the output of the vote-token balance circuit.
// Insufficient reports a failed sell; the bundle then re-encrypts the
// numerically unchanged balance. Sold echoes the requested sell amount and is
// only meaningful when Insufficient is false.
type BalanceUpdateOutput struct {
	Insufficient bool
	Sold         uint64
	Balance      *types.EncryptedBundle
}

// BalanceUpdate decodes the output of the balance circuit.
func (r *SignedResult) BalanceUpdate() (*BalanceUpdateOutput, error) {
	if r.Circuit != CircuitVoteTokenBalance {
		return nil, fmt.Errorf("circuit %s has no balance-update output", r.Circuit)
	}
	insufficient, err := r.field(0, FieldBool)
	if err != nil {
		return nil, err
	}
	sold, err := r.field(1, FieldU64)
	if err != nil {
		return nil, err
	}
	balance, err := r.field(2, FieldBundle)
	if err != nil {
		return nil, err
	}
	return &BalanceUpdateOutput{
		Insufficient: insufficient.Bool,
		Sold:         sold.U64,
		Balance:      balance.Bundle,
	}, nil
}

// BuySharesOutput is the output of the buy-shares circuit. HasError merges
// invalid-option and insufficient-balance into a single flag; the three
// bundles re-encrypt either the updated or the unchanged values, shape-
// identical in both cases.
type BuySharesOutput struct {
	HasError     bool
	PayerBalance *types.EncryptedBundle
	MarketState  *types.EncryptedBundle
	Position     *types.EncryptedBundle
}

// BuyShares decodes the output of the buy-shares circuit.
func (r *SignedResult) BuyShares() (*BuySharesOutput, error) {
	if r.Circuit != CircuitBuyMarketShares {
		return nil, fmt.Errorf("circuit %s has no buy-shares output", r.Circuit)
	}
	hasErr, err := r.field(0, FieldBool)
	if err != nil {
		return nil, err
	}
	payer, err := r.field(1, FieldBundle)
	if err != nil {
		return nil, err
	}
	market, err := r.field(2, FieldBundle)
	if err != nil {
		return nil, err
	}
	position, err := r.field(3, FieldBundle)
	if err != nil {
		return nil, err
	}
	return &BuySharesOutput{
		HasError:     hasErr.Bool,
		PayerBalance: payer.Bundle,
		MarketState:  market.Bundle,
		Position:     position.Bundle,
	}, nil
}

// RevealShareOutput is the output of the reveal circuit. Matched reports
// whether the position was staked on the market's selected option; Amount
// and Option are only disclosed when it was.
type RevealShareOutput struct {
	Matched  bool
	Amount   uint64
	Option   uint16
	Position *types.EncryptedBundle
}

// RevealShare decodes the output of the reveal circuit.
func (r *SignedResult) RevealShare() (*RevealShareOutput, error) {
	if r.Circuit != CircuitRevealShare {
		return nil, fmt.Errorf("circuit %s has no reveal-share output", r.Circuit)
	}
	matched, err := r.field(0, FieldBool)
	if err != nil {
		return nil, err
	}
	amount, err := r.field(1, FieldU64)
	if err != nil {
		return nil, err
	}
	option, err := r.field(2, FieldU64)
	if err != nil {
		return nil, err
	}
	position, err := r.field(3, FieldBundle)
	if err != nil {
		return nil, err
	}
	return &RevealShareOutput{
		Matched:  matched.Bool,
		Amount:   amount.U64,
		Option:   uint16(option.U64),
		Position: position.Bundle,
	}, nil
}

// PlaceBidOutput is the output of the place-bid circuit: the auction
// aggregate re-encrypted with the bid folded in. Nothing is revealed.
type PlaceBidOutput struct {
	Auction *types.EncryptedBundle
}

// PlaceBid decodes the output of the place-bid circuit.
func (r *SignedResult) PlaceBid() (*PlaceBidOutput, error) {
	if r.Circuit != CircuitPlaceBid {
		return nil, fmt.Errorf("circuit %s has no place-bid output", r.Circuit)
	}
	f, err := r.field(0, FieldBundle)
	if err != nil {
		return nil, err
	}
	return &PlaceBidOutput{Auction: f.Bundle}, nil
}

// WinnerOutput is the output of the winner-determination circuits: exactly
// the winner identity (as two 128-bit halves) and the payment amount. No
// other bid is ever revealed.
type WinnerOutput struct {
	WinnerLo [16]byte
	WinnerHi [16]byte
	Payment  uint64
}

// Winner reassembles the winner identity from its halves.
func (o *WinnerOutput) Winner() types.AccountID {
	var id types.AccountID
	copy(id[:16], o.WinnerLo[:])
	copy(id[16:], o.WinnerHi[:])
	return id
}

// DetermineWinner decodes the output of a winner-determination circuit.
func (r *SignedResult) DetermineWinner() (*WinnerOutput, error) {
	switch r.Circuit {
	case CircuitFirstPriceWinner, CircuitVickreyWinner:
	default:
		return nil, fmt.Errorf("circuit %s has no winner output", r.Circuit)
	}
	lo, err := r.field(0, FieldU128)
	if err != nil {
		return nil, err
	}
	hi, err := r.field(1, FieldU128)
	if err != nil {
		return nil, err
	}
	payment, err := r.field(2, FieldU64)
	if err != nil {
		return nil, err
	}
	return &WinnerOutput{WinnerLo: lo.U128, WinnerHi: hi.U128, Payment: payment.U64}, nil
}
