package api

import (
	"github.com/veilmarket/veilmarket/types"
)

// NewMarketRequest creates a conviction market.
type NewMarketRequest struct {
	Creator      types.AccountID `json:"creator"`
	Index        uint64          `json:"index"`
	MaxOptions   uint16          `json:"maxOptions"`
	TimeToStake  uint64          `json:"timeToStake"`
	TimeToReveal uint64          `json:"timeToReveal"`
	RewardAmount uint64          `json:"rewardAmount"`
	TokenMint    types.AccountID `json:"tokenMint"`
}

// AddOptionRequest appends a candidate option to a market.
type AddOptionRequest struct {
	Creator types.AccountID `json:"creator"`
	Name    string          `json:"name"`
}

// OpenMarketRequest moves a market into its staking window.
type OpenMarketRequest struct {
	Creator types.AccountID `json:"creator"`
}

// SelectOptionRequest records the market outcome.
type SelectOptionRequest struct {
	Creator types.AccountID `json:"creator"`
	Option  uint16          `json:"option"`
}

// BuySharesRequest queues an encrypted share purchase. EncAmount and
// EncOption are 32-byte ciphertext words produced by the client against the
// cluster's shared key.
type BuySharesRequest struct {
	Owner        types.AccountID `json:"owner"`
	AccountIndex uint64          `json:"accountIndex"`
	ClientPubKey types.HexBytes  `json:"clientPubKey"`
	InputNonce   types.Nonce     `json:"inputNonce"`
	EncAmount    types.HexBytes  `json:"encAmount"`
	EncOption    types.HexBytes  `json:"encOption"`
}

// RevealShareRequest queues a reveal of the caller's position.
type RevealShareRequest struct {
	Owner types.AccountID `json:"owner"`
}

// TallyRequest folds one revealed share into its option tally. It is
// permissionless, so the caller only names the share's owner.
type TallyRequest struct {
	Owner types.AccountID `json:"owner"`
}

// NewAuctionRequest creates a sealed-bid auction. Type is "first-price" or
// "vickrey".
type NewAuctionRequest struct {
	Authority types.AccountID `json:"authority"`
	Index     uint64          `json:"index"`
	Type      string          `json:"type"`
	MinBid    uint64          `json:"minBid"`
	EndTime   int64           `json:"endTime"`
}

// PlaceBidRequest queues an encrypted sealed bid. The bidder identity
// travels as two encrypted 128-bit halves.
type PlaceBidRequest struct {
	ClientPubKey types.HexBytes `json:"clientPubKey"`
	InputNonce   types.Nonce    `json:"inputNonce"`
	EncBidderLo  types.HexBytes `json:"encBidderLo"`
	EncBidderHi  types.HexBytes `json:"encBidderHi"`
	EncAmount    types.HexBytes `json:"encAmount"`
}

// AuthorityRequest carries the caller identity of auction transitions.
type AuthorityRequest struct {
	Authority types.AccountID `json:"authority"`
}

// ResolveAuctionRequest queues the winner determination. Type must match the
// auction's type.
type ResolveAuctionRequest struct {
	Authority types.AccountID `json:"authority"`
	Type      string          `json:"type"`
}

// NewVoteTokenRequest creates a vote-token account.
type NewVoteTokenRequest struct {
	Owner      types.AccountID `json:"owner"`
	Mint       types.AccountID `json:"mint"`
	Index      uint64          `json:"index"`
	UserPubKey types.HexBytes  `json:"userPubKey"`
}

// VoteTokenAmountRequest mints or sells against a vote-token account.
type VoteTokenAmountRequest struct {
	Owner  types.AccountID `json:"owner"`
	Mint   types.AccountID `json:"mint"`
	Index  uint64          `json:"index"`
	Amount uint64          `json:"amount"`
}

// ClaimRequest returns unconverted escrowed collateral.
type ClaimRequest struct {
	Owner types.AccountID `json:"owner"`
	Mint  types.AccountID `json:"mint"`
	Index uint64          `json:"index"`
}

// ComputationResponse is the answer of every asynchronous operation: the
// handle the computation was queued under. The outcome arrives later in the
// event journal.
type ComputationResponse struct {
	Handle uint64 `json:"handle"`
}

// AmountResponse is the answer of synchronous collateral movements.
type AmountResponse struct {
	Amount uint64 `json:"amount"`
}
