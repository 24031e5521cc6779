package mpc

// CircuitID names one circuit of the cluster's fixed circuit family. The
// identifier is bound into the attestation digest of every result, so a
// genuine result for one circuit cannot be committed against a request for
// another.
type CircuitID string

const (
	// CircuitInitMarketState initializes a market's encrypted vote pool.
	// Args: nonce. Output: (market bundle).
	CircuitInitMarketState CircuitID = "init_market_state"

	// CircuitInitVoteTokenBalance initializes an empty encrypted vote-token
	// balance. Args: nonce. Output: (balance bundle).
	CircuitInitVoteTokenBalance CircuitID = "init_vote_token_balance"

	// CircuitVoteTokenBalance applies a buy/sell to an encrypted balance.
	// Args: nonce, balance ref, amount, sell. Output:
	// (insufficient bool, sold u64, balance bundle).
	CircuitVoteTokenBalance CircuitID = "calculate_vote_token_balance"

	// CircuitBuyMarketShares moves vote tokens from a payer balance into
	// the market's vote aggregates and records the position. Args: pubkey,
	// input nonce, enc amount, enc option, payer nonce+ref,
	// market nonce+ref, position nonce+ref, total options. Output:
	// (has_error bool, payer bundle, market bundle, position bundle).
	CircuitBuyMarketShares CircuitID = "buy_market_shares"

	// CircuitRevealShare opens a share position against the market's
	// selected option. Args: selected option, position nonce+ref. Output:
	// (matched bool, amount u64, option u64, position bundle).
	CircuitRevealShare CircuitID = "reveal_share"

	// CircuitInitAuctionState initializes an auction's encrypted bid
	// aggregate. Args: nonce. Output: (auction bundle).
	CircuitInitAuctionState CircuitID = "init_auction_state"

	// CircuitPlaceBid folds an encrypted bid into the auction aggregate.
	// Args: pubkey, input nonce, enc bidder lo, enc bidder hi, enc amount,
	// auction nonce+ref. Output: (auction bundle).
	CircuitPlaceBid CircuitID = "place_bid"

	// CircuitFirstPriceWinner reveals the winner and the highest bid.
	// Args: auction nonce+ref. Output: (winner lo u128, winner hi u128,
	// payment u64).
	CircuitFirstPriceWinner CircuitID = "determine_winner_first_price"

	// CircuitVickreyWinner reveals the winner and the second-highest bid.
	// Args: auction nonce+ref. Output: (winner lo u128, winner hi u128,
	// payment u64).
	CircuitVickreyWinner CircuitID = "determine_winner_vickrey"
)
