package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// ClusterEndpoint exposes the cluster's public key material
	ClusterEndpoint = "/cluster"

	// MarketURLParam and OwnerURLParam are the URL parameters used by the
	// market endpoints
	MarketURLParam = "marketId"
	OwnerURLParam  = "owner"
	// MarketsEndpoint is the endpoint for creating and listing markets
	MarketsEndpoint = "/markets"
	MarketEndpoint  = "/markets/{" + MarketURLParam + "}"
	// MarketOptionsEndpoint adds and lists the plaintext candidate options
	MarketOptionsEndpoint = "/markets/{" + MarketURLParam + "}/options"
	// MarketOpenEndpoint moves a market into its staking window
	MarketOpenEndpoint = "/markets/{" + MarketURLParam + "}/open"
	// MarketSelectEndpoint records the market outcome
	MarketSelectEndpoint = "/markets/{" + MarketURLParam + "}/select"
	// MarketSharesEndpoint queues an encrypted share purchase
	MarketSharesEndpoint = "/markets/{" + MarketURLParam + "}/shares"
	MarketShareEndpoint  = "/markets/{" + MarketURLParam + "}/shares/{" + OwnerURLParam + "}"
	// MarketRevealEndpoint queues a share reveal
	MarketRevealEndpoint = "/markets/{" + MarketURLParam + "}/reveal"
	// MarketTallyEndpoint folds one revealed share into its option tally
	MarketTallyEndpoint   = "/markets/{" + MarketURLParam + "}/tally"
	MarketTalliesEndpoint = "/markets/{" + MarketURLParam + "}/tallies"

	// AuctionURLParam is the URL parameter used by the auction endpoints
	AuctionURLParam = "auctionId"
	// AuctionsEndpoint is the endpoint for creating and listing auctions
	AuctionsEndpoint = "/auctions"
	AuctionEndpoint  = "/auctions/{" + AuctionURLParam + "}"
	// AuctionBidsEndpoint queues an encrypted sealed bid
	AuctionBidsEndpoint = "/auctions/{" + AuctionURLParam + "}/bids"
	// AuctionCloseEndpoint ends the bidding window
	AuctionCloseEndpoint = "/auctions/{" + AuctionURLParam + "}/close"
	// AuctionResolveEndpoint queues the winner determination
	AuctionResolveEndpoint = "/auctions/{" + AuctionURLParam + "}/resolve"

	// AccountURLParam is the URL parameter used by the vote-token endpoints
	AccountURLParam = "accountId"
	// VoteTokensEndpoint creates vote-token accounts
	VoteTokensEndpoint = "/votetokens"
	VoteTokenEndpoint  = "/votetokens/{" + AccountURLParam + "}"
	// VoteTokensMintEndpoint escrows collateral into an encrypted balance
	VoteTokensMintEndpoint = "/votetokens/mint"
	// VoteTokensSellEndpoint queues a balance deduction
	VoteTokensSellEndpoint = "/votetokens/sell"
	// VoteTokensClaimEndpoint returns unconverted escrowed collateral
	VoteTokensClaimEndpoint = "/votetokens/claim"

	// EventsEndpoint is the endpoint for reading the public event journal
	EventsEndpoint = "/events"
)
