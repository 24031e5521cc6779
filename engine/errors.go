package engine

import "errors"

// Sentinel errors of the ledger engine. Request handlers map them onto the
// API error catalogue; callers match them with errors.Is.
var (
	// ErrAbortedComputation is returned by HandleResult when a callback
	// fails verification. The pending computation is consumed and no state
	// is written.
	ErrAbortedComputation = errors.New("computation aborted")
	// ErrUnknownHandle is returned for a callback whose handle has no
	// pending computation, including handles already consumed once.
	ErrUnknownHandle = errors.New("no pending computation for handle")
	// ErrDuplicateComputation means a computation was queued under a handle
	// that is already in flight.
	ErrDuplicateComputation = errors.New("duplicate computation handle")
	// ErrClusterNotSet means the engine has no computation cluster wired.
	ErrClusterNotSet = errors.New("computation cluster not configured")

	ErrAlreadyExists = errors.New("entity already exists")
	ErrUnauthorized  = errors.New("caller is not authorized")
	ErrOverflow      = errors.New("arithmetic overflow")

	ErrMarketNotOpen     = errors.New("market is not open for staking")
	ErrMarketNotFunding  = errors.New("market is past its funding phase")
	ErrMarketNotSelected = errors.New("market has no selected option")
	ErrOptionSelected    = errors.New("market option already selected")
	ErrTooManyOptions    = errors.New("market option limit reached")
	ErrInvalidOption     = errors.New("option index out of range")
	ErrStakingNotOver    = errors.New("staking window still running")
	ErrNotEnoughOptions  = errors.New("market needs at least two options")
	ErrShareNotActive    = errors.New("share position not active")
	ErrAlreadyRevealed   = errors.New("share position already revealed")
	ErrNotRevealed       = errors.New("share position not revealed")
	ErrRevealedTooLate   = errors.New("share revealed after the deadline")
	ErrTallyIncremented  = errors.New("share already counted in tally")

	ErrInvalidMint    = errors.New("token mint mismatch")
	ErrAccountLocked  = errors.New("account has a computation in flight")
	ErrNothingToClaim = errors.New("no pending deposit to claim")

	ErrAuctionNotOpen   = errors.New("auction is not open")
	ErrAuctionNotClosed = errors.New("auction is not closed")
	ErrAuctionStillOpen = errors.New("auction end time not reached")
	ErrWrongAuctionType = errors.New("operation does not match auction type")

	ErrStaleStateNonce = errors.New("callback state nonce is not newer")
	ErrCircuitMismatch = errors.New("callback circuit does not match request")
	ErrBadAttestation  = errors.New("callback attestation invalid")
)
