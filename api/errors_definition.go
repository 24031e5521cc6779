//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/veilmarket/veilmarket/engine"
	"github.com/veilmarket/veilmarket/storage"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404 (or even 204), whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap, DON'T fill it in, that code was used in the past and shouldn't be reused.
var (
	ErrResourceNotFound   = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody      = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedID        = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed identifier")}
	ErrEntityExists       = Error{Code: 40007, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("entity already exists")}
	ErrUnauthorized       = Error{Code: 40008, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("caller is not authorized")}
	ErrMarketPhase        = Error{Code: 40009, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("operation not allowed in current market phase")}
	ErrTooManyOptions     = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("market option limit reached")}
	ErrInvalidOption      = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("option index out of range")}
	ErrRevealState        = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("share position not in a revealable state")}
	ErrTallyIncremented   = Error{Code: 40013, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("share already counted in tally")}
	ErrAccountLocked      = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("account has a computation in flight")}
	ErrMintMismatch       = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("token mint mismatch")}
	ErrAuctionPhase       = Error{Code: 40016, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("operation not allowed in current auction state")}
	ErrWrongAuctionType   = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("operation does not match auction type")}
	ErrNothingToClaim     = Error{Code: 40018, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("no pending deposit to claim")}
	ErrArithmeticOverflow = Error{Code: 40019, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("arithmetic overflow")}
	ErrNotEnoughOptions   = Error{Code: 40020, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("market needs at least two options")}
	ErrCollateralTransfer = Error{Code: 40021, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("collateral transfer failed")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)

// errorFor maps an engine or storage error to its API error. Unknown errors
// collapse into the generic 500.
func errorFor(err error) Error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrResourceNotFound.WithErr(err)
	case errors.Is(err, engine.ErrAlreadyExists):
		return ErrEntityExists.WithErr(err)
	case errors.Is(err, engine.ErrUnauthorized):
		return ErrUnauthorized.WithErr(err)
	case errors.Is(err, engine.ErrMarketNotOpen),
		errors.Is(err, engine.ErrMarketNotFunding),
		errors.Is(err, engine.ErrMarketNotSelected),
		errors.Is(err, engine.ErrOptionSelected),
		errors.Is(err, engine.ErrStakingNotOver):
		return ErrMarketPhase.WithErr(err)
	case errors.Is(err, engine.ErrTooManyOptions):
		return ErrTooManyOptions.WithErr(err)
	case errors.Is(err, engine.ErrInvalidOption):
		return ErrInvalidOption.WithErr(err)
	case errors.Is(err, engine.ErrNotEnoughOptions):
		return ErrNotEnoughOptions.WithErr(err)
	case errors.Is(err, engine.ErrShareNotActive),
		errors.Is(err, engine.ErrAlreadyRevealed),
		errors.Is(err, engine.ErrNotRevealed),
		errors.Is(err, engine.ErrRevealedTooLate):
		return ErrRevealState.WithErr(err)
	case errors.Is(err, engine.ErrTallyIncremented):
		return ErrTallyIncremented.WithErr(err)
	case errors.Is(err, engine.ErrAccountLocked):
		return ErrAccountLocked.WithErr(err)
	case errors.Is(err, engine.ErrInvalidMint):
		return ErrMintMismatch.WithErr(err)
	case errors.Is(err, engine.ErrNothingToClaim):
		return ErrNothingToClaim.WithErr(err)
	case errors.Is(err, engine.ErrOverflow):
		return ErrArithmeticOverflow.WithErr(err)
	case errors.Is(err, engine.ErrAuctionNotOpen),
		errors.Is(err, engine.ErrAuctionNotClosed),
		errors.Is(err, engine.ErrAuctionStillOpen):
		return ErrAuctionPhase.WithErr(err)
	case errors.Is(err, engine.ErrWrongAuctionType):
		return ErrWrongAuctionType.WithErr(err)
	}
	return ErrGenericInternalServerError.WithErr(err)
}
