package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/veilmarket/veilmarket/crypto/derive"
	"github.com/veilmarket/veilmarket/mpc"
	"github.com/veilmarket/veilmarket/storage"
	"github.com/veilmarket/veilmarket/types"
)

// CreateAuction stores a new sealed-bid auction and queues the
// initialization of its encrypted bid aggregate.
func (e *Engine) CreateAuction(ctx context.Context, authority types.AccountID, index uint64,
	auctionType types.AuctionType, minBid uint64, endTime int64,
) (*types.Auction, error) {
	id := derive.AuctionID(authority, index)
	if _, err := e.stg.Auction(id); err == nil {
		return nil, fmt.Errorf("auction %s: %w", id, ErrAlreadyExists)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	a := &types.Auction{
		ID:        id,
		Authority: authority,
		Type:      auctionType,
		Status:    types.AuctionOpen,
		MinBid:    minBid,
		EndTime:   endTime,
	}
	if err := e.stg.SetAuction(a); err != nil {
		return nil, err
	}
	rec := types.NewEncryptedRecord(authority, types.AuctionWords)
	if err := e.stg.SetRecord(id, &rec); err != nil {
		return nil, err
	}
	args := mpc.NewArgBuilder().PlaintextNonce(types.NonceFromUint64(1))
	_, err := e.queue(ctx, mpc.CircuitInitAuctionState, args,
		[]types.RecordID{id}, &callbackContext{Auction: id})
	if err != nil {
		return nil, err
	}
	e.event("auction_created", id, map[string]string{
		"type":    auctionType.String(),
		"endTime": strconv.FormatInt(endTime, 10),
	})
	return a, nil
}

// PlaceBidRequest carries a sealed bid. The bidder identity and amount are
// words encrypted by the client against the cluster's shared key; the
// identity travels as two 128-bit halves.
type PlaceBidRequest struct {
	Auction      types.RecordID
	ClientPubKey [32]byte
	InputNonce   types.Nonce
	EncBidderLo  types.Word
	EncBidderHi  types.Word
	EncAmount    types.Word
}

// PlaceBid queues the circuit that folds a sealed bid into the auction
// aggregate. Nothing about the bid, including whether it leads, is revealed
// before resolution.
func (e *Engine) PlaceBid(ctx context.Context, req *PlaceBidRequest) (uint64, error) {
	a, err := e.stg.Auction(req.Auction)
	if err != nil {
		return 0, err
	}
	if a.Status != types.AuctionOpen {
		return 0, ErrAuctionNotOpen
	}
	if int64(e.Now()) >= a.EndTime {
		return 0, ErrAuctionNotOpen
	}
	rec, err := e.stg.Record(req.Auction)
	if err != nil {
		return 0, err
	}
	args := mpc.NewArgBuilder().
		PublicKey(req.ClientPubKey).
		PlaintextNonce(req.InputNonce).
		EncryptedWord(req.EncBidderLo).
		EncryptedWord(req.EncBidderHi).
		EncryptedWord(req.EncAmount).
		PlaintextNonce(rec.StateNonce).
		Record(req.Auction, types.RecordStateOffset, types.AuctionWords*types.WordSize)
	return e.queue(ctx, mpc.CircuitPlaceBid, args,
		[]types.RecordID{req.Auction},
		&callbackContext{Auction: req.Auction})
}

// CloseAuction moves an auction past its bidding window. Closing is a
// plaintext transition; the aggregate stays encrypted until resolution.
func (e *Engine) CloseAuction(authority types.AccountID, auction types.RecordID) (*types.Auction, error) {
	a, err := e.stg.Auction(auction)
	if err != nil {
		return nil, err
	}
	if a.Authority != authority {
		return nil, ErrUnauthorized
	}
	if a.Status != types.AuctionOpen {
		return nil, ErrAuctionNotOpen
	}
	if int64(e.Now()) < a.EndTime {
		return nil, ErrAuctionStillOpen
	}
	a.Status = types.AuctionClosed
	if err := e.stg.SetAuction(a); err != nil {
		return nil, err
	}
	e.event("auction_closed", auction, map[string]string{
		"bids": strconv.FormatUint(a.BidCount, 10),
	})
	return a, nil
}

// DetermineWinnerFirstPrice queues the first-price resolution circuit: the
// winner pays their own bid.
func (e *Engine) DetermineWinnerFirstPrice(ctx context.Context, authority types.AccountID,
	auction types.RecordID,
) (uint64, error) {
	return e.determineWinner(ctx, authority, auction, types.FirstPrice)
}

// DetermineWinnerVickrey queues the Vickrey resolution circuit: the winner
// pays the second-highest bid.
func (e *Engine) DetermineWinnerVickrey(ctx context.Context, authority types.AccountID,
	auction types.RecordID,
) (uint64, error) {
	return e.determineWinner(ctx, authority, auction, types.Vickrey)
}

func (e *Engine) determineWinner(ctx context.Context, authority types.AccountID,
	auction types.RecordID, want types.AuctionType,
) (uint64, error) {
	a, err := e.stg.Auction(auction)
	if err != nil {
		return 0, err
	}
	if a.Authority != authority {
		return 0, ErrUnauthorized
	}
	if a.Status != types.AuctionClosed {
		return 0, ErrAuctionNotClosed
	}
	if a.Type != want {
		return 0, fmt.Errorf("%w: auction is %s", ErrWrongAuctionType, a.Type)
	}
	circuit := mpc.CircuitFirstPriceWinner
	if want == types.Vickrey {
		circuit = mpc.CircuitVickreyWinner
	}
	rec, err := e.stg.Record(auction)
	if err != nil {
		return 0, err
	}
	args := mpc.NewArgBuilder().
		PlaintextNonce(rec.StateNonce).
		Record(auction, types.RecordStateOffset, types.AuctionWords*types.WordSize)
	return e.queue(ctx, circuit, args, nil, &callbackContext{Auction: auction})
}

// commitPlaceBid commits a verified bid: the aggregate is overwritten and
// the public bid counter advances. That counter is the only public trace of
// the bid.
func (e *Engine) commitPlaceBid(pc *storage.PendingComputation, cctx *callbackContext, res *mpc.SignedResult) error {
	out, err := res.PlaceBid()
	if err != nil {
		return err
	}
	if len(pc.Records) != 1 {
		return fmt.Errorf("place-bid circuit bound to %d records, want 1", len(pc.Records))
	}
	if err := e.commitBundle(pc.Records[0], out.Auction); err != nil {
		return err
	}
	a, err := e.stg.Auction(cctx.Auction)
	if err != nil {
		return err
	}
	a.BidCount++
	if err := e.stg.SetAuction(a); err != nil {
		return err
	}
	e.event("bid_placed", cctx.Auction, map[string]string{
		"bids": strconv.FormatUint(a.BidCount, 10),
	})
	return nil
}

// commitWinner commits a verified resolution: exactly the winner identity
// and the payment amount become public. An all-zero winner means the auction
// closed without bids.
func (e *Engine) commitWinner(pc *storage.PendingComputation, cctx *callbackContext, res *mpc.SignedResult) error {
	out, err := res.DetermineWinner()
	if err != nil {
		return err
	}
	a, err := e.stg.Auction(cctx.Auction)
	if err != nil {
		return err
	}
	if a.Status != types.AuctionClosed {
		return fmt.Errorf("auction %s: %w", cctx.Auction, ErrAuctionNotClosed)
	}
	a.Status = types.AuctionResolved
	attrs := map[string]string{"payment": "0"}
	if winner := out.Winner(); !winner.IsZero() {
		a.Winner = &winner
		a.Payment = out.Payment
		attrs["winner"] = winner.String()
		attrs["payment"] = strconv.FormatUint(out.Payment, 10)
	}
	if err := e.stg.SetAuction(a); err != nil {
		return err
	}
	e.event("auction_resolved", cctx.Auction, attrs)
	return nil
}
