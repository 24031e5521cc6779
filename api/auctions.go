package api

import (
	"encoding/json"
	"net/http"

	"github.com/veilmarket/veilmarket/engine"
	"github.com/veilmarket/veilmarket/types"
)

func auctionTypeFromString(s string) (types.AuctionType, bool) {
	switch s {
	case "first-price":
		return types.FirstPrice, true
	case "vickrey":
		return types.Vickrey, true
	}
	return 0, false
}

// newAuction creates a new sealed-bid auction
// POST /auctions
func (a *API) newAuction(w http.ResponseWriter, r *http.Request) {
	req := &NewAuctionRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	at, ok := auctionTypeFromString(req.Type)
	if !ok {
		ErrMalformedBody.Withf("unknown auction type %q", req.Type).Write(w)
		return
	}
	auction, err := a.engine.CreateAuction(r.Context(), req.Authority, req.Index, at,
		req.MinBid, req.EndTime)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, auction)
}

// auctions lists all auctions
// GET /auctions
func (a *API) auctions(w http.ResponseWriter, _ *http.Request) {
	list, err := a.storage.ListAuctions()
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, list)
}

// auction returns one auction
// GET /auctions/{auctionId}
func (a *API) auction(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, AuctionURLParam)
	if !ok {
		return
	}
	auction, err := a.storage.Auction(id)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, auction)
}

// placeBid queues an encrypted sealed bid
// POST /auctions/{auctionId}/bids
func (a *API) placeBid(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, AuctionURLParam)
	if !ok {
		return
	}
	req := &PlaceBidRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	pubKey, err := pubKeyFromHex(req.ClientPubKey)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	bidderLo, err := wordFromHex(req.EncBidderLo)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	bidderHi, err := wordFromHex(req.EncBidderHi)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	amount, err := wordFromHex(req.EncAmount)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	handle, err := a.engine.PlaceBid(r.Context(), &engine.PlaceBidRequest{
		Auction:      id,
		ClientPubKey: pubKey,
		InputNonce:   req.InputNonce,
		EncBidderLo:  bidderLo,
		EncBidderHi:  bidderHi,
		EncAmount:    amount,
	})
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, &ComputationResponse{Handle: handle})
}

// closeAuction ends the bidding window
// POST /auctions/{auctionId}/close
func (a *API) closeAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, AuctionURLParam)
	if !ok {
		return
	}
	req := &AuthorityRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	auction, err := a.engine.CloseAuction(req.Authority, id)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, auction)
}

// resolveAuction queues the winner determination
// POST /auctions/{auctionId}/resolve
func (a *API) resolveAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, AuctionURLParam)
	if !ok {
		return
	}
	req := &ResolveAuctionRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	at, ok := auctionTypeFromString(req.Type)
	if !ok {
		ErrMalformedBody.Withf("unknown auction type %q", req.Type).Write(w)
		return
	}
	var handle uint64
	var err error
	if at == types.Vickrey {
		handle, err = a.engine.DetermineWinnerVickrey(r.Context(), req.Authority, id)
	} else {
		handle, err = a.engine.DetermineWinnerFirstPrice(r.Context(), req.Authority, id)
	}
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, &ComputationResponse{Handle: handle})
}
