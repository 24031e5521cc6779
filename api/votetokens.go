package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.vocdoni.io/dvote/log"
)

// newVoteTokenAccount creates a vote-token account
// POST /votetokens
func (a *API) newVoteTokenAccount(w http.ResponseWriter, r *http.Request) {
	req := &NewVoteTokenRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	vt, err := a.engine.InitVoteTokenAccount(r.Context(), req.Owner, req.Mint, req.Index, req.UserPubKey)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, vt)
}

// voteTokenAccount returns one vote-token account
// GET /votetokens/{accountId}
func (a *API) voteTokenAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, AccountURLParam)
	if !ok {
		return
	}
	vt, err := a.storage.VoteTokenAccount(id)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, vt)
}

// mintVoteTokens escrows collateral into the encrypted balance
// POST /votetokens/mint
func (a *API) mintVoteTokens(w http.ResponseWriter, r *http.Request) {
	req := &VoteTokenAmountRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	handle, err := a.engine.MintVoteTokens(r.Context(), req.Owner, req.Mint, req.Index, req.Amount)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, &ComputationResponse{Handle: handle})
}

// sellVoteTokens queues a balance deduction
// POST /votetokens/sell
func (a *API) sellVoteTokens(w http.ResponseWriter, r *http.Request) {
	req := &VoteTokenAmountRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	handle, err := a.engine.SellVoteTokens(r.Context(), req.Owner, req.Mint, req.Index, req.Amount)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, &ComputationResponse{Handle: handle})
}

// claimPendingDeposit returns unconverted escrowed collateral
// POST /votetokens/claim
func (a *API) claimPendingDeposit(w http.ResponseWriter, r *http.Request) {
	req := &ClaimRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	amount, err := a.engine.ClaimPendingDeposit(req.Owner, req.Mint, req.Index)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, &AmountResponse{Amount: amount})
}

// events returns journal entries after the given sequence number
// GET /events?after=N&limit=M
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	var after uint64
	limit := 100
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			ErrMalformedBody.Withf("invalid after parameter: %v", err).Write(w)
			return
		}
		after = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			ErrMalformedBody.With("invalid limit parameter").Write(w)
			return
		}
		limit = n
	}
	list, err := a.storage.Events(after, limit)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	log.Debugw("events served", "count", len(list), "after", after)
	httpWriteJSON(w, list)
}
