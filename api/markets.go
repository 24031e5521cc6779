package api

import (
	"encoding/json"
	"net/http"

	"github.com/veilmarket/veilmarket/crypto/derive"
	"github.com/veilmarket/veilmarket/engine"
	"github.com/veilmarket/veilmarket/types"
)

// newMarket creates a new conviction market
// POST /markets
func (a *API) newMarket(w http.ResponseWriter, r *http.Request) {
	req := &NewMarketRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	m, err := a.engine.CreateMarket(r.Context(), req.Creator, req.Index, req.MaxOptions,
		req.TimeToStake, req.TimeToReveal, req.RewardAmount, req.TokenMint)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, m)
}

// markets lists all markets
// GET /markets
func (a *API) markets(w http.ResponseWriter, _ *http.Request) {
	list, err := a.storage.ListMarkets()
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, list)
}

// market returns one market
// GET /markets/{marketId}
func (a *API) market(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	m, err := a.storage.Market(id)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, m)
}

// addMarketOption appends a candidate option
// POST /markets/{marketId}/options
func (a *API) addMarketOption(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	req := &AddOptionRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	o, err := a.engine.AddMarketOption(req.Creator, id, req.Name)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, o)
}

// marketOptions lists a market's options
// GET /markets/{marketId}/options
func (a *API) marketOptions(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	list, err := a.storage.ListMarketOptions(id)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, list)
}

// openMarket starts the staking window
// POST /markets/{marketId}/open
func (a *API) openMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	req := &OpenMarketRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	m, err := a.engine.OpenMarket(req.Creator, id)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, m)
}

// selectMarketOption records the market outcome
// POST /markets/{marketId}/select
func (a *API) selectMarketOption(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	req := &SelectOptionRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	m, err := a.engine.SelectMarketOption(req.Creator, id, req.Option)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, m)
}

// buyShares queues an encrypted share purchase
// POST /markets/{marketId}/shares
func (a *API) buyShares(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	req := &BuySharesRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	pubKey, err := pubKeyFromHex(req.ClientPubKey)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	encAmount, err := wordFromHex(req.EncAmount)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	encOption, err := wordFromHex(req.EncOption)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	handle, err := a.engine.BuyMarketShares(r.Context(), &engine.BuySharesRequest{
		Owner:        req.Owner,
		Market:       id,
		AccountIndex: req.AccountIndex,
		ClientPubKey: pubKey,
		InputNonce:   req.InputNonce,
		EncAmount:    encAmount,
		EncOption:    encOption,
	})
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, &ComputationResponse{Handle: handle})
}

// share returns one share account
// GET /markets/{marketId}/shares/{owner}
func (a *API) share(w http.ResponseWriter, r *http.Request) {
	market, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	owner, ok := urlParamID(w, r, OwnerURLParam)
	if !ok {
		return
	}
	sh, err := a.storage.ShareAccount(derive.ShareID(market, owner))
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, sh)
}

// revealShare queues a reveal of the caller's position
// POST /markets/{marketId}/reveal
func (a *API) revealShare(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	req := &RevealShareRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	handle, err := a.engine.RevealShare(r.Context(), req.Owner, id)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, &ComputationResponse{Handle: handle})
}

// incrementTally folds one revealed share into its option tally
// POST /markets/{marketId}/tally
func (a *API) incrementTally(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	req := &TallyRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	t, err := a.engine.IncrementOptionTally(id, req.Owner)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, t)
}

// tallies lists a market's option tallies
// GET /markets/{marketId}/tallies
func (a *API) tallies(w http.ResponseWriter, r *http.Request) {
	market, ok := urlParamID(w, r, MarketURLParam)
	if !ok {
		return
	}
	m, err := a.storage.Market(market)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	list := make([]*types.OptionTally, 0, m.TotalOptions)
	for i := uint16(0); i < m.TotalOptions; i++ {
		t, err := a.storage.OptionTally(market, i)
		if err != nil {
			// options nobody revealed have no tally yet
			t = &types.OptionTally{Market: market, OptionIndex: i}
		}
		list = append(list, t)
	}
	httpWriteJSON(w, list)
}
