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

// MaxMarketOptions is the hard per-market option limit. The market's
// encrypted state reserves one word per option, so the limit follows from
// the fixed record layout.
const MaxMarketOptions = types.MarketWords - 1

// CreateMarket stores a new market in its funding phase and queues the
// initialization of its encrypted vote aggregates.
func (e *Engine) CreateMarket(ctx context.Context, creator types.AccountID, index uint64,
	maxOptions uint16, timeToStake, timeToReveal, rewardAmount uint64, tokenMint types.AccountID,
) (*types.Market, error) {
	if maxOptions == 0 {
		return nil, fmt.Errorf("market needs at least one option slot")
	}
	if maxOptions > MaxMarketOptions {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyOptions, maxOptions, MaxMarketOptions)
	}
	id := derive.MarketID(creator, index)
	if _, err := e.stg.Market(id); err == nil {
		return nil, fmt.Errorf("market %s: %w", id, ErrAlreadyExists)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	m := &types.Market{
		ID:           id,
		Creator:      creator,
		Index:        index,
		MaxOptions:   maxOptions,
		TimeToStake:  timeToStake,
		TimeToReveal: timeToReveal,
		RewardAmount: rewardAmount,
		TokenMint:    tokenMint,
	}
	if err := e.stg.SetMarket(m); err != nil {
		return nil, err
	}
	rec := types.NewEncryptedRecord(creator, types.MarketWords)
	if err := e.stg.SetRecord(id, &rec); err != nil {
		return nil, err
	}
	args := mpc.NewArgBuilder().PlaintextNonce(types.NonceFromUint64(1))
	_, err := e.queue(ctx, mpc.CircuitInitMarketState, args,
		[]types.RecordID{id}, &callbackContext{Market: id})
	if err != nil {
		return nil, err
	}
	e.event("market_created", id, map[string]string{
		"creator": creator.String(),
		"index":   strconv.FormatUint(index, 10),
	})
	return m, nil
}

// AddMarketOption appends a plaintext candidate option to a market still in
// its funding phase. Anyone may propose options up to the market's limit.
func (e *Engine) AddMarketOption(creator types.AccountID, market types.RecordID, name string,
) (*types.MarketOption, error) {
	m, err := e.stg.Market(market)
	if err != nil {
		return nil, err
	}
	if m.Phase(e.Now()) != types.MarketFunding {
		return nil, ErrMarketNotFunding
	}
	if m.TotalOptions >= m.MaxOptions {
		return nil, fmt.Errorf("%w: market allows %d options", ErrTooManyOptions, m.MaxOptions)
	}
	o := &types.MarketOption{
		Market:  market,
		Index:   m.TotalOptions,
		Creator: creator,
		Name:    name,
	}
	if err := e.stg.SetMarketOption(o); err != nil {
		return nil, err
	}
	m.TotalOptions++
	if err := e.stg.SetMarket(m); err != nil {
		return nil, err
	}
	e.event("market_option_added", market, map[string]string{
		"index": strconv.FormatUint(uint64(o.Index), 10),
		"name":  name,
	})
	return o, nil
}

// OpenMarket moves a market from funding into its staking window. The
// creator's reward collateral is escrowed at this point.
func (e *Engine) OpenMarket(creator types.AccountID, market types.RecordID) (*types.Market, error) {
	m, err := e.stg.Market(market)
	if err != nil {
		return nil, err
	}
	if m.Creator != creator {
		return nil, ErrUnauthorized
	}
	if m.Phase(e.Now()) != types.MarketFunding {
		return nil, ErrMarketNotFunding
	}
	if m.TotalOptions < 2 {
		return nil, ErrNotEnoughOptions
	}
	if m.RewardAmount > 0 {
		if err := e.tokens.Deposit(m.TokenMint, creator, m.RewardAmount); err != nil {
			return nil, fmt.Errorf("escrow reward: %w", err)
		}
	}
	now := e.Now()
	m.OpenTimestamp = &now
	if err := e.stg.SetMarket(m); err != nil {
		return nil, err
	}
	e.event("market_opened", market, nil)
	return m, nil
}

// SelectMarketOption records the market's outcome once the staking window
// has closed. It is a one-shot transition performed by the creator; reveals
// are verified against the selected option.
func (e *Engine) SelectMarketOption(creator types.AccountID, market types.RecordID, option uint16,
) (*types.Market, error) {
	m, err := e.stg.Market(market)
	if err != nil {
		return nil, err
	}
	if m.Creator != creator {
		return nil, ErrUnauthorized
	}
	if phase := m.Phase(e.Now()); phase == types.MarketFunding || phase == types.MarketStaking {
		return nil, ErrStakingNotOver
	}
	if m.SelectedOption != nil {
		return nil, ErrOptionSelected
	}
	if option >= m.TotalOptions {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidOption, option, m.TotalOptions)
	}
	m.SelectedOption = &option
	if err := e.stg.SetMarket(m); err != nil {
		return nil, err
	}
	e.event("market_option_selected", market, map[string]string{
		"option": strconv.FormatUint(uint64(option), 10),
	})
	return m, nil
}

// BuySharesRequest carries a share purchase. Amount and option are words
// encrypted by the client against the cluster's shared key; the ledger never
// sees them in plaintext.
type BuySharesRequest struct {
	Owner        types.AccountID
	Market       types.RecordID
	AccountIndex uint64
	ClientPubKey [32]byte
	InputNonce   types.Nonce
	EncAmount    types.Word
	EncOption    types.Word
}

// BuyMarketShares queues the purchase circuit. The payer balance, the
// market's vote aggregates and the buyer's position are handed to the
// circuit by reference; whether the purchase succeeded is only learned from
// the callback's single revealed flag.
func (e *Engine) BuyMarketShares(ctx context.Context, req *BuySharesRequest) (uint64, error) {
	m, err := e.stg.Market(req.Market)
	if err != nil {
		return 0, err
	}
	if m.Phase(e.Now()) != types.MarketStaking {
		return 0, ErrMarketNotOpen
	}
	payerID := derive.VoteTokenID(m.TokenMint, req.Owner, req.AccountIndex)
	vt, err := e.stg.VoteTokenAccount(payerID)
	if err != nil {
		return 0, err
	}
	if vt.Owner != req.Owner {
		return 0, ErrUnauthorized
	}
	if vt.Locked {
		return 0, ErrAccountLocked
	}
	payerRec, err := e.stg.Record(payerID)
	if err != nil {
		return 0, err
	}
	marketRec, err := e.stg.Record(req.Market)
	if err != nil {
		return 0, err
	}

	// The share account is created lazily on the first purchase. Its fresh
	// record carries nonce zero, which the cluster reads as plaintext zeros.
	shareID := derive.ShareID(req.Market, req.Owner)
	if _, err := e.stg.ShareAccount(shareID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return 0, err
		}
		sh := &types.ShareAccount{
			ID:     shareID,
			Owner:  req.Owner,
			Market: req.Market,
			State:  types.ShareUninitialized,
		}
		if err := e.stg.SetShareAccount(sh); err != nil {
			return 0, err
		}
		rec := types.NewEncryptedRecord(req.Owner, types.ShareWords)
		if err := e.stg.SetRecord(shareID, &rec); err != nil {
			return 0, err
		}
	}
	shareRec, err := e.stg.Record(shareID)
	if err != nil {
		return 0, err
	}

	vt.Locked = true
	if err := e.stg.SetVoteTokenAccount(vt); err != nil {
		return 0, err
	}

	args := mpc.NewArgBuilder().
		PublicKey(req.ClientPubKey).
		PlaintextNonce(req.InputNonce).
		EncryptedWord(req.EncAmount).
		EncryptedWord(req.EncOption).
		PlaintextNonce(payerRec.StateNonce).
		Record(payerID, types.RecordStateOffset, types.BalanceWords*types.WordSize).
		PlaintextNonce(marketRec.StateNonce).
		Record(req.Market, types.RecordStateOffset, types.MarketWords*types.WordSize).
		PlaintextNonce(shareRec.StateNonce).
		Record(shareID, types.RecordStateOffset, types.ShareWords*types.WordSize).
		PlaintextU16(m.TotalOptions)
	handle, err := e.queue(ctx, mpc.CircuitBuyMarketShares, args,
		[]types.RecordID{payerID, req.Market, shareID},
		&callbackContext{Market: req.Market, Share: shareID, Account: payerID, Owner: req.Owner})
	if err != nil {
		vt.Locked = false
		if serr := e.stg.SetVoteTokenAccount(vt); serr != nil {
			return 0, serr
		}
		return 0, err
	}
	return handle, nil
}

// RevealShare queues the circuit that opens the caller's position against
// the market's selected option.
func (e *Engine) RevealShare(ctx context.Context, owner types.AccountID, market types.RecordID,
) (uint64, error) {
	m, err := e.stg.Market(market)
	if err != nil {
		return 0, err
	}
	if m.SelectedOption == nil {
		return 0, ErrMarketNotSelected
	}
	shareID := derive.ShareID(market, owner)
	sh, err := e.stg.ShareAccount(shareID)
	if err != nil {
		return 0, err
	}
	if sh.Owner != owner {
		return 0, ErrUnauthorized
	}
	if sh.State != types.ShareActive {
		return 0, ErrShareNotActive
	}
	if sh.RevealedAmount != nil {
		return 0, ErrAlreadyRevealed
	}
	rec, err := e.stg.Record(shareID)
	if err != nil {
		return 0, err
	}
	deadline, _ := m.RevealDeadline()
	args := mpc.NewArgBuilder().
		PlaintextU16(*m.SelectedOption).
		PlaintextNonce(rec.StateNonce).
		Record(shareID, types.RecordStateOffset, types.ShareWords*types.WordSize)
	return e.queue(ctx, mpc.CircuitRevealShare, args,
		[]types.RecordID{shareID},
		&callbackContext{Market: market, Share: shareID, Deadline: deadline})
}

// IncrementOptionTally folds one revealed share into its option's running
// total. The operation is permissionless and idempotent: a share counts
// exactly once, enforced by its TotalIncremented flag.
func (e *Engine) IncrementOptionTally(market types.RecordID, owner types.AccountID,
) (*types.OptionTally, error) {
	sh, err := e.stg.ShareAccount(derive.ShareID(market, owner))
	if err != nil {
		return nil, err
	}
	if sh.RevealedAmount == nil || sh.RevealedOption == nil {
		return nil, ErrNotRevealed
	}
	if !sh.RevealedInTime {
		return nil, ErrRevealedTooLate
	}
	if sh.TotalIncremented {
		return nil, ErrTallyIncremented
	}
	option := *sh.RevealedOption
	t, err := e.stg.OptionTally(market, option)
	if errors.Is(err, storage.ErrNotFound) {
		t = &types.OptionTally{Market: market, OptionIndex: option}
	} else if err != nil {
		return nil, err
	}
	total := t.TotalShares + *sh.RevealedAmount
	if total < t.TotalShares {
		return nil, ErrOverflow
	}
	t.TotalShares = total
	if err := e.stg.SetOptionTally(t); err != nil {
		return nil, err
	}
	sh.TotalIncremented = true
	if err := e.stg.SetShareAccount(sh); err != nil {
		return nil, err
	}
	e.event("option_tally_incremented", market, map[string]string{
		"option": strconv.FormatUint(uint64(option), 10),
		"total":  strconv.FormatUint(t.TotalShares, 10),
	})
	return t, nil
}

// commitBuyShares commits a verified purchase: all three records are
// overwritten regardless of the revealed error flag, so a failed purchase is
// indistinguishable on-ledger from a successful one except for that flag.
func (e *Engine) commitBuyShares(pc *storage.PendingComputation, cctx *callbackContext, res *mpc.SignedResult) error {
	out, err := res.BuyShares()
	if err != nil {
		return err
	}
	if len(pc.Records) != 3 {
		return fmt.Errorf("buy-shares circuit bound to %d records, want 3", len(pc.Records))
	}
	if err := e.commitBundle(pc.Records[0], out.PayerBalance); err != nil {
		return err
	}
	if err := e.commitBundle(pc.Records[1], out.MarketState); err != nil {
		return err
	}
	if err := e.commitBundle(pc.Records[2], out.Position); err != nil {
		return err
	}
	vt, err := e.stg.VoteTokenAccount(cctx.Account)
	if err != nil {
		return err
	}
	vt.Locked = false
	if err := e.stg.SetVoteTokenAccount(vt); err != nil {
		return err
	}
	if !out.HasError {
		sh, err := e.stg.ShareAccount(cctx.Share)
		if err != nil {
			return err
		}
		sh.State = types.ShareActive
		if err := e.stg.SetShareAccount(sh); err != nil {
			return err
		}
	}
	e.event("shares_bought", cctx.Market, map[string]string{
		"error": strconv.FormatBool(out.HasError),
	})
	return nil
}

// commitRevealShare commits a verified reveal. The plaintext reveal fields
// are only set when the position matched the selected option; timeliness is
// judged against the market's reveal deadline at commit time.
func (e *Engine) commitRevealShare(pc *storage.PendingComputation, cctx *callbackContext, res *mpc.SignedResult) error {
	out, err := res.RevealShare()
	if err != nil {
		return err
	}
	if len(pc.Records) != 1 {
		return fmt.Errorf("reveal circuit bound to %d records, want 1", len(pc.Records))
	}
	if err := e.commitBundle(pc.Records[0], out.Position); err != nil {
		return err
	}
	if !out.Matched {
		e.event("share_reveal_unmatched", cctx.Share, nil)
		return nil
	}
	sh, err := e.stg.ShareAccount(cctx.Share)
	if err != nil {
		return err
	}
	amount, option := out.Amount, out.Option
	sh.RevealedAmount = &amount
	sh.RevealedOption = &option
	sh.RevealedInTime = e.Now() <= cctx.Deadline
	if err := e.stg.SetShareAccount(sh); err != nil {
		return err
	}
	e.event("share_revealed", cctx.Share, map[string]string{
		"amount":  strconv.FormatUint(amount, 10),
		"option":  strconv.FormatUint(uint64(option), 10),
		"in_time": strconv.FormatBool(sh.RevealedInTime),
	})
	return nil
}
