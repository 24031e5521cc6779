package engine

import (
	"context"
	"os"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/veilmarket/veilmarket/crypto/derive"
	"github.com/veilmarket/veilmarket/crypto/mxe"
	"github.com/veilmarket/veilmarket/mpc"
	"github.com/veilmarket/veilmarket/mpc/cluster"
	"github.com/veilmarket/veilmarket/storage"
	"github.com/veilmarket/veilmarket/types"
)

func TestMain(m *testing.M) {
	log.Init(log.LogLevelDebug, "stdout", nil)
	os.Exit(m.Run())
}

// env wires a full in-process protocol stack with a controllable clock.
// Cluster results are pumped by hand so every test step is deterministic.
type env struct {
	c      *qt.C
	ctx    context.Context
	eng    *Engine
	clu    *cluster.Cluster
	ledger *MemoryLedger
	stg    *storage.Storage
	now    uint64
}

func newEnv(t *testing.T) *env {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	clu, err := cluster.New(stg)
	c.Assert(err, qt.IsNil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	clu.Start(ctx)
	t.Cleanup(clu.Stop)

	ledger := NewMemoryLedger()
	eng := New(stg, clu, clu.AttestationAddress(), ledger)
	v := &env{c: c, ctx: ctx, eng: eng, clu: clu, ledger: ledger, stg: stg, now: 10_000}
	eng.Now = func() uint64 { return v.now }
	return v
}

// take returns the next cluster result without handling it.
func (v *env) take() *mpc.SignedResult {
	select {
	case res := <-v.clu.Results():
		return res
	case <-time.After(5 * time.Second):
		v.c.Fatal("timed out waiting for cluster result")
		return nil
	}
}

// pump handles the next cluster result and asserts the commit succeeded.
func (v *env) pump() *mpc.SignedResult {
	res := v.take()
	v.c.Assert(v.eng.HandleResult(res), qt.IsNil)
	return res
}

func (v *env) recordNonce(id types.RecordID) uint64 {
	rec, err := v.stg.Record(id)
	v.c.Assert(err, qt.IsNil)
	return rec.StateNonce.Uint64()
}

func (v *env) lastEvent(kind string) *storage.Event {
	events, err := v.stg.Events(0, 0)
	v.c.Assert(err, qt.IsNil)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == kind {
			return events[i]
		}
	}
	v.c.Fatalf("no %q event in journal", kind)
	return nil
}

func account(b byte) types.AccountID {
	var id types.AccountID
	id[0] = b
	return id
}

// newTokenAccount initializes a vote-token account and waits for its init
// circuit to commit.
func (v *env) newTokenAccount(owner, mint types.AccountID) types.RecordID {
	_, err := v.eng.InitVoteTokenAccount(v.ctx, owner, mint, 0, nil)
	v.c.Assert(err, qt.IsNil)
	v.pump()
	return derive.VoteTokenID(mint, owner, 0)
}

// mintTokens credits the owner on the backing ledger and folds amount into
// the encrypted balance.
func (v *env) mintTokens(owner, mint types.AccountID, amount uint64) {
	v.ledger.Credit(mint, owner, amount)
	_, err := v.eng.MintVoteTokens(v.ctx, owner, mint, 0, amount)
	v.c.Assert(err, qt.IsNil)
	v.pump()
}

// clientCipher derives a fresh client-side word cipher against the cluster.
func (v *env) clientCipher() ([32]byte, *mxe.WordCipher) {
	priv, pub, err := mxe.GenerateX25519Key()
	v.c.Assert(err, qt.IsNil)
	shared, err := mxe.SharedCipher(priv, v.clu.SharedPubKey())
	v.c.Assert(err, qt.IsNil)
	return pub, shared
}

func (v *env) buyShares(owner types.AccountID, market types.RecordID, amount uint64, option uint16) {
	pub, shared := v.clientCipher()
	inputNonce := types.NonceFromUint64(777)
	_, err := v.eng.BuyMarketShares(v.ctx, &BuySharesRequest{
		Owner:        owner,
		Market:       market,
		AccountIndex: 0,
		ClientPubKey: pub,
		InputNonce:   inputNonce,
		EncAmount:    shared.EncryptWord(inputNonce, 0, mxe.EncodeU64(amount)),
		EncOption:    shared.EncryptWord(inputNonce, 1, mxe.EncodeU16(option)),
	})
	v.c.Assert(err, qt.IsNil)
	v.pump()
}

func (v *env) placeBid(bidder types.AccountID, auction types.RecordID, amount uint64) {
	pub, shared := v.clientCipher()
	inputNonce := types.NonceFromUint64(888)
	var lo, hi [16]byte
	copy(lo[:], bidder[:16])
	copy(hi[:], bidder[16:])
	_, err := v.eng.PlaceBid(v.ctx, &PlaceBidRequest{
		Auction:      auction,
		ClientPubKey: pub,
		InputNonce:   inputNonce,
		EncBidderLo:  shared.EncryptWord(inputNonce, 0, mxe.EncodeU128(lo)),
		EncBidderHi:  shared.EncryptWord(inputNonce, 1, mxe.EncodeU128(hi)),
		EncAmount:    shared.EncryptWord(inputNonce, 2, mxe.EncodeU64(amount)),
	})
	v.c.Assert(err, qt.IsNil)
	v.pump()
}

func TestVoteTokenLifecycle(t *testing.T) {
	v := newEnv(t)
	c := v.c
	owner, mint := account(1), account(2)

	id := v.newTokenAccount(owner, mint)
	c.Assert(v.recordNonce(id), qt.Equals, uint64(1))

	// double init is rejected
	_, err := v.eng.InitVoteTokenAccount(v.ctx, owner, mint, 0, nil)
	c.Assert(err, qt.ErrorIs, ErrAlreadyExists)

	// mint 100: collateral moves into escrow, balance is folded in
	v.ledger.Credit(mint, owner, 100)
	_, err = v.eng.MintVoteTokens(v.ctx, owner, mint, 0, 100)
	c.Assert(err, qt.IsNil)

	// the account is locked while the computation is in flight
	_, err = v.eng.SellVoteTokens(v.ctx, owner, mint, 0, 10)
	c.Assert(err, qt.ErrorIs, ErrAccountLocked)
	v.pump()

	c.Assert(v.recordNonce(id), qt.Equals, uint64(2))
	c.Assert(v.ledger.Balance(mint, owner), qt.Equals, uint64(0))
	c.Assert(v.ledger.Escrowed(mint), qt.Equals, uint64(100))
	vt, err := v.stg.VoteTokenAccount(id)
	c.Assert(err, qt.IsNil)
	c.Assert(vt.Locked, qt.IsFalse)
	c.Assert(vt.PendingDeposit, qt.Equals, uint64(0))

	// sell 30 of 100: covered, collateral released
	_, err = v.eng.SellVoteTokens(v.ctx, owner, mint, 0, 30)
	c.Assert(err, qt.IsNil)
	v.pump()
	c.Assert(v.recordNonce(id), qt.Equals, uint64(3))
	c.Assert(v.ledger.Balance(mint, owner), qt.Equals, uint64(30))
	c.Assert(v.ledger.Escrowed(mint), qt.Equals, uint64(70))
	ev := v.lastEvent("vote_tokens_sold")
	c.Assert(ev.Attributes["insufficient"], qt.Equals, "false")
	c.Assert(ev.Attributes["sold"], qt.Equals, "30")

	// sell 150 of 70: insufficient, nothing released, but the record is
	// still re-encrypted under a fresh nonce
	_, err = v.eng.SellVoteTokens(v.ctx, owner, mint, 0, 150)
	c.Assert(err, qt.IsNil)
	v.pump()
	c.Assert(v.recordNonce(id), qt.Equals, uint64(4))
	c.Assert(v.ledger.Balance(mint, owner), qt.Equals, uint64(30))
	c.Assert(v.ledger.Escrowed(mint), qt.Equals, uint64(70))
	ev = v.lastEvent("vote_tokens_sold")
	c.Assert(ev.Attributes["insufficient"], qt.Equals, "true")

	// the remaining 70 are still sellable
	_, err = v.eng.SellVoteTokens(v.ctx, owner, mint, 0, 70)
	c.Assert(err, qt.IsNil)
	v.pump()
	c.Assert(v.ledger.Balance(mint, owner), qt.Equals, uint64(100))
	c.Assert(v.ledger.Escrowed(mint), qt.Equals, uint64(0))
}

func TestMarketLifecycle(t *testing.T) {
	v := newEnv(t)
	c := v.c
	creator, buyer, other, mint := account(1), account(2), account(3), account(4)

	m, err := v.eng.CreateMarket(v.ctx, creator, 0, 3, 100, 100, 0, mint)
	c.Assert(err, qt.IsNil)
	v.pump()
	c.Assert(v.recordNonce(m.ID), qt.Equals, uint64(1))
	c.Assert(m.Phase(v.now), qt.Equals, types.MarketFunding)

	// the option limit derived from the record layout is enforced
	_, err = v.eng.CreateMarket(v.ctx, creator, 1, MaxMarketOptions+1, 100, 100, 0, mint)
	c.Assert(err, qt.ErrorIs, ErrTooManyOptions)

	// too few options to open
	_, err = v.eng.AddMarketOption(creator, m.ID, "red")
	c.Assert(err, qt.IsNil)
	_, err = v.eng.OpenMarket(creator, m.ID)
	c.Assert(err, qt.ErrorIs, ErrNotEnoughOptions)

	_, err = v.eng.AddMarketOption(other, m.ID, "green")
	c.Assert(err, qt.IsNil)
	_, err = v.eng.AddMarketOption(creator, m.ID, "blue")
	c.Assert(err, qt.IsNil)
	_, err = v.eng.AddMarketOption(creator, m.ID, "over the limit")
	c.Assert(err, qt.ErrorIs, ErrTooManyOptions)

	// buying before the market opens is rejected
	v.newTokenAccount(buyer, mint)
	v.mintTokens(buyer, mint, 100)
	_, err = v.eng.BuyMarketShares(v.ctx, &BuySharesRequest{Owner: buyer, Market: m.ID})
	c.Assert(err, qt.ErrorIs, ErrMarketNotOpen)

	// only the creator opens the market
	_, err = v.eng.OpenMarket(other, m.ID)
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)
	m, err = v.eng.OpenMarket(creator, m.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Phase(v.now), qt.Equals, types.MarketStaking)

	// selecting before the staking window closed is rejected
	_, err = v.eng.SelectMarketOption(creator, m.ID, 1)
	c.Assert(err, qt.ErrorIs, ErrStakingNotOver)

	payerID := derive.VoteTokenID(mint, buyer, 0)
	shareID := derive.ShareID(m.ID, buyer)
	v.buyShares(buyer, m.ID, 40, 1)
	c.Assert(v.lastEvent("shares_bought").Attributes["error"], qt.Equals, "false")
	sh, err := v.stg.ShareAccount(shareID)
	c.Assert(err, qt.IsNil)
	c.Assert(sh.State, qt.Equals, types.ShareActive)
	payerNonce, marketNonce, shareNonce := v.recordNonce(payerID), v.recordNonce(m.ID), v.recordNonce(shareID)

	// an out-of-range option fails inside the circuit: the only public
	// trace is the revealed error flag, every record still advances
	v.buyShares(buyer, m.ID, 10, 7)
	c.Assert(v.lastEvent("shares_bought").Attributes["error"], qt.Equals, "true")
	c.Assert(v.recordNonce(payerID), qt.Equals, payerNonce+1)
	c.Assert(v.recordNonce(m.ID), qt.Equals, marketNonce+1)
	c.Assert(v.recordNonce(shareID), qt.Equals, shareNonce+1)

	// an insufficient balance fails with the exact same public shape
	v.buyShares(buyer, m.ID, 1000, 0)
	c.Assert(v.lastEvent("shares_bought").Attributes["error"], qt.Equals, "true")

	// another participant stakes on a different option
	v.newTokenAccount(other, mint)
	v.mintTokens(other, mint, 50)
	v.buyShares(other, m.ID, 20, 0)

	// close the staking window, select the outcome
	v.now += 150
	c.Assert(m.Phase(v.now), qt.Equals, types.MarketReveal)
	_, err = v.eng.RevealShare(v.ctx, buyer, m.ID)
	c.Assert(err, qt.ErrorIs, ErrMarketNotSelected)
	_, err = v.eng.SelectMarketOption(other, m.ID, 1)
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)
	_, err = v.eng.SelectMarketOption(creator, m.ID, 9)
	c.Assert(err, qt.ErrorIs, ErrInvalidOption)
	_, err = v.eng.SelectMarketOption(creator, m.ID, 1)
	c.Assert(err, qt.IsNil)
	_, err = v.eng.SelectMarketOption(creator, m.ID, 2)
	c.Assert(err, qt.ErrorIs, ErrOptionSelected)

	// tally before reveal is rejected
	_, err = v.eng.IncrementOptionTally(m.ID, buyer)
	c.Assert(err, qt.ErrorIs, ErrNotRevealed)

	// the buyer staked on the selected option: amount and option go public
	_, err = v.eng.RevealShare(v.ctx, buyer, m.ID)
	c.Assert(err, qt.IsNil)
	v.pump()
	sh, err = v.stg.ShareAccount(shareID)
	c.Assert(err, qt.IsNil)
	c.Assert(sh.RevealedAmount, qt.Not(qt.IsNil))
	c.Assert(*sh.RevealedAmount, qt.Equals, uint64(40))
	c.Assert(*sh.RevealedOption, qt.Equals, uint16(1))
	c.Assert(sh.RevealedInTime, qt.IsTrue)

	_, err = v.eng.RevealShare(v.ctx, buyer, m.ID)
	c.Assert(err, qt.ErrorIs, ErrAlreadyRevealed)

	// the other participant staked elsewhere: the reveal does not match
	// and nothing about the position goes public
	_, err = v.eng.RevealShare(v.ctx, other, m.ID)
	c.Assert(err, qt.IsNil)
	v.pump()
	v.lastEvent("share_reveal_unmatched")
	otherShare, err := v.stg.ShareAccount(derive.ShareID(m.ID, other))
	c.Assert(err, qt.IsNil)
	c.Assert(otherShare.RevealedAmount, qt.IsNil)
	_, err = v.eng.IncrementOptionTally(m.ID, other)
	c.Assert(err, qt.ErrorIs, ErrNotRevealed)

	// a revealed share counts towards the tally exactly once
	tally, err := v.eng.IncrementOptionTally(m.ID, buyer)
	c.Assert(err, qt.IsNil)
	c.Assert(tally.TotalShares, qt.Equals, uint64(40))
	_, err = v.eng.IncrementOptionTally(m.ID, buyer)
	c.Assert(err, qt.ErrorIs, ErrTallyIncremented)
	tally, err = v.stg.OptionTally(m.ID, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(tally.TotalShares, qt.Equals, uint64(40))
}

func TestRevealAfterDeadline(t *testing.T) {
	v := newEnv(t)
	c := v.c
	creator, buyer, mint := account(1), account(2), account(3)

	m, err := v.eng.CreateMarket(v.ctx, creator, 0, 3, 100, 100, 0, mint)
	c.Assert(err, qt.IsNil)
	v.pump()
	for _, name := range []string{"yes", "no"} {
		_, err = v.eng.AddMarketOption(creator, m.ID, name)
		c.Assert(err, qt.IsNil)
	}
	_, err = v.eng.OpenMarket(creator, m.ID)
	c.Assert(err, qt.IsNil)

	v.newTokenAccount(buyer, mint)
	v.mintTokens(buyer, mint, 100)
	v.buyShares(buyer, m.ID, 25, 0)

	// skip straight past the reveal window
	v.now += 250
	_, err = v.eng.SelectMarketOption(creator, m.ID, 0)
	c.Assert(err, qt.IsNil)
	_, err = v.eng.RevealShare(v.ctx, buyer, m.ID)
	c.Assert(err, qt.IsNil)
	v.pump()

	sh, err := v.stg.ShareAccount(derive.ShareID(m.ID, buyer))
	c.Assert(err, qt.IsNil)
	c.Assert(sh.RevealedAmount, qt.Not(qt.IsNil))
	c.Assert(sh.RevealedInTime, qt.IsFalse)

	// late reveals never count towards the tally
	_, err = v.eng.IncrementOptionTally(m.ID, buyer)
	c.Assert(err, qt.ErrorIs, ErrRevealedTooLate)
}

func TestAuctionVickrey(t *testing.T) {
	v := newEnv(t)
	c := v.c
	authority := account(1)
	b1, b2, b3 := account(10), account(11), account(12)

	a, err := v.eng.CreateAuction(v.ctx, authority, 0, types.Vickrey, 0, int64(v.now+100))
	c.Assert(err, qt.IsNil)
	v.pump()
	c.Assert(v.recordNonce(a.ID), qt.Equals, uint64(1))

	v.placeBid(b1, a.ID, 50)
	v.placeBid(b2, a.ID, 80)
	v.placeBid(b3, a.ID, 65)
	a, err = v.stg.Auction(a.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(a.BidCount, qt.Equals, uint64(3))
	c.Assert(v.recordNonce(a.ID), qt.Equals, uint64(4))

	// the auction only closes after its end time
	_, err = v.eng.CloseAuction(authority, a.ID)
	c.Assert(err, qt.ErrorIs, ErrAuctionStillOpen)
	_, err = v.eng.DetermineWinnerVickrey(v.ctx, authority, a.ID)
	c.Assert(err, qt.ErrorIs, ErrAuctionNotClosed)

	v.now += 150

	// past the end time bids are rejected even before the close
	_, err = v.eng.PlaceBid(v.ctx, &PlaceBidRequest{Auction: a.ID})
	c.Assert(err, qt.ErrorIs, ErrAuctionNotOpen)

	_, err = v.eng.CloseAuction(b1, a.ID)
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)
	a, err = v.eng.CloseAuction(authority, a.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(a.Status, qt.Equals, types.AuctionClosed)

	_, err = v.eng.PlaceBid(v.ctx, &PlaceBidRequest{Auction: a.ID})
	c.Assert(err, qt.ErrorIs, ErrAuctionNotOpen)
	_, err = v.eng.CloseAuction(authority, a.ID)
	c.Assert(err, qt.ErrorIs, ErrAuctionNotOpen)

	// resolution must match the declared pricing rule
	_, err = v.eng.DetermineWinnerFirstPrice(v.ctx, authority, a.ID)
	c.Assert(err, qt.ErrorIs, ErrWrongAuctionType)

	// the highest bidder wins and pays the second-highest bid
	_, err = v.eng.DetermineWinnerVickrey(v.ctx, authority, a.ID)
	c.Assert(err, qt.IsNil)
	v.pump()
	a, err = v.stg.Auction(a.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(a.Status, qt.Equals, types.AuctionResolved)
	c.Assert(a.Winner, qt.Not(qt.IsNil))
	c.Assert(*a.Winner, qt.Equals, b2)
	c.Assert(a.Payment, qt.Equals, uint64(65))
}

func TestAuctionFirstPrice(t *testing.T) {
	v := newEnv(t)
	c := v.c
	authority := account(1)

	a, err := v.eng.CreateAuction(v.ctx, authority, 0, types.FirstPrice, 0, int64(v.now+100))
	c.Assert(err, qt.IsNil)
	v.pump()

	v.placeBid(account(10), a.ID, 50)
	v.placeBid(account(11), a.ID, 80)

	v.now += 150
	_, err = v.eng.CloseAuction(authority, a.ID)
	c.Assert(err, qt.IsNil)
	_, err = v.eng.DetermineWinnerFirstPrice(v.ctx, authority, a.ID)
	c.Assert(err, qt.IsNil)
	v.pump()

	a, err = v.stg.Auction(a.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(*a.Winner, qt.Equals, account(11))
	c.Assert(a.Payment, qt.Equals, uint64(80))
}

func TestAuctionWithoutBids(t *testing.T) {
	v := newEnv(t)
	c := v.c
	authority := account(1)

	a, err := v.eng.CreateAuction(v.ctx, authority, 0, types.FirstPrice, 0, int64(v.now+100))
	c.Assert(err, qt.IsNil)
	v.pump()

	v.now += 150
	_, err = v.eng.CloseAuction(authority, a.ID)
	c.Assert(err, qt.IsNil)
	_, err = v.eng.DetermineWinnerFirstPrice(v.ctx, authority, a.ID)
	c.Assert(err, qt.IsNil)
	v.pump()

	a, err = v.stg.Auction(a.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(a.Status, qt.Equals, types.AuctionResolved)
	c.Assert(a.Winner, qt.IsNil)
	c.Assert(a.Payment, qt.Equals, uint64(0))
}

func TestAbortedComputation(t *testing.T) {
	v := newEnv(t)
	c := v.c
	owner, mint := account(1), account(2)

	id := v.newTokenAccount(owner, mint)
	v.mintTokens(owner, mint, 100)
	nonce := v.recordNonce(id)

	// tampering with a revealed output breaks the attestation: the
	// computation aborts, the handle is consumed, nothing is committed
	_, err := v.eng.SellVoteTokens(v.ctx, owner, mint, 0, 30)
	c.Assert(err, qt.IsNil)
	res := v.take()
	res.Fields[1].U64 = 90
	err = v.eng.HandleResult(res)
	c.Assert(err, qt.ErrorIs, ErrAbortedComputation)
	c.Assert(v.recordNonce(id), qt.Equals, nonce)
	c.Assert(v.ledger.Balance(mint, owner), qt.Equals, uint64(0))
	c.Assert(v.ledger.Escrowed(mint), qt.Equals, uint64(100))

	// the account is unlocked again and the handle cannot replay
	vt, err := v.stg.VoteTokenAccount(id)
	c.Assert(err, qt.IsNil)
	c.Assert(vt.Locked, qt.IsFalse)
	err = v.eng.HandleResult(res)
	c.Assert(err, qt.ErrorIs, ErrUnknownHandle)

	// an aborted mint leaves its escrowed collateral claimable
	v.ledger.Credit(mint, owner, 50)
	_, err = v.eng.MintVoteTokens(v.ctx, owner, mint, 0, 50)
	c.Assert(err, qt.IsNil)
	res = v.take()
	res.Signature = nil
	err = v.eng.HandleResult(res)
	c.Assert(err, qt.ErrorIs, ErrAbortedComputation)
	c.Assert(v.recordNonce(id), qt.Equals, nonce)

	_, err = v.eng.ClaimPendingDeposit(owner, account(9), 0)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
	amount, err := v.eng.ClaimPendingDeposit(owner, mint, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(amount, qt.Equals, uint64(50))
	c.Assert(v.ledger.Balance(mint, owner), qt.Equals, uint64(50))
	_, err = v.eng.ClaimPendingDeposit(owner, mint, 0)
	c.Assert(err, qt.ErrorIs, ErrNothingToClaim)

	// the account still works after the aborts
	_, err = v.eng.SellVoteTokens(v.ctx, owner, mint, 0, 100)
	c.Assert(err, qt.IsNil)
	v.pump()
	c.Assert(v.recordNonce(id), qt.Equals, nonce+1)
	c.Assert(v.ledger.Balance(mint, owner), qt.Equals, uint64(150))
}

func TestResultForUnknownHandle(t *testing.T) {
	v := newEnv(t)
	c := v.c

	err := v.eng.HandleResult(&mpc.SignedResult{Handle: 12345})
	c.Assert(err, qt.ErrorIs, ErrUnknownHandle)
}
