package storage

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/veilmarket/veilmarket/types"
)

func testID(b byte) types.RecordID {
	var id types.RecordID
	id[0] = b
	return id
}

func TestRecords(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, err := stg.Record(testID(1))
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	rec := types.NewEncryptedRecord(types.AccountID(testID(9)), types.ShareWords)
	rec.StateNonce = types.NonceFromUint64(4)
	rec.Ciphertexts[1][0] = 0x77
	c.Assert(stg.SetRecord(testID(1), &rec), qt.IsNil)

	got, err := stg.Record(testID(1))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.CmpEquals(cmpopts.EquateComparable(types.Nonce{})), &rec)
}

func TestPendingComputations(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	pc := &PendingComputation{
		Handle:  42,
		Circuit: "calculate_vote_token_balance",
		Records: []types.RecordID{testID(1)},
		Context: []byte{0xa0},
	}
	c.Assert(stg.AddPendingComputation(pc), qt.IsNil)

	// a handle can only be in flight once
	err := stg.AddPendingComputation(&PendingComputation{Handle: 42, Circuit: "reveal_share"})
	c.Assert(err, qt.ErrorIs, ErrHandleInUse)

	pcs, err := stg.PendingComputations()
	c.Assert(err, qt.IsNil)
	c.Assert(pcs, qt.HasLen, 1)

	// take consumes the handle exactly once
	got, err := stg.TakePendingComputation(42)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, pc)

	_, err = stg.TakePendingComputation(42)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	_, err = stg.TakePendingComputation(43)
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	// the handle is free again after being consumed
	c.Assert(stg.AddPendingComputation(pc), qt.IsNil)
}

func TestEvents(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	for i, kind := range []string{"market_created", "market_opened", "shares_bought"} {
		e := &Event{Time: uint64(1000 + i), Kind: kind, Subject: testID(1)}
		c.Assert(stg.AppendEvent(e), qt.IsNil)
		c.Assert(e.Seq, qt.Equals, uint64(i+1))
	}

	events, err := stg.Events(0, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(events, qt.HasLen, 3)
	c.Assert(events[0].Kind, qt.Equals, "market_created")
	c.Assert(events[2].Kind, qt.Equals, "shares_bought")

	events, err = stg.Events(1, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(events, qt.HasLen, 1)
	c.Assert(events[0].Seq, qt.Equals, uint64(2))

	events, err = stg.Events(3, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(events, qt.HasLen, 0)
}

func TestMarketsAndOptions(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	m1 := &types.Market{ID: testID(1), Creator: types.AccountID(testID(8)), MaxOptions: 3}
	m2 := &types.Market{ID: testID(2), Creator: types.AccountID(testID(8)), MaxOptions: 5}
	c.Assert(stg.SetMarket(m1), qt.IsNil)
	c.Assert(stg.SetMarket(m2), qt.IsNil)

	markets, err := stg.ListMarkets()
	c.Assert(err, qt.IsNil)
	c.Assert(markets, qt.HasLen, 2)

	for i := uint16(0); i < 3; i++ {
		c.Assert(stg.SetMarketOption(&types.MarketOption{Market: m1.ID, Index: i}), qt.IsNil)
	}
	c.Assert(stg.SetMarketOption(&types.MarketOption{Market: m2.ID, Index: 0}), qt.IsNil)

	// options are listed per market
	opts, err := stg.ListMarketOptions(m1.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(opts, qt.HasLen, 3)
	opts, err = stg.ListMarketOptions(m2.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(opts, qt.HasLen, 1)

	_, err = stg.MarketOption(m1.ID, 5)
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	c.Assert(stg.SetOptionTally(&types.OptionTally{Market: m1.ID, OptionIndex: 1, TotalShares: 40}), qt.IsNil)
	tally, err := stg.OptionTally(m1.ID, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(tally.TotalShares, qt.Equals, uint64(40))
}
