package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/veilmarket/veilmarket/engine"
	"github.com/veilmarket/veilmarket/mpc/cluster"
	"github.com/veilmarket/veilmarket/processor"
	"github.com/veilmarket/veilmarket/storage"
	"github.com/veilmarket/veilmarket/types"
)

func TestMain(m *testing.M) {
	log.Init(log.LogLevelDebug, "stdout", nil)
	os.Exit(m.Run())
}

// newTestAPI wires a full stack with the processor running, so asynchronous
// operations resolve in the background like in production.
func newTestAPI(t *testing.T) (*API, *storage.Storage) {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	clu, err := cluster.New(stg)
	c.Assert(err, qt.IsNil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	clu.Start(ctx)
	t.Cleanup(clu.Stop)

	eng := engine.New(stg, clu, clu.AttestationAddress(), engine.NewMemoryLedger())
	proc := processor.New(eng, clu)
	c.Assert(proc.Start(ctx), qt.IsNil)
	t.Cleanup(func() { _ = proc.Stop() })

	a, err := New(&APIConfig{
		Host:   "127.0.0.1",
		Port:   0,
		Engine: eng,
		Cluster: &ClusterInfo{
			SharedPubKey:       make(types.HexBytes, 32),
			AttestationAddress: clu.AttestationAddress(),
		},
	})
	c.Assert(err, qt.IsNil)
	return a, stg
}

func doRequest(c *qt.C, a *API, method, path string, body, out any) int {
	var buf bytes.Buffer
	if body != nil {
		c.Assert(json.NewEncoder(&buf).Encode(body), qt.IsNil)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		c.Assert(json.NewDecoder(rec.Body).Decode(out), qt.IsNil)
	}
	return rec.Code
}

// waitForRecord polls until the record at id has a nonzero nonce, meaning
// its init computation committed.
func waitForRecord(c *qt.C, stg *storage.Storage, id types.RecordID) {
	for i := 0; i < 100; i++ {
		if rec, err := stg.Record(id); err == nil && !rec.StateNonce.IsZero() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	c.Fatal("record was never initialized")
}

func TestAPIMarketFlow(t *testing.T) {
	c := qt.New(t)
	a, stg := newTestAPI(t)

	c.Assert(doRequest(c, a, http.MethodGet, PingEndpoint, nil, nil), qt.Equals, http.StatusOK)

	var info ClusterInfo
	c.Assert(doRequest(c, a, http.MethodGet, ClusterEndpoint, nil, &info), qt.Equals, http.StatusOK)
	c.Assert(info.SharedPubKey, qt.HasLen, 32)

	var creator types.AccountID
	creator[0] = 1
	var m types.Market
	code := doRequest(c, a, http.MethodPost, MarketsEndpoint, &NewMarketRequest{
		Creator:      creator,
		MaxOptions:   3,
		TimeToStake:  3600,
		TimeToReveal: 3600,
	}, &m)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(m.Creator, qt.Equals, creator)
	waitForRecord(c, stg, m.ID)

	var markets []*types.Market
	c.Assert(doRequest(c, a, http.MethodGet, MarketsEndpoint, nil, &markets), qt.Equals, http.StatusOK)
	c.Assert(markets, qt.HasLen, 1)

	marketPath := MarketsEndpoint + "/" + m.ID.String()
	var got types.Market
	c.Assert(doRequest(c, a, http.MethodGet, marketPath, nil, &got), qt.Equals, http.StatusOK)
	c.Assert(got.ID, qt.Equals, m.ID)

	// unknown markets map onto the 404 of the error catalogue
	var missing types.RecordID
	missing[0] = 0xff
	code = doRequest(c, a, http.MethodGet, MarketsEndpoint+"/"+missing.String(), nil, nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)

	var opt types.MarketOption
	code = doRequest(c, a, http.MethodPost, marketPath+"/options",
		&AddOptionRequest{Creator: creator, Name: "yes"}, &opt)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(opt.Name, qt.Equals, "yes")
	code = doRequest(c, a, http.MethodPost, marketPath+"/options",
		&AddOptionRequest{Creator: creator, Name: "no"}, nil)
	c.Assert(code, qt.Equals, http.StatusOK)

	var opts []*types.MarketOption
	c.Assert(doRequest(c, a, http.MethodGet, marketPath+"/options", nil, &opts), qt.Equals, http.StatusOK)
	c.Assert(opts, qt.HasLen, 2)

	// opening by anyone but the creator is unauthorized
	var other types.AccountID
	other[0] = 2
	code = doRequest(c, a, http.MethodPost, marketPath+"/open", &OpenMarketRequest{Creator: other}, nil)
	c.Assert(code, qt.Equals, http.StatusForbidden)
	code = doRequest(c, a, http.MethodPost, marketPath+"/open", &OpenMarketRequest{Creator: creator}, nil)
	c.Assert(code, qt.Equals, http.StatusOK)

	var events []*storage.Event
	c.Assert(doRequest(c, a, http.MethodGet, EventsEndpoint, nil, &events), qt.Equals, http.StatusOK)
	c.Assert(len(events) > 0, qt.IsTrue)
}

func TestAPIVoteTokens(t *testing.T) {
	c := qt.New(t)
	a, stg := newTestAPI(t)

	var owner, mint types.AccountID
	owner[0], mint[0] = 1, 2
	var vt types.VoteTokenAccount
	code := doRequest(c, a, http.MethodPost, VoteTokensEndpoint,
		&NewVoteTokenRequest{Owner: owner, Mint: mint}, &vt)
	c.Assert(code, qt.Equals, http.StatusOK)
	waitForRecord(c, stg, vt.ID)

	var got types.VoteTokenAccount
	path := VoteTokensEndpoint + "/" + vt.ID.String()
	c.Assert(doRequest(c, a, http.MethodGet, path, nil, &got), qt.Equals, http.StatusOK)
	c.Assert(got.Owner, qt.Equals, owner)

	// minting without ledger funds fails inside the token backend
	code = doRequest(c, a, http.MethodPost, VoteTokensMintEndpoint,
		&VoteTokenAmountRequest{Owner: owner, Mint: mint, Amount: 100}, nil)
	c.Assert(code, qt.Not(qt.Equals), http.StatusOK)

	// malformed bodies are rejected up front
	req := httptest.NewRequest(http.MethodPost, VoteTokensEndpoint, bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
}
