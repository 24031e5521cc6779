// Package engine implements the ledger side of the confidential market
// protocol. Request handlers validate plaintext preconditions, build
// positional argument sequences and queue computations on the cluster;
// HandleResult is the single callback path that verifies attested results
// and commits their encrypted state wholesale. Business effects are driven
// exclusively by the booleans and scalars a circuit deliberately reveals.
package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/log"

	"github.com/veilmarket/veilmarket/mpc"
	"github.com/veilmarket/veilmarket/storage"
	"github.com/veilmarket/veilmarket/types"
	"github.com/veilmarket/veilmarket/util"
)

// Engine ties the ledger storage to a computation cluster and a token
// transfer backend.
type Engine struct {
	stg         *storage.Storage
	cluster     mpc.Cluster
	clusterAddr common.Address
	tokens      TokenTransfer
	handleSeq   atomic.Uint64
	lock        sync.Mutex

	// Now returns the current unix timestamp. Tests override it to drive
	// phase transitions.
	Now func() uint64
}

// New creates an engine. The cluster address is the trust anchor for
// callback attestations; results signed by any other key are aborted.
func New(stg *storage.Storage, cluster mpc.Cluster, clusterAddr common.Address, tokens TokenTransfer) *Engine {
	e := &Engine{
		stg:         stg,
		cluster:     cluster,
		clusterAddr: clusterAddr,
		tokens:      tokens,
		Now:         func() uint64 { return uint64(time.Now().Unix()) },
	}
	// Seed the handle sequence randomly so handles do not collide with
	// computations still pending from a previous run.
	e.handleSeq.Store(binary.BigEndian.Uint64(util.RandomBytes(8)))
	return e
}

// Storage exposes the underlying storage, mainly for the HTTP API.
func (e *Engine) Storage() *storage.Storage {
	return e.stg
}

// newHandle returns the next computation handle.
func (e *Engine) newHandle() uint64 {
	return e.handleSeq.Add(1)
}

// callbackContext is the engine-side context persisted with a pending
// computation. It carries whatever the committer needs to finish the
// operation once the attested result arrives.
type callbackContext struct {
	Market   types.RecordID  `cbor:"0,keyasint,omitempty"`
	Share    types.RecordID  `cbor:"1,keyasint,omitempty"`
	Account  types.RecordID  `cbor:"2,keyasint,omitempty"`
	Auction  types.RecordID  `cbor:"3,keyasint,omitempty"`
	Owner    types.AccountID `cbor:"4,keyasint,omitempty"`
	Mint     types.AccountID `cbor:"5,keyasint,omitempty"`
	Amount   uint64          `cbor:"6,keyasint,omitempty"`
	Sell     bool            `cbor:"7,keyasint,omitempty"`
	Deadline uint64          `cbor:"8,keyasint,omitempty"`
}

func encodeContext(c *callbackContext) ([]byte, error) {
	opts := cbor.CoreDetEncOptions()
	em, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(c)
}

func decodeContext(data []byte) (*callbackContext, error) {
	c := &callbackContext{}
	if err := cbor.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode callback context: %w", err)
	}
	return c, nil
}

// queue registers a pending computation and submits it to the cluster. The
// registration happens first so a handle can never resolve without a pending
// entry to verify against.
func (e *Engine) queue(ctx context.Context, circuit mpc.CircuitID, b *mpc.ArgBuilder,
	records []types.RecordID, cctx *callbackContext,
) (uint64, error) {
	if e.cluster == nil {
		return 0, ErrClusterNotSet
	}
	encCtx, err := encodeContext(cctx)
	if err != nil {
		return 0, fmt.Errorf("encode callback context: %w", err)
	}
	handle := e.newHandle()
	args := b.Build()
	pc := &storage.PendingComputation{
		Handle:  handle,
		Circuit: string(circuit),
		Records: records,
		Context: encCtx,
	}
	if err := e.stg.AddPendingComputation(pc); err != nil {
		if errors.Is(err, storage.ErrHandleInUse) {
			return 0, fmt.Errorf("handle %d: %w", handle, ErrDuplicateComputation)
		}
		return 0, fmt.Errorf("register pending computation: %w", err)
	}
	req := &mpc.Request{
		Handle:      handle,
		Circuit:     circuit,
		Args:        args,
		EncodedArgs: mpc.EncodeArgs(args),
		Records:     records,
		Outputs:     1,
	}
	if err := e.cluster.Submit(ctx, req); err != nil {
		// roll back the reservation so the handle is not stranded
		if _, terr := e.stg.TakePendingComputation(handle); terr != nil {
			log.Warnw("failed to roll back pending computation",
				"handle", handle, "error", terr.Error())
		}
		return 0, fmt.Errorf("submit computation: %w", err)
	}
	log.Debugw("computation queued", "handle", handle, "circuit", string(circuit))
	return handle, nil
}

// commitBundle overwrites one record's ciphertexts and nonce with a verified
// bundle. Nonces only move forward; a bundle that does not advance the nonce
// is rejected.
func (e *Engine) commitBundle(id types.RecordID, bundle *types.EncryptedBundle) error {
	rec, err := e.stg.Record(id)
	if err != nil {
		return fmt.Errorf("load record %s: %w", id, err)
	}
	if bundle.Nonce.Cmp(rec.StateNonce) <= 0 {
		return fmt.Errorf("record %s: %w (have %s, got %s)",
			id, ErrStaleStateNonce, rec.StateNonce, bundle.Nonce)
	}
	if err := rec.Commit(bundle); err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}
	return e.stg.SetRecord(id, rec)
}

// event appends a journal entry, logging instead of failing the operation
// when the journal write itself fails.
func (e *Engine) event(kind string, subject types.RecordID, attrs map[string]string) {
	err := e.stg.AppendEvent(&storage.Event{
		Time:       e.Now(),
		Kind:       kind,
		Subject:    subject,
		Attributes: attrs,
	})
	if err != nil {
		log.Warnw("failed to append event", "kind", kind, "error", err.Error())
	}
}

// HandleResult is the single entry point for cluster callbacks. It consumes
// the pending computation for the handle, verifies the attestation and the
// circuit binding, and only then commits ciphertext state and applies the
// revealed side effects. Any verification failure aborts the computation:
// the pending entry is gone, no state is written, and locked accounts are
// released.
func (e *Engine) HandleResult(res *mpc.SignedResult) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	pc, err := e.stg.TakePendingComputation(res.Handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("handle %d: %w", res.Handle, ErrUnknownHandle)
		}
		return fmt.Errorf("take pending computation: %w", err)
	}
	cctx, err := decodeContext(pc.Context)
	if err != nil {
		return e.abort(pc, cctx, err)
	}
	if string(res.Circuit) != pc.Circuit {
		return e.abort(pc, cctx, fmt.Errorf("%w: queued %s, callback %s",
			ErrCircuitMismatch, pc.Circuit, res.Circuit))
	}
	if err := res.Verify(e.clusterAddr); err != nil {
		return e.abort(pc, cctx, fmt.Errorf("%w: %v", ErrBadAttestation, err))
	}

	switch res.Circuit {
	case mpc.CircuitInitMarketState, mpc.CircuitInitVoteTokenBalance, mpc.CircuitInitAuctionState:
		err = e.commitInitState(pc, cctx, res)
	case mpc.CircuitVoteTokenBalance:
		err = e.commitBalanceUpdate(pc, cctx, res)
	case mpc.CircuitBuyMarketShares:
		err = e.commitBuyShares(pc, cctx, res)
	case mpc.CircuitRevealShare:
		err = e.commitRevealShare(pc, cctx, res)
	case mpc.CircuitPlaceBid:
		err = e.commitPlaceBid(pc, cctx, res)
	case mpc.CircuitFirstPriceWinner, mpc.CircuitVickreyWinner:
		err = e.commitWinner(pc, cctx, res)
	default:
		err = fmt.Errorf("unknown circuit: %s", res.Circuit)
	}
	if err != nil {
		return e.abort(pc, cctx, err)
	}
	log.Infow("computation committed", "handle", res.Handle, "circuit", string(res.Circuit))
	return nil
}

// abort finalizes a failed callback: the computation stays consumed, nothing
// is committed, and accounts locked for the computation are released so
// escrowed collateral remains claimable.
func (e *Engine) abort(pc *storage.PendingComputation, cctx *callbackContext, cause error) error {
	if cctx != nil && !cctx.Account.IsZero() {
		if vt, err := e.stg.VoteTokenAccount(cctx.Account); err == nil && vt.Locked {
			vt.Locked = false
			if err := e.stg.SetVoteTokenAccount(vt); err != nil {
				log.Errorw(err, "failed to unlock account after aborted computation")
			}
		}
	}
	log.Warnw("computation aborted", "handle", pc.Handle,
		"circuit", pc.Circuit, "error", cause.Error())
	e.event("computation_aborted", types.RecordID{}, map[string]string{
		"handle":  fmt.Sprintf("%d", pc.Handle),
		"circuit": pc.Circuit,
	})
	return fmt.Errorf("handle %d (%s): %w: %v", pc.Handle, pc.Circuit, ErrAbortedComputation, cause)
}

// commitInitState commits the freshly encrypted zero state of an init
// circuit to its single target record.
func (e *Engine) commitInitState(pc *storage.PendingComputation, cctx *callbackContext, res *mpc.SignedResult) error {
	out, err := res.InitState()
	if err != nil {
		return err
	}
	if len(pc.Records) != 1 {
		return fmt.Errorf("init circuit bound to %d records, want 1", len(pc.Records))
	}
	if err := e.commitBundle(pc.Records[0], out.State); err != nil {
		return err
	}
	switch res.Circuit {
	case mpc.CircuitInitMarketState:
		e.event("market_state_initialized", cctx.Market, nil)
	case mpc.CircuitInitVoteTokenBalance:
		e.event("vote_token_account_initialized", cctx.Account, nil)
	case mpc.CircuitInitAuctionState:
		e.event("auction_state_initialized", cctx.Auction, nil)
	}
	return nil
}
