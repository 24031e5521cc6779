// Package cluster implements an in-process reference computation cluster.
// It evaluates the veilmarket circuit family over real ciphertexts: record
// references are resolved against the ledger, words are decrypted, the
// circuit logic runs as branch-free selections, and the results are
// re-encrypted under a fresh nonce and attested.
//
// The engine only ever sees the mpc.Cluster interface; deployments backed by
// an external MPC service swap this package out without touching the ledger
// side of the protocol.
package cluster

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.vocdoni.io/dvote/log"

	"github.com/veilmarket/veilmarket/crypto/mxe"
	"github.com/veilmarket/veilmarket/mpc"
	"github.com/veilmarket/veilmarket/util"
)

const queueSize = 64

// Cluster is the in-process computation cluster.
type Cluster struct {
	reader  mpc.RecordReader
	words   *mxe.WordCipher
	x25519  [32]byte // private
	pubKey  [32]byte
	attest  *ecdsa.PrivateKey
	pending chan *mpc.Request
	results chan *mpc.SignedResult
	cancel  context.CancelFunc
}

// New creates a cluster with fresh key material, reading record references
// through the given reader.
func New(reader mpc.RecordReader) (*Cluster, error) {
	words, err := mxe.NewWordCipher(util.RandomBytes(mxe.KeySize))
	if err != nil {
		return nil, err
	}
	priv, pub, err := mxe.GenerateX25519Key()
	if err != nil {
		return nil, fmt.Errorf("generate cluster x25519 key: %w", err)
	}
	attest, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate attestation key: %w", err)
	}
	return &Cluster{
		reader:  reader,
		words:   words,
		x25519:  priv,
		pubKey:  pub,
		attest:  attest,
		pending: make(chan *mpc.Request, queueSize),
		results: make(chan *mpc.SignedResult, queueSize),
	}, nil
}

// AttestationAddress returns the address results are attested under. Engines
// configure it as their trust anchor for callback verification.
func (c *Cluster) AttestationAddress() common.Address {
	return ethcrypto.PubkeyToAddress(c.attest.PublicKey)
}

// SharedPubKey returns the cluster's x25519 public key, used by clients to
// encrypt input words.
func (c *Cluster) SharedPubKey() [32]byte {
	return c.pubKey
}

// Submit implements mpc.Cluster.
func (c *Cluster) Submit(ctx context.Context, req *mpc.Request) error {
	if req.Args == nil {
		args, err := mpc.DecodeArgs(req.EncodedArgs)
		if err != nil {
			return fmt.Errorf("decode request arguments: %w", err)
		}
		req.Args = args
	}
	select {
	case c.pending <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results implements mpc.Cluster.
func (c *Cluster) Results() <-chan *mpc.SignedResult {
	return c.results
}

// Start launches the evaluation worker. Results become available on the
// Results channel in submission order.
func (c *Cluster) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go func() {
		for {
			select {
			case req := <-c.pending:
				c.results <- c.evaluate(req)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the evaluation worker.
func (c *Cluster) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// evaluate runs one circuit. Evaluation failures yield an unattested result
// for the same handle: callback verification then fails and the request
// aborts without state changes.
func (c *Cluster) evaluate(req *mpc.Request) *mpc.SignedResult {
	res := &mpc.SignedResult{Handle: req.Handle, Circuit: req.Circuit}
	fields, err := c.run(req)
	if err != nil {
		log.Warnw("computation aborted", "handle", req.Handle,
			"circuit", string(req.Circuit), "error", err.Error())
		return res
	}
	res.Fields = fields
	if err := res.Sign(c.attest); err != nil {
		log.Errorw(err, "failed to attest computation result")
		res.Signature = nil
	}
	return res
}

func (c *Cluster) run(req *mpc.Request) ([]mpc.OutputField, error) {
	r := mpc.NewArgReader(req.Args)
	switch req.Circuit {
	case mpc.CircuitInitMarketState:
		return c.initState(r, marketStateWords)
	case mpc.CircuitInitVoteTokenBalance:
		return c.initState(r, balanceWords)
	case mpc.CircuitInitAuctionState:
		return c.initState(r, auctionStateWords)
	case mpc.CircuitVoteTokenBalance:
		return c.voteTokenBalance(r)
	case mpc.CircuitBuyMarketShares:
		return c.buyMarketShares(r)
	case mpc.CircuitRevealShare:
		return c.revealShare(r)
	case mpc.CircuitPlaceBid:
		return c.placeBid(r)
	case mpc.CircuitFirstPriceWinner:
		return c.determineWinner(r, false)
	case mpc.CircuitVickreyWinner:
		return c.determineWinner(r, true)
	}
	return nil, fmt.Errorf("unknown circuit: %s", req.Circuit)
}
