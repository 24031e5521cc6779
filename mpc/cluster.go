package mpc

import (
	"context"

	"github.com/veilmarket/veilmarket/types"
)

// Request is one computation to be evaluated by the cluster. The handle is
// chosen by the caller and must be unique among pending requests; it ties the
// asynchronous result back to the enqueued request.
type Request struct {
	Handle  uint64    `json:"handle"  cbor:"0,keyasint"`
	Circuit CircuitID `json:"circuit" cbor:"1,keyasint"`
	Args    []Arg     `json:"-"       cbor:"-"`
	// EncodedArgs is the ordered wire encoding of Args.
	EncodedArgs types.HexBytes `json:"args" cbor:"2,keyasint"`
	// Records lists the ledger records the callback is authorized to
	// mutate, in circuit output order.
	Records []types.RecordID `json:"records" cbor:"3,keyasint"`
	// Outputs is the expected output multiplicity, 1 for every circuit in
	// this family.
	Outputs int `json:"outputs" cbor:"4,keyasint"`
}

// Cluster is the external confidential computation service: it accepts
// requests and later emits exactly one signed result per accepted request.
// Latency is unbounded and there is no cancellation; a request only resolves
// through its result.
type Cluster interface {
	// Submit hands a request to the cluster for asynchronous evaluation.
	Submit(ctx context.Context, req *Request) error
	// Results is the stream of attested computation results.
	Results() <-chan *SignedResult
}

// RecordReader resolves record references against current ledger state. The
// cluster reads on-ledger ciphertext through this interface instead of having
// callers re-transmit it.
type RecordReader interface {
	EncryptedRecord(id types.RecordID) (*types.EncryptedRecord, error)
}
