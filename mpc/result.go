package mpc

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veilmarket/veilmarket/crypto/mxe"
	"github.com/veilmarket/veilmarket/types"
)

// FieldKind tags one output field of a circuit result.
type FieldKind uint8

const (
	// FieldBool is a deliberately revealed boolean (e.g. an error flag).
	FieldBool FieldKind = iota + 1
	// FieldU64 is a revealed 64-bit scalar.
	FieldU64
	// FieldU128 is a revealed 128-bit scalar.
	FieldU128
	// FieldBundle is a new-ciphertext bundle replacing one record's state.
	FieldBundle
)

// OutputField is one field of a circuit's fixed output tuple.
type OutputField struct {
	Kind   FieldKind
	Bool   bool
	U64    uint64
	U128   [16]byte
	Bundle *types.EncryptedBundle
}

// BoolField builds a revealed boolean output field.
func BoolField(v bool) OutputField { return OutputField{Kind: FieldBool, Bool: v} }

// U64Field builds a revealed 64-bit output field.
func U64Field(v uint64) OutputField { return OutputField{Kind: FieldU64, U64: v} }

// U128Field builds a revealed 128-bit output field.
func U128Field(v [16]byte) OutputField { return OutputField{Kind: FieldU128, U128: v} }

// BundleField builds a new-ciphertext output field.
func BundleField(b *types.EncryptedBundle) OutputField {
	return OutputField{Kind: FieldBundle, Bundle: b}
}

// SignedResult is the attested outcome of one computation. The signature
// covers the handle, the circuit identifier and the canonical output bytes,
// so neither the outputs nor their association with a pending request can be
// altered without detection.
type SignedResult struct {
	Handle    uint64
	Circuit   CircuitID
	Fields    []OutputField
	Signature types.HexBytes
}

// CanonicalOutputs serializes the output tuple into the byte form covered by
// the attestation signature.
func (r *SignedResult) CanonicalOutputs() []byte {
	var buf bytes.Buffer
	for i := range r.Fields {
		f := &r.Fields[i]
		buf.WriteByte(byte(f.Kind))
		switch f.Kind {
		case FieldBool:
			if f.Bool {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		case FieldU64:
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], f.U64)
			buf.Write(b[:])
		case FieldU128:
			buf.Write(f.U128[:])
		case FieldBundle:
			enc := f.Bundle.Serialize()
			var ln [4]byte
			binary.LittleEndian.PutUint32(ln[:], uint32(len(enc)))
			buf.Write(ln[:])
			buf.Write(enc)
		}
	}
	return buf.Bytes()
}

// Digest returns the attestation digest of the result.
func (r *SignedResult) Digest() common.Hash {
	return mxe.AttestationDigest(r.Handle, string(r.Circuit), r.CanonicalOutputs())
}

// Sign attests the result with the cluster's key.
func (r *SignedResult) Sign(priv *ecdsa.PrivateKey) error {
	sig, err := mxe.SignAttestation(priv, r.Digest())
	if err != nil {
		return err
	}
	r.Signature = sig
	return nil
}

// Verify checks the result's attestation against the expected cluster
// address.
func (r *SignedResult) Verify(cluster common.Address) error {
	if len(r.Signature) == 0 {
		return fmt.Errorf("missing attestation signature")
	}
	return mxe.VerifyAttestation(cluster, r.Digest(), r.Signature)
}

// field returns output field i after checking its kind.
func (r *SignedResult) field(i int, kind FieldKind) (*OutputField, error) {
	if i >= len(r.Fields) {
		return nil, fmt.Errorf("output field %d missing (circuit %s returned %d fields)",
			i, r.Circuit, len(r.Fields))
	}
	f := &r.Fields[i]
	if f.Kind != kind {
		return nil, fmt.Errorf("output field %d: got kind %d, want %d", i, f.Kind, kind)
	}
	return f, nil
}
