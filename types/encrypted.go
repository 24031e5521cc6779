package types

import (
	"bytes"
	"fmt"
)

// WordSize is the fixed width in bytes of one encrypted word. Every plaintext
// field of a confidential entity maps to exactly one word.
const WordSize = 32

// Word is a single fixed-width ciphertext produced by the computation
// cluster. Its contents are opaque to the ledger.
type Word [WordSize]byte

// Ciphertext word counts per entity type. The layout of each record is fixed
// by the circuit family that produces it and never changes at runtime.
const (
	BalanceWords = 1  // [amount]
	ShareWords   = 2  // [share_amount, selected_option]
	AuctionWords = 5  // [winner_lo, winner_hi, highest, second_highest, bid_count]
	MarketWords  = 10 // [pool fields + per-option vote aggregates]
)

// Record layout offsets. A record serializes as owner ‖ nonce ‖ ciphertexts,
// so a record reference with offset RecordStateOffset addresses the first
// ciphertext word.
const (
	recordOwnerSize = AccountIDLen
	// RecordStateOffset is the byte offset of the ciphertext area within a
	// record's canonical layout.
	RecordStateOffset = recordOwnerSize + NonceLen
)

// EncryptedRecord is the base shape shared by every confidential entity: an
// owner, a version nonce and a fixed sequence of ciphertext words. Records
// are mutated exclusively by committing a verified cluster result; partial
// ciphertext writes are illegal.
type EncryptedRecord struct {
	Owner       AccountID `json:"owner"       cbor:"0,keyasint"`
	StateNonce  Nonce     `json:"stateNonce"  cbor:"1,keyasint"`
	Ciphertexts []Word    `json:"ciphertexts" cbor:"2,keyasint"`
}

// NewEncryptedRecord creates an empty record with the given owner and word
// count: all-zero ciphertexts and nonce zero, awaiting its initialization
// circuit.
func NewEncryptedRecord(owner AccountID, words int) EncryptedRecord {
	return EncryptedRecord{
		Owner:       owner,
		Ciphertexts: make([]Word, words),
	}
}

// Commit overwrites the record's ciphertexts and nonce wholesale with the
// bundle's values. The bundle nonce is authoritative regardless of the
// record's prior nonce. It fails if the bundle word count does not match the
// record's fixed layout.
func (r *EncryptedRecord) Commit(b *EncryptedBundle) error {
	if len(b.Ciphertexts) != len(r.Ciphertexts) {
		return fmt.Errorf("ciphertext layout mismatch: record has %d words, bundle has %d",
			len(r.Ciphertexts), len(b.Ciphertexts))
	}
	copy(r.Ciphertexts, b.Ciphertexts)
	r.StateNonce = b.Nonce
	return nil
}

// LayoutBytes serializes the record into its canonical byte layout:
// owner (32) ‖ state nonce (16, little-endian) ‖ ciphertext words.
func (r *EncryptedRecord) LayoutBytes() []byte {
	var buf bytes.Buffer
	buf.Write(r.Owner.Bytes())
	buf.Write(r.StateNonce.Bytes())
	for i := range r.Ciphertexts {
		buf.Write(r.Ciphertexts[i][:])
	}
	return buf.Bytes()
}

// ReadRange returns length bytes starting at offset within the record's
// canonical layout. It is used to resolve record references so the cluster
// can read on-ledger ciphertext without the caller re-transmitting it.
func (r *EncryptedRecord) ReadRange(offset, length uint32) ([]byte, error) {
	layout := r.LayoutBytes()
	if int(offset)+int(length) > len(layout) {
		return nil, fmt.Errorf("record range [%d:%d] out of bounds (%d bytes)",
			offset, offset+length, len(layout))
	}
	return layout[offset : offset+length], nil
}

// EncryptedBundle is a new-ciphertext output of the cluster: the replacement
// words for one record together with the nonce they were encrypted under.
type EncryptedBundle struct {
	Nonce       Nonce  `json:"nonce"       cbor:"0,keyasint"`
	Ciphertexts []Word `json:"ciphertexts" cbor:"1,keyasint"`
}

// Serialize returns the canonical byte encoding of the bundle:
// nonce (16, little-endian) ‖ ciphertext words. It is the form covered by the
// cluster's attestation signature.
func (b *EncryptedBundle) Serialize() []byte {
	out := make([]byte, 0, NonceLen+len(b.Ciphertexts)*WordSize)
	out = append(out, b.Nonce.Bytes()...)
	for i := range b.Ciphertexts {
		out = append(out, b.Ciphertexts[i][:]...)
	}
	return out
}

// DeserializeBundle reconstructs a bundle from its canonical encoding.
func DeserializeBundle(data []byte) (*EncryptedBundle, error) {
	if len(data) < NonceLen || (len(data)-NonceLen)%WordSize != 0 {
		return nil, fmt.Errorf("invalid bundle length: %d", len(data))
	}
	nonce, err := NonceFromBytes(data[:NonceLen])
	if err != nil {
		return nil, err
	}
	words := make([]Word, (len(data)-NonceLen)/WordSize)
	for i := range words {
		copy(words[i][:], data[NonceLen+i*WordSize:])
	}
	return &EncryptedBundle{Nonce: nonce, Ciphertexts: words}, nil
}
