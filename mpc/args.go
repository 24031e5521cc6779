// Package mpc defines the wire contract with the confidential computation
// cluster: the positional argument encoding of requests, the circuit
// catalogue with its typed output shapes, and the signed result bundles
// returned through callbacks.
package mpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/veilmarket/veilmarket/types"
)

// ArgKind tags one positional argument of a computation request.
type ArgKind uint8

const (
	// ArgPlaintext is a fixed-width plaintext scalar, little-endian.
	ArgPlaintext ArgKind = iota + 1
	// ArgEncrypted is an opaque ciphertext word supplied by the caller.
	ArgEncrypted
	// ArgPublicKey is an x25519 public key addressing the request's
	// encrypted inputs and revealed outputs to a specific recipient.
	ArgPublicKey
	// ArgRecordRef points the cluster at a slice of an on-ledger record so
	// the caller does not have to re-transmit its ciphertext.
	ArgRecordRef
)

// RecordRef addresses a byte range within a record's canonical layout.
type RecordRef struct {
	Address types.RecordID
	Offset  uint32
	Length  uint32
}

// Arg is one positional argument. Exactly the fields implied by Kind are
// meaningful.
type Arg struct {
	Kind   ArgKind
	Width  uint8 // plaintext width in bytes: 2, 4, 8 or 16
	Scalar [16]byte
	Word   types.Word
	PubKey [32]byte
	Ref    RecordRef
}

// ArgBuilder builds the ordered argument sequence of a request. The encoding
// order must exactly match the target circuit's declared parameter order; no
// semantic validation is possible at this layer.
type ArgBuilder struct {
	args []Arg
}

// NewArgBuilder creates an empty builder.
func NewArgBuilder() *ArgBuilder {
	return &ArgBuilder{}
}

func (b *ArgBuilder) plaintext(width uint8, enc func(out []byte)) *ArgBuilder {
	a := Arg{Kind: ArgPlaintext, Width: width}
	enc(a.Scalar[:width])
	b.args = append(b.args, a)
	return b
}

// PlaintextU16 appends a 16-bit plaintext scalar.
func (b *ArgBuilder) PlaintextU16(v uint16) *ArgBuilder {
	return b.plaintext(2, func(out []byte) { binary.LittleEndian.PutUint16(out, v) })
}

// PlaintextU32 appends a 32-bit plaintext scalar.
func (b *ArgBuilder) PlaintextU32(v uint32) *ArgBuilder {
	return b.plaintext(4, func(out []byte) { binary.LittleEndian.PutUint32(out, v) })
}

// PlaintextU64 appends a 64-bit plaintext scalar.
func (b *ArgBuilder) PlaintextU64(v uint64) *ArgBuilder {
	return b.plaintext(8, func(out []byte) { binary.LittleEndian.PutUint64(out, v) })
}

// PlaintextU128 appends a 128-bit plaintext scalar.
func (b *ArgBuilder) PlaintextU128(v [16]byte) *ArgBuilder {
	return b.plaintext(16, func(out []byte) { copy(out, v[:]) })
}

// PlaintextNonce appends a record nonce as a 128-bit plaintext scalar.
func (b *ArgBuilder) PlaintextNonce(n types.Nonce) *ArgBuilder {
	var v [16]byte
	copy(v[:], n.Bytes())
	return b.PlaintextU128(v)
}

// PlaintextBool appends a boolean flag, encoded as a 16-bit scalar.
func (b *ArgBuilder) PlaintextBool(v bool) *ArgBuilder {
	var enc uint16
	if v {
		enc = 1
	}
	return b.PlaintextU16(enc)
}

// EncryptedWord appends a caller-encrypted ciphertext word.
func (b *ArgBuilder) EncryptedWord(w types.Word) *ArgBuilder {
	b.args = append(b.args, Arg{Kind: ArgEncrypted, Word: w})
	return b
}

// PublicKey appends the caller's x25519 public key.
func (b *ArgBuilder) PublicKey(pk [32]byte) *ArgBuilder {
	b.args = append(b.args, Arg{Kind: ArgPublicKey, PubKey: pk})
	return b
}

// Record appends a by-reference slice of an on-ledger record.
func (b *ArgBuilder) Record(addr types.RecordID, offset, length uint32) *ArgBuilder {
	b.args = append(b.args, Arg{Kind: ArgRecordRef, Ref: RecordRef{Address: addr, Offset: offset, Length: length}})
	return b
}

// Build returns the ordered argument sequence.
func (b *ArgBuilder) Build() []Arg {
	return b.args
}

// EncodeArgs serializes an argument sequence into the ordered byte encoding
// consumed by the cluster.
func EncodeArgs(args []Arg) []byte {
	var buf bytes.Buffer
	for i := range args {
		a := &args[i]
		buf.WriteByte(byte(a.Kind))
		switch a.Kind {
		case ArgPlaintext:
			buf.WriteByte(a.Width)
			buf.Write(a.Scalar[:a.Width])
		case ArgEncrypted:
			buf.Write(a.Word[:])
		case ArgPublicKey:
			buf.Write(a.PubKey[:])
		case ArgRecordRef:
			buf.Write(a.Ref.Address.Bytes())
			var u32 [4]byte
			binary.LittleEndian.PutUint32(u32[:], a.Ref.Offset)
			buf.Write(u32[:])
			binary.LittleEndian.PutUint32(u32[:], a.Ref.Length)
			buf.Write(u32[:])
		}
	}
	return buf.Bytes()
}

// DecodeArgs reverses EncodeArgs.
func DecodeArgs(data []byte) ([]Arg, error) {
	var args []Arg
	r := bytes.NewReader(data)
	readFull := func(out []byte) error {
		if _, err := io.ReadFull(r, out); err != nil {
			return fmt.Errorf("truncated argument encoding")
		}
		return nil
	}
	for r.Len() > 0 {
		kind, _ := r.ReadByte()
		a := Arg{Kind: ArgKind(kind)}
		switch a.Kind {
		case ArgPlaintext:
			w, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("truncated argument encoding")
			}
			switch w {
			case 2, 4, 8, 16:
			default:
				return nil, fmt.Errorf("invalid plaintext width: %d", w)
			}
			a.Width = w
			if err := readFull(a.Scalar[:w]); err != nil {
				return nil, err
			}
		case ArgEncrypted:
			if err := readFull(a.Word[:]); err != nil {
				return nil, err
			}
		case ArgPublicKey:
			if err := readFull(a.PubKey[:]); err != nil {
				return nil, err
			}
		case ArgRecordRef:
			var addr [32]byte
			var u32 [4]byte
			if err := readFull(addr[:]); err != nil {
				return nil, err
			}
			a.Ref.Address = types.RecordID(addr)
			if err := readFull(u32[:]); err != nil {
				return nil, err
			}
			a.Ref.Offset = binary.LittleEndian.Uint32(u32[:])
			if err := readFull(u32[:]); err != nil {
				return nil, err
			}
			a.Ref.Length = binary.LittleEndian.Uint32(u32[:])
		default:
			return nil, fmt.Errorf("unknown argument kind: %d", kind)
		}
		args = append(args, a)
	}
	return args, nil
}

// ArgReader consumes a decoded argument sequence in order, the way a circuit
// declares its parameters.
type ArgReader struct {
	args []Arg
	pos  int
}

// NewArgReader wraps an argument sequence.
func NewArgReader(args []Arg) *ArgReader {
	return &ArgReader{args: args}
}

func (r *ArgReader) next(kind ArgKind) (*Arg, error) {
	if r.pos >= len(r.args) {
		return nil, fmt.Errorf("argument %d: sequence exhausted", r.pos)
	}
	a := &r.args[r.pos]
	if a.Kind != kind {
		return nil, fmt.Errorf("argument %d: got kind %d, want %d", r.pos, a.Kind, kind)
	}
	r.pos++
	return a, nil
}

// U16 consumes a 16-bit plaintext scalar.
func (r *ArgReader) U16() (uint16, error) {
	a, err := r.next(ArgPlaintext)
	if err != nil {
		return 0, err
	}
	if a.Width != 2 {
		return 0, fmt.Errorf("argument %d: width %d, want 2", r.pos-1, a.Width)
	}
	return binary.LittleEndian.Uint16(a.Scalar[:2]), nil
}

// U64 consumes a 64-bit plaintext scalar.
func (r *ArgReader) U64() (uint64, error) {
	a, err := r.next(ArgPlaintext)
	if err != nil {
		return 0, err
	}
	if a.Width != 8 {
		return 0, fmt.Errorf("argument %d: width %d, want 8", r.pos-1, a.Width)
	}
	return binary.LittleEndian.Uint64(a.Scalar[:8]), nil
}

// Bool consumes a boolean encoded as a 16-bit scalar.
func (r *ArgReader) Bool() (bool, error) {
	v, err := r.U16()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Nonce consumes a 128-bit plaintext scalar as a record nonce.
func (r *ArgReader) Nonce() (types.Nonce, error) {
	a, err := r.next(ArgPlaintext)
	if err != nil {
		return types.Nonce{}, err
	}
	if a.Width != 16 {
		return types.Nonce{}, fmt.Errorf("argument %d: width %d, want 16", r.pos-1, a.Width)
	}
	return types.NonceFromBytes(a.Scalar[:16])
}

// Word consumes a caller-encrypted ciphertext word.
func (r *ArgReader) Word() (types.Word, error) {
	a, err := r.next(ArgEncrypted)
	if err != nil {
		return types.Word{}, err
	}
	return a.Word, nil
}

// PubKey consumes an x25519 public key.
func (r *ArgReader) PubKey() ([32]byte, error) {
	a, err := r.next(ArgPublicKey)
	if err != nil {
		return [32]byte{}, err
	}
	return a.PubKey, nil
}

// Ref consumes a record reference.
func (r *ArgReader) Ref() (RecordRef, error) {
	a, err := r.next(ArgRecordRef)
	if err != nil {
		return RecordRef{}, err
	}
	return a.Ref, nil
}
