package types

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

// NonceLen is the serialized length of a record nonce in bytes.
const NonceLen = 16

// Nonce is the 128-bit monotonically non-decreasing version counter of an
// encrypted record. It doubles as the encryption nonce of the record's
// ciphertexts, so the value returned by the computation cluster is always
// authoritative; it must never be recomputed locally.
type Nonce struct {
	n uint256.Int
}

// NonceFromUint64 builds a Nonce from an integer value.
func NonceFromUint64(v uint64) Nonce {
	var n Nonce
	n.n.SetUint64(v)
	return n
}

// NonceFromBytes builds a Nonce from its 16-byte little-endian encoding.
func NonceFromBytes(b []byte) (Nonce, error) {
	var n Nonce
	if len(b) != NonceLen {
		return n, fmt.Errorf("invalid nonce length: %d", len(b))
	}
	n.n[0] = binary.LittleEndian.Uint64(b[0:8])
	n.n[1] = binary.LittleEndian.Uint64(b[8:16])
	return n, nil
}

// Bytes returns the 16-byte little-endian encoding of the nonce.
func (n Nonce) Bytes() []byte {
	b := make([]byte, NonceLen)
	binary.LittleEndian.PutUint64(b[0:8], n.n[0])
	binary.LittleEndian.PutUint64(b[8:16], n.n[1])
	return b
}

// Cmp compares two nonces, returning -1, 0 or +1.
func (n Nonce) Cmp(other Nonce) int {
	return n.n.Cmp(&other.n)
}

// IsZero reports whether the nonce is zero (a freshly created record).
func (n Nonce) IsZero() bool {
	return n.n.IsZero()
}

// Next returns the successor nonce, wrapping at 128 bits.
func (n Nonce) Next() Nonce {
	var next Nonce
	next.n.AddUint64(&n.n, 1)
	next.n[2], next.n[3] = 0, 0
	return next
}

// Uint64 returns the low 64 bits of the nonce.
func (n Nonce) Uint64() uint64 {
	return n.n[0]
}

// String returns the decimal representation of the nonce.
func (n Nonce) String() string {
	return n.n.Dec()
}

func (n Nonce) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.n.Dec() + `"`), nil
}

func (n *Nonce) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return n.n.SetFromDecimal(s)
}

// MarshalBinary implements encoding.BinaryMarshaler, used by the CBOR codec.
func (n Nonce) MarshalBinary() ([]byte, error) {
	return n.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (n *Nonce) UnmarshalBinary(data []byte) error {
	got, err := NonceFromBytes(data)
	if err != nil {
		return err
	}
	*n = got
	return nil
}
