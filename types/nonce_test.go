package types

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestNonceBytesRoundtrip(t *testing.T) {
	c := qt.New(t)

	n := NonceFromUint64(0xdeadbeef)
	b := n.Bytes()
	c.Assert(b, qt.HasLen, NonceLen)

	got, err := NonceFromBytes(b)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Cmp(n), qt.Equals, 0)

	// little-endian layout
	c.Assert(b[0], qt.Equals, byte(0xef))
	c.Assert(b[1], qt.Equals, byte(0xbe))

	_, err = NonceFromBytes([]byte{1, 2, 3})
	c.Assert(err, qt.IsNotNil)
}

func TestNonceNext(t *testing.T) {
	c := qt.New(t)

	var n Nonce
	c.Assert(n.IsZero(), qt.IsTrue)

	n = n.Next()
	c.Assert(n.IsZero(), qt.IsFalse)
	c.Assert(n.Uint64(), qt.Equals, uint64(1))
	c.Assert(n.Cmp(NonceFromUint64(1)), qt.Equals, 0)

	// strictly increasing
	prev := n
	for i := 0; i < 10; i++ {
		next := prev.Next()
		c.Assert(next.Cmp(prev) > 0, qt.IsTrue)
		prev = next
	}
	c.Assert(prev.Uint64(), qt.Equals, uint64(11))
}

func TestNonceJSON(t *testing.T) {
	c := qt.New(t)

	n := NonceFromUint64(42)
	data, err := json.Marshal(n)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"42"`)

	var got Nonce
	c.Assert(json.Unmarshal(data, &got), qt.IsNil)
	c.Assert(got.Cmp(n), qt.Equals, 0)
}
