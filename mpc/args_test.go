package mpc

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/veilmarket/veilmarket/types"
)

func testRecordID(b byte) types.RecordID {
	var id types.RecordID
	id[0] = b
	return id
}

func TestArgsEncodeDecodeRoundtrip(t *testing.T) {
	c := qt.New(t)

	var pub [32]byte
	pub[0] = 0xab
	var word types.Word
	word[0] = 0xcd
	var u128 [16]byte
	u128[15] = 0xef

	args := NewArgBuilder().
		PublicKey(pub).
		PlaintextNonce(types.NonceFromUint64(5)).
		EncryptedWord(word).
		PlaintextU16(9).
		PlaintextU64(1234567890).
		PlaintextU128(u128).
		PlaintextBool(true).
		Record(testRecordID(1), types.RecordStateOffset, 2*types.WordSize).
		Build()

	enc := EncodeArgs(args)
	decoded, err := DecodeArgs(enc)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded, qt.DeepEquals, args)
}

func TestArgReaderOrder(t *testing.T) {
	c := qt.New(t)

	args := NewArgBuilder().
		PlaintextNonce(types.NonceFromUint64(3)).
		Record(testRecordID(2), types.RecordStateOffset, types.WordSize).
		PlaintextU64(77).
		PlaintextBool(true).
		Build()

	r := NewArgReader(args)
	nonce, err := r.Nonce()
	c.Assert(err, qt.IsNil)
	c.Assert(nonce.Uint64(), qt.Equals, uint64(3))

	ref, err := r.Ref()
	c.Assert(err, qt.IsNil)
	c.Assert(ref.Address, qt.Equals, testRecordID(2))
	c.Assert(ref.Offset, qt.Equals, uint32(types.RecordStateOffset))
	c.Assert(ref.Length, qt.Equals, uint32(types.WordSize))

	amount, err := r.U64()
	c.Assert(err, qt.IsNil)
	c.Assert(amount, qt.Equals, uint64(77))

	sell, err := r.Bool()
	c.Assert(err, qt.IsNil)
	c.Assert(sell, qt.IsTrue)

	// sequence exhausted
	_, err = r.U64()
	c.Assert(err, qt.IsNotNil)
}

func TestArgReaderKindMismatch(t *testing.T) {
	c := qt.New(t)

	args := NewArgBuilder().PlaintextU64(1).Build()
	r := NewArgReader(args)
	_, err := r.Ref()
	c.Assert(err, qt.IsNotNil)

	// width mismatch: a u16 is not a u64
	r = NewArgReader(NewArgBuilder().PlaintextU16(1).Build())
	_, err = r.U64()
	c.Assert(err, qt.IsNotNil)
}

func TestDecodeArgsRejectsGarbage(t *testing.T) {
	c := qt.New(t)

	_, err := DecodeArgs([]byte{0xff})
	c.Assert(err, qt.IsNotNil)

	// truncated plaintext scalar
	enc := EncodeArgs(NewArgBuilder().PlaintextU64(7).Build())
	_, err = DecodeArgs(enc[:len(enc)-2])
	c.Assert(err, qt.IsNotNil)

	// a partial final scalar must not decode as a zero-padded value
	enc = EncodeArgs(NewArgBuilder().PlaintextU64(0xdeadbeef11223344).Build())
	args, err := DecodeArgs(enc[:len(enc)-4])
	c.Assert(err, qt.IsNotNil)
	c.Assert(args, qt.IsNil)

	// truncated record reference, cut inside the offset field
	enc = EncodeArgs(NewArgBuilder().Record(testRecordID(1), 0, 32).Build())
	_, err = DecodeArgs(enc[:len(enc)-6])
	c.Assert(err, qt.IsNotNil)

	// invalid plaintext width
	_, err = DecodeArgs([]byte{byte(ArgPlaintext), 3, 1, 2, 3})
	c.Assert(err, qt.IsNotNil)
}
