package mxe

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"
	"github.com/veilmarket/veilmarket/types"
	"github.com/veilmarket/veilmarket/util"
)

func TestWordCipherRoundtrip(t *testing.T) {
	c := qt.New(t)

	cipher, err := NewWordCipher(util.RandomBytes(KeySize))
	c.Assert(err, qt.IsNil)

	nonce := types.NonceFromUint64(7)
	plain := EncodeU64(123456)
	enc := cipher.EncryptWord(nonce, 0, plain)
	c.Assert(enc, qt.Not(qt.Equals), plain)
	c.Assert(cipher.DecryptWord(nonce, 0, enc), qt.Equals, plain)

	// the word index is part of the keystream position
	c.Assert(cipher.EncryptWord(nonce, 1, plain), qt.Not(qt.Equals), enc)
	// so is the nonce
	c.Assert(cipher.EncryptWord(types.NonceFromUint64(8), 0, plain), qt.Not(qt.Equals), enc)

	_, err = NewWordCipher([]byte{1, 2, 3})
	c.Assert(err, qt.IsNotNil)
}

func TestWordEncoding(t *testing.T) {
	c := qt.New(t)

	c.Assert(DecodeU64(EncodeU64(987654321)), qt.Equals, uint64(987654321))
	c.Assert(DecodeU16(EncodeU16(4321)), qt.Equals, uint16(4321))

	var v [16]byte
	copy(v[:], []byte("sixteen-bytes-ok"))
	c.Assert(DecodeU128(EncodeU128(v)), qt.Equals, v)

	// padding is random, equal values never repeat as words
	c.Assert(EncodeU64(1), qt.Not(qt.Equals), EncodeU64(1))
}

func TestSharedCipherAgreement(t *testing.T) {
	c := qt.New(t)

	alicePriv, alicePub, err := GenerateX25519Key()
	c.Assert(err, qt.IsNil)
	bobPriv, bobPub, err := GenerateX25519Key()
	c.Assert(err, qt.IsNil)

	alice, err := SharedCipher(alicePriv, bobPub)
	c.Assert(err, qt.IsNil)
	bob, err := SharedCipher(bobPriv, alicePub)
	c.Assert(err, qt.IsNil)

	nonce := types.NonceFromUint64(42)
	plain := EncodeU64(777)
	c.Assert(bob.DecryptWord(nonce, 3, alice.EncryptWord(nonce, 3, plain)), qt.Equals, plain)

	// a third party derives a different key
	evePriv, _, err := GenerateX25519Key()
	c.Assert(err, qt.IsNil)
	eve, err := SharedCipher(evePriv, alicePub)
	c.Assert(err, qt.IsNil)
	c.Assert(eve.DecryptWord(nonce, 3, alice.EncryptWord(nonce, 3, plain)), qt.Not(qt.Equals), plain)
}

func TestAttestation(t *testing.T) {
	c := qt.New(t)

	key, err := ethcrypto.GenerateKey()
	c.Assert(err, qt.IsNil)
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	digest := AttestationDigest(99, "calculate_vote_token_balance", []byte("outputs"))
	sig, err := SignAttestation(key, digest)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyAttestation(addr, digest, sig), qt.IsNil)

	// any change to the signed material must be detected
	other := AttestationDigest(100, "calculate_vote_token_balance", []byte("outputs"))
	c.Assert(VerifyAttestation(addr, other, sig), qt.IsNotNil)

	// a signature from a different key must not verify
	otherKey, err := ethcrypto.GenerateKey()
	c.Assert(err, qt.IsNil)
	otherSig, err := SignAttestation(otherKey, digest)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyAttestation(addr, digest, otherSig), qt.IsNotNil)
}
