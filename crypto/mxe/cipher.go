// Package mxe holds the cryptographic primitives shared between the
// computation cluster and its clients: the fixed-width word cipher used for
// record ciphertexts, x25519 shared-secret derivation for client-encrypted
// inputs, and attestation signatures over computation outputs.
//
// The ledger side of the protocol treats all of this as opaque; only the
// cluster and the submitting client ever hold key material.
package mxe

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/veilmarket/veilmarket/types"
	"golang.org/x/crypto/chacha20"
)

// KeySize is the word cipher key size in bytes.
const KeySize = 32

// WordCipher encrypts and decrypts fixed-width record words. The key stream
// for a word depends on the cipher key, the record nonce and the word index,
// so rewriting a record under a fresh nonce always yields fresh ciphertexts,
// even for numerically unchanged values.
type WordCipher struct {
	key [KeySize]byte
}

// NewWordCipher creates a cipher from a 32-byte key.
func NewWordCipher(key []byte) (*WordCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length: %d", len(key))
	}
	c := &WordCipher{}
	copy(c.key[:], key)
	return c, nil
}

// apply XORs the XChaCha20 key stream for (nonce, idx) over w. The operation
// is its own inverse.
func (c *WordCipher) apply(nonce types.Nonce, idx int, w types.Word) types.Word {
	var xnonce [chacha20.NonceSizeX]byte
	copy(xnonce[:types.NonceLen], nonce.Bytes())
	binary.LittleEndian.PutUint32(xnonce[types.NonceLen:], uint32(idx))

	stream, err := chacha20.NewUnauthenticatedCipher(c.key[:], xnonce[:])
	if err != nil {
		// Only reachable with malformed sizes, which are fixed here.
		panic(err)
	}
	var out types.Word
	stream.XORKeyStream(out[:], w[:])
	return out
}

// EncryptWord encrypts an encoded plaintext word at position idx of a record
// versioned by nonce.
func (c *WordCipher) EncryptWord(nonce types.Nonce, idx int, w types.Word) types.Word {
	return c.apply(nonce, idx, w)
}

// DecryptWord reverses EncryptWord.
func (c *WordCipher) DecryptWord(nonce types.Nonce, idx int, w types.Word) types.Word {
	return c.apply(nonce, idx, w)
}

// EncodeU64 packs v into a word: 8 bytes little-endian followed by random
// padding, so equal values never produce equal words.
func EncodeU64(v uint64) types.Word {
	var w types.Word
	binary.LittleEndian.PutUint64(w[:8], v)
	if _, err := rand.Read(w[8:]); err != nil {
		panic(err)
	}
	return w
}

// DecodeU64 unpacks a word encoded by EncodeU64.
func DecodeU64(w types.Word) uint64 {
	return binary.LittleEndian.Uint64(w[:8])
}

// EncodeU16 packs v into a word with random padding.
func EncodeU16(v uint16) types.Word {
	var w types.Word
	binary.LittleEndian.PutUint16(w[:2], v)
	if _, err := rand.Read(w[2:]); err != nil {
		panic(err)
	}
	return w
}

// DecodeU16 unpacks a word encoded by EncodeU16.
func DecodeU16(w types.Word) uint16 {
	return binary.LittleEndian.Uint16(w[:2])
}

// EncodeU128 packs a 16-byte value into a word with random padding.
func EncodeU128(v [16]byte) types.Word {
	var w types.Word
	copy(w[:16], v[:])
	if _, err := rand.Read(w[16:]); err != nil {
		panic(err)
	}
	return w
}

// DecodeU128 unpacks a word encoded by EncodeU128.
func DecodeU128(w types.Word) [16]byte {
	var v [16]byte
	copy(v[:], w[:16])
	return v
}
