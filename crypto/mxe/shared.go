package mxe

import (
	"crypto/rand"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/curve25519"
)

// sharedKeyContext domain-separates the shared-secret key derivation.
const sharedKeyContext = "veilmarket/mxe/shared-word-key/v1"

// GenerateX25519Key generates a fresh x25519 key pair. The public half is
// attached to requests so the cluster can decrypt client-supplied ciphertext
// arguments (and address revealed outputs to the client).
func GenerateX25519Key() (priv, pub [32]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, err
	}
	pubSlice, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], pubSlice)
	return priv, pub, nil
}

// SharedCipher derives the word cipher shared between the holder of priv and
// the holder of the key pair behind peerPub. Both sides derive the same
// cipher, so a client can encrypt input words that only the cluster can read.
func SharedCipher(priv, peerPub [32]byte) (*WordCipher, error) {
	secret, err := curve25519.X25519(priv[:], peerPub[:])
	if err != nil {
		return nil, fmt.Errorf("x25519: %w", err)
	}
	h := blake3.NewDeriveKey(sharedKeyContext)
	if _, err := h.Write(secret); err != nil {
		return nil, err
	}
	return NewWordCipher(h.Sum(nil)[:KeySize])
}
