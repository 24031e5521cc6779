package mxe

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AttestationDigest computes the digest covered by a cluster attestation
// signature: keccak256 over the request handle, the circuit identifier and
// the canonical output bytes. Binding the handle and circuit into the digest
// is what makes replaying a genuine result against a different pending
// request detectable.
func AttestationDigest(handle uint64, circuit string, outputs []byte) common.Hash {
	var hb [8]byte
	binary.BigEndian.PutUint64(hb[:], handle)
	return common.BytesToHash(ethcrypto.Keccak256(hb[:], []byte(circuit), outputs))
}

// SignAttestation signs a digest with the cluster's attestation key.
func SignAttestation(priv *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	return ethcrypto.Sign(digest.Bytes(), priv)
}

// VerifyAttestation checks that sig over digest recovers the expected
// cluster attestation address.
func VerifyAttestation(cluster common.Address, digest common.Hash, sig []byte) error {
	pub, err := ethcrypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("recover attestation signer: %w", err)
	}
	if addr := ethcrypto.PubkeyToAddress(*pub); addr != cluster {
		return fmt.Errorf("attestation signer mismatch: got %s, want %s", addr, cluster)
	}
	return nil
}
