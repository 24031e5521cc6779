package mpc

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"
	"github.com/veilmarket/veilmarket/types"
)

func signedResult(c *qt.C) (*SignedResult, common.Address) {
	key, err := ethcrypto.GenerateKey()
	c.Assert(err, qt.IsNil)

	res := &SignedResult{
		Handle:  17,
		Circuit: CircuitVoteTokenBalance,
		Fields: []OutputField{
			BoolField(false),
			U64Field(30),
			BundleField(&types.EncryptedBundle{
				Nonce:       types.NonceFromUint64(2),
				Ciphertexts: make([]types.Word, types.BalanceWords),
			}),
		},
	}
	c.Assert(res.Sign(key), qt.IsNil)
	return res, ethcrypto.PubkeyToAddress(key.PublicKey)
}

func TestSignedResultVerify(t *testing.T) {
	c := qt.New(t)

	res, addr := signedResult(c)
	c.Assert(res.Verify(addr), qt.IsNil)
}

func TestSignedResultTamperDetection(t *testing.T) {
	c := qt.New(t)

	// flipping a revealed flag invalidates the attestation
	res, addr := signedResult(c)
	res.Fields[0].Bool = true
	c.Assert(res.Verify(addr), qt.IsNotNil)

	// so does changing the handle binding
	res, addr = signedResult(c)
	res.Handle++
	c.Assert(res.Verify(addr), qt.IsNotNil)

	// or the circuit binding
	res, addr = signedResult(c)
	res.Circuit = CircuitRevealShare
	c.Assert(res.Verify(addr), qt.IsNotNil)

	// an unsigned result never verifies
	res, addr = signedResult(c)
	res.Signature = nil
	c.Assert(res.Verify(addr), qt.IsNotNil)
}

func TestSignedResultOutputDecoding(t *testing.T) {
	c := qt.New(t)

	res, _ := signedResult(c)
	out, err := res.BalanceUpdate()
	c.Assert(err, qt.IsNil)
	c.Assert(out.Insufficient, qt.IsFalse)
	c.Assert(out.Sold, qt.Equals, uint64(30))
	c.Assert(out.Balance.Nonce.Uint64(), qt.Equals, uint64(2))

	// decoding through the wrong circuit shape fails
	_, err = res.BuyShares()
	c.Assert(err, qt.IsNotNil)
	_, err = res.DetermineWinner()
	c.Assert(err, qt.IsNotNil)
}

func TestWinnerReassembly(t *testing.T) {
	c := qt.New(t)

	var id types.AccountID
	for i := range id {
		id[i] = byte(i + 1)
	}
	out := &WinnerOutput{Payment: 65}
	copy(out.WinnerLo[:], id[:16])
	copy(out.WinnerHi[:], id[16:])
	c.Assert(out.Winner(), qt.Equals, id)
}
