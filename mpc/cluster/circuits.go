package cluster

import (
	"fmt"

	"github.com/veilmarket/veilmarket/crypto/mxe"
	"github.com/veilmarket/veilmarket/mpc"
	"github.com/veilmarket/veilmarket/types"
)

// Word counts of the encrypted states operated on by the circuit family.
const (
	balanceWords      = types.BalanceWords
	positionWords     = types.ShareWords
	auctionStateWords = types.AuctionWords
	marketStateWords  = types.MarketWords
)

// Auction aggregate layout: [winner_lo, winner_hi, highest, second, count].
const (
	auctionWinnerLo = iota
	auctionWinnerHi
	auctionHighest
	auctionSecond
	auctionCount
)

// sel is the branch-free selection primitive: it returns onTrue when cond
// holds and onFalse otherwise. Every error path of a circuit goes through it
// so that failed and successful operations produce shape-identical outputs.
func sel(cond bool, onTrue, onFalse uint64) uint64 {
	if cond {
		return onTrue
	}
	return onFalse
}

func sel128(cond bool, onTrue, onFalse [16]byte) [16]byte {
	if cond {
		return onTrue
	}
	return onFalse
}

// readState resolves a record reference and returns its ciphertext words.
// The reference must be word-aligned within the record's ciphertext area.
func (c *Cluster) readState(ref mpc.RecordRef, words int) ([]types.Word, error) {
	if ref.Offset != types.RecordStateOffset || ref.Length%types.WordSize != 0 {
		return nil, fmt.Errorf("misaligned record reference [%d:%d]", ref.Offset, ref.Length)
	}
	if int(ref.Length)/types.WordSize != words {
		return nil, fmt.Errorf("record reference covers %d words, circuit expects %d",
			ref.Length/types.WordSize, words)
	}
	rec, err := c.reader.EncryptedRecord(ref.Address)
	if err != nil {
		return nil, fmt.Errorf("resolve record %s: %w", ref.Address, err)
	}
	raw, err := rec.ReadRange(ref.Offset, ref.Length)
	if err != nil {
		return nil, err
	}
	out := make([]types.Word, words)
	for i := range out {
		copy(out[i][:], raw[i*types.WordSize:])
	}
	return out, nil
}

// decode decrypts one word of a record state. A zero nonce marks a freshly
// created record whose all-zero words are read as plaintext zeros.
func (c *Cluster) decode(nonce types.Nonce, idx int, w types.Word) types.Word {
	if nonce.IsZero() {
		return w
	}
	return c.words.DecryptWord(nonce, idx, w)
}

// bundle encrypts the encoded words under nonce and wraps them.
func (c *Cluster) bundle(nonce types.Nonce, words ...types.Word) *types.EncryptedBundle {
	enc := make([]types.Word, len(words))
	for i := range words {
		enc[i] = c.words.EncryptWord(nonce, i, words[i])
	}
	return &types.EncryptedBundle{Nonce: nonce, Ciphertexts: enc}
}

// initState encrypts an all-zero state of n words under the request nonce.
func (c *Cluster) initState(r *mpc.ArgReader, n int) ([]mpc.OutputField, error) {
	nonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	words := make([]types.Word, n)
	for i := range words {
		words[i] = mxe.EncodeU64(0)
	}
	return []mpc.OutputField{mpc.BundleField(c.bundle(nonce, words...))}, nil
}

// voteTokenBalance applies a buy or sell to an encrypted balance. On an
// insufficient sell the balance is left numerically unchanged but still
// re-encrypted, so the output is indistinguishable from a success.
func (c *Cluster) voteTokenBalance(r *mpc.ArgReader) ([]mpc.OutputField, error) {
	nonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	ref, err := r.Ref()
	if err != nil {
		return nil, err
	}
	amount, err := r.U64()
	if err != nil {
		return nil, err
	}
	sell, err := r.Bool()
	if err != nil {
		return nil, err
	}
	state, err := c.readState(ref, balanceWords)
	if err != nil {
		return nil, err
	}
	balance := mxe.DecodeU64(c.decode(nonce, 0, state[0]))

	sold := sel(sell, amount, 0)
	insufficient := sell && amount > balance
	newBalance := sel(sell,
		sel(insufficient, balance, balance-sold),
		balance+amount)

	out := c.bundle(nonce.Next(), mxe.EncodeU64(newBalance))
	return []mpc.OutputField{
		mpc.BoolField(insufficient),
		mpc.U64Field(sold),
		mpc.BundleField(out),
	}, nil
}

// buyMarketShares moves tokens from the payer balance into the market state
// and records the position. The market state is [pool_total, per-option
// totals]; the amount is folded into word 0 and into the selected option's
// word. Invalid option and insufficient balance collapse into one revealed
// flag; under error every quantity is re-encrypted unchanged.
func (c *Cluster) buyMarketShares(r *mpc.ArgReader) ([]mpc.OutputField, error) {
	clientPub, err := r.PubKey()
	if err != nil {
		return nil, err
	}
	inputNonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	encAmount, err := r.Word()
	if err != nil {
		return nil, err
	}
	encOption, err := r.Word()
	if err != nil {
		return nil, err
	}
	payerNonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	payerRef, err := r.Ref()
	if err != nil {
		return nil, err
	}
	poolNonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	poolRef, err := r.Ref()
	if err != nil {
		return nil, err
	}
	posNonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	posRef, err := r.Ref()
	if err != nil {
		return nil, err
	}
	totalOptions, err := r.U16()
	if err != nil {
		return nil, err
	}

	shared, err := mxe.SharedCipher(c.x25519, clientPub)
	if err != nil {
		return nil, err
	}
	amount := mxe.DecodeU64(shared.DecryptWord(inputNonce, 0, encAmount))
	option := mxe.DecodeU16(shared.DecryptWord(inputNonce, 1, encOption))

	payerState, err := c.readState(payerRef, balanceWords)
	if err != nil {
		return nil, err
	}
	poolState, err := c.readState(poolRef, marketStateWords)
	if err != nil {
		return nil, err
	}
	posState, err := c.readState(posRef, positionWords)
	if err != nil {
		return nil, err
	}
	payer := mxe.DecodeU64(c.decode(payerNonce, 0, payerState[0]))
	pool := make([]uint64, marketStateWords)
	for i := range pool {
		pool[i] = mxe.DecodeU64(c.decode(poolNonce, i, poolState[i]))
	}
	posAmount := mxe.DecodeU64(c.decode(posNonce, 0, posState[0]))
	posOption := mxe.DecodeU16(c.decode(posNonce, 1, posState[1]))

	invalidOption := option >= totalOptions || int(option) >= marketStateWords-1
	insufficient := amount > payer
	hasError := invalidOption || insufficient

	newPayer := sel(hasError, payer, payer-amount)
	newPool := make([]types.Word, marketStateWords)
	newPool[0] = mxe.EncodeU64(sel(hasError, pool[0], pool[0]+amount))
	for i := 1; i < marketStateWords; i++ {
		hit := !hasError && int(option) == i-1
		newPool[i] = mxe.EncodeU64(sel(hit, pool[i]+amount, pool[i]))
	}
	newPosAmount := sel(hasError, posAmount, posAmount+amount)
	newPosOption := uint16(sel(hasError, uint64(posOption), uint64(option)))

	return []mpc.OutputField{
		mpc.BoolField(hasError),
		mpc.BundleField(c.bundle(payerNonce.Next(), mxe.EncodeU64(newPayer))),
		mpc.BundleField(c.bundle(poolNonce.Next(), newPool...)),
		mpc.BundleField(c.bundle(posNonce.Next(),
			mxe.EncodeU64(newPosAmount), mxe.EncodeU16(newPosOption))),
	}, nil
}

// revealShare opens a position against the market's selected option. The
// amount is disclosed only when the position was staked on that option; the
// position itself is re-encrypted unchanged either way.
func (c *Cluster) revealShare(r *mpc.ArgReader) ([]mpc.OutputField, error) {
	selected, err := r.U16()
	if err != nil {
		return nil, err
	}
	posNonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	posRef, err := r.Ref()
	if err != nil {
		return nil, err
	}
	posState, err := c.readState(posRef, positionWords)
	if err != nil {
		return nil, err
	}
	amount := mxe.DecodeU64(c.decode(posNonce, 0, posState[0]))
	option := mxe.DecodeU16(c.decode(posNonce, 1, posState[1]))

	matched := option == selected
	return []mpc.OutputField{
		mpc.BoolField(matched),
		mpc.U64Field(sel(matched, amount, 0)),
		mpc.U64Field(sel(matched, uint64(option), 0)),
		mpc.BundleField(c.bundle(posNonce.Next(),
			mxe.EncodeU64(amount), mxe.EncodeU16(option))),
	}, nil
}

// placeBid folds an encrypted bid into the auction aggregate. Nothing is
// revealed; losing and winning bids rewrite the aggregate identically in
// shape.
func (c *Cluster) placeBid(r *mpc.ArgReader) ([]mpc.OutputField, error) {
	clientPub, err := r.PubKey()
	if err != nil {
		return nil, err
	}
	inputNonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	encBidderLo, err := r.Word()
	if err != nil {
		return nil, err
	}
	encBidderHi, err := r.Word()
	if err != nil {
		return nil, err
	}
	encAmount, err := r.Word()
	if err != nil {
		return nil, err
	}
	nonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	ref, err := r.Ref()
	if err != nil {
		return nil, err
	}

	shared, err := mxe.SharedCipher(c.x25519, clientPub)
	if err != nil {
		return nil, err
	}
	bidderLo := mxe.DecodeU128(shared.DecryptWord(inputNonce, 0, encBidderLo))
	bidderHi := mxe.DecodeU128(shared.DecryptWord(inputNonce, 1, encBidderHi))
	amount := mxe.DecodeU64(shared.DecryptWord(inputNonce, 2, encAmount))

	state, err := c.readState(ref, auctionStateWords)
	if err != nil {
		return nil, err
	}
	winnerLo := mxe.DecodeU128(c.decode(nonce, auctionWinnerLo, state[auctionWinnerLo]))
	winnerHi := mxe.DecodeU128(c.decode(nonce, auctionWinnerHi, state[auctionWinnerHi]))
	highest := mxe.DecodeU64(c.decode(nonce, auctionHighest, state[auctionHighest]))
	second := mxe.DecodeU64(c.decode(nonce, auctionSecond, state[auctionSecond]))
	count := mxe.DecodeU64(c.decode(nonce, auctionCount, state[auctionCount]))

	leads := amount > highest
	beatsSecond := amount > second

	newSecond := sel(leads, highest, sel(beatsSecond, amount, second))
	newHighest := sel(leads, amount, highest)
	newWinnerLo := sel128(leads, bidderLo, winnerLo)
	newWinnerHi := sel128(leads, bidderHi, winnerHi)

	out := c.bundle(nonce.Next(),
		mxe.EncodeU128(newWinnerLo),
		mxe.EncodeU128(newWinnerHi),
		mxe.EncodeU64(newHighest),
		mxe.EncodeU64(newSecond),
		mxe.EncodeU64(count+1))
	return []mpc.OutputField{mpc.BundleField(out)}, nil
}

// determineWinner reveals exactly the winner identity and the payment
// amount: the highest bid for first-price, the second-highest for Vickrey.
func (c *Cluster) determineWinner(r *mpc.ArgReader, vickrey bool) ([]mpc.OutputField, error) {
	nonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	ref, err := r.Ref()
	if err != nil {
		return nil, err
	}
	state, err := c.readState(ref, auctionStateWords)
	if err != nil {
		return nil, err
	}
	winnerLo := mxe.DecodeU128(c.decode(nonce, auctionWinnerLo, state[auctionWinnerLo]))
	winnerHi := mxe.DecodeU128(c.decode(nonce, auctionWinnerHi, state[auctionWinnerHi]))
	highest := mxe.DecodeU64(c.decode(nonce, auctionHighest, state[auctionHighest]))
	second := mxe.DecodeU64(c.decode(nonce, auctionSecond, state[auctionSecond]))

	payment := sel(vickrey, second, highest)
	return []mpc.OutputField{
		mpc.U128Field(winnerLo),
		mpc.U128Field(winnerHi),
		mpc.U64Field(payment),
	}, nil
}
