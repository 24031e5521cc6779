package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/veilmarket/veilmarket/crypto/derive"
	"github.com/veilmarket/veilmarket/mpc"
	"github.com/veilmarket/veilmarket/storage"
	"github.com/veilmarket/veilmarket/types"
)

// TokenTransfer moves real collateral between participants and the protocol
// escrow. The engine never holds balances itself; it only instructs the
// backend when a revealed circuit output authorizes a movement.
type TokenTransfer interface {
	// Deposit moves amount of mint from the participant into escrow.
	Deposit(mint, from types.AccountID, amount uint64) error
	// Release moves amount of mint from escrow back to the participant.
	Release(mint, to types.AccountID, amount uint64) error
}

// InitVoteTokenAccount creates a vote-token account with an empty encrypted
// balance and queues its initialization circuit. Index 0 is the owner's
// canonical account; higher indexes create ephemeral accounts whose linkage
// to the canonical one stays off the ledger.
func (e *Engine) InitVoteTokenAccount(ctx context.Context, owner, mint types.AccountID,
	index uint64, userPubKey types.HexBytes,
) (*types.VoteTokenAccount, error) {
	id := derive.VoteTokenID(mint, owner, index)
	if _, err := e.stg.VoteTokenAccount(id); err == nil {
		return nil, fmt.Errorf("vote token account %s: %w", id, ErrAlreadyExists)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	vt := &types.VoteTokenAccount{
		ID:         id,
		Owner:      owner,
		TokenMint:  mint,
		Index:      index,
		UserPubKey: userPubKey,
	}
	if err := e.stg.SetVoteTokenAccount(vt); err != nil {
		return nil, err
	}
	rec := types.NewEncryptedRecord(owner, types.BalanceWords)
	if err := e.stg.SetRecord(id, &rec); err != nil {
		return nil, err
	}
	args := mpc.NewArgBuilder().PlaintextNonce(types.NonceFromUint64(1))
	_, err := e.queue(ctx, mpc.CircuitInitVoteTokenBalance, args,
		[]types.RecordID{id}, &callbackContext{Account: id})
	if err != nil {
		return nil, err
	}
	e.event("vote_token_account_created", id, map[string]string{
		"owner": owner.String(),
		"mint":  mint.String(),
		"index": strconv.FormatUint(index, 10),
	})
	return vt, nil
}

// balanceArgs builds the argument sequence of the balance circuit against
// the account's current record state.
func balanceArgs(rec *types.EncryptedRecord, id types.RecordID, amount uint64, sell bool) *mpc.ArgBuilder {
	return mpc.NewArgBuilder().
		PlaintextNonce(rec.StateNonce).
		Record(id, types.RecordStateOffset, types.BalanceWords*types.WordSize).
		PlaintextU64(amount).
		PlaintextBool(sell)
}

// MintVoteTokens escrows collateral and queues the circuit that folds it
// into the encrypted balance. The collateral is tracked as a pending deposit
// until the callback commits; if the computation aborts it stays claimable.
func (e *Engine) MintVoteTokens(ctx context.Context, owner, mint types.AccountID,
	index, amount uint64,
) (uint64, error) {
	id := derive.VoteTokenID(mint, owner, index)
	vt, err := e.stg.VoteTokenAccount(id)
	if err != nil {
		return 0, err
	}
	if vt.Owner != owner {
		return 0, ErrUnauthorized
	}
	if vt.TokenMint != mint {
		return 0, ErrInvalidMint
	}
	if vt.Locked {
		return 0, ErrAccountLocked
	}
	rec, err := e.stg.Record(id)
	if err != nil {
		return 0, err
	}
	if err := e.tokens.Deposit(mint, owner, amount); err != nil {
		return 0, fmt.Errorf("escrow deposit: %w", err)
	}
	vt.PendingDeposit += amount
	vt.Locked = true
	if err := e.stg.SetVoteTokenAccount(vt); err != nil {
		return 0, err
	}
	handle, err := e.queue(ctx, mpc.CircuitVoteTokenBalance,
		balanceArgs(rec, id, amount, false),
		[]types.RecordID{id},
		&callbackContext{Account: id, Owner: owner, Mint: mint, Amount: amount})
	if err != nil {
		return 0, err
	}
	return handle, nil
}

// SellVoteTokens queues the circuit that deducts tokens from the encrypted
// balance. Whether the balance covered the sale is only known at callback
// time; collateral is released then, and only for a covered sale.
func (e *Engine) SellVoteTokens(ctx context.Context, owner, mint types.AccountID,
	index, amount uint64,
) (uint64, error) {
	id := derive.VoteTokenID(mint, owner, index)
	vt, err := e.stg.VoteTokenAccount(id)
	if err != nil {
		return 0, err
	}
	if vt.Owner != owner {
		return 0, ErrUnauthorized
	}
	if vt.TokenMint != mint {
		return 0, ErrInvalidMint
	}
	if vt.Locked {
		return 0, ErrAccountLocked
	}
	rec, err := e.stg.Record(id)
	if err != nil {
		return 0, err
	}
	vt.Locked = true
	if err := e.stg.SetVoteTokenAccount(vt); err != nil {
		return 0, err
	}
	handle, err := e.queue(ctx, mpc.CircuitVoteTokenBalance,
		balanceArgs(rec, id, amount, true),
		[]types.RecordID{id},
		&callbackContext{Account: id, Owner: owner, Mint: mint, Amount: amount, Sell: true})
	if err != nil {
		return 0, err
	}
	return handle, nil
}

// ClaimPendingDeposit returns escrowed collateral that never made it into
// the encrypted balance, the escape hatch after an aborted mint.
func (e *Engine) ClaimPendingDeposit(owner, mint types.AccountID, index uint64) (uint64, error) {
	id := derive.VoteTokenID(mint, owner, index)
	vt, err := e.stg.VoteTokenAccount(id)
	if err != nil {
		return 0, err
	}
	if vt.Owner != owner {
		return 0, ErrUnauthorized
	}
	if vt.Locked {
		return 0, ErrAccountLocked
	}
	if vt.PendingDeposit == 0 {
		return 0, ErrNothingToClaim
	}
	amount := vt.PendingDeposit
	if err := e.tokens.Release(mint, owner, amount); err != nil {
		return 0, fmt.Errorf("escrow release: %w", err)
	}
	vt.PendingDeposit = 0
	if err := e.stg.SetVoteTokenAccount(vt); err != nil {
		return 0, err
	}
	e.event("pending_deposit_claimed", id, map[string]string{
		"amount": strconv.FormatUint(amount, 10),
	})
	return amount, nil
}

// commitBalanceUpdate commits a verified balance circuit result: the
// re-encrypted balance always replaces the record, while the escrow effect
// depends on the revealed insufficient flag.
func (e *Engine) commitBalanceUpdate(pc *storage.PendingComputation, cctx *callbackContext, res *mpc.SignedResult) error {
	out, err := res.BalanceUpdate()
	if err != nil {
		return err
	}
	if len(pc.Records) != 1 {
		return fmt.Errorf("balance circuit bound to %d records, want 1", len(pc.Records))
	}
	if err := e.commitBundle(pc.Records[0], out.Balance); err != nil {
		return err
	}
	vt, err := e.stg.VoteTokenAccount(cctx.Account)
	if err != nil {
		return err
	}
	vt.Locked = false
	if cctx.Sell {
		if !out.Insufficient {
			if err := e.tokens.Release(cctx.Mint, cctx.Owner, out.Sold); err != nil {
				return fmt.Errorf("escrow release: %w", err)
			}
		}
		e.event("vote_tokens_sold", cctx.Account, map[string]string{
			"insufficient": strconv.FormatBool(out.Insufficient),
			"sold":         strconv.FormatUint(out.Sold, 10),
		})
	} else {
		if vt.PendingDeposit < cctx.Amount {
			return fmt.Errorf("pending deposit %d below minted amount %d", vt.PendingDeposit, cctx.Amount)
		}
		vt.PendingDeposit -= cctx.Amount
		e.event("vote_tokens_minted", cctx.Account, map[string]string{
			"amount": strconv.FormatUint(cctx.Amount, 10),
		})
	}
	return e.stg.SetVoteTokenAccount(vt)
}
