package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
)

// ErrHoldReversed rejects releasing a hold whose funds were already refunded.
// A hold settles exactly one way: released to the host or refunded to the
// guest, never both.
var ErrHoldReversed = errors.New("hold has already been reversed")

// Reference prefixes derived from the originating transaction. Deterministic
// derivation makes the sweep, reversal, and refund paths idempotent without
// extra bookkeeping tables.
const (
	releasePrefix  = "REL-"
	reversalPrefix = "RVSL-"
	refundPrefix   = "RFND-"
)

// ReleaseReference derives the release row reference from a hold reference
func ReleaseReference(holdReference string) string {
	return releasePrefix + holdReference
}

// ReversalReference derives the reversal row reference from the reference of
// the transaction being undone (a failed withdrawal or a reversed hold).
func ReversalReference(reference string) string {
	return reversalPrefix + reference
}

// RefundReference derives the guest-credit row reference for a refunded hold
func RefundReference(holdReference string) string {
	return refundPrefix + holdReference
}

// ReleaseHold moves a matured hold's funds from pending to available on the
// hold's wallet. Safe to call repeatedly for the same hold; the derived
// release reference makes the second call a replay. A hold that was already
// refunded is refused with ErrHoldReversed.
func (m *Mutator) ReleaseHold(ctx context.Context, hold *transaction.Transaction) (*Result, error) {
	mut := Mutation{
		WalletID:             hold.WalletID,
		Op:                   OpRelease,
		Amount:               hold.Amount,
		Reference:            ReleaseReference(hold.Reference),
		BookingID:            hold.BookingID,
		RelatedTransactionID: &hold.ID,
	}
	if err := mut.validate(); err != nil {
		return nil, err
	}

	var res *Result
	err := m.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := m.setLockTimeout(ctx, tx); err != nil {
			return err
		}
		if _, err := m.wallets.WithTx(tx).LockForUpdate(ctx, hold.WalletID); err != nil {
			return err
		}

		// The reversal check serializes behind the wallet lock, so a
		// concurrent refund of the same hold cannot slip in between.
		reversal, err := m.transactions.WithTx(tx).GetByReference(ctx, ReversalReference(hold.Reference))
		if err != nil {
			return err
		}
		if reversal != nil {
			return ErrHoldReversed
		}

		r, err := m.applyInTx(ctx, tx, mut)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, m.classify(err, mut)
	}

	m.logger.Info("Hold released",
		"hold_id", hold.ID.String(),
		"wallet_id", hold.WalletID.String(),
		"amount", hold.Amount.String(),
		"reference", mut.Reference,
		"replayed", res.Replayed,
	)
	return res, nil
}

// RefundResult carries both legs of a refunded hold
type RefundResult struct {
	Reversal *transaction.Transaction
	Refund   *transaction.Transaction
	Replayed bool
}

// RefundHold cancels a hold before it matures: the pending funds leave the
// holder's wallet and the payer's wallet is credited, in one database
// transaction. Both legs derive their references from the hold, so redelivered
// refund events replay cleanly.
func (m *Mutator) RefundHold(ctx context.Context, hold *transaction.Transaction, payerWalletID uuid.UUID) (*RefundResult, error) {
	reverseMut := Mutation{
		WalletID:             hold.WalletID,
		Op:                   OpReverseHold,
		Amount:               hold.Amount,
		Reference:            ReversalReference(hold.Reference),
		BookingID:            hold.BookingID,
		RelatedTransactionID: &hold.ID,
	}

	var res *RefundResult
	err := m.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := m.setLockTimeout(ctx, tx); err != nil {
			return err
		}
		if err := m.lockPair(ctx, tx, hold.WalletID, payerWalletID); err != nil {
			return err
		}

		reversal, err := m.applyInTx(ctx, tx, reverseMut)
		if err != nil {
			return err
		}

		refund, err := m.applyInTx(ctx, tx, Mutation{
			WalletID:             payerWalletID,
			Op:                   OpRefund,
			Amount:               hold.Amount,
			Reference:            RefundReference(hold.Reference),
			BookingID:            hold.BookingID,
			RelatedTransactionID: &reversal.Transaction.ID,
		})
		if err != nil {
			return err
		}

		// Both legs committed together originally, so they must replay
		// together too.
		if reversal.Replayed != refund.Replayed {
			return transaction.ErrDuplicateReference{Reference: reverseMut.Reference}
		}

		res = &RefundResult{
			Reversal: reversal.Transaction,
			Refund:   refund.Transaction,
			Replayed: reversal.Replayed,
		}
		return nil
	})
	if err != nil {
		return nil, m.classify(err, reverseMut)
	}

	m.logger.Info("Hold refunded",
		"hold_id", hold.ID.String(),
		"wallet_id", hold.WalletID.String(),
		"payer_wallet_id", payerWalletID.String(),
		"amount", hold.Amount.String(),
		"replayed", res.Replayed,
	)
	return res, nil
}
