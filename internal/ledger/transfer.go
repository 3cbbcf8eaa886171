package ledger

import (
	"bytes"
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
)

// InReference derives the credit-leg reference of a transfer from the
// client-supplied reference, which names the debit leg.
func InReference(reference string) string {
	return reference + "-IN"
}

// TransferResult carries both legs of a completed wallet-to-wallet transfer
type TransferResult struct {
	Out          *transaction.Transaction
	In           *transaction.Transaction
	SourceWallet *wallet.Wallet
	DestWallet   *wallet.Wallet
	Replayed     bool
}

// Transfer moves funds between two wallets atomically. The destination is
// addressed by its wallet address. Both wallet rows are locked in ascending
// id order before either balance moves, so two opposing transfers cannot
// deadlock. A replayed reference returns both prior legs unchanged.
func (m *Mutator) Transfer(ctx context.Context, sourceWalletID uuid.UUID, destAddress string, amount decimal.Decimal, reference string, metadata map[string]any) (*TransferResult, error) {
	if reference == "" {
		return nil, ErrEmptyReference
	}
	if !amount.IsPositive() {
		return nil, transaction.ErrInvalidAmount
	}

	dest, err := m.wallets.GetByAddress(ctx, destAddress)
	if err != nil {
		return nil, err
	}
	if dest.ID == sourceWalletID {
		return nil, ErrSelfTransfer
	}
	if !dest.Active() {
		return nil, wallet.ErrWalletInactive{WalletID: dest.ID, Status: dest.Status}
	}

	outMut := Mutation{
		WalletID:  sourceWalletID,
		Op:        OpTransferOut,
		Amount:    amount,
		Reference: reference,
		Metadata:  metadata,
	}
	inMut := Mutation{
		WalletID:  dest.ID,
		Op:        OpTransferIn,
		Amount:    amount,
		Reference: InReference(reference),
		Metadata:  metadata,
	}

	var res *TransferResult
	err = m.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := m.setLockTimeout(ctx, tx); err != nil {
			return err
		}

		// Lock both rows up front in a deterministic order. applyInTx
		// re-locks each row, which is a no-op within the same transaction.
		if err := m.lockPair(ctx, tx, sourceWalletID, dest.ID); err != nil {
			return err
		}

		out, err := m.applyInTx(ctx, tx, outMut)
		if err != nil {
			return err
		}

		inMut.RelatedTransactionID = &out.Transaction.ID
		in, err := m.applyInTx(ctx, tx, inMut)
		if err != nil {
			return err
		}

		// Both legs commit in one transaction, so a genuine retry replays
		// them together. A half-replayed pair means one leg's reference
		// belongs to something other than this transfer.
		if out.Replayed != in.Replayed {
			return transaction.ErrDuplicateReference{Reference: reference}
		}

		if !out.Replayed {
			if err := m.transactions.WithTx(tx).LinkRelated(ctx, out.Transaction.ID, in.Transaction.ID); err != nil {
				return err
			}
		}

		res = &TransferResult{
			Out:          out.Transaction,
			In:           in.Transaction,
			SourceWallet: out.Wallet,
			DestWallet:   in.Wallet,
			Replayed:     out.Replayed,
		}
		return nil
	})
	if err != nil {
		return nil, m.classify(err, outMut)
	}

	m.logger.Info("Transfer applied",
		"source_wallet_id", sourceWalletID.String(),
		"dest_wallet_id", dest.ID.String(),
		"amount", amount.String(),
		"reference", reference,
		"replayed", res.Replayed,
	)
	return res, nil
}

func (m *Mutator) lockPair(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) error {
	first, second := a, b
	if bytes.Compare(b[:], a[:]) < 0 {
		first, second = b, a
	}
	walletsTx := m.wallets.WithTx(tx)
	if _, err := walletsTx.LockForUpdate(ctx, first); err != nil {
		return err
	}
	if _, err := walletsTx.LockForUpdate(ctx, second); err != nil {
		return err
	}
	return nil
}
