package handler

import (
	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
)

// FundRequest opens a hosted checkout for the given amount. Amounts cross the
// API as decimal strings to keep money exact.
type FundRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// PayRequest debits the wallet for a booking payment
type PayRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Reference string `json:"reference" binding:"required"`
	BookingID string `json:"booking_id,omitempty" binding:"omitempty,uuid"`
}

// TransferRequest moves funds to another wallet by address
type TransferRequest struct {
	Amount        string `json:"amount" binding:"required"`
	Reference     string `json:"reference" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// WithdrawRequest queues a payout to an external bank account
type WithdrawRequest struct {
	Amount        string `json:"amount" binding:"required"`
	Reference     string `json:"reference" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	AccountName   string `json:"account_name,omitempty"`
	BankCode      string `json:"bank_code" binding:"required"`
}

// WalletResponse represents a wallet in API responses
type WalletResponse struct {
	ID                string `json:"id"`
	WalletAddress     string `json:"wallet_address"`
	AvailableBalance  string `json:"available_balance"`
	PendingBalance    string `json:"pending_balance"`
	TotalBalance      string `json:"total_balance"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	AccountNumber     string `json:"account_number,omitempty"`
	AccountName       string `json:"account_name,omitempty"`
	BankName          string `json:"bank_name,omitempty"`
	LastTransactionAt string `json:"last_transaction_at,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// TransactionResponse represents a ledger transaction in API responses
type TransactionResponse struct {
	ID               string `json:"id"`
	WalletID         string `json:"wallet_id"`
	Type             string `json:"type"`
	Amount           string `json:"amount"`
	SignedAmount     string `json:"signed_amount"`
	BalanceAfter     string `json:"balance_after"`
	AvailableAfter   string `json:"available_after"`
	PendingAfter     string `json:"pending_after"`
	Reference        string `json:"reference"`
	Status           string `json:"status"`
	BookingID        string `json:"booking_id,omitempty"`
	GatewayReference string `json:"gateway_reference,omitempty"`
	ReleaseDate      string `json:"release_date,omitempty"`
	CreatedAt        string `json:"created_at"`
	CompletedAt      string `json:"completed_at,omitempty"`
}

// CheckoutResponse carries the hosted checkout a funding request opened
type CheckoutResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// TransferResponse carries both legs of a completed transfer
type TransferResponse struct {
	Out              TransactionResponse `json:"out"`
	In               TransactionResponse `json:"in"`
	AvailableBalance string              `json:"available_balance"`
	Replayed         bool                `json:"replayed"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// HistoryParams narrows transaction history queries
type HistoryParams struct {
	PaginationParams
	Type   string `form:"type" binding:"omitempty,oneof=credit debit refund withdrawal transfer_in transfer_out"`
	Status string `form:"status" binding:"omitempty,oneof=pending processing completed failed cancelled reversed"`
	From   string `form:"from" binding:"omitempty"`
	To     string `form:"to" binding:"omitempty"`
}

// StatementParams bounds statement reads to a date range
type StatementParams struct {
	PaginationParams
	From string `form:"from" binding:"omitempty"`
	To   string `form:"to" binding:"omitempty"`
}

func toWalletResponse(w *wallet.Wallet) WalletResponse {
	resp := WalletResponse{
		ID:               w.ID.String(),
		WalletAddress:    w.WalletAddress,
		AvailableBalance: w.AvailableBalance.StringFixed(2),
		PendingBalance:   w.PendingBalance.StringFixed(2),
		TotalBalance:     w.TotalBalance().StringFixed(2),
		Currency:         w.Currency,
		Status:           string(w.Status),
		AccountNumber:    w.AccountNumber,
		AccountName:      w.AccountName,
		BankName:         w.BankName,
		CreatedAt:        w.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if w.LastTransactionAt != nil {
		resp.LastTransactionAt = w.LastTransactionAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

func toTransactionResponse(t *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:               t.ID.String(),
		WalletID:         t.WalletID.String(),
		Type:             string(t.Type),
		Amount:           t.Amount.StringFixed(2),
		SignedAmount:     t.SignedAmount().StringFixed(2),
		BalanceAfter:     t.BalanceAfter.StringFixed(2),
		AvailableAfter:   t.AvailableBalanceAfter.StringFixed(2),
		PendingAfter:     t.PendingBalanceAfter.StringFixed(2),
		Reference:        t.Reference,
		Status:           string(t.Status),
		GatewayReference: t.GatewayReference,
		CreatedAt:        t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if t.BookingID != nil {
		resp.BookingID = t.BookingID.String()
	}
	if t.ReleaseDate != nil {
		resp.ReleaseDate = t.ReleaseDate.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if t.CompletedAt != nil {
		resp.CompletedAt = t.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

func toTransactionResponses(txns []*transaction.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionResponse(t))
	}
	return out
}
