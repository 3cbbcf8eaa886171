package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Sahar009/awari-backend-sub002/internal/api/middleware"
	"github.com/Sahar009/awari-backend-sub002/internal/api/service"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
	"github.com/Sahar009/awari-backend-sub002/internal/ledger"
	"github.com/Sahar009/awari-backend-sub002/internal/withdrawal"
)

// WalletHandler handles wallet API requests
type WalletHandler struct {
	logger  *slog.Logger
	service service.WalletService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService) *WalletHandler {
	return &WalletHandler{
		logger:  logger,
		service: walletService,
	}
}

// Get handles GET /api/v1/wallet requests. The wallet is created and
// provisioned on first access.
func (h *WalletHandler) Get(c *gin.Context) {
	owner, ok := callerOwner(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	w, err := h.service.GetWallet(c.Request.Context(), owner)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondOK(c, toWalletResponse(w))
}

// Fund handles POST /api/v1/wallet/fund requests, opening a hosted checkout
func (h *WalletHandler) Fund(c *gin.Context) {
	owner, ok := callerOwner(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	checkout, err := h.service.InitiateFunding(c.Request.Context(), owner, amount)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondOK(c, CheckoutResponse{
		AuthorizationURL: checkout.AuthorizationURL,
		AccessCode:       checkout.AccessCode,
		Reference:        checkout.Reference,
	})
}

// Pay handles POST /api/v1/wallet/pay requests, debiting the wallet for a
// booking payment. Repeating a reference returns the prior transaction.
func (h *WalletHandler) Pay(c *gin.Context) {
	owner, ok := callerOwner(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	var bookingID *uuid.UUID
	if req.BookingID != "" {
		id, err := uuid.Parse(req.BookingID)
		if err != nil {
			RespondBadRequest(c, "booking_id must be a valid UUID")
			return
		}
		bookingID = &id
	}

	result, err := h.service.Pay(c.Request.Context(), owner, amount, req.Reference, bookingID)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	if result.Replayed {
		RespondOK(c, toTransactionResponse(result.Transaction))
		return
	}
	RespondCreated(c, toTransactionResponse(result.Transaction))
}

// Transfer handles POST /api/v1/wallet/transfer requests
func (h *WalletHandler) Transfer(c *gin.Context) {
	owner, ok := callerOwner(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	result, err := h.service.Transfer(c.Request.Context(), owner, req.WalletAddress, amount, req.Reference)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	resp := TransferResponse{
		Out:              toTransactionResponse(result.Out),
		In:               toTransactionResponse(result.In),
		AvailableBalance: result.SourceWallet.AvailableBalance.StringFixed(2),
		Replayed:         result.Replayed,
	}
	if result.Replayed {
		RespondOK(c, resp)
		return
	}
	RespondCreated(c, resp)
}

// Withdraw handles POST /api/v1/wallet/withdraw requests. The debit applies
// immediately; the payout waits for admin approval.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	owner, ok := callerOwner(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	result, err := h.service.Withdraw(c.Request.Context(), owner, amount, req.Reference, withdrawal.BankAccount{
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		BankCode:      req.BankCode,
	})
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	if result.Replayed {
		RespondOK(c, toTransactionResponse(result.Transaction))
		return
	}
	RespondAccepted(c, toTransactionResponse(result.Transaction))
}

// ListTransactions handles GET /api/v1/wallet/transactions requests
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	owner, ok := callerOwner(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var params HistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	filter, ok := buildFilter(c, params)
	if !ok {
		return
	}

	txns, total, err := h.service.ListTransactions(c.Request.Context(), owner, filter, params.Page, params.PerPage)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondWithPaginatedData(c, 200, toTransactionResponses(txns), params.Page, params.PerPage, total)
}

// GetStatement handles GET /api/v1/wallet/statement requests, served from the
// archive read model.
func (h *WalletHandler) GetStatement(c *gin.Context) {
	owner, ok := callerOwner(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var params StatementParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	from, to, ok := parseDateRange(c, params.From, params.To)
	if !ok {
		return
	}

	entries, total, err := h.service.GetStatement(c.Request.Context(), owner, from, to, params.Page, params.PerPage)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondWithPaginatedData(c, 200, entries, params.Page, params.PerPage, total)
}

// respondLedgerError maps ledger and wallet errors onto HTTP statuses
func (h *WalletHandler) respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound{}):
		RespondNotFound(c, "Wallet not found")
	case errors.Is(err, transaction.ErrTransactionNotFound{}):
		RespondNotFound(c, "Transaction not found")
	case errors.Is(err, wallet.ErrInsufficientFunds{}):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", "Available balance does not cover the requested amount")
	case errors.Is(err, wallet.ErrWalletInactive{}):
		RespondConflict(c, "WALLET_INACTIVE", "Wallet does not accept transactions in its current status")
	case errors.Is(err, wallet.ErrLockTimeout{}):
		RespondWithError(c, 503, "WALLET_BUSY", "Wallet is processing another transaction, retry shortly")
	case errors.Is(err, transaction.ErrDuplicateReference{}):
		RespondConflict(c, "DUPLICATE_REFERENCE", "Reference was already used by a different transaction")
	case errors.Is(err, ledger.ErrSelfTransfer):
		RespondBadRequest(c, "Cannot transfer to your own wallet")
	case errors.Is(err, ledger.ErrEmptyReference),
		errors.Is(err, transaction.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInvalidAmount):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Unhandled wallet API error",
			"correlation_id", middleware.GetCorrelationID(c),
			"error", err,
		)
		RespondInternalError(c)
	}
}

func callerOwner(c *gin.Context) (service.Owner, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return service.Owner{}, false
	}
	return service.Owner{
		UserID: identity.UserID,
		Email:  identity.Email,
		Name:   identity.Name,
	}, true
}

func parseAmount(c *gin.Context, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		RespondBadRequest(c, "amount must be a decimal string")
		return decimal.Zero, false
	}
	if !amount.IsPositive() {
		RespondBadRequest(c, "amount must be positive")
		return decimal.Zero, false
	}
	return amount, true
}

func parseDateRange(c *gin.Context, fromRaw, toRaw string) (time.Time, time.Time, bool) {
	from := time.Time{}
	to := time.Now()

	if fromRaw != "" {
		parsed, err := time.Parse(time.RFC3339, fromRaw)
		if err != nil {
			RespondBadRequest(c, "from must be an RFC3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if toRaw != "" {
		parsed, err := time.Parse(time.RFC3339, toRaw)
		if err != nil {
			RespondBadRequest(c, "to must be an RFC3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	if to.Before(from) {
		RespondBadRequest(c, "to must not precede from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func buildFilter(c *gin.Context, params HistoryParams) (transaction.Filter, bool) {
	var filter transaction.Filter
	if params.Type != "" {
		t := transaction.Type(params.Type)
		filter.Type = &t
	}
	if params.Status != "" {
		s := transaction.Status(params.Status)
		filter.Status = &s
	}
	if params.From != "" || params.To != "" {
		from, to, ok := parseDateRange(c, params.From, params.To)
		if !ok {
			return transaction.Filter{}, false
		}
		if params.From != "" {
			filter.From = &from
		}
		filter.To = &to
	}
	return filter, true
}
