package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Sahar009/awari-backend-sub002/internal/api/middleware"
	"github.com/Sahar009/awari-backend-sub002/internal/api/service"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/withdrawal"
)

// AdminHandler handles admin decisions on queued withdrawals
type AdminHandler struct {
	logger  *slog.Logger
	service service.WithdrawalAdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, adminService service.WithdrawalAdminService) *AdminHandler {
	return &AdminHandler{
		logger:  logger,
		service: adminService,
	}
}

// Approve handles POST /api/v1/admin/withdrawals/:id/approve requests,
// initiating the gateway payout.
func (h *AdminHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject handles POST /api/v1/admin/withdrawals/:id/reject requests,
// cancelling the withdrawal and refunding the wallet.
func (h *AdminHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *AdminHandler) decide(c *gin.Context, decision func(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "id must be a valid UUID")
		return
	}

	txn, err := decision(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, transaction.ErrTransactionNotFound{}):
			RespondNotFound(c, "Withdrawal not found")
		case errors.Is(err, withdrawal.ErrNotWithdrawal):
			RespondNotFound(c, "Transaction is not a withdrawal")
		case errors.Is(err, transaction.ErrInvalidTransition{}):
			RespondConflict(c, "INVALID_STATE", "Withdrawal is not awaiting review")
		default:
			h.logger.Error("Withdrawal decision failed",
				"correlation_id", middleware.GetCorrelationID(c),
				"transaction_id", id.String(),
				"error", err,
			)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, toTransactionResponse(txn))
}
