// Package booking consumes settlement events from the booking system. A
// confirmed booking places the host's payout on hold until checkout passes;
// the booking system then instructs the ledger to release the hold to the
// host or refund it to the guest.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
	"github.com/Sahar009/awari-backend-sub002/internal/ledger"
	"github.com/Sahar009/awari-backend-sub002/internal/platform/messaging/producers"
)

// Settlement event types published by the booking system
const (
	EventHold    = "booking.hold"
	EventRelease = "booking.release"
	EventRefund  = "booking.refund"
)

// Event is a booking settlement command. Amount is a decimal string in major
// units; Reference doubles as the hold's idempotency key.
type Event struct {
	Type          string    `json:"event"`
	BookingID     uuid.UUID `json:"booking_id"`
	HostWalletID  uuid.UUID `json:"host_wallet_id"`
	GuestWalletID uuid.UUID `json:"guest_wallet_id"`
	Amount        string    `json:"amount"`
	ReleaseDate   time.Time `json:"release_date"`
	Reference     string    `json:"reference"`
}

// Handler applies booking settlement events to the ledger. Events that can
// never succeed go to the dead letter queue so the partition keeps moving;
// transient failures are returned to the consumer for redelivery.
type Handler struct {
	mutator      *ledger.Mutator
	transactions transaction.Repository
	dlq          producers.DeadLetterPublisher
	logger       *slog.Logger
}

// NewHandler creates a booking settlement handler
func NewHandler(mutator *ledger.Mutator, transactions transaction.Repository, dlq producers.DeadLetterPublisher, logger *slog.Logger) *Handler {
	return &Handler{
		mutator:      mutator,
		transactions: transactions,
		dlq:          dlq,
		logger:       logger,
	}
}

// Handle processes one consumed settlement event. Satisfies
// consumers.MessageHandler.
func (h *Handler) Handle(ctx context.Context, key []byte, value []byte) error {
	event, err := parseEvent(value)
	if err != nil {
		// Malformed payloads never become processable; park them.
		return h.deadLetter(ctx, string(key), value, err.Error())
	}

	logger := h.logger.With(
		"event", event.Type,
		"booking_id", event.BookingID.String(),
		"reference", event.Reference,
	)

	switch event.Type {
	case EventHold:
		err = h.hold(ctx, event)
	case EventRelease:
		err = h.release(ctx, event)
	case EventRefund:
		err = h.refund(ctx, event)
	default:
		return h.deadLetter(ctx, string(key), value, "unknown settlement event type: "+event.Type)
	}

	if err != nil {
		if permanent(err) {
			logger.Error("Settlement event cannot be applied", "error", err)
			return h.deadLetter(ctx, string(key), value, err.Error())
		}
		logger.Error("Settlement event failed, will retry", "error", err)
		return err
	}

	logger.Info("Settlement event applied")
	return nil
}

// hold places the booking amount on the host wallet's pending balance,
// scheduled for release after the checkout dispute window.
func (h *Handler) hold(ctx context.Context, event *Event) error {
	amount, err := decimal.NewFromString(event.Amount)
	if err != nil {
		return fmt.Errorf("invalid settlement amount %q: %w", event.Amount, transaction.ErrInvalidAmount)
	}

	releaseDate := event.ReleaseDate
	_, err = h.mutator.Apply(ctx, ledger.Mutation{
		WalletID:    event.HostWalletID,
		Op:          ledger.OpHold,
		Amount:      amount,
		Reference:   event.Reference,
		ReleaseDate: &releaseDate,
		BookingID:   &event.BookingID,
	})
	return err
}

// release moves a hold's funds to the host's available balance ahead of its
// scheduled release date, typically after an early checkout confirmation.
func (h *Handler) release(ctx context.Context, event *Event) error {
	hold, err := h.lookupHold(ctx, event.Reference)
	if err != nil {
		return err
	}
	_, err = h.mutator.ReleaseHold(ctx, hold)
	return err
}

// refund cancels a hold and returns the funds to the guest's wallet
func (h *Handler) refund(ctx context.Context, event *Event) error {
	if event.GuestWalletID == uuid.Nil {
		return fmt.Errorf("refund event for %s is missing the guest wallet", event.Reference)
	}
	hold, err := h.lookupHold(ctx, event.Reference)
	if err != nil {
		return err
	}
	_, err = h.mutator.RefundHold(ctx, hold, event.GuestWalletID)
	return err
}

func (h *Handler) lookupHold(ctx context.Context, reference string) (*transaction.Transaction, error) {
	hold, err := h.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		// The hold event may still be in flight behind this one; retry.
		return nil, fmt.Errorf("no hold found for reference %s", reference)
	}
	if !hold.IsHold() {
		return nil, fmt.Errorf("transaction %s for reference %s is not a hold", hold.ID, reference)
	}
	return hold, nil
}

func (h *Handler) deadLetter(ctx context.Context, key string, value []byte, reason string) error {
	if err := h.dlq.PublishToDLQ(ctx, key, value, reason); err != nil {
		// DLQ publish failed; keep the offset uncommitted and retry later.
		return err
	}
	return nil
}

// permanent reports whether the failure can never succeed on redelivery. A
// refund against an already-released hold shows up as insufficient pending
// funds, a release against an already-refunded hold as ErrHoldReversed; both
// land here.
func permanent(err error) bool {
	return errors.Is(err, wallet.ErrInsufficientFunds{}) ||
		errors.Is(err, wallet.ErrWalletInactive{}) ||
		errors.Is(err, transaction.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrEmptyReference) ||
		errors.Is(err, ledger.ErrHoldReversed)
}

func parseEvent(value []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("failed to decode settlement event: %w", err)
	}
	if event.Reference == "" {
		return nil, fmt.Errorf("settlement event missing reference")
	}
	return &event, nil
}
