package outbox

import (
	"encoding/json"
	"time"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/google/uuid"
)

// Status defines outbox archiving states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToArchive Status = "FAILED_TO_ARCHIVE"
)

// Message stores a committed transaction for reliable hand-off to the
// statement archive. Rows are written in the same database transaction as the
// ledger mutation, so a committed mutation is always eventually archived.
type Message struct {
	ID            int64           `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a ledger transaction as a pending outbox message.
func NewMessage(txn *transaction.Transaction) (*Message, error) {
	payload, err := json.Marshal(txn)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: txn.ID,
		WalletID:      txn.WalletID,
		Payload:       payload,
		Status:        StatusPending,
		Attempts:      0,
		CreatedAt:     time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToArchive
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetTransaction extracts the ledger transaction from the payload
func (m *Message) GetTransaction() (*transaction.Transaction, error) {
	var txn transaction.Transaction
	if err := json.Unmarshal(m.Payload, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}
