package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Webhook event types delivered by the gateway
const (
	EventChargeSuccess    = "charge.success"
	EventTransferSuccess  = "transfer.success"
	EventTransferFailed   = "transfer.failed"
	EventTransferReversed = "transfer.reversed"
)

// Event is a parsed webhook delivery
type Event struct {
	Type string    `json:"event"`
	Data EventData `json:"data"`
}

// EventData carries the payload fields the ledger cares about. Amount is in
// kobo as delivered by the gateway.
type EventData struct {
	Reference string        `json:"reference"`
	Amount    int64         `json:"amount"`
	Status    string        `json:"status"`
	Channel   string        `json:"channel"`
	Customer  EventCustomer `json:"customer"`
}

// EventCustomer identifies the gateway customer an event belongs to
type EventCustomer struct {
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
}

// VerifySignature checks the HMAC-SHA512 signature the gateway computes over
// the raw request body. Comparison is constant time.
func VerifySignature(secretKey string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseEvent decodes a verified webhook body
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("webhook event missing type")
	}
	return &event, nil
}
