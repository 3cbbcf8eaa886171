// Package gateway integrates with the payment gateway: customer and dedicated
// funding account provisioning, hosted-checkout funding, payout transfers, and
// webhook verification. All amounts cross the wire in kobo (minor units).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client is the gateway surface the ledger depends on. Defined here so the
// withdrawal workflow and wallet service can be tested against a stub.
type Client interface {
	CreateCustomer(ctx context.Context, email, firstName, lastName string) (*Customer, error)
	CreateDedicatedAccount(ctx context.Context, customerCode string) (*DedicatedAccount, error)
	InitializeFunding(ctx context.Context, email string, amount decimal.Decimal, reference string) (*Checkout, error)
	CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error)
	InitiatePayout(ctx context.Context, recipientCode string, amount decimal.Decimal, reference, reason string) (*Payout, error)
}

// Customer is a provisioned gateway customer
type Customer struct {
	ID           int64  `json:"id"`
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
}

// DedicatedAccount is a virtual bank account bound to a customer. Bank
// transfers into it fund the customer's wallet via webhook.
type DedicatedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
	BankSlug      string `json:"bank_slug"`
}

// Checkout is a hosted payment page for card funding
type Checkout struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Payout is an initiated transfer to an external bank account
type Payout struct {
	TransferCode string `json:"transfer_code"`
	Reference    string `json:"reference"`
	Status       string `json:"status"`
}

// Error is a non-2xx gateway response
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway request failed with status %d: %s", e.StatusCode, e.Message)
}

// HTTPClient talks to the gateway's REST API with bearer authentication
type HTTPClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
	logger    *slog.Logger
}

// NewHTTPClient creates a gateway client
func NewHTTPClient(baseURL, secretKey string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// envelope is the gateway's uniform response wrapper
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode gateway request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		c.logger.Error("Gateway request rejected",
			"method", method,
			"path", path,
			"status_code", resp.StatusCode,
			"message", env.Message,
		)
		return &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode gateway response data: %w", err)
		}
	}
	return nil
}

// CreateCustomer registers a wallet owner with the gateway
func (c *HTTPClient) CreateCustomer(ctx context.Context, email, firstName, lastName string) (*Customer, error) {
	body := map[string]string{
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
	}
	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/customer", body, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateDedicatedAccount provisions a virtual funding account for a customer
func (c *HTTPClient) CreateDedicatedAccount(ctx context.Context, customerCode string) (*DedicatedAccount, error) {
	body := map[string]string{
		"customer": customerCode,
	}
	var account DedicatedAccount
	if err := c.do(ctx, http.MethodPost, "/dedicated_account", body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// InitializeFunding opens a hosted checkout for card funding. The reference
// ties the eventual charge webhook back to the wallet credit.
func (c *HTTPClient) InitializeFunding(ctx context.Context, email string, amount decimal.Decimal, reference string) (*Checkout, error) {
	body := map[string]any{
		"email":     email,
		"amount":    toMinorUnits(amount),
		"reference": reference,
	}
	var checkout Checkout
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// CreateTransferRecipient registers a payout destination bank account
func (c *HTTPClient) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	body := map[string]string{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}
	var recipient struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/transferrecipient", body, &recipient); err != nil {
		return "", err
	}
	return recipient.RecipientCode, nil
}

// InitiatePayout starts a transfer to a registered recipient. The terminal
// outcome arrives asynchronously on the webhook.
func (c *HTTPClient) InitiatePayout(ctx context.Context, recipientCode string, amount decimal.Decimal, reference, reason string) (*Payout, error) {
	body := map[string]any{
		"source":    "balance",
		"recipient": recipientCode,
		"amount":    toMinorUnits(amount),
		"reference": reference,
		"reason":    reason,
	}
	var payout Payout
	if err := c.do(ctx, http.MethodPost, "/transfer", body, &payout); err != nil {
		return nil, err
	}
	return &payout, nil
}

// toMinorUnits converts a major-unit amount to kobo
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

// FromMinorUnits converts a kobo amount from the gateway back to major units
func FromMinorUnits(kobo int64) decimal.Decimal {
	return decimal.New(kobo, -2)
}
