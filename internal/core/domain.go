package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   TransferStatus = "pending"
	StatusCompleted TransferStatus = "completed"
	StatusFailed    TransferStatus = "failed"
)

// Amounts encode as JSON numbers, the layout the persisted ledger has always
// used.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Amount limits applied by the transfer form.
var (
	MinTransferAmount = decimal.RequireFromString("0.01")
	MaxTransferAmount = decimal.NewFromInt(100000)
)

type (
	TransferStatus string

	Account struct {
		ID            string          `json:"id"`
		Type          string          `json:"type"`
		Name          string          `json:"name"`
		Balance       decimal.Decimal `json:"balance"`
		Currency      string          `json:"currency"`
		Photo         string          `json:"photo,omitempty"`
		AccountNumber string          `json:"accountNumber"`
		Email         string          `json:"email,omitempty"`
		Phone         string          `json:"phone,omitempty"`
	}

	// Transfer embeds snapshots of both accounts so history renders the
	// accounts as they were when the transfer was made.
	Transfer struct {
		ID              string           `json:"id"`
		FromAccount     Account          `json:"fromAccount"`
		ToAccount       Account          `json:"toAccount"`
		Amount          decimal.Decimal  `json:"amount"`
		Date            time.Time        `json:"date"`
		Status          TransferStatus   `json:"status"`
		Description     string           `json:"description,omitempty"`
		ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
		ConvertedAmount *decimal.Decimal `json:"convertedAmount,omitempty"`
	}

	// TransferProposal is a transfer that has not been assigned an id, a date
	// or a status yet.
	TransferProposal struct {
		FromAccount Account
		ToAccount   Account
		Amount      decimal.Decimal
		Description string
	}
)

var (
	ErrMissingAccount      = errors.New("missing account")
	ErrSameAccount         = errors.New("from and to accounts are the same")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAmountTooLarge      = errors.New("amount exceeds the transfer limit")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrNotFound            = errors.New("not found")
)

func (s TransferStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Validate checks the rules the transfer form enforces before submission.
func (p TransferProposal) Validate() error {
	if strings.TrimSpace(p.FromAccount.ID) == "" || strings.TrimSpace(p.ToAccount.ID) == "" {
		return ErrMissingAccount
	}
	if p.FromAccount.ID == p.ToAccount.ID {
		return ErrSameAccount
	}
	if p.Amount.LessThan(MinTransferAmount) {
		return ErrInvalidAmount
	}
	if p.Amount.GreaterThan(MaxTransferAmount) {
		return ErrAmountTooLarge
	}
	if len(p.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// CheckBalance reports ErrInsufficientBalance when the sender cannot cover
// the amount.
func (p TransferProposal) CheckBalance() error {
	if p.Amount.GreaterThan(p.FromAccount.Balance) {
		return ErrInsufficientBalance
	}
	return nil
}

// Involves reports whether the account id is on either side of the transfer.
func (t Transfer) Involves(accountID string) bool {
	return t.FromAccount.ID == accountID || t.ToAccount.ID == accountID
}
