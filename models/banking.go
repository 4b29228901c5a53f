package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaidItem is one linked institution for a user. The Plaid access token is
// stored encrypted at rest and never serialized to the client.
type PlaidItem struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ItemID          string    `json:"-"`
	AccessToken     string    `json:"-"`
	InstitutionName string    `json:"institution_name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type BankAccount struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ItemID          string    `json:"-"`
	PlaidAccountID  string    `json:"-"` // Internal use only
	InstitutionName string    `json:"institution_name"`
	Name            string    `json:"name"`
	Mask            string    `json:"mask,omitempty"`
	Type            string    `json:"type"`
	Currency        string    `json:"currency"`
	Balance         float64   `json:"balance"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Transaction is a settled ledger entry. Amounts are signed:
// negative = money out, positive = money in.
type Transaction struct {
	ID                 string          `json:"id"`
	AccountID          string          `json:"account_id"`
	PlaidTransactionID string          `json:"-"` // Internal use only
	Amount             decimal.Decimal `json:"amount"`
	Date               time.Time       `json:"date"`
	Description        string          `json:"description"`
	MerchantName       string          `json:"merchant_name,omitempty"`
	CategoryID         string          `json:"category_id,omitempty"`
	CategoryName       string          `json:"category,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

type Category struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	PlaidCategoryID string    `json:"plaid_category_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
