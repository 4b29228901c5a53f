package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExternalAccount is an account as reported by the aggregator, already
// translated to our field names.
type ExternalAccount struct {
	AccountID string
	Name      string
	Mask      string
	Type      string
	Currency  string
	Balance   float64
}

// ExternalTransaction is a settled transaction as reported by the aggregator.
// The amount sign has already been normalized (negative = money out).
type ExternalTransaction struct {
	TransactionID string
	AccountID     string
	Amount        decimal.Decimal
	Date          time.Time
	Description   string
	MerchantName  string
	Category      string
}

// ============================================================================
// LINK REQUESTS
// ============================================================================

type ExchangeTokenRequest struct {
	PublicToken string `json:"public_token" binding:"required"`
}

type SandboxPublicTokenRequest struct {
	InstitutionID string `json:"institution_id" binding:"required"`
}
