package models

import "time"

// AccountSyncResult is the outcome of one account's upsert batch.
type AccountSyncResult struct {
	AccountID       string `json:"account_id"`
	Name            string `json:"name"`
	NewTransactions int    `json:"new_transactions"`
	Skipped         int    `json:"skipped"`
}

// AccountSyncFailure records one account (or whole item) that could not be
// synced. Other accounts in the same cycle are unaffected.
type AccountSyncFailure struct {
	AccountID   string `json:"account_id,omitempty"`
	Institution string `json:"institution,omitempty"`
	Error       string `json:"error"`
	Retryable   bool   `json:"retryable"`
}

type SyncReport struct {
	UserID      string               `json:"user_id"`
	WindowStart time.Time            `json:"window_start"`
	WindowEnd   time.Time            `json:"window_end"`
	Accounts    []AccountSyncResult  `json:"accounts"`
	Failures    []AccountSyncFailure `json:"failures,omitempty"`
	CompletedAt time.Time            `json:"completed_at"`
}
