package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spendapp/spend-api/models"
	"github.com/spendapp/spend-api/utils"
)

type BankingService struct {
	db *sql.DB
}

func NewBankingService(db *sql.DB) *BankingService {
	return &BankingService{db: db}
}

// SaveItem persists a linked institution and its access token (encrypted at
// rest). Re-linking the same item refreshes the token.
func (s *BankingService) SaveItem(ctx context.Context, userID, itemID, accessToken, institutionName string) (string, error) {
	encrypted, err := utils.EncryptToken(accessToken)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt access token: %w", err)
	}

	query := `
		INSERT INTO plaid_items (user_id, item_id, access_token, institution_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			institution_name = EXCLUDED.institution_name,
			updated_at = NOW()
		RETURNING id
	`

	var rowID string
	if err := s.db.QueryRowContext(ctx, query, userID, itemID, encrypted, institutionName).Scan(&rowID); err != nil {
		return "", fmt.Errorf("failed to save item: %w", err)
	}

	return rowID, nil
}

// GetItems returns the user's linked institutions with access tokens
// decrypted for immediate use. Tokens must not leave the process.
func (s *BankingService) GetItems(ctx context.Context, userID string) ([]models.PlaidItem, error) {
	query := `
		SELECT id, user_id, item_id, access_token, COALESCE(institution_name, ''), created_at, updated_at
		FROM plaid_items
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.PlaidItem
	for rows.Next() {
		var item models.PlaidItem
		var encrypted string
		if err := rows.Scan(&item.ID, &item.UserID, &item.ItemID, &encrypted, &item.InstitutionName, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}

		token, err := utils.DecryptToken(encrypted)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token for item %s: %w", item.ID, err)
		}
		item.AccessToken = token

		items = append(items, item)
	}

	return items, rows.Err()
}

// SaveAccountBatch upserts one account and its transactions inside a single
// database transaction. A failure rolls back only this account's writes.
func (s *BankingService) SaveAccountBatch(ctx context.Context, userID, itemRowID, institutionName string, acct models.ExternalAccount, txns []models.ExternalTransaction) (models.AccountSyncResult, error) {
	result := models.AccountSyncResult{Name: acct.Name}

	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		accountRowID, err := upsertAccount(ctx, tx, userID, itemRowID, institutionName, acct)
		if err != nil {
			return err
		}
		result.AccountID = accountRowID

		for _, txn := range txns {
			inserted, err := insertTransaction(ctx, tx, accountRowID, txn)
			if err != nil {
				return err
			}
			if inserted {
				result.NewTransactions++
			} else {
				result.Skipped++
			}
		}
		return nil
	})

	if err != nil {
		return models.AccountSyncResult{}, err
	}
	return result, nil
}

func upsertAccount(ctx context.Context, tx *sql.Tx, userID, itemRowID, institutionName string, acct models.ExternalAccount) (string, error) {
	query := `
		INSERT INTO bank_accounts (
			user_id, item_id, plaid_account_id, institution_name,
			account_name, mask, account_type, currency, balance, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE(NULLIF($8, ''), 'USD'), $9, NOW())
		ON CONFLICT (plaid_account_id)
		DO UPDATE SET
			account_name = EXCLUDED.account_name,
			institution_name = EXCLUDED.institution_name,
			balance = EXCLUDED.balance,
			last_synced_at = NOW()
		RETURNING id
	`

	var rowID string
	err := tx.QueryRowContext(ctx, query,
		userID, itemRowID, acct.AccountID, institutionName,
		acct.Name, acct.Mask, acct.Type, acct.Currency, acct.Balance,
	).Scan(&rowID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert account %s: %w", acct.Name, err)
	}
	return rowID, nil
}

// insertTransaction is insert-if-absent: source transactions are immutable
// facts, keyed by the aggregator's transaction id.
func insertTransaction(ctx context.Context, tx *sql.Tx, accountRowID string, txn models.ExternalTransaction) (bool, error) {
	var categoryID sql.NullString
	if txn.Category != "" {
		id, err := upsertCategory(ctx, tx, txn.Category)
		if err != nil {
			return false, err
		}
		categoryID = sql.NullString{String: id, Valid: true}
	}

	query := `
		INSERT INTO transactions (
			account_id, category_id, plaid_transaction_id,
			amount, date, description, merchant_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (plaid_transaction_id) DO NOTHING
	`

	res, err := tx.ExecContext(ctx, query,
		accountRowID, categoryID, txn.TransactionID,
		txn.Amount, txn.Date, txn.Description, txn.MerchantName,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction %s: %w", txn.TransactionID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func upsertCategory(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	// DO UPDATE instead of DO NOTHING so RETURNING yields the id either way.
	query := `
		INSERT INTO categories (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	var id string
	if err := tx.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to upsert category %q: %w", name, err)
	}
	return id, nil
}

// GetAccounts lists the user's linked bank accounts.
func (s *BankingService) GetAccounts(ctx context.Context, userID string) ([]models.BankAccount, error) {
	query := `
		SELECT id, user_id, item_id, plaid_account_id, COALESCE(institution_name, ''),
		       account_name, COALESCE(mask, ''), COALESCE(account_type, ''),
		       currency, balance, COALESCE(last_synced_at, created_at), created_at
		FROM bank_accounts
		WHERE user_id = $1
		ORDER BY account_name
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.BankAccount
	for rows.Next() {
		var acc models.BankAccount
		err := rows.Scan(
			&acc.ID, &acc.UserID, &acc.ItemID, &acc.PlaidAccountID, &acc.InstitutionName,
			&acc.Name, &acc.Mask, &acc.Type,
			&acc.Currency, &acc.Balance, &acc.LastSyncedAt, &acc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}
