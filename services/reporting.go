package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendapp/spend-api/models"
)

// ResolvePeriod turns a period selector into a half-open [start, end)
// interval anchored at now.
//
//	month: first calendar day of the current month through now
//	ytd:   January 1 of the current year through now
//	year:  exactly one year back through now
func ResolvePeriod(period string, now time.Time) (time.Time, time.Time, error) {
	switch period {
	case "month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, now, nil
	case "ytd":
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return start, now, nil
	case "year":
		return now.AddDate(-1, 0, 0), now, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown time period %q (want month, ytd or year)", period)
	}
}

// Summarize computes income (sum of positive amounts), expenses (absolute
// value of negative amounts) and net = income - expenses, plus per-category
// expense totals.
func Summarize(txns []models.Transaction) models.Summary {
	income := decimal.Zero
	expenses := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)

	for _, txn := range txns {
		if txn.Amount.IsPositive() {
			income = income.Add(txn.Amount)
			continue
		}
		spent := txn.Amount.Abs()
		expenses = expenses.Add(spent)

		name := txn.CategoryName
		if name == "" {
			name = "Uncategorized"
		}
		byCategory[name] = byCategory[name].Add(spent)
	}

	summary := models.Summary{
		Income:   income,
		Expenses: expenses,
		Net:      income.Sub(expenses),
	}

	for name, amount := range byCategory {
		summary.ByCategory = append(summary.ByCategory, models.CategoryExpense{Name: name, Amount: amount})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		if !summary.ByCategory[i].Amount.Equal(summary.ByCategory[j].Amount) {
			return summary.ByCategory[i].Amount.GreaterThan(summary.ByCategory[j].Amount)
		}
		return summary.ByCategory[i].Name < summary.ByCategory[j].Name
	})

	return summary
}

type ReportingService struct {
	db *sql.DB
}

func NewReportingService(db *sql.DB) *ReportingService {
	return &ReportingService{db: db}
}

// GetTransactions lists the user's transactions with date in [start, end),
// newest first.
func (s *ReportingService) GetTransactions(ctx context.Context, userID string, start, end time.Time) ([]models.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.plaid_transaction_id, t.amount, t.date,
		       COALESCE(t.description, ''), COALESCE(t.merchant_name, ''),
		       COALESCE(t.category_id::text, ''), COALESCE(c.name, ''),
		       t.created_at
		FROM transactions t
		JOIN bank_accounts ba ON t.account_id = ba.id
		LEFT JOIN categories c ON t.category_id = c.id
		WHERE ba.user_id = $1 AND t.date >= $2 AND t.date < $3
		ORDER BY t.date DESC, t.created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		err := rows.Scan(
			&txn.ID, &txn.AccountID, &txn.PlaidTransactionID, &txn.Amount, &txn.Date,
			&txn.Description, &txn.MerchantName,
			&txn.CategoryID, &txn.CategoryName,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// GetSummary computes the income/expense/net summary for the window.
func (s *ReportingService) GetSummary(ctx context.Context, userID string, start, end time.Time) (models.Summary, error) {
	txns, err := s.GetTransactions(ctx, userID, start, end)
	if err != nil {
		return models.Summary{}, err
	}

	summary := Summarize(txns)
	summary.PeriodStart = start
	summary.PeriodEnd = end
	return summary, nil
}
