package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendapp/spend-api/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func txn(amount string, d time.Time, category string) models.Transaction {
	return models.Transaction{
		Amount:       dec(amount),
		Date:         d,
		CategoryName: category,
	}
}

func TestResolvePeriod_Month(t *testing.T) {
	now := time.Date(2024, time.March, 25, 14, 30, 0, 0, time.UTC)

	start, end, err := ResolvePeriod("month", now)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 1), start)
	assert.Equal(t, now, end)
}

func TestResolvePeriod_YTD(t *testing.T) {
	now := time.Date(2024, time.March, 25, 14, 30, 0, 0, time.UTC)

	start, end, err := ResolvePeriod("ytd", now)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.January, 1), start)
	assert.Equal(t, now, end)
}

func TestResolvePeriod_Year(t *testing.T) {
	now := time.Date(2024, time.March, 25, 14, 30, 0, 0, time.UTC)

	start, end, err := ResolvePeriod("year", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.March, 25, 14, 30, 0, 0, time.UTC), start)
	assert.Equal(t, now, end)
}

func TestResolvePeriod_Unknown(t *testing.T) {
	_, _, err := ResolvePeriod("quarter", time.Now())
	assert.Error(t, err)
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)

	assert.True(t, summary.Income.IsZero())
	assert.True(t, summary.Expenses.IsZero())
	assert.True(t, summary.Net.IsZero())
	assert.Empty(t, summary.ByCategory)
}

func TestSummarize_NetEqualsIncomeMinusExpenses(t *testing.T) {
	sets := [][]models.Transaction{
		nil,
		{txn("100", date(2024, time.March, 1), "")},
		{txn("-40", date(2024, time.March, 2), "Restaurants")},
		{
			txn("2500.00", date(2024, time.March, 1), ""),
			txn("-1200.50", date(2024, time.March, 3), "Rent"),
			txn("-86.23", date(2024, time.March, 5), "Groceries"),
			txn("-13.77", date(2024, time.March, 9), "Groceries"),
			txn("17.50", date(2024, time.March, 12), ""),
		},
	}

	for _, txns := range sets {
		summary := Summarize(txns)
		assert.True(t, summary.Net.Equal(summary.Income.Sub(summary.Expenses)),
			"net must equal income - expenses")
	}
}

func TestSummarize_CategoryBreakdown(t *testing.T) {
	summary := Summarize([]models.Transaction{
		txn("-30", date(2024, time.March, 1), "Groceries"),
		txn("-70", date(2024, time.March, 2), "Groceries"),
		txn("-25", date(2024, time.March, 3), ""),
		txn("500", date(2024, time.March, 4), "Payroll"), // income never counts as category spend
	})

	require.Len(t, summary.ByCategory, 2)
	assert.Equal(t, "Groceries", summary.ByCategory[0].Name)
	assert.True(t, summary.ByCategory[0].Amount.Equal(dec("100")))
	assert.Equal(t, "Uncategorized", summary.ByCategory[1].Name)
	assert.True(t, summary.ByCategory[1].Amount.Equal(dec("25")))
}

// The month summary for a user with transactions t1 (+100) and t2 (-40) in
// March, evaluated at 2024-03-25, must report income=100 expenses=40 net=60.
func TestMonthSummary_EndToEnd(t *testing.T) {
	now := time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC)

	start, end, err := ResolvePeriod("month", now)
	require.NoError(t, err)

	all := []models.Transaction{
		{ID: "t1", Amount: dec("100"), Date: date(2024, time.March, 1)},
		{ID: "t2", Amount: dec("-40"), Date: date(2024, time.March, 2)},
		{ID: "older", Amount: dec("-999"), Date: date(2024, time.February, 20)},
	}

	var inWindow []models.Transaction
	for _, tx := range all {
		if !tx.Date.Before(start) && tx.Date.Before(end) {
			inWindow = append(inWindow, tx)
		}
	}
	require.Len(t, inWindow, 2)

	summary := Summarize(inWindow)
	assert.True(t, summary.Income.Equal(dec("100")))
	assert.True(t, summary.Expenses.Equal(dec("40")))
	assert.True(t, summary.Net.Equal(dec("60")))
}
