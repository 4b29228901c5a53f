package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spendapp/spend-api/models"
	"github.com/spendapp/spend-api/utils"
)

const defaultSyncWindowDays = 30

// aggregator is the slice of the Plaid client the orchestrator needs.
type aggregator interface {
	GetAccounts(ctx context.Context, accessToken string) ([]models.ExternalAccount, error)
	GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]models.ExternalTransaction, error)
}

// syncStore is the slice of the persistence layer the orchestrator needs.
type syncStore interface {
	GetItems(ctx context.Context, userID string) ([]models.PlaidItem, error)
	SaveAccountBatch(ctx context.Context, userID, itemRowID, institutionName string, acct models.ExternalAccount, txns []models.ExternalTransaction) (models.AccountSyncResult, error)
}

// syncNotifier receives a signal when a user's sync cycle completes.
type syncNotifier interface {
	SyncCompleted(userID string, report *models.SyncReport)
}

type SyncService struct {
	aggregator aggregator
	store      syncStore
	notifier   syncNotifier
	windowDays int
	now        func() time.Time
}

func NewSyncService(agg aggregator, store syncStore, notifier syncNotifier) *SyncService {
	return &SyncService{
		aggregator: agg,
		store:      store,
		notifier:   notifier,
		windowDays: syncWindowDays(),
		now:        time.Now,
	}
}

func syncWindowDays() int {
	if v := os.Getenv("SYNC_WINDOW_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			return days
		}
	}
	return defaultSyncWindowDays
}

// SyncUser brings the user's bank accounts and transactions up to date with
// the aggregator. Each account's account+transaction batch commits in its own
// database transaction, so one failing account never discards the others.
func (s *SyncService) SyncUser(ctx context.Context, userID string) (*models.SyncReport, error) {
	items, err := s.store.GetItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked institutions: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	end := s.now()
	start := end.AddDate(0, 0, -s.windowDays)

	report := &models.SyncReport{
		UserID:      userID,
		WindowStart: start,
		WindowEnd:   end,
	}

	for _, item := range items {
		s.syncItem(ctx, userID, item, start, end, report)
	}

	report.CompletedAt = s.now()
	utils.LogSyncAction("completed", userID,
		fmt.Sprintf("accounts=%d failures=%d", len(report.Accounts), len(report.Failures)))

	if s.notifier != nil {
		s.notifier.SyncCompleted(userID, report)
	}

	return report, nil
}

func (s *SyncService) syncItem(ctx context.Context, userID string, item models.PlaidItem, start, end time.Time, report *models.SyncReport) {
	accounts, err := s.aggregator.GetAccounts(ctx, item.AccessToken)
	if err != nil {
		report.Failures = append(report.Failures, itemFailure(item, err))
		return
	}

	transactions, err := s.aggregator.GetTransactions(ctx, item.AccessToken, start, end)
	if err != nil {
		report.Failures = append(report.Failures, itemFailure(item, err))
		return
	}

	byAccount := make(map[string][]models.ExternalTransaction, len(accounts))
	for _, txn := range transactions {
		byAccount[txn.AccountID] = append(byAccount[txn.AccountID], txn)
	}

	for _, acct := range accounts {
		result, err := s.store.SaveAccountBatch(ctx, userID, item.ID, item.InstitutionName, acct, byAccount[acct.AccountID])
		if err != nil {
			log.Printf("❌ Sync failed for account %s (%s): %v", acct.Name, item.InstitutionName, err)
			report.Failures = append(report.Failures, models.AccountSyncFailure{
				AccountID:   acct.AccountID,
				Institution: item.InstitutionName,
				Error:       "failed to persist account data",
				Retryable:   true,
			})
			continue
		}
		report.Accounts = append(report.Accounts, result)
	}
}

func itemFailure(item models.PlaidItem, err error) models.AccountSyncFailure {
	failure := models.AccountSyncFailure{
		Institution: item.InstitutionName,
		Error:       err.Error(),
	}
	if aggErr, ok := AsAggregatorError(err); ok {
		failure.Retryable = aggErr.Retryable()
	}
	return failure
}
