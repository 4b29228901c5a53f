package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spendapp/spend-api/middleware"
	"github.com/spendapp/spend-api/models"
	"github.com/spendapp/spend-api/services"
)

// plaidClient is the slice of the aggregator client the handler needs.
type plaidClient interface {
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error)
	CreateSandboxPublicToken(ctx context.Context, institutionID string) (string, error)
	GetAccounts(ctx context.Context, accessToken string) ([]models.ExternalAccount, error)
	GetBalances(ctx context.Context, accessToken string) ([]models.ExternalAccount, error)
	GetInstitutionName(ctx context.Context, accessToken string) (string, error)
}

// bankingStore is the slice of the persistence layer the handler needs.
type bankingStore interface {
	SaveItem(ctx context.Context, userID, itemID, accessToken, institutionName string) (string, error)
	GetItems(ctx context.Context, userID string) ([]models.PlaidItem, error)
	GetAccounts(ctx context.Context, userID string) ([]models.BankAccount, error)
	SaveAccountBatch(ctx context.Context, userID, itemRowID, institutionName string, acct models.ExternalAccount, txns []models.ExternalTransaction) (models.AccountSyncResult, error)
}

type syncRunner interface {
	SyncUser(ctx context.Context, userID string) (*models.SyncReport, error)
}

type PlaidHandler struct {
	Plaid   plaidClient
	Banking bankingStore
	Sync    syncRunner
}

func NewPlaidHandler(plaid plaidClient, banking bankingStore, sync syncRunner) *PlaidHandler {
	return &PlaidHandler{Plaid: plaid, Banking: banking, Sync: sync}
}

// CreateLinkToken issues the short-lived token the frontend needs to open
// the Link widget.
func (h *PlaidHandler) CreateLinkToken(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	token, err := h.Plaid.CreateLinkToken(c.Request.Context(), userID)
	if err != nil {
		h.renderAggregatorError(c, err, "Failed to create link token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"link_token": token})
}

// ExchangeToken trades the public token for an access token, persists the
// linked institution and its accounts. The access token never leaves the
// server.
func (h *PlaidHandler) ExchangeToken(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.ExchangeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	accessToken, itemID, err := h.Plaid.ExchangePublicToken(ctx, req.PublicToken)
	if err != nil {
		h.renderAggregatorError(c, err, "Failed to exchange token")
		return
	}

	institutionName, err := h.Plaid.GetInstitutionName(ctx, accessToken)
	if err != nil {
		log.Printf("⚠️ Could not resolve institution name: %v", err)
		institutionName = ""
	}

	itemRowID, err := h.Banking.SaveItem(ctx, userID, itemID, accessToken, institutionName)
	if err != nil {
		log.Printf("❌ Failed to save item: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save bank link"})
		return
	}

	accounts, err := h.Plaid.GetAccounts(ctx, accessToken)
	if err != nil {
		h.renderAggregatorError(c, err, "Failed to fetch accounts")
		return
	}

	saved := 0
	for _, acct := range accounts {
		if _, err := h.Banking.SaveAccountBatch(ctx, userID, itemRowID, institutionName, acct, nil); err != nil {
			log.Printf("❌ Failed to save account %s: %v", acct.Name, err)
			continue
		}
		saved++
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Bank linked successfully",
		"institution_name": institutionName,
		"accounts_linked":  saved,
	})
}

// CreateSandboxPublicToken creates a test public token (sandbox only).
func (h *PlaidHandler) CreateSandboxPublicToken(c *gin.Context) {
	var req models.SandboxPublicTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.Plaid.CreateSandboxPublicToken(c.Request.Context(), req.InstitutionID)
	if err != nil {
		h.renderAggregatorError(c, err, "Failed to create sandbox public token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_token": token})
}

// GetAccounts lists the user's stored bank accounts.
func (h *PlaidHandler) GetAccounts(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	accounts, err := h.Banking.GetAccounts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch accounts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

type institutionBalances struct {
	Institution string                   `json:"institution"`
	Accounts    []models.ExternalAccount `json:"accounts"`
}

// GetBalances fetches live balances from the aggregator for every linked
// institution. Per-institution failures are reported alongside the data so
// the client can tell "no data" from "fetch failed".
func (h *PlaidHandler) GetBalances(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()

	items, err := h.Banking.GetItems(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bank links"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No linked bank accounts"})
		return
	}

	balances := make([]institutionBalances, 0, len(items))
	var failures []models.AccountSyncFailure
	for _, item := range items {
		accounts, err := h.Plaid.GetBalances(ctx, item.AccessToken)
		if err != nil {
			log.Printf("⚠️ Balance fetch failed for %s: %v", item.InstitutionName, err)
			failure := models.AccountSyncFailure{
				Institution: item.InstitutionName,
				Error:       "balance fetch failed",
			}
			if aggErr, ok := services.AsAggregatorError(err); ok {
				failure.Retryable = aggErr.Retryable()
			}
			failures = append(failures, failure)
			continue
		}
		balances = append(balances, institutionBalances{
			Institution: item.InstitutionName,
			Accounts:    accounts,
		})
	}

	resp := gin.H{"balances": balances}
	if len(failures) > 0 {
		resp["failures"] = failures
	}
	c.JSON(http.StatusOK, resp)
}

// SyncTransactions runs a sync cycle and returns the per-account report.
// Partial failures are reported in the body, not as a request failure.
func (h *PlaidHandler) SyncTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	report, err := h.Sync.SyncUser(c.Request.Context(), userID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No linked bank accounts"})
		return
	}
	if err != nil {
		log.Printf("❌ Sync failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *PlaidHandler) renderAggregatorError(c *gin.Context, err error, fallback string) {
	aggErr, ok := services.AsAggregatorError(err)
	if !ok {
		log.Printf("❌ %s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return
	}

	log.Printf("❌ %s: %v", fallback, aggErr)

	switch aggErr.Kind {
	case services.AggregatorInvalidToken:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token"})
	case services.AggregatorRateLimited:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Aggregator rate limit exceeded, retry later"})
	case services.AggregatorUnauthorized:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Bank login expired, please relink your account"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Bank data provider unavailable"})
	}
}
