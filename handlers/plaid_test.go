package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendapp/spend-api/models"
	"github.com/spendapp/spend-api/services"
)

type fakeBalanceClient struct {
	balances map[string][]models.ExternalAccount
	errs     map[string]error
}

func (f *fakeBalanceClient) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	return "link-token", nil
}

func (f *fakeBalanceClient) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	return "access-token", "item-id", nil
}

func (f *fakeBalanceClient) CreateSandboxPublicToken(ctx context.Context, institutionID string) (string, error) {
	return "public-token", nil
}

func (f *fakeBalanceClient) GetAccounts(ctx context.Context, accessToken string) ([]models.ExternalAccount, error) {
	return f.GetBalances(ctx, accessToken)
}

func (f *fakeBalanceClient) GetBalances(ctx context.Context, accessToken string) ([]models.ExternalAccount, error) {
	if err, ok := f.errs[accessToken]; ok {
		return nil, err
	}
	return f.balances[accessToken], nil
}

func (f *fakeBalanceClient) GetInstitutionName(ctx context.Context, accessToken string) (string, error) {
	return "Test Bank", nil
}

type fakeItemStore struct {
	items []models.PlaidItem
}

func (f *fakeItemStore) SaveItem(ctx context.Context, userID, itemID, accessToken, institutionName string) (string, error) {
	return "row-id", nil
}

func (f *fakeItemStore) GetItems(ctx context.Context, userID string) ([]models.PlaidItem, error) {
	return f.items, nil
}

func (f *fakeItemStore) GetAccounts(ctx context.Context, userID string) ([]models.BankAccount, error) {
	return nil, nil
}

func (f *fakeItemStore) SaveAccountBatch(ctx context.Context, userID, itemRowID, institutionName string, acct models.ExternalAccount, txns []models.ExternalTransaction) (models.AccountSyncResult, error) {
	return models.AccountSyncResult{}, nil
}

func balancesRequest(t *testing.T, h *PlaidHandler) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/plaid/balances", func(c *gin.Context) {
		c.Set("user_id", "user-1")
		h.GetBalances(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/plaid/balances", nil))
	return w
}

type balancesResponse struct {
	Balances []struct {
		Institution string `json:"institution"`
	} `json:"balances"`
	Failures []models.AccountSyncFailure `json:"failures"`
}

func TestGetBalances_AllFetchesFail(t *testing.T) {
	client := &fakeBalanceClient{
		errs: map[string]error{
			"tok-a": &services.AggregatorError{Kind: services.AggregatorUnavailable, Message: "down"},
			"tok-b": &services.AggregatorError{Kind: services.AggregatorUnauthorized, Message: "relink"},
		},
	}
	store := &fakeItemStore{items: []models.PlaidItem{
		{ID: "1", AccessToken: "tok-a", InstitutionName: "First Bank"},
		{ID: "2", AccessToken: "tok-b", InstitutionName: "Second Bank"},
	}}

	w := balancesRequest(t, NewPlaidHandler(client, store, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp balancesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Empty(t, resp.Balances)
	require.Len(t, resp.Failures, 2)
	assert.Equal(t, "First Bank", resp.Failures[0].Institution)
	assert.True(t, resp.Failures[0].Retryable)
	assert.Equal(t, "Second Bank", resp.Failures[1].Institution)
	assert.False(t, resp.Failures[1].Retryable)
}

func TestGetBalances_PartialFailure(t *testing.T) {
	client := &fakeBalanceClient{
		balances: map[string][]models.ExternalAccount{
			"tok-a": {{AccountID: "acc-1", Name: "Checking", Balance: 1200.50}},
		},
		errs: map[string]error{
			"tok-b": &services.AggregatorError{Kind: services.AggregatorRateLimited, Message: "slow down"},
		},
	}
	store := &fakeItemStore{items: []models.PlaidItem{
		{ID: "1", AccessToken: "tok-a", InstitutionName: "First Bank"},
		{ID: "2", AccessToken: "tok-b", InstitutionName: "Second Bank"},
	}}

	w := balancesRequest(t, NewPlaidHandler(client, store, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp balancesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Balances, 1)
	assert.Equal(t, "First Bank", resp.Balances[0].Institution)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "Second Bank", resp.Failures[0].Institution)
	assert.True(t, resp.Failures[0].Retryable)
}

func TestGetBalances_NoLinkedItems(t *testing.T) {
	w := balancesRequest(t, NewPlaidHandler(&fakeBalanceClient{}, &fakeItemStore{}, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
