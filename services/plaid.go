package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"

	"github.com/spendapp/spend-api/models"
)

const transactionsPageSize = 100

type PlaidService struct {
	Client *plaid.APIClient
}

func NewPlaidService() *PlaidService {
	clientID := os.Getenv("PLAID_CLIENT_ID")
	secret := os.Getenv("PLAID_SECRET")
	envStr := os.Getenv("PLAID_ENV")

	var env plaid.Environment
	switch envStr {
	case "production":
		env = plaid.Production
	case "development":
		env = plaid.Development
	default:
		env = plaid.Sandbox
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	configuration.AddDefaultHeader("PLAID-SECRET", secret)
	configuration.UseEnvironment(env)

	return &PlaidService{
		Client: plaid.NewAPIClient(configuration),
	}
}

// CreateLinkToken requests a short-lived token the frontend uses to open the
// Link widget.
func (s *PlaidService) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{
		ClientUserId: userID,
	}

	request := plaid.NewLinkTokenCreateRequest(
		"SpendApp",
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		user,
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	resp, _, err := s.Client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", classifyPlaidError(err)
	}

	return resp.GetLinkToken(), nil
}

// ExchangePublicToken trades the one-time public token for a durable access
// token. The access token is stored server-side only, never returned to the
// client.
func (s *PlaidService) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	request := plaid.NewItemPublicTokenExchangeRequest(publicToken)

	resp, _, err := s.Client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
	if err != nil {
		return "", "", classifyPlaidError(err)
	}

	return resp.GetAccessToken(), resp.GetItemId(), nil
}

// CreateSandboxPublicToken creates a test public token without the Link
// widget. Sandbox environment only.
func (s *PlaidService) CreateSandboxPublicToken(ctx context.Context, institutionID string) (string, error) {
	request := plaid.NewSandboxPublicTokenCreateRequest(
		institutionID,
		[]plaid.Products{plaid.PRODUCTS_TRANSACTIONS},
	)

	resp, _, err := s.Client.PlaidApi.SandboxPublicTokenCreate(ctx).SandboxPublicTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", classifyPlaidError(err)
	}

	return resp.GetPublicToken(), nil
}

func (s *PlaidService) GetAccounts(ctx context.Context, accessToken string) ([]models.ExternalAccount, error) {
	request := plaid.NewAccountsGetRequest(accessToken)

	resp, _, err := s.Client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
	if err != nil {
		return nil, classifyPlaidError(err)
	}

	return translateAccounts(resp.GetAccounts()), nil
}

func (s *PlaidService) GetBalances(ctx context.Context, accessToken string) ([]models.ExternalAccount, error) {
	request := plaid.NewAccountsBalanceGetRequest(accessToken)

	resp, _, err := s.Client.PlaidApi.AccountsBalanceGet(ctx).AccountsBalanceGetRequest(*request).Execute()
	if err != nil {
		return nil, classifyPlaidError(err)
	}

	return translateAccounts(resp.GetAccounts()), nil
}

// GetTransactions fetches all settled transactions in [start, end], paging
// with count/offset until total_transactions is exhausted.
func (s *PlaidService) GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]models.ExternalTransaction, error) {
	var all []models.ExternalTransaction
	offset := int32(0)

	for {
		options := plaid.NewTransactionsGetRequestOptions()
		options.SetCount(transactionsPageSize)
		options.SetOffset(offset)

		request := plaid.NewTransactionsGetRequest(
			accessToken,
			start.Format("2006-01-02"),
			end.Format("2006-01-02"),
		)
		request.SetOptions(*options)

		resp, _, err := s.Client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
		if err != nil {
			return nil, classifyPlaidError(err)
		}

		page := resp.GetTransactions()
		for _, txn := range page {
			if txn.GetPending() {
				continue
			}
			translated, err := translateTransaction(txn)
			if err != nil {
				return nil, err
			}
			all = append(all, translated)
		}

		offset += int32(len(page))
		if offset >= resp.GetTotalTransactions() || len(page) == 0 {
			break
		}
	}

	return all, nil
}

// GetInstitutionName resolves the institution behind an access token.
func (s *PlaidService) GetInstitutionName(ctx context.Context, accessToken string) (string, error) {
	itemReq := plaid.NewItemGetRequest(accessToken)
	itemResp, _, err := s.Client.PlaidApi.ItemGet(ctx).ItemGetRequest(*itemReq).Execute()
	if err != nil {
		return "", classifyPlaidError(err)
	}

	item := itemResp.GetItem()
	institutionID := item.GetInstitutionId()
	if institutionID == "" {
		return "", nil
	}

	instReq := plaid.NewInstitutionsGetByIdRequest(institutionID, []plaid.CountryCode{plaid.COUNTRYCODE_US})
	instResp, _, err := s.Client.PlaidApi.InstitutionsGetById(ctx).InstitutionsGetByIdRequest(*instReq).Execute()
	if err != nil {
		return "", classifyPlaidError(err)
	}

	institution := instResp.GetInstitution()
	return institution.GetName(), nil
}

// ============================================================================
// TRANSLATION
// ============================================================================

// translateAmount is the single place the aggregator's sign convention is
// normalized. Plaid reports outflows as positive; we store negative = money
// out.
func translateAmount(plaidAmount float64) decimal.Decimal {
	return decimal.NewFromFloat(plaidAmount).Neg()
}

func translateAccounts(accounts []plaid.AccountBase) []models.ExternalAccount {
	out := make([]models.ExternalAccount, 0, len(accounts))
	for _, acct := range accounts {
		balances := acct.GetBalances()
		out = append(out, models.ExternalAccount{
			AccountID: acct.GetAccountId(),
			Name:      acct.GetName(),
			Mask:      acct.GetMask(),
			Type:      string(acct.GetType()),
			Currency:  balances.GetIsoCurrencyCode(),
			Balance:   balances.GetCurrent(),
		})
	}
	return out
}

func translateTransaction(txn plaid.Transaction) (models.ExternalTransaction, error) {
	date, err := time.Parse("2006-01-02", txn.GetDate())
	if err != nil {
		return models.ExternalTransaction{}, &AggregatorError{
			Kind:    AggregatorUnavailable,
			Message: "malformed transaction date: " + txn.GetDate(),
		}
	}

	// Plaid categories are hierarchical; keep the most specific level.
	var category string
	if cats := txn.GetCategory(); len(cats) > 0 {
		category = cats[len(cats)-1]
	}

	return models.ExternalTransaction{
		TransactionID: txn.GetTransactionId(),
		AccountID:     txn.GetAccountId(),
		Amount:        translateAmount(txn.GetAmount()),
		Date:          date,
		Description:   txn.GetName(),
		MerchantName:  txn.GetMerchantName(),
		Category:      category,
	}, nil
}

// ============================================================================
// ERROR CLASSIFICATION
// ============================================================================

type plaidErrorBody struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func classifyPlaidError(err error) error {
	var openAPIErr plaid.GenericOpenAPIError
	if !errors.As(err, &openAPIErr) {
		// Transport-level failure (timeout, DNS, connection refused).
		return &AggregatorError{Kind: AggregatorUnavailable, Message: err.Error()}
	}

	var body plaidErrorBody
	if jsonErr := json.Unmarshal(openAPIErr.Body(), &body); jsonErr != nil {
		return &AggregatorError{Kind: AggregatorUnavailable, Message: err.Error()}
	}

	kind := AggregatorUnavailable
	switch body.ErrorType {
	case "RATE_LIMIT_EXCEEDED":
		kind = AggregatorRateLimited
	case "INVALID_INPUT", "INVALID_REQUEST":
		switch body.ErrorCode {
		case "INVALID_ACCESS_TOKEN", "INVALID_PUBLIC_TOKEN", "INVALID_LINK_TOKEN":
			kind = AggregatorInvalidToken
		}
	case "ITEM_ERROR":
		if body.ErrorCode == "ITEM_LOGIN_REQUIRED" {
			kind = AggregatorUnauthorized
		}
	}

	return &AggregatorError{
		Kind:    kind,
		Code:    body.ErrorCode,
		Message: body.ErrorMessage,
	}
}
