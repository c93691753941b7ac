// Package mono is a client for the Mono v2 account aggregation API.
package mono

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wyse/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultBaseURL is the production Mono v2 endpoint.
const DefaultBaseURL = "https://api.withmono.com/v2"

// DateLayout is the DD-MM-YYYY format Mono expects for date ranges.
const DateLayout = "02-01-2006"

var ErrMissingSecretKey = errors.New("mono secret key is not configured")

// Client is a client for the Mono API.
type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

// NewClient creates a new Mono API client.
func NewClient(baseURL, secretKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("mono api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mono api error (status %d)", e.StatusCode)
}

type Institution struct {
	Name     string `json:"name"`
	BankCode string `json:"bank_code"`
	Type     string `json:"type"`
}

// Account is the account object inside GET /accounts/{id}.
type Account struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	Type          string          `json:"type"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	BVN           *string         `json:"bvn"`
	Institution   Institution     `json:"institution"`
}

// AccountDetails carries the parsed account plus the raw payload so callers
// can pass the upstream shape through untouched.
type AccountDetails struct {
	Account Account                `json:"account"`
	Meta    map[string]interface{} `json:"meta"`
	Raw     json.RawMessage        `json:"-"`
}

type Transaction struct {
	ID        string          `json:"id"`
	Narration string          `json:"narration"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Category  *string         `json:"category"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Date      time.Time       `json:"date"`
	Raw       json.RawMessage `json:"-"`
}

// TransactionsPage is one page of GET /accounts/{id}/transactions.
type TransactionsPage struct {
	Transactions []Transaction
	Raw          json.RawMessage
	Next         string
}

// FetchOptions bounds a transaction history fetch.
type FetchOptions struct {
	MaxPages int
	Start    *time.Time
	End      *time.Time
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    struct {
		Next *string `json:"next"`
	} `json:"meta"`
}

// ExchangeToken trades a Connect widget code for an account id.
func (c *Client) ExchangeToken(ctx context.Context, code string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, c.BaseURL+"/accounts/auth", map[string]string{"code": code})
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}

	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("failed to decode exchange response: %w", err)
	}
	if data.ID == "" {
		return "", errors.New("mono exchange response carried no account id")
	}
	return data.ID, nil
}

// GetAccount fetches the account detail.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*AccountDetails, error) {
	env, err := c.do(ctx, http.MethodGet, c.BaseURL+"/accounts/"+url.PathEscape(accountID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account %s: %w", accountID, err)
	}

	var details AccountDetails
	if err := json.Unmarshal(env.Data, &details); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	details.Raw = env.Data
	return &details, nil
}

// GetTransactionsPage fetches a single page. An empty pageURL means the first
// page of the account's history bounded by opts.
func (c *Client) GetTransactionsPage(ctx context.Context, accountID, pageURL string, opts FetchOptions) (*TransactionsPage, error) {
	if pageURL == "" {
		pageURL = c.transactionsURL(accountID, opts)
	} else if strings.HasPrefix(pageURL, "/") {
		pageURL = c.BaseURL + pageURL
	}

	env, err := c.do(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for %s: %w", accountID, err)
	}

	var raws []json.RawMessage
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &raws); err != nil {
			return nil, fmt.Errorf("failed to decode transactions page: %w", err)
		}
	}

	page := &TransactionsPage{Raw: env.Data, Transactions: make([]Transaction, 0, len(raws))}
	for _, raw := range raws {
		var tx Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		tx.Raw = raw
		page.Transactions = append(page.Transactions, tx)
	}
	if env.Meta.Next != nil {
		page.Next = *env.Meta.Next
	}
	return page, nil
}

// FetchTransactions follows meta.next cursors until exhausted or MaxPages
// pages have been read.
func (c *Client) FetchTransactions(ctx context.Context, accountID string, opts FetchOptions) ([]Transaction, error) {
	if opts.MaxPages < 1 {
		opts.MaxPages = 10
	}

	var all []Transaction
	next := ""
	for page := 1; page <= opts.MaxPages; page++ {
		p, err := c.GetTransactionsPage(ctx, accountID, next, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Transactions...)
		if p.Next == "" {
			break
		}
		next = p.Next
	}
	return all, nil
}

func (c *Client) transactionsURL(accountID string, opts FetchOptions) string {
	u := c.BaseURL + "/accounts/" + url.PathEscape(accountID) + "/transactions"
	if opts.Start == nil && opts.End == nil {
		return u
	}

	q := url.Values{}
	if opts.Start != nil {
		q.Set("start", opts.Start.Format(DateLayout))
	}
	if opts.End != nil {
		q.Set("end", opts.End.Format(DateLayout))
	}
	q.Set("paginate", "true")
	return u + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, target string, payload interface{}) (*envelope, error) {
	if c.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("mono-sec-key", c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(bodyBytes, &env) == nil {
			apiErr.Message = env.Message
		}
		if json.Valid(bodyBytes) {
			apiErr.Body = bodyBytes
		}
		logger.Log.Warn("mono request failed",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	var env envelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &env, nil
}
