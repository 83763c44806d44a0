// Package betfair is the REST client for the Betfair Exchange API (API-NG),
// covering market discovery, order placement, cleared-order reconciliation,
// and account funds.
package betfair

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	bettingPath = "/betting/rest/v1.0/"
	accountPath = "/account/rest/v1.0/"
	loginPath   = "/api/certlogin"

	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
)

// Config holds credentials and endpoints for the exchange client.
type Config struct {
	AppKey    string
	Username  string
	Password  string
	CertFile  string
	KeyFile   string
	APIHost   string
	LoginHost string
	Timeout   time.Duration

	// MaxResults caps listMarketCatalogue pages.
	MaxResults int
}

// Client talks to the exchange. The session token is obtained lazily on the
// first call and refreshed when the exchange reports it invalid.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger

	mu      sync.Mutex
	session string
}

// New creates an exchange client. The certificate pair is loaded eagerly so a
// bad path fails at startup rather than at the first login.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 40
	}

	transport := &http.Transport{}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("betfair: load client certificate: %w", err)
		}
		transport.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		log: log.With("component", "betfair"),
	}, nil
}

// login performs the certificate login flow and stores the session token.
func (c *Client) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.LoginHost+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("betfair: build login request: %w", err)
	}
	req.Header.Set("X-Application", c.cfg.AppKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("betfair: login: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		SessionToken string `json:"sessionToken"`
		LoginStatus  string `json:"loginStatus"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("betfair: decode login response: %w", err)
	}
	if out.LoginStatus != "SUCCESS" || out.SessionToken == "" {
		return fmt.Errorf("betfair: login rejected: %s", out.LoginStatus)
	}

	c.mu.Lock()
	c.session = out.SessionToken
	c.mu.Unlock()

	c.log.Info("exchange session established")
	return nil
}

// sessionToken returns the cached token, logging in first when none exists.
func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.session
	c.mu.Unlock()
	if tok != "" {
		return tok, nil
	}

	if err := c.login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	tok = c.session
	c.mu.Unlock()
	return tok, nil
}

// invalidateSession drops the cached token so the next call logs in again.
func (c *Client) invalidateSession() {
	c.mu.Lock()
	c.session = ""
	c.mu.Unlock()
}

// call POSTs params to an API-NG REST method and decodes the response into
// out. Transient failures are retried with exponential backoff; an invalid
// session triggers one re-login per attempt.
func (c *Client) call(ctx context.Context, basePath, method string, params, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("betfair: marshal %s params: %w", method, err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.doCall(ctx, basePath, method, body, out)
		if lastErr == nil {
			return nil
		}
		if strings.Contains(lastErr.Error(), "INVALID_SESSION_INFORMATION") {
			c.invalidateSession()
		}
		c.log.Warn("exchange call failed",
			"method", method, "attempt", attempt+1, "error", lastErr)
	}
	return fmt.Errorf("betfair: %s after %d attempts: %w", method, maxAttempts, lastErr)
}

func (c *Client) doCall(ctx context.Context, basePath, method string, body []byte, out any) error {
	tok, err := c.sessionToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.APIHost+basePath+method+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Application", c.cfg.AppKey)
	req.Header.Set("X-Authentication", tok)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail.APINGException.ErrorCode != "" {
			return fmt.Errorf("exchange error %s", apiErr.Detail.APINGException.ErrorCode)
		}
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ListEventTypes returns the sport categories matching the filter.
func (c *Client) ListEventTypes(ctx context.Context, filter MarketFilter) ([]EventTypeResult, error) {
	var out []EventTypeResult
	err := c.call(ctx, bettingPath, "listEventTypes", map[string]any{
		"filter": filter,
	}, &out)
	return out, err
}

// ListCompetitions returns the competitions matching the filter.
func (c *Client) ListCompetitions(ctx context.Context, filter MarketFilter) ([]CompetitionResult, error) {
	var out []CompetitionResult
	err := c.call(ctx, bettingPath, "listCompetitions", map[string]any{
		"filter": filter,
	}, &out)
	return out, err
}

// ListMarketCatalogue returns market metadata, including event, competition,
// and runner descriptions.
func (c *Client) ListMarketCatalogue(ctx context.Context, filter MarketFilter) ([]MarketCatalogue, error) {
	var out []MarketCatalogue
	err := c.call(ctx, bettingPath, "listMarketCatalogue", map[string]any{
		"filter": filter,
		"marketProjection": []string{
			"EVENT", "COMPETITION", "RUNNER_DESCRIPTION", "MARKET_START_TIME",
		},
		"sort":       "MAXIMUM_TRADED",
		"maxResults": c.cfg.MaxResults,
	}, &out)
	return out, err
}

// ListMarketBook returns live prices and matched volume for the given
// markets.
func (c *Client) ListMarketBook(ctx context.Context, marketIDs []string) ([]MarketBook, error) {
	var out []MarketBook
	err := c.call(ctx, bettingPath, "listMarketBook", map[string]any{
		"marketIds": marketIDs,
		"priceProjection": map[string]any{
			"priceData": []string{"EX_BEST_OFFERS"},
		},
	}, &out)
	return out, err
}

// PlaceOrders submits limit instructions for a single market. The exchange
// accepts at most one market per call, so callers group their orders by
// market id first.
func (c *Client) PlaceOrders(ctx context.Context, marketID string, instructions []PlaceInstruction) (PlaceExecutionReport, error) {
	var out PlaceExecutionReport
	err := c.call(ctx, bettingPath, "placeOrders", map[string]any{
		"marketId":     marketID,
		"instructions": instructions,
	}, &out)
	return out, err
}

// ListClearedOrders returns settled orders for the given bet ids.
func (c *Client) ListClearedOrders(ctx context.Context, betIDs []string) (ClearedOrderSummaryReport, error) {
	var out ClearedOrderSummaryReport
	err := c.call(ctx, bettingPath, "listClearedOrders", map[string]any{
		"betStatus":              "SETTLED",
		"betIds":                 betIDs,
		"includeItemDescription": true,
	}, &out)
	return out, err
}

// GetAccountFunds returns the wallet balance and exposure.
func (c *Client) GetAccountFunds(ctx context.Context) (AccountFunds, error) {
	var out AccountFunds
	err := c.call(ctx, accountPath, "getAccountFunds", map[string]any{}, &out)
	return out, err
}
