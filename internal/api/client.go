package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/BumpBTC/bumpcore/internal/httpx"
	"github.com/BumpBTC/bumpcore/internal/metrics"
	"github.com/BumpBTC/bumpcore/internal/models"
)

// TokenSource supplies the bearer token attached to authenticated calls and
// is cleared when the backend rejects it.
type TokenSource interface {
	Token() (string, bool)
	Clear() error
}

// Client is the typed client for the wallet backend. Each endpoint has an
// explicit response struct that is parsed and shape-checked here, at the
// boundary, so malformed payloads fail fast instead of leaking empty fields
// into the UI. Mutating calls are never retried automatically.
type Client struct {
	http *httpx.Client
	auth TokenSource
	log  zerolog.Logger
}

// NewClient creates a gateway client for the given base URL. auth may be a
// store holding no token yet; unauthenticated endpoints work regardless.
func NewClient(baseURL string, timeout time.Duration, auth TokenSource, log zerolog.Logger) *Client {
	return &Client{
		http: httpx.New(
			httpx.WithBaseURL(baseURL),
			httpx.WithTimeout(timeout),
		),
		auth: auth,
		log:  log.With().Str("component", "api_client").Logger(),
	}
}

// LoginResult is the response of POST /auth/login.
type LoginResult struct {
	Token string `json:"token"`
}

// User is the account object returned by signup.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SignupResult is the response of POST /auth/signup.
type SignupResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// WalletInfo is the response of GET /wallet/info.
type WalletInfo struct {
	Wallets      []models.Wallet      `json:"wallets"`
	Transactions []models.Transaction `json:"transactions"`
}

// SendResult is the response of POST /wallet/send-{currency}.
type SendResult struct {
	TxID string `json:"txid"`
}

// Invoice is the response of POST /lightning/create-invoice.
type Invoice struct {
	PaymentRequest string `json:"paymentRequest"`
}

// ChannelResult is the response of the Lightning channel endpoints.
type ChannelResult struct {
	ChannelID string `json:"channelId"`
}

// backendPayload is the error body shape the backend uses for 4xx/5xx.
type backendPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Login exchanges credentials for a token. A 401 here means invalid
// credentials, not an expired session.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	resp, err := c.http.Post(ctx, "/auth/login", body, nil)
	if err != nil {
		return nil, c.mapPublicError("login", err)
	}
	metrics.RecordAPIRequest("login", "success")

	var result LoginResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, c.malformed("login", err)
	}
	if result.Token == "" {
		return nil, c.malformed("login", fmt.Errorf("response missing token"))
	}
	return &result, nil
}

// Signup registers a new account and returns its first token.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*SignupResult, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	resp, err := c.http.Post(ctx, "/auth/signup", body, nil)
	if err != nil {
		return nil, c.mapPublicError("signup", err)
	}
	metrics.RecordAPIRequest("signup", "success")

	var result SignupResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, c.malformed("signup", err)
	}
	if result.Token == "" {
		return nil, c.malformed("signup", fmt.Errorf("response missing token"))
	}
	return &result, nil
}

// GetWalletInfo fetches all wallets and the transaction history.
func (c *Client) GetWalletInfo(ctx context.Context) (*WalletInfo, error) {
	resp, err := c.authedGet(ctx, "wallet_info", "/wallet/info")
	if err != nil {
		return nil, err
	}

	var info WalletInfo
	if err := resp.DecodeJSON(&info); err != nil {
		return nil, c.malformed("wallet_info", err)
	}
	for _, w := range info.Wallets {
		if w.ID == "" || !w.Type.Valid() {
			return nil, c.malformed("wallet_info", fmt.Errorf("wallet with empty id or unknown type %q", w.Type))
		}
		if w.Balance < 0 {
			return nil, c.malformed("wallet_info", fmt.Errorf("wallet %s has negative balance", w.ID))
		}
	}
	for _, tx := range info.Transactions {
		if tx.ID == "" || !tx.WalletType.Valid() {
			return nil, c.malformed("wallet_info", fmt.Errorf("transaction with empty id or unknown type %q", tx.WalletType))
		}
	}
	return &info, nil
}

// Send submits a transfer of amount (in the wallet's native unit) to
// toAddress.
func (c *Client) Send(ctx context.Context, currency models.Currency, toAddress string, amount float64) (*SendResult, error) {
	endpoint := "send_" + string(currency)
	body := map[string]interface{}{"toAddress": toAddress, "amount": amount}
	resp, err := c.authedPost(ctx, endpoint, fmt.Sprintf("/wallet/send-%s", currency), body)
	if err != nil {
		return nil, err
	}

	var result SendResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, c.malformed(endpoint, err)
	}
	if result.TxID == "" {
		return nil, c.malformed(endpoint, fmt.Errorf("response missing txid"))
	}
	return &result, nil
}

// SetActiveWallet asks the backend to mark walletID as the default wallet
// for its currency.
func (c *Client) SetActiveWallet(ctx context.Context, currency models.Currency, walletID string) error {
	body := map[string]string{"type": string(currency), "walletId": walletID}
	_, err := c.authedPost(ctx, "set_active_wallet", "/wallet/set-active", body)
	return err
}

// CreateInvoice requests a BOLT11 payment request for amountSat satoshis.
func (c *Client) CreateInvoice(ctx context.Context, amountSat int64, memo string) (*Invoice, error) {
	body := map[string]interface{}{"amount": amountSat, "memo": memo}
	resp, err := c.authedPost(ctx, "create_invoice", "/lightning/create-invoice", body)
	if err != nil {
		return nil, err
	}

	var invoice Invoice
	if err := resp.DecodeJSON(&invoice); err != nil {
		return nil, c.malformed("create_invoice", err)
	}
	if invoice.PaymentRequest == "" {
		return nil, c.malformed("create_invoice", fmt.Errorf("response missing paymentRequest"))
	}
	return &invoice, nil
}

// OpenChannel opens a Lightning channel to nodeURI funded with amountSat.
func (c *Client) OpenChannel(ctx context.Context, nodeURI string, amountSat int64) (*ChannelResult, error) {
	body := map[string]interface{}{"nodeUri": nodeURI, "amount": amountSat}
	resp, err := c.authedPost(ctx, "open_channel", "/lightning/open-channel", body)
	if err != nil {
		return nil, err
	}

	var result ChannelResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, c.malformed("open_channel", err)
	}
	return &result, nil
}

// CloseChannel closes the Lightning channel with the given id.
func (c *Client) CloseChannel(ctx context.Context, channelID string) (*ChannelResult, error) {
	body := map[string]string{"channelId": channelID}
	resp, err := c.authedPost(ctx, "close_channel", "/lightning/close-channel", body)
	if err != nil {
		return nil, err
	}

	var result ChannelResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, c.malformed("close_channel", err)
	}
	return &result, nil
}

func (c *Client) authedGet(ctx context.Context, endpoint, path string) (*httpx.Response, error) {
	resp, err := c.http.Get(ctx, path, nil, c.bearerHeaders())
	if err != nil {
		return nil, c.mapAuthedError(endpoint, err)
	}
	metrics.RecordAPIRequest(endpoint, "success")
	return resp, nil
}

func (c *Client) authedPost(ctx context.Context, endpoint, path string, body interface{}) (*httpx.Response, error) {
	resp, err := c.http.Post(ctx, path, body, c.bearerHeaders())
	if err != nil {
		return nil, c.mapAuthedError(endpoint, err)
	}
	metrics.RecordAPIRequest(endpoint, "success")
	return resp, nil
}

func (c *Client) bearerHeaders() map[string]string {
	token, ok := c.auth.Token()
	if !ok {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// mapAuthedError translates failures of bearer-authenticated calls. A 401
// invalidates the stored token immediately; the caller sees a session
// expiry and must log in again rather than retry.
func (c *Client) mapAuthedError(endpoint string, err error) error {
	metrics.RecordAPIRequest(endpoint, "failed")

	var httpErr *httpx.Error
	if !errors.As(err, &httpErr) {
		c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("Gateway request failed")
		return &Error{Kind: KindNetwork, Message: "network request failed", Err: err}
	}

	if httpErr.StatusCode == 401 {
		if clearErr := c.auth.Clear(); clearErr != nil {
			c.log.Error().Err(clearErr).Msg("Failed to clear token after 401")
		}
		c.log.Warn().Str("endpoint", endpoint).Msg("Session rejected by backend, token cleared")
		return &Error{Kind: KindSessionExpired, StatusCode: 401, Message: "session expired", Err: err}
	}

	return &Error{
		Kind:       KindBackend,
		StatusCode: httpErr.StatusCode,
		Message:    c.backendMessage(httpErr),
		Err:        err,
	}
}

// mapPublicError translates failures of the unauthenticated auth endpoints,
// where a 401 means bad credentials.
func (c *Client) mapPublicError(endpoint string, err error) error {
	metrics.RecordAPIRequest(endpoint, "failed")

	var httpErr *httpx.Error
	if !errors.As(err, &httpErr) {
		c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("Gateway request failed")
		return &Error{Kind: KindNetwork, Message: "network request failed", Err: err}
	}

	if httpErr.StatusCode == 401 || httpErr.StatusCode == 400 {
		msg := c.backendMessage(httpErr)
		if msg == "" {
			msg = "invalid credentials"
		}
		return &Error{Kind: KindAuthentication, StatusCode: httpErr.StatusCode, Message: msg, Err: err}
	}

	return &Error{
		Kind:       KindBackend,
		StatusCode: httpErr.StatusCode,
		Message:    c.backendMessage(httpErr),
		Err:        err,
	}
}

// backendMessage extracts the user-displayable message from an error
// payload, falling back to a generic one.
func (c *Client) backendMessage(httpErr *httpx.Error) string {
	if httpErr.Response != nil && len(httpErr.Response.Body) > 0 {
		var payload backendPayload
		if err := httpErr.Response.DecodeJSON(&payload); err == nil {
			if payload.Error != "" {
				return payload.Error
			}
			if payload.Message != "" {
				return payload.Message
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", httpErr.StatusCode)
}

func (c *Client) malformed(endpoint string, err error) error {
	c.log.Error().Err(err).Str("endpoint", endpoint).Msg("Malformed backend response")
	return &Error{Kind: KindBackend, Message: "malformed backend response", Err: err}
}
