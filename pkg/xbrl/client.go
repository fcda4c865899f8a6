// Package xbrl provides the HTTP client for the XBRL-US API: the OAuth-style
// password-grant handshake against the token endpoint and the authenticated
// query calls against the search endpoints.
package xbrl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/auth"
)

const (
	// DefaultBaseURL is the production XBRL-US API endpoint.
	DefaultBaseURL = "https://api.xbrl.us"

	// tokenPath is the OAuth 2.0 token endpoint path.
	tokenPath = "/oauth2/token" // #nosec G101 - URL path, not a credential

	// apiPrefix is the path prefix for all query endpoints.
	apiPrefix = "/api/v1"

	// grantTypePassword is the OAuth 2.0 resource owner password grant type.
	grantTypePassword = "password"

	// defaultHTTPTimeout is the timeout for HTTP requests
	defaultHTTPTimeout = 30 * time.Second

	// maxResponseBodySize is the maximum size for reading response bodies (1 MB)
	maxResponseBodySize = 1 << 20

	// redactedPlaceholder is used to redact sensitive values in string representations
	redactedPlaceholder = "[REDACTED]"

	// emptyPlaceholder is used to indicate empty/missing values in string representations
	emptyPlaceholder = "<empty>"
)

// oAuthError represents an OAuth 2.0 error response as defined in RFC 6749 Section 5.2.
type oAuthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
	StatusCode       int    `json:"-"`
}

func (e *oAuthError) String() string {
	if e.ErrorDescription != "" {
		return fmt.Sprintf("OAuth error %q (status %d): %s", e.Error, e.StatusCode, e.ErrorDescription)
	}
	return fmt.Sprintf("OAuth error %q (status %d)", e.Error, e.StatusCode)
}

// parseOAuthError attempts to parse an OAuth error response from the given response body.
func parseOAuthError(statusCode int, body []byte) *oAuthError {
	var oauthErr oAuthError
	if err := json.Unmarshal(body, &oauthErr); err != nil {
		return nil
	}
	if oauthErr.Error == "" {
		return nil
	}
	oauthErr.StatusCode = statusCode
	return &oauthErr
}

// tokenResponse is used to decode the token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// String implements fmt.Stringer for tokenResponse, redacting sensitive tokens.
func (r tokenResponse) String() string {
	accessToken := redactedPlaceholder
	if r.AccessToken == "" {
		accessToken = emptyPlaceholder
	}

	refreshToken := redactedPlaceholder
	if r.RefreshToken == "" {
		refreshToken = emptyPlaceholder
	}

	return fmt.Sprintf("tokenResponse{AccessToken: %s, TokenType: %s, ExpiresIn: %d, RefreshToken: %s}",
		accessToken, r.TokenType, r.ExpiresIn, refreshToken)
}

// Client is the XBRL-US API client. It performs the authentication handshake
// and the authenticated query calls. It never retries: classification of
// failures (transient, rate limited, token expired) is surfaced to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used for testing and for
// self-hosted API deployments.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout on the HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates an XBRL-US API client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate performs the password-grant handshake against the token
// endpoint and returns the resulting access token with its absolute expiry.
//
// Upstream rejection of the credentials yields an *AuthFailedError and must
// not be retried. Network-level failures yield a *TransientError; retrying
// with backoff is at the caller's discretion.
func (c *Client) Authenticate(ctx context.Context, creds auth.Credentials) (*oauth2.Token, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("grant_type", grantTypePassword)
	data.Set("client_id", creds.ClientID)
	data.Set("client_secret", creds.ClientSecret)
	data.Set("username", creds.Username)
	data.Set("password", creds.Password)
	data.Set("platform", "pc")

	encodedData := data.Encode()
	endpoint := c.baseURL + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encodedData))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Content-Length", strconv.Itoa(len(encodedData)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "authenticate", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &TransientError{Op: "authenticate", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyTokenError(resp.StatusCode, endpoint, body, resp.Header.Get("Retry-After"))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned empty access_token")
	}

	token := &oauth2.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
	}
	if tokenResp.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}
	if tokenResp.RefreshToken != "" {
		token.RefreshToken = tokenResp.RefreshToken
	}

	return token, nil
}

// classifyTokenError maps a non-200 token endpoint response to the error taxonomy.
func classifyTokenError(statusCode int, endpoint string, body []byte, retryAfter string) error {
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		reason := "upstream rejected credentials"
		if oauthErr := parseOAuthError(statusCode, body); oauthErr != nil {
			reason = oauthErr.String()
		}
		return &AuthFailedError{Reason: reason}
	case http.StatusTooManyRequests:
		return &RateLimitedError{
			RetryAfter: parseRetryAfter(retryAfter),
			URL:        endpoint,
		}
	default:
		return NewHTTPError(statusCode, endpoint, bodyPreview(body))
	}
}

// Query performs an authenticated GET against one of the query endpoints
// (for example "/fact/search") and returns the raw JSON response body.
//
// A 401 response yields ErrTokenExpired so the caller can distinguish
// "needs re-auth" from "credentials are wrong". A 429 response yields a
// *RateLimitedError carrying the Retry-After hint when the server provided
// one. Query does not retry.
func (c *Client) Query(ctx context.Context, token *oauth2.Token, endpoint string, params url.Values) ([]byte, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("query requires a non-empty access token")
	}

	requestURL := c.baseURL + apiPrefix + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "query", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &TransientError{Op: "query", Cause: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: HTTP 401 for %s", ErrTokenExpired, endpoint)
	case http.StatusTooManyRequests:
		return nil, &RateLimitedError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			URL:        requestURL,
		}
	default:
		return nil, NewHTTPError(resp.StatusCode, requestURL, bodyPreview(body))
	}
}

// parseRetryAfter parses a Retry-After header value in seconds.
// Returns zero for absent or unparseable values.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// bodyPreview returns a short, single-line preview of a response body for
// inclusion in error messages.
func bodyPreview(body []byte) string {
	const maxPreview = 200
	preview := strings.TrimSpace(string(body))
	preview = strings.ReplaceAll(preview, "\n", " ")
	if len(preview) > maxPreview {
		preview = preview[:maxPreview] + "..."
	}
	if preview == "" {
		preview = "<empty body>"
	}
	return preview
}
