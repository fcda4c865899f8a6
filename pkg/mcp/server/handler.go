// Package server provides the MCP (Model Context Protocol) server
// implementation for the XBRL-US financial data API.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/oauth2"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/auth"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/logger"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/xbrl"
)

// TokenResolver resolves a session identity and credential bundle to a valid
// access token. auth.Authenticator is the production implementation.
type TokenResolver interface {
	Resolve(ctx context.Context, sessionID string, creds auth.Credentials) (*oauth2.Token, error)
	Invalidate(ctx context.Context, sessionID string) error
}

// QueryClient performs authenticated queries against the XBRL-US API.
// xbrl.Client is the production implementation.
type QueryClient interface {
	SearchFacts(ctx context.Context, token *oauth2.Token, q xbrl.FactQuery) ([]byte, error)
	SearchFactsByYear(ctx context.Context, token *oauth2.Token, q xbrl.FactsByYearQuery) ([]byte, error)
	SearchConcepts(ctx context.Context, token *oauth2.Token, q xbrl.ConceptQuery) ([]byte, error)
	SearchEntities(ctx context.Context, token *oauth2.Token, q xbrl.EntityQuery) ([]byte, error)
	SearchReports(ctx context.Context, token *oauth2.Token, q xbrl.ReportQuery) ([]byte, error)
}

// Handler handles MCP tool requests for XBRL-US data
type Handler struct {
	resolver TokenResolver
	client   QueryClient
}

// NewHandler creates a new XBRL-US tool handler
func NewHandler(resolver TokenResolver, client QueryClient) *Handler {
	return &Handler{
		resolver: resolver,
		client:   client,
	}
}

// fallbackSessionID identifies tool calls arriving over a transport that
// assigns no session, so they still share one cache slot for the process
// lifetime rather than re-authenticating on every call.
var fallbackSessionID = "local-" + uuid.NewString()

// sessionIDFromContext returns the MCP session identifier for the current
// tool call.
func sessionIDFromContext(ctx context.Context) string {
	if cs := server.ClientSessionFromContext(ctx); cs != nil && cs.SessionID() != "" {
		return cs.SessionID()
	}
	return fallbackSessionID
}

// errAuthRequired is reported when a tool call carries no credential material.
var errAuthRequired = errors.New(
	"XBRL authentication required. Please provide valid credentials in the request")

// callWithAuth resolves a token for the current session and invokes the
// query. A token the cache believed valid but the upstream rejected triggers
// exactly one invalidate-re-resolve-retry cycle; a second rejection is
// surfaced as an authentication failure rather than looping.
func (h *Handler) callWithAuth(ctx context.Context, query func(token *oauth2.Token) ([]byte, error)) ([]byte, error) {
	creds, ok := auth.CredentialsFromContext(ctx)
	if !ok {
		return nil, errAuthRequired
	}
	sessionID := sessionIDFromContext(ctx)

	token, err := h.resolver.Resolve(ctx, sessionID, *creds)
	if err != nil {
		return nil, err
	}

	result, err := query(token)
	if !errors.Is(err, xbrl.ErrTokenExpired) {
		return result, err
	}

	// The cached token looked valid but the upstream invalidated it.
	logger.Infow("upstream rejected cached token, re-authenticating once", "session_id", sessionID)
	if invErr := h.resolver.Invalidate(ctx, sessionID); invErr != nil {
		logger.Warnw("failed to invalidate session entry", "session_id", sessionID, "error", invErr)
	}

	token, err = h.resolver.Resolve(ctx, sessionID, *creds)
	if err != nil {
		return nil, err
	}

	result, err = query(token)
	if errors.Is(err, xbrl.ErrTokenExpired) {
		return nil, &xbrl.AuthFailedError{Reason: "upstream rejected a freshly issued token"}
	}
	return result, err
}

// toolErrorMessage maps an error from the auth/query pipeline to the
// human-readable message returned to the tool caller. Secrets never appear
// in these messages.
func toolErrorMessage(err error) string {
	var invalidCreds *auth.InvalidCredentialsError
	var authFailed *xbrl.AuthFailedError
	var rateLimited *xbrl.RateLimitedError
	var transient *xbrl.TransientError

	switch {
	case errors.Is(err, errAuthRequired):
		return err.Error()
	case errors.As(err, &invalidCreds):
		return fmt.Sprintf("Invalid XBRL-US credentials: %v", invalidCreds)
	case errors.As(err, &authFailed):
		return fmt.Sprintf("XBRL-US credentials were rejected: %v. Please verify your username, password, client ID and client secret.", authFailed)
	case errors.As(err, &rateLimited):
		if rateLimited.RetryAfter > 0 {
			return fmt.Sprintf("XBRL-US API rate limit exceeded. Retry after %s.", rateLimited.RetryAfter)
		}
		return "XBRL-US API rate limit exceeded. Please retry later."
	case errors.As(err, &transient):
		return fmt.Sprintf("Temporary network problem reaching the XBRL-US API: %v. This is safe to retry.", transient)
	default:
		return fmt.Sprintf("Failed to fetch XBRL data: %v", err)
	}
}

// Parameter validation bounds. The API caps result pages; years outside the
// window cannot match any filing.
const (
	minYear  = 1900
	maxYear  = 2100
	maxLimit = 100
)

// validateYear checks that a year is a plausible 4-digit fiscal year.
// Zero is allowed and means "no year filter".
func validateYear(year int) error {
	if year == 0 {
		return nil
	}
	if year < minYear || year > maxYear {
		return fmt.Errorf("year must be between %d and %d, got %d", minYear, maxYear, year)
	}
	return nil
}

// validateLimit normalizes a result limit: zero takes the tool default,
// negative or oversized values are rejected.
func validateLimit(limit, defaultLimit int) (int, error) {
	if limit == 0 {
		return defaultLimit, nil
	}
	if limit < 0 {
		return 0, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if limit > maxLimit {
		return 0, fmt.Errorf("limit must be at most %d, got %d", maxLimit, limit)
	}
	return limit, nil
}

// validateCIK checks that a CIK is present and numeric.
func validateCIK(cik string) error {
	if cik == "" {
		return errors.New("cik is required")
	}
	for _, r := range cik {
		if r < '0' || r > '9' {
			return fmt.Errorf("cik must be numeric, got %q", cik)
		}
	}
	return nil
}
