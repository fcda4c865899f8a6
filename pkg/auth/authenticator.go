package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/logger"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/session"
)

// DefaultExpiryMargin is how early a cached token is treated as expired,
// guarding against upstream clock skew and in-flight request latency.
const DefaultExpiryMargin = 30 * time.Second

// TokenClient performs the upstream authentication handshake.
// pkg/xbrl.Client is the production implementation.
type TokenClient interface {
	Authenticate(ctx context.Context, creds Credentials) (*oauth2.Token, error)
}

// Authenticator resolves a session identity and credential bundle to a valid
// upstream access token, reusing the cached token where possible.
//
// Concurrency: resolves for the same session and credential set are coalesced
// through singleflight, so a swarm of concurrent calls on a cold session
// performs a single upstream authentication. The session store's per-key
// atomic replace guarantees no corrupted entries even without coalescing.
type Authenticator struct {
	store        session.Storage
	client       TokenClient
	expiryMargin time.Duration

	// group coalesces concurrent authentications per (session, fingerprint)
	group singleflight.Group
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithExpiryMargin overrides the safety margin applied to token expiry checks.
func WithExpiryMargin(margin time.Duration) AuthenticatorOption {
	return func(a *Authenticator) {
		a.expiryMargin = margin
	}
}

// NewAuthenticator creates an Authenticator over the given session store and
// token client.
func NewAuthenticator(store session.Storage, client TokenClient, opts ...AuthenticatorOption) (*Authenticator, error) {
	if store == nil {
		return nil, errors.New("session store cannot be nil")
	}
	if client == nil {
		return nil, errors.New("token client cannot be nil")
	}

	a := &Authenticator{
		store:        store,
		client:       client,
		expiryMargin: DefaultExpiryMargin,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Resolve returns a valid access token for the session, authenticating
// against the upstream token endpoint only when necessary:
//
//   - no cached entry for the session: authenticate and store
//   - cached entry obtained with different credentials: authenticate and
//     overwrite, so a reused session slot never serves another identity's token
//   - cached token expired (with safety margin): re-authenticate and replace
//   - cached token valid and credentials unchanged: return it as-is
//
// Credential validation failures propagate immediately with no store access
// and no network call.
func (a *Authenticator) Resolve(ctx context.Context, sessionID string, creds Credentials) (*oauth2.Token, error) {
	fp, err := creds.Fingerprint()
	if err != nil {
		return nil, err
	}

	if token, ok := a.cachedToken(ctx, sessionID, fp); ok {
		logger.Debugw("reusing cached token", "session_id", sessionID, "fingerprint", fpPrefix(fp))
		return token, nil
	}

	// Coalesce concurrent authentications for the same session and
	// credential set. The key includes the fingerprint so a credential
	// change does not wait behind an in-flight authentication for the old
	// identity.
	result, err, shared := a.group.Do(sessionID+":"+fp, func() (any, error) {
		// Double-check the store after acquiring the flight: another
		// goroutine may have authenticated while we were waiting.
		if token, ok := a.cachedToken(ctx, sessionID, fp); ok {
			return token, nil
		}
		return a.authenticate(ctx, sessionID, fp, creds)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debugw("authentication coalesced with concurrent resolve", "session_id", sessionID)
	}

	return result.(*oauth2.Token), nil
}

// Invalidate drops the cached entry for a session. Called when the upstream
// API rejects a token the cache believed valid, so the next Resolve
// authenticates fresh.
func (a *Authenticator) Invalidate(ctx context.Context, sessionID string) error {
	return a.store.Delete(ctx, sessionID)
}

// cachedToken returns the stored token when the entry matches the credential
// fingerprint and is not expired. A single "now" read keeps the expiry
// comparison consistent.
func (a *Authenticator) cachedToken(ctx context.Context, sessionID, fp string) (*oauth2.Token, bool) {
	entry, err := a.store.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			logger.Warnw("session store load failed", "session_id", sessionID, "error", err)
		}
		return nil, false
	}

	if entry.Fingerprint != fp {
		logger.Infow("credentials changed for session, discarding cached token",
			"session_id", sessionID, "fingerprint", fpPrefix(fp))
		return nil, false
	}

	if !a.tokenValid(entry.Token, time.Now()) {
		return nil, false
	}

	return entry.Token, true
}

// authenticate performs the upstream handshake and replaces the session entry
// atomically (fingerprint and token together). The entry is only written
// after a complete successful response.
func (a *Authenticator) authenticate(ctx context.Context, sessionID, fp string, creds Credentials) (*oauth2.Token, error) {
	token, err := a.client.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	entry := session.NewEntry(sessionID, fp, token)
	if prev, loadErr := a.store.Load(ctx, sessionID); loadErr == nil {
		entry = prev.Replace(fp, token)
	}

	if err := a.store.Store(ctx, entry); err != nil {
		// The token itself is good; a store failure is fatal for caching
		// but not for this request.
		logger.Errorw("failed to cache session token", "session_id", sessionID, "error", err)
	}

	logger.Infow("authenticated session against upstream",
		"session_id", sessionID, "fingerprint", fpPrefix(fp))
	return token, nil
}

// tokenValid reports whether a token is usable at the given instant,
// applying the expiry safety margin. A zero expiry means the upstream did
// not bound the token's lifetime.
func (a *Authenticator) tokenValid(token *oauth2.Token, now time.Time) bool {
	if token == nil || token.AccessToken == "" {
		return false
	}
	if token.Expiry.IsZero() {
		return true
	}
	return now.Before(token.Expiry.Add(-a.expiryMargin))
}

// fpPrefix returns a short fingerprint prefix for diagnostics. The full
// digest never appears in logs alongside other identifying material.
func fpPrefix(fp string) string {
	const n = 8
	if len(fp) <= n {
		return fp
	}
	return fmt.Sprintf("%s...", fp[:n])
}
