package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/logger"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/session"
)

func init() {
	logger.Initialize()
}

// fakeTokenClient counts Authenticate calls and hands out sequentially
// numbered tokens, or a fixed error.
type fakeTokenClient struct {
	calls  atomic.Int64
	expiry time.Duration
	err    error
}

func (f *fakeTokenClient) Authenticate(_ context.Context, _ Credentials) (*oauth2.Token, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	token := &oauth2.Token{AccessToken: fmt.Sprintf("token-%d", n)}
	if f.expiry != 0 {
		token.Expiry = time.Now().Add(f.expiry)
	}
	return token, nil
}

func newTestAuthenticator(t *testing.T, client TokenClient, opts ...AuthenticatorOption) (*Authenticator, *session.LocalStorage) {
	t.Helper()
	store := session.NewLocalStorage()
	a, err := NewAuthenticator(store, client, opts...)
	require.NoError(t, err)
	return a, store
}

func TestNewAuthenticatorValidation(t *testing.T) {
	t.Parallel()

	_, err := NewAuthenticator(nil, &fakeTokenClient{})
	assert.Error(t, err)

	_, err = NewAuthenticator(session.NewLocalStorage(), nil)
	assert.Error(t, err)
}

func TestResolveColdSession(t *testing.T) {
	t.Parallel()
	client := &fakeTokenClient{expiry: time.Hour}
	a, store := newTestAuthenticator(t, client)

	token, err := a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token.AccessToken)
	assert.EqualValues(t, 1, client.calls.Load())

	entry, err := store.Load(t.Context(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, token, entry.Token)
}

func TestResolveCacheHit(t *testing.T) {
	t.Parallel()
	client := &fakeTokenClient{expiry: time.Hour}
	a, _ := newTestAuthenticator(t, client)

	first, err := a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)

	second, err := a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)

	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.EqualValues(t, 1, client.calls.Load(), "cache hit must not reach the upstream")
}

func TestResolveExpiredTokenRefreshes(t *testing.T) {
	t.Parallel()
	// Tokens live one second while the margin is a minute, so every cached
	// token is already inside the margin on the next resolve.
	client := &fakeTokenClient{expiry: time.Second}
	a, _ := newTestAuthenticator(t, client, WithExpiryMargin(time.Minute))

	first, err := a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)

	second, err := a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.EqualValues(t, 2, client.calls.Load())
}

func TestResolveZeroExpiryTokenIsValid(t *testing.T) {
	t.Parallel()
	client := &fakeTokenClient{} // no expiry set
	a, _ := newTestAuthenticator(t, client)

	_, err := a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)
	_, err = a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)

	assert.EqualValues(t, 1, client.calls.Load())
}

func TestResolveCredentialChangeOverwrites(t *testing.T) {
	t.Parallel()
	client := &fakeTokenClient{expiry: time.Hour}
	a, store := newTestAuthenticator(t, client)

	_, err := a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)

	other := validCredentials()
	other.Username = "someone-else@example.com"
	otherFP, err := other.Fingerprint()
	require.NoError(t, err)

	token, err := a.Resolve(t.Context(), "session-1", other)
	require.NoError(t, err)
	assert.Equal(t, "token-2", token.AccessToken)
	assert.EqualValues(t, 2, client.calls.Load())

	// The stored entry now belongs to the new identity.
	entry, err := store.Load(t.Context(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, otherFP, entry.Fingerprint)
	assert.Equal(t, token, entry.Token)
}

func TestResolveInvalidCredentials(t *testing.T) {
	t.Parallel()
	client := &fakeTokenClient{}
	a, _ := newTestAuthenticator(t, client)

	_, err := a.Resolve(t.Context(), "session-1", Credentials{Username: "only"})
	var invalidErr *InvalidCredentialsError
	assert.ErrorAs(t, err, &invalidErr)
	assert.EqualValues(t, 0, client.calls.Load(), "validation failures must not reach the upstream")
}

func TestResolveUpstreamErrorNotCached(t *testing.T) {
	t.Parallel()
	upstreamErr := errors.New("401 unauthorized")
	client := &fakeTokenClient{err: upstreamErr}
	a, store := newTestAuthenticator(t, client)

	_, err := a.Resolve(t.Context(), "session-1", validCredentials())
	assert.ErrorIs(t, err, upstreamErr)

	_, err = store.Load(t.Context(), "session-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestResolveConcurrentColdSession(t *testing.T) {
	t.Parallel()
	const goroutines = 16

	client := &fakeTokenClient{expiry: time.Hour}
	a, store := newTestAuthenticator(t, client)

	var wg sync.WaitGroup
	tokens := make([]*oauth2.Token, goroutines)
	errs := make([]error, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = a.Resolve(context.Background(), "session-1", validCredentials())
		}()
	}
	wg.Wait()

	for i := range goroutines {
		require.NoError(t, errs[i])
		require.NotNil(t, tokens[i])
	}

	// Coalescing keeps the upstream call count well below the goroutine
	// count, and the store ends with exactly one intact entry.
	calls := client.calls.Load()
	assert.GreaterOrEqual(t, calls, int64(1))
	assert.LessOrEqual(t, calls, int64(goroutines))

	entry, err := store.Load(context.Background(), "session-1")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.Token.AccessToken)
	assert.NotEmpty(t, entry.Fingerprint)
}

func TestInvalidate(t *testing.T) {
	t.Parallel()
	client := &fakeTokenClient{expiry: time.Hour}
	a, store := newTestAuthenticator(t, client)

	_, err := a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)

	require.NoError(t, a.Invalidate(t.Context(), "session-1"))
	_, err = store.Load(t.Context(), "session-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	// The next resolve authenticates fresh.
	token, err := a.Resolve(t.Context(), "session-1", validCredentials())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token.AccessToken)
}

func TestFpPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", fpPrefix("short"))
	assert.Equal(t, "abcdefgh...", fpPrefix("abcdefghijklmnop"))
}
