package auth

import (
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCredentials() Credentials {
	return Credentials{
		Username:     "analyst@example.com",
		Password:     "hunter2",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
}

func TestCredentialsValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		creds       Credentials
		wantMissing []string
	}{
		{
			name:  "all fields present",
			creds: validCredentials(),
		},
		{
			name: "missing password",
			creds: Credentials{
				Username:     "analyst@example.com",
				ClientID:     "client-id",
				ClientSecret: "client-secret",
			},
			wantMissing: []string{"password"},
		},
		{
			name:        "all fields missing",
			creds:       Credentials{},
			wantMissing: []string{"username", "password", "client_id", "client_secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.creds.Validate()
			if len(tt.wantMissing) == 0 {
				assert.NoError(t, err)
				return
			}
			var invalidErr *InvalidCredentialsError
			require.ErrorAs(t, err, &invalidErr)
			assert.Equal(t, tt.wantMissing, invalidErr.Missing)
		})
	}
}

func TestCredentialsFingerprint(t *testing.T) {
	t.Parallel()

	creds := validCredentials()
	fp1, err := creds.Fingerprint()
	require.NoError(t, err)
	fp2, err := creds.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2, "fingerprint must be deterministic")
	assert.Len(t, fp1, 64, "hex-encoded SHA-256 digest")

	// Any field change must produce a different fingerprint.
	changed := validCredentials()
	changed.Password = "different"
	fp3, err := changed.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)

	// Field boundaries are unambiguous: shifting a character across fields
	// must not collide.
	a := Credentials{Username: "ab", Password: "c", ClientID: "x", ClientSecret: "y"}
	b := Credentials{Username: "a", Password: "bc", ClientID: "x", ClientSecret: "y"}
	fpA, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, err := b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB)
}

func TestCredentialsFingerprintInvalid(t *testing.T) {
	t.Parallel()
	creds := Credentials{Username: "only"}
	_, err := creds.Fingerprint()
	var invalidErr *InvalidCredentialsError
	assert.ErrorAs(t, err, &invalidErr)
}

func TestCredentialsStringRedacts(t *testing.T) {
	t.Parallel()
	creds := validCredentials()
	s := creds.String()
	assert.Contains(t, s, creds.Username)
	assert.NotContains(t, s, creds.Password)
	assert.NotContains(t, s, creds.ClientSecret)
	assert.NotContains(t, s, creds.ClientID)
	assert.Contains(t, s, redactedPlaceholder)
}

func TestFromEnv(t *testing.T) {
	t.Run("all variables set", func(t *testing.T) {
		t.Setenv(EnvUsername, "analyst@example.com")
		t.Setenv(EnvPassword, "hunter2")
		t.Setenv(EnvClientID, "client-id")
		t.Setenv(EnvClientSecret, "client-secret")

		creds, ok := FromEnv()
		require.True(t, ok)
		assert.Equal(t, validCredentials(), *creds)
	})

	t.Run("partial variables", func(t *testing.T) {
		t.Setenv(EnvUsername, "analyst@example.com")
		t.Setenv(EnvPassword, "")
		t.Setenv(EnvClientID, "")
		t.Setenv(EnvClientSecret, "")

		creds, ok := FromEnv()
		assert.False(t, ok)
		assert.Nil(t, creds)
	})
}

func TestParseConfigPayload(t *testing.T) {
	t.Parallel()

	validJSON := `{"username":"analyst@example.com","password":"hunter2","client_id":"client-id","client_secret":"client-secret"}`

	tests := []struct {
		name    string
		payload string
		want    *Credentials
		wantErr string
	}{
		{
			name:    "standard base64",
			payload: base64.StdEncoding.EncodeToString([]byte(validJSON)),
			want: &Credentials{
				Username:     "analyst@example.com",
				Password:     "hunter2",
				ClientID:     "client-id",
				ClientSecret: "client-secret",
			},
		},
		{
			name:    "url-safe base64",
			payload: base64.URLEncoding.EncodeToString([]byte(validJSON)),
			want: &Credentials{
				Username:     "analyst@example.com",
				Password:     "hunter2",
				ClientID:     "client-id",
				ClientSecret: "client-secret",
			},
		},
		{
			name:    "not base64",
			payload: "%%%not-base64%%%",
			wantErr: "not valid base64",
		},
		{
			name:    "not json",
			payload: base64.StdEncoding.EncodeToString([]byte("not json")),
			wantErr: "not a valid JSON object",
		},
		{
			name:    "missing fields",
			payload: base64.StdEncoding.EncodeToString([]byte(`{"username":"analyst@example.com"}`)),
			wantErr: "missing required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			creds, err := ParseConfigPayload(tt.payload)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, creds)
		})
	}
}

func TestCredentialsFromRequest(t *testing.T) {
	validJSON := `{"username":"analyst@example.com","password":"hunter2","client_id":"client-id","client_secret":"client-secret"}`
	configPayload := base64.URLEncoding.EncodeToString([]byte(validJSON))

	t.Run("config parameter wins", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/mcp?config="+configPayload+"&username=other", nil)
		creds, err := CredentialsFromRequest(r)
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, "analyst@example.com", creds.Username)
	})

	t.Run("individual parameters", func(t *testing.T) {
		r := httptest.NewRequest("POST",
			"/mcp?username=analyst%40example.com&password=hunter2&client_id=client-id&client_secret=client-secret", nil)
		creds, err := CredentialsFromRequest(r)
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, validCredentials(), *creds)
	})

	t.Run("partial individual parameters error", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/mcp?username=analyst%40example.com", nil)
		creds, err := CredentialsFromRequest(r)
		assert.Error(t, err)
		assert.Nil(t, creds)
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv(EnvUsername, "analyst@example.com")
		t.Setenv(EnvPassword, "hunter2")
		t.Setenv(EnvClientID, "client-id")
		t.Setenv(EnvClientSecret, "client-secret")

		r := httptest.NewRequest("POST", "/mcp", nil)
		creds, err := CredentialsFromRequest(r)
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, validCredentials(), *creds)
	})

	t.Run("no credential material", func(t *testing.T) {
		t.Setenv(EnvUsername, "")
		t.Setenv(EnvPassword, "")
		t.Setenv(EnvClientID, "")
		t.Setenv(EnvClientSecret, "")

		r := httptest.NewRequest("POST", "/mcp", nil)
		creds, err := CredentialsFromRequest(r)
		assert.NoError(t, err)
		assert.Nil(t, creds)
	})
}

func TestWithCredentialsRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	_, ok := CredentialsFromContext(ctx)
	assert.False(t, ok)

	// Nil credentials leave the context untouched.
	ctx2 := WithCredentials(ctx, nil)
	_, ok = CredentialsFromContext(ctx2)
	assert.False(t, ok)

	creds := validCredentials()
	ctx3 := WithCredentials(ctx, &creds)
	got, ok := CredentialsFromContext(ctx3)
	require.True(t, ok)
	assert.Equal(t, &creds, got)
}
