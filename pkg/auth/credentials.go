package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Environment variables used as process-level default credentials when a
// request carries no per-session configuration.
const (
	EnvUsername     = "XBRL_USERNAME"
	EnvPassword     = "XBRL_PASSWORD" // #nosec G101 - env var name, not a credential
	EnvClientID     = "XBRL_CLIENT_ID"
	EnvClientSecret = "XBRL_CLIENT_SECRET" // #nosec G101 - env var name, not a credential
)

// redactedPlaceholder is used to redact sensitive values in string representations
const redactedPlaceholder = "[REDACTED]"

// Credentials is the XBRL-US credential bundle required to obtain an access
// token. All four fields are required. The bundle is treated as an opaque
// secret: it is never logged or persisted verbatim; only the fingerprint may
// appear in diagnostic output.
type Credentials struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// String implements fmt.Stringer for Credentials, redacting all secret fields.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %s, Password: %s, ClientID: %s, ClientSecret: %s}",
		c.Username, redactedPlaceholder, redactedPlaceholder, redactedPlaceholder)
}

// Validate checks that every required field is present.
// It returns an *InvalidCredentialsError naming the missing fields.
func (c Credentials) Validate() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return &InvalidCredentialsError{Missing: missing}
	}
	return nil
}

// Fingerprint returns a deterministic SHA-256 digest of the credential set,
// used for cache-key equality only. The fields are hashed in a fixed order
// with a zero-byte separator so that field boundaries are unambiguous.
// Returns an *InvalidCredentialsError instead of hashing partial data.
func (c Credentials) Fingerprint() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	h := sha256.New()
	for _, field := range []string{c.Username, c.Password, c.ClientID, c.ClientSecret} {
		h.Write([]byte(field))
		h.Write([]byte{0}) // Separator to avoid collisions
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FromEnv reads default credentials from the XBRL_* environment variables.
// Returns ok=false when any of the four variables is unset or empty.
func FromEnv() (*Credentials, bool) {
	creds := &Credentials{
		Username:     os.Getenv(EnvUsername),
		Password:     os.Getenv(EnvPassword),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
	}
	if creds.Validate() != nil {
		return nil, false
	}
	return creds, true
}

// InvalidCredentialsError indicates a credential bundle with missing or empty
// required fields. It is detected before any store access or network call.
type InvalidCredentialsError struct {
	// Missing lists the names of the absent fields.
	Missing []string
}

// Error implements the error interface.
func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials: missing required field(s): %s", strings.Join(e.Missing, ", "))
}
