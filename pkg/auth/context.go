// Package auth provides the credential model, request-boundary parsing, and
// the session-scoped authenticator for the XBRL-US MCP server.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// credentialsContextKey is the key used to store Credentials in the request context.
//
// Using an empty struct as the key prevents collisions with other context keys,
// as each empty struct type is distinct even if they have the same name in
// different packages.
type credentialsContextKey struct{}

// WithCredentials stores a credential bundle in the context.
// If creds is nil, the original context is returned unchanged.
//
// This is called at the transport boundary after decoding the caller-supplied
// configuration payload, making the credentials available to tool handlers.
func WithCredentials(ctx context.Context, creds *Credentials) context.Context {
	if creds == nil {
		return ctx
	}
	return context.WithValue(ctx, credentialsContextKey{}, creds)
}

// CredentialsFromContext retrieves the credential bundle from the context.
// Returns the credentials and true if present, nil and false otherwise.
func CredentialsFromContext(ctx context.Context) (*Credentials, bool) {
	creds, ok := ctx.Value(credentialsContextKey{}).(*Credentials)
	return creds, ok
}

// ParseConfigPayload decodes a base64-encoded JSON configuration object with
// the four credential fields. This is the payload format MCP clients supply
// via the "config" request parameter.
func ParseConfigPayload(payload string) (*Credentials, error) {
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients URL-encode the payload, which maps + and / to - and _.
		decoded, err = base64.URLEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("config payload is not valid base64: %w", err)
		}
	}

	var creds Credentials
	if err := json.Unmarshal(decoded, &creds); err != nil {
		return nil, fmt.Errorf("config payload is not a valid JSON object: %w", err)
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &creds, nil
}

// CredentialsFromRequest extracts a credential bundle from an inbound HTTP
// request, in priority order:
//
//  1. the base64-encoded JSON "config" query parameter,
//  2. the individual username/password/client_id/client_secret query
//     parameters,
//  3. the XBRL_* environment variables.
//
// Returns nil and no error when the request carries no credential material at
// all; tool handlers report the missing-authentication condition themselves.
func CredentialsFromRequest(r *http.Request) (*Credentials, error) {
	query := r.URL.Query()

	if payload := query.Get("config"); payload != "" {
		return ParseConfigPayload(payload)
	}

	creds := Credentials{
		Username:     query.Get("username"),
		Password:     query.Get("password"),
		ClientID:     query.Get("client_id"),
		ClientSecret: query.Get("client_secret"),
	}
	if creds != (Credentials{}) {
		if err := creds.Validate(); err != nil {
			return nil, err
		}
		return &creds, nil
	}

	if envCreds, ok := FromEnv(); ok {
		return envCreds, nil
	}

	return nil, nil
}
