package dropbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

// defaultExpiresIn applies when the token response has no expires_in.
const defaultExpiresIn = 3600

// expirySkew is subtracted so a token is refreshed slightly early.
const expirySkew = 30

// Token is the result of a code exchange or refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	AccountID    string
	Scope        string
	ExpiresAt    time.Time
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    c.cfg.AppKey,
		RedirectURL: c.cfg.RedirectURI,
		Scopes:      c.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.cfg.AuthURL,
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// NewVerifier returns a fresh PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthorizationURL builds the authorize URL for an S256 PKCE flow with
// offline access.
func (c *Client) AuthorizationURL(state, verifier string) string {
	return c.oauthConfig().AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("token_access_type", "offline"),
	)
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Token, error) {
	if c.cfg.AppKey == "" {
		return nil, kerrors.ErrMissingAppKey
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)

	tok, err := c.oauthConfig().Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, tokenError("code exchange", err)
	}
	return c.fromOAuth(tok), nil
}

// Refresh obtains a new access token. The refresh token is carried over when
// the response omits it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if c.cfg.AppKey == "" {
		return nil, kerrors.ErrMissingAppKey
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", kerrors.ErrAuthRevoked)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)

	// An already-expired token forces the source to refresh.
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	tok, err := c.oauthConfig().TokenSource(ctx, expired).Token()
	if err != nil {
		return nil, tokenError("token refresh", err)
	}
	return c.fromOAuth(tok), nil
}

func (c *Client) fromOAuth(tok *oauth2.Token) *Token {
	now := c.cfg.Now()
	secs := tok.ExpiresIn
	if secs <= 0 && !tok.Expiry.IsZero() {
		secs = int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
	}
	if secs <= 0 {
		secs = defaultExpiresIn
	}

	out := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(secs-expirySkew) * time.Second),
	}
	if v, ok := tok.Extra("account_id").(string); ok {
		out.AccountID = v
	}
	if v, ok := tok.Extra("scope").(string); ok {
		out.Scope = v
	}
	return out
}

func tokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		switch re.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return fmt.Errorf("%w: %s rejected: %s", kerrors.ErrAuthRevoked, op, re.ErrorCode)
		}
		return fmt.Errorf("%w: %s: HTTP %d", kerrors.ErrTransport, op, re.Response.StatusCode)
	}
	return fmt.Errorf("%w: %s: %v", kerrors.ErrTransport, op, err)
}
