package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/eliasp/oidcrp/message"
)

// ClientAuth selects how the consumer authenticates against the token
// endpoint.
type ClientAuth struct {
	// Style is oauth2.AuthStyleInHeader for HTTP Basic or
	// oauth2.AuthStyleInParams for client-secret-in-body.
	Style oauth2.AuthStyle

	ClientID     string
	ClientSecret string

	// SecretType travels in the body with AuthStyleInParams.
	SecretType string
}

// TokenClient is the token/grant client capability the consumer composes:
// it sends token and userinfo requests and holds nothing of the session.
// An error variant returned by the server comes back as a response with
// IsError() true, not as a Go error; Go errors are reserved for transport
// and decoding failures.
type TokenClient interface {
	// RequestToken performs the authorization code exchange.
	RequestToken(ctx context.Context, req *message.AccessTokenRequest, auth ClientAuth) (*message.AccessTokenResponse, error)

	// RequestUserInfo fetches profile claims using the given access token.
	RequestUserInfo(ctx context.Context, endpoint, accessToken string) (*message.UserInfoResponse, error)
}

// GrantClient is the default TokenClient, built on golang.org/x/oauth2.
type GrantClient struct {
	// TokenEndpoint is the server's token endpoint.
	TokenEndpoint string

	// Client is the http client used for requests. When nil,
	// http.DefaultClient semantics apply via the oauth2 package.
	Client *http.Client
}

// ensure GrantClient implements the TokenClient capability
var _ TokenClient = (*GrantClient)(nil)

// RequestToken exchanges the authorization code at the token endpoint. A
// server-side error response is decoded into an error-variant
// AccessTokenResponse.
func (g *GrantClient) RequestToken(ctx context.Context, req *message.AccessTokenRequest, auth ClientAuth) (*message.AccessTokenResponse, error) {
	const op = "GrantClient.RequestToken"
	if req == nil {
		return nil, fmt.Errorf("%s: token request is nil: %w", op, ErrNilParameter)
	}
	if g.Client != nil {
		ctx = HTTPClientContext(ctx, g.Client)
	}

	conf := oauth2.Config{
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		RedirectURL:  req.RedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  g.TokenEndpoint,
			AuthStyle: auth.Style,
		},
	}
	var exchangeOpts []oauth2.AuthCodeOption
	if req.State != "" {
		exchangeOpts = append(exchangeOpts, oauth2.SetAuthURLParam("state", req.State))
	}
	if auth.Style == oauth2.AuthStyleInParams && auth.SecretType != "" {
		exchangeOpts = append(exchangeOpts, oauth2.SetAuthURLParam("secret_type", auth.SecretType))
	}

	tok, err := conf.Exchange(ctx, req.Code, exchangeOpts...)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode != "" {
			return &message.AccessTokenResponse{
				Error:            rErr.ErrorCode,
				ErrorDescription: rErr.ErrorDescription,
				ErrorURI:         rErr.ErrorURI,
			}, nil
		}
		return nil, fmt.Errorf("%s: unable to exchange auth code: %w", op, err)
	}
	return tokenResponse(tok), nil
}

// RequestUserInfo gets the profile claims from the userinfo endpoint using
// a bearer token.
func (g *GrantClient) RequestUserInfo(ctx context.Context, endpoint, accessToken string) (*message.UserInfoResponse, error) {
	const op = "GrantClient.RequestUserInfo"
	if endpoint == "" {
		return nil, fmt.Errorf("%s: userinfo endpoint is empty: %w", op, ErrInvalidParameter)
	}
	if g.Client != nil {
		ctx = HTTPClientContext(ctx, g.Client)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create userinfo request: %w", op, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: userinfo request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read userinfo response: %w", op, err)
	}
	var uinfo message.UserInfoResponse
	if err := json.Unmarshal(body, &uinfo); err != nil {
		return nil, fmt.Errorf("%s: unable to decode userinfo response (status %d): %w", op, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK && !uinfo.IsError() {
		return nil, fmt.Errorf("%s: userinfo endpoint returned status %d: %w", op, resp.StatusCode, ErrTokenFailed)
	}
	return &uinfo, nil
}

// tokenResponse canonicalizes an oauth2 token into the module's token
// response message.
func tokenResponse(tok *oauth2.Token) *message.AccessTokenResponse {
	r := &message.AccessTokenResponse{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		r.IDToken = idToken
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		r.Scope = scope
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		r.ExpiresIn = int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			r.ExpiresIn = n
		}
	}
	return r
}
