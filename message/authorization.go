package message

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// AuthorizationRequest is the set of parameters sent to the authorization
// endpoint when starting a flow. Either the full parameter set is carried
// inline, or RequestURI references a persisted request object holding it.
type AuthorizationRequest struct {
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scope        []string
	State        string
	Nonce        string

	// IDTokenClaims carries the max-age constraint, when configured.
	IDTokenClaims *IDTokenClaims

	// UserInfoClaims is the structured claims request, when configured.
	UserInfoClaims *UserInfoClaims

	// Request is the self-contained signed request object (by-value).
	Request string

	// RequestURI references a persisted request object (by-reference).
	RequestURI string
}

// Encode returns the request as URL query values. The claims structures are
// carried as JSON, matching how they appear in a request object.
func (r *AuthorizationRequest) Encode() (url.Values, error) {
	v := url.Values{}
	if r.ClientID != "" {
		v.Set("client_id", r.ClientID)
	}
	if r.RedirectURI != "" {
		v.Set("redirect_uri", r.RedirectURI)
	}
	if r.ResponseType != "" {
		v.Set("response_type", r.ResponseType)
	}
	if len(r.Scope) > 0 {
		v.Set("scope", strings.Join(r.Scope, " "))
	}
	if r.State != "" {
		v.Set("state", r.State)
	}
	if r.Nonce != "" {
		v.Set("nonce", r.Nonce)
	}
	if r.IDTokenClaims != nil {
		b, err := json.Marshal(r.IDTokenClaims)
		if err != nil {
			return nil, fmt.Errorf("message: unable to encode idtoken_claims: %w", err)
		}
		v.Set("idtoken_claims", string(b))
	}
	if r.UserInfoClaims != nil {
		b, err := json.Marshal(r.UserInfoClaims)
		if err != nil {
			return nil, fmt.Errorf("message: unable to encode userinfo_claims: %w", err)
		}
		v.Set("userinfo_claims", string(b))
	}
	if r.Request != "" {
		v.Set("request", r.Request)
	}
	if r.RequestURI != "" {
		v.Set("request_uri", r.RequestURI)
	}
	return v, nil
}

// RequestURL returns the fully formed URL for the request against the given
// endpoint, preserving any query values the endpoint already carries.
func (r *AuthorizationRequest) RequestURL(endpoint string) (string, error) {
	v, err := r.Encode()
	if err != nil {
		return "", err
	}
	return requestURL(endpoint, v)
}

// AuthorizationResponse is the code-flow redirect-back message. A hybrid
// style delivery may additionally carry token fields; TokenResponse()
// canonicalizes those. It may also be an error variant.
type AuthorizationResponse struct {
	Code  string
	State string

	// Token fields, present only for hybrid-style delivery.
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresIn    int64
	Scope        string
	IDToken      string

	// Error variant fields.
	Error            string
	ErrorDescription string
	ErrorURI         string
}

// IsError reports whether the response is an OAuth2 error variant.
func (r *AuthorizationResponse) IsError() bool {
	return r.Error != ""
}

// TokenResponse creates an AccessTokenResponse carrying only the officially
// recognized token response fields of r, dropping anything else the server
// included alongside them.
func (r *AuthorizationResponse) TokenResponse() *AccessTokenResponse {
	return &AccessTokenResponse{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
		Scope:        r.Scope,
		IDToken:      r.IDToken,
		State:        r.State,
	}
}

// ParseAuthorizationResponse decodes a redirect-back query string.
func ParseAuthorizationResponse(query string) (*AuthorizationResponse, error) {
	v, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("message: unable to parse authorization response: %w", err)
	}
	r := &AuthorizationResponse{
		Code:             v.Get("code"),
		State:            v.Get("state"),
		AccessToken:      v.Get("access_token"),
		TokenType:        v.Get("token_type"),
		RefreshToken:     v.Get("refresh_token"),
		Scope:            v.Get("scope"),
		IDToken:          v.Get("id_token"),
		Error:            v.Get("error"),
		ErrorDescription: v.Get("error_description"),
		ErrorURI:         v.Get("error_uri"),
	}
	if s := v.Get("expires_in"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("message: invalid expires_in %q: %w", s, err)
		}
		r.ExpiresIn = n
	}
	return r, nil
}

// requestURL merges query values into an endpoint URL.
func requestURL(endpoint string, v url.Values) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("message: invalid endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	for key, vals := range v {
		for _, val := range vals {
			q.Set(key, val)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
