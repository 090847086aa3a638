package message

import (
	"fmt"
	"net/url"
	"strconv"
)

// AccessTokenRequest is the token endpoint exchange request for the
// authorization code flow. Client credentials appear in the body only when
// the consumer authenticates with the client-secret-in-body method;
// otherwise they travel as HTTP Basic credentials.
type AccessTokenRequest struct {
	GrantType   string
	Code        string
	RedirectURI string
	State       string

	ClientID     string
	ClientSecret string
	SecretType   string
}

// Encode returns the request as URL-encoded body values.
func (r *AccessTokenRequest) Encode() url.Values {
	v := url.Values{}
	if r.GrantType != "" {
		v.Set("grant_type", r.GrantType)
	}
	if r.Code != "" {
		v.Set("code", r.Code)
	}
	if r.RedirectURI != "" {
		v.Set("redirect_uri", r.RedirectURI)
	}
	if r.State != "" {
		v.Set("state", r.State)
	}
	if r.ClientID != "" {
		v.Set("client_id", r.ClientID)
	}
	if r.ClientSecret != "" {
		v.Set("client_secret", r.ClientSecret)
	}
	if r.SecretType != "" {
		v.Set("secret_type", r.SecretType)
	}
	return v
}

// AccessTokenResponse is the canonical token holder: the token endpoint
// returns it as JSON, and the implicit flow delivers it URL-encoded on the
// redirect. It may be an error variant.
type AccessTokenResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	State        string `json:"state,omitempty"`

	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

// IsError reports whether the response is an OAuth2 error variant.
func (r *AccessTokenResponse) IsError() bool {
	return r.Error != ""
}

// ParseAccessTokenResponse decodes an implicit-flow redirect query string.
func ParseAccessTokenResponse(query string) (*AccessTokenResponse, error) {
	v, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("message: unable to parse access token response: %w", err)
	}
	r := &AccessTokenResponse{
		AccessToken:      v.Get("access_token"),
		TokenType:        v.Get("token_type"),
		RefreshToken:     v.Get("refresh_token"),
		Scope:            v.Get("scope"),
		IDToken:          v.Get("id_token"),
		State:            v.Get("state"),
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
