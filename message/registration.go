package message

import (
	"net/url"
	"strings"
)

// Registration request types.
const (
	RegistrationTypeAssociate = "client_associate"
	RegistrationTypeUpdate    = "client_update"
)

// RegistrationRequest is a dynamic client registration (or update) request,
// sent URL-encoded to the registration endpoint.
type RegistrationRequest struct {
	Type         string
	ClientID     string
	ClientSecret string

	RedirectURIs          []string
	Contacts              []string
	ApplicationType       string
	ApplicationName       string
	LogoURL               string
	PolicyURL             string
	JWKSURI               string
	TokenEndpointAuthType string
}

// Encode returns the request as URL-encoded body values. List-valued fields
// are space-joined, matching the wire format the registration endpoint
// expects.
func (r *RegistrationRequest) Encode() url.Values {
	v := url.Values{}
	if r.Type != "" {
		v.Set("type", r.Type)
	}
	if r.ClientID != "" {
		v.Set("client_id", r.ClientID)
	}
	if r.ClientSecret != "" {
		v.Set("client_secret", r.ClientSecret)
	}
	if len(r.RedirectURIs) > 0 {
		v.Set("redirect_uris", strings.Join(r.RedirectURIs, " "))
	}
	if len(r.Contacts) > 0 {
		v.Set("contacts", strings.Join(r.Contacts, " "))
	}
	if r.ApplicationType != "" {
		v.Set("application_type", r.ApplicationType)
	}
	if r.ApplicationName != "" {
		v.Set("application_name", r.ApplicationName)
	}
	if r.LogoURL != "" {
		v.Set("logo_url", r.LogoURL)
	}
	if r.PolicyURL != "" {
		v.Set("policy_url", r.PolicyURL)
	}
	if r.JWKSURI != "" {
		v.Set("jwks_uri", r.JWKSURI)
	}
	if r.TokenEndpointAuthType != "" {
		v.Set("token_endpoint_auth_type", r.TokenEndpointAuthType)
	}
	return v
}

// RegistrationResponse is the JSON result of a successful registration.
type RegistrationResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}
