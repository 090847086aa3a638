package consumer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"

	"github.com/eliasp/oidcrp/internal/strutils"
	"github.com/eliasp/oidcrp/message"
)

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client
// secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// RequestMethodFile selects by-reference request delivery backed by files:
// the request object is persisted under the configured TempDir and referred
// to via a request_uri built from TempPath.
const RequestMethodFile = "file"

// DefaultSecretType is the secret type sent with client-secret-in-body
// authentication when none is configured.
const DefaultSecretType = "Bearer"

// Config represents the configuration for an OpenID Connect consumer.
type Config struct {
	// ClientID is the relying party id, when pre-configured. Registration
	// fills it in otherwise.
	ClientID string

	// ClientSecret is the relying party secret, when pre-configured.
	// Registration fills it in otherwise.
	ClientSecret ClientSecret

	// Password, when set, selects HTTP Basic client authentication for the
	// token exchange, with the ClientID as user name.
	Password ClientSecret

	// AuthzPage is the callback page joined onto the inbound request's base
	// path to form the flow's redirect URI.
	AuthzPage string

	// Scope is the default scope requested when Begin is called without
	// one.
	Scope []string

	// ResponseType is the default response type requested when Begin is
	// called without one. A value containing "code" selects the
	// authorization code flow; anything else is treated as implicit.
	ResponseType string

	// MaxAge, when non-zero, attaches a maximum-authentication-age
	// constraint (seconds) to every authorization request.
	MaxAge int64

	// UserInfoClaims, when set, attaches a structured claims request to
	// every authorization request.
	UserInfoClaims *message.UserInfoClaims

	// RequestMethod selects the request delivery mode: empty for inline
	// parameters, RequestMethodFile for by-reference delivery.
	RequestMethod string

	// TempDir is the directory persisted request objects are written to.
	TempDir string

	// TempPath is the web path under which TempDir is externally
	// reachable.
	TempPath string

	// AuthorizationEndpoint is the server's authorization endpoint.
	AuthorizationEndpoint string

	// TokenEndpoint is the server's token endpoint.
	TokenEndpoint string

	// UserInfoEndpoint is the server's userinfo endpoint.
	UserInfoEndpoint string

	// ProviderCA is an optional CA cert PEM to use when sending requests
	// to the server.
	ProviderCA string

	// Relying party metadata sent with registration requests, when set.
	ApplicationType       string
	ApplicationName       string
	Contacts              []string
	LogoURL               string
	PolicyURL             string
	JWKSURI               string
	TokenEndpointAuthType string
}

// Validate the consumer configuration. Problems are aggregated so a caller
// sees everything wrong with a config at once.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.AuthzPage == "" {
		result = multierror.Append(result, fmt.Errorf("authz page is empty: %w", ErrInvalidParameter))
	}
	if c.ResponseType == "" {
		result = multierror.Append(result, fmt.Errorf("response type is empty: %w", ErrInvalidParameter))
	}
	if c.RequestMethod != "" && c.RequestMethod != RequestMethodFile {
		result = multierror.Append(result, fmt.Errorf("unsupported request method %q: %w", c.RequestMethod, ErrInvalidParameter))
	}
	if c.RequestMethod == RequestMethodFile {
		if c.TempDir == "" {
			result = multierror.Append(result, fmt.Errorf("temp dir is empty with file request delivery: %w", ErrInvalidParameter))
		}
		if c.TempPath == "" {
			result = multierror.Append(result, fmt.Errorf("temp path is empty with file request delivery: %w", ErrInvalidParameter))
		}
	}
	for name, endpoint := range map[string]string{
		"authorization endpoint": c.AuthorizationEndpoint,
		"token endpoint":         c.TokenEndpoint,
		"userinfo endpoint":      c.UserInfoEndpoint,
	} {
		if endpoint == "" {
			continue
		}
		u, err := url.Parse(endpoint)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s %q is invalid: %w", name, endpoint, err))
			continue
		}
		if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
			result = multierror.Append(result, fmt.Errorf("%s %q scheme is not http or https: %w", name, endpoint, ErrInvalidParameter))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HTTPClient creates a new http client for the configured consumer, using
// the optional provider CA PEM if provided, otherwise the installed system
// CA chain.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	tr := cleanhttp.DefaultPooledTransport()

	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}

	return &http.Client{
		Transport: tr,
	}, nil
}

// HTTPClientContext returns a new Context that carries the provided HTTP
// client. It sets the same context key used by the
// github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}
