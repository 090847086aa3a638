package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/eliasp/oidcrp/message"
)

const (
	// swdPattern is the well-known simple-web-discovery URI for a domain.
	swdPattern = "http://%s/.well-known/simple-web-discovery"

	// issuerService identifies the OpenID issuer service in discovery
	// requests.
	issuerService = "http://openid.net/specs/connect/1.0/issuer"

	// maxDiscoveryHops caps SWD_service_redirect following, so a malicious
	// or misconfigured discovery endpoint cannot loop the client forever.
	maxDiscoveryHops = 5
)

// Identifier types accepted by Discover and DomainOf.
const (
	IDTypeMail = "mail"
	IDTypeURL  = "url"
)

// DomainOf derives the discovery domain from a user principal: the part
// after "@" for mail-style identifiers, the host component for URL-style
// identifiers, and empty for anything else.
func DomainOf(principal, idType string) string {
	switch idType {
	case IDTypeMail:
		if i := strings.LastIndex(principal, "@"); i >= 0 {
			return principal[i+1:]
		}
		return ""
	case IDTypeURL:
		u, err := url.Parse(principal)
		if err != nil {
			return ""
		}
		return u.Host
	default:
		return ""
	}
}

// Discover resolves the OpenID issuer for a user principal via simple web
// discovery, returning the first issuer location the discovery service
// reports.
func (c *Consumer) Discover(ctx context.Context, principal, idType string) (string, error) {
	const op = "Consumer.Discover"
	req := &message.IssuerRequest{Service: issuerService, Principal: principal}
	uri, err := req.RequestURL(fmt.Sprintf(swdPattern, DomainOf(principal, idType)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	result, err := c.discoveryQuery(ctx, uri, principal, 0)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(result.Locations) == 0 {
		return "", fmt.Errorf("%s: response carries no issuer locations: %w", op, ErrDiscoveryFailed)
	}
	return result.Locations[0], nil
}

// discoveryQuery issues one discovery GET, following service redirects up
// to maxDiscoveryHops. A connection failing specifically on name resolution
// is retried exactly once over https when the URI scheme was plaintext; any
// other connection failure propagates.
func (c *Consumer) discoveryQuery(ctx context.Context, uri, principal string, hops int) (*message.IssuerResponse, error) {
	const op = "Consumer.discoveryQuery"
	if hops > maxDiscoveryHops {
		return nil, fmt.Errorf("%s: more than %d service redirects: %w", op, maxDiscoveryHops, ErrDiscoveryFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid discovery uri %q: %w", op, uri, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && strings.HasPrefix(uri, "http://") {
			c.logger.Debug("discovery name resolution failed, retrying over https", "uri", uri)
			return c.discoveryQuery(ctx, "https://"+strings.TrimPrefix(uri, "http://"), principal, hops)
		}
		return nil, fmt.Errorf("%s: discovery request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: discovery endpoint returned status %d: %w", op, resp.StatusCode, ErrDiscoveryFailed)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read discovery response: %w", op, err)
	}
	var result message.IssuerResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%s: unable to decode discovery response: %w", op, err)
	}

	if result.SWDServiceRedirect != nil {
		redirect := &message.IssuerRequest{Service: issuerService, Principal: principal}
		next, err := redirect.RequestURL(result.SWDServiceRedirect.Location)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid service redirect location: %w", op, err)
		}
		return c.discoveryQuery(ctx, next, principal, hops+1)
	}
	return &result, nil
}
