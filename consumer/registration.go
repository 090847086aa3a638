package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/eliasp/oidcrp/message"
)

// Register performs dynamic client registration (or update) against the
// authorization server's registration endpoint. On success the consumer's
// client id, client secret, and registration expiry are updated from the
// response.
//
// The request carries, for every declared field, the consumer's current
// value when one is set, otherwise the caller-supplied override, otherwise
// nothing. A client_update request always carries the consumer's current
// client_id and client_secret, regardless of overrides.
func (c *Consumer) Register(ctx context.Context, serverURL, regType string, overrides url.Values) (*message.RegistrationResponse, error) {
	const op = "Consumer.Register"
	if serverURL == "" {
		return nil, fmt.Errorf("%s: registration endpoint is empty: %w", op, ErrInvalidParameter)
	}
	req := c.registrationRequest(regType, overrides)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL,
		strings.NewReader(req.Encode().Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create registration request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: registration request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read registration response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp message.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("%s: registration endpoint returned status %d: %w", op, resp.StatusCode, ErrRegistrationFailed)
		}
		return nil, fmt.Errorf("%s: %s: %w", op, errResp.Message(), ErrRegistrationFailed)
	}

	var regResp message.RegistrationResponse
	if err := json.Unmarshal(body, &regResp); err != nil {
		return nil, fmt.Errorf("%s: unable to decode registration response: %w", op, err)
	}

	c.session.ClientID = regResp.ClientID
	c.session.ClientSecret = regResp.ClientSecret
	c.session.RegistrationExpiresIn = regResp.ExpiresAt
	c.logger.Debug("client registered", "type", regType, "client_id", regResp.ClientID)
	return &regResp, nil
}

// registrationRequest builds the outgoing request field by field: current
// consumer value first, caller override second, omitted otherwise.
func (c *Consumer) registrationRequest(regType string, overrides url.Values) *message.RegistrationRequest {
	req := &message.RegistrationRequest{Type: regType}
	if regType == message.RegistrationTypeUpdate {
		req.ClientID = c.session.ClientID
		req.ClientSecret = c.session.ClientSecret
	}

	pick := func(current, key string) string {
		if current != "" {
			return current
		}
		return overrides.Get(key)
	}
	pickList := func(current []string, key string) []string {
		if len(current) > 0 {
			return append([]string(nil), current...)
		}
		if vals, ok := overrides[key]; ok {
			return append([]string(nil), vals...)
		}
		return nil
	}

	req.RedirectURIs = pickList(c.session.RedirectURIs, "redirect_uris")
	req.Contacts = pickList(c.config.Contacts, "contacts")
	req.ApplicationType = pick(c.config.ApplicationType, "application_type")
	req.ApplicationName = pick(c.config.ApplicationName, "application_name")
	req.LogoURL = pick(c.config.LogoURL, "logo_url")
	req.PolicyURL = pick(c.config.PolicyURL, "policy_url")
	req.JWKSURI = pick(c.config.JWKSURI, "jwks_uri")
	req.TokenEndpointAuthType = pick(c.config.TokenEndpointAuthType, "token_endpoint_auth_type")
	return req
}
