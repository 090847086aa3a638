package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/eliasp/oidcrp/internal/strutils"
	"github.com/eliasp/oidcrp/message"
)

// Consumer drives a user through an OpenID Connect authorization code or
// implicit flow as the relying party: Begin issues the redirect to the
// authorization server, ParseAuthz handles the redirect-back, Complete
// exchanges the authorization code, and UserInfo fetches profile claims.
//
// The Consumer composes its collaborators rather than owning them: the
// session store keeps all cross-request state, the TokenClient capability
// sends token and userinfo requests, and the RequestPersister handles
// by-reference request delivery. Between requests the Consumer holds only
// a transient, possibly partial projection of the stored Session.
//
// A Consumer serves one logical flow at a time. Two Begin calls sharing a
// seed race on the seed index (last writer wins); callers needing
// concurrent flows should give each its own Consumer, which gives each its
// own seed.
type Consumer struct {
	config      *Config
	store       SessionStore
	tokenClient TokenClient
	persister   RequestPersister
	client      *http.Client
	logger      hclog.Logger
	now         func() time.Time

	session *Session
}

// NewConsumer creates a Consumer from a validated config and a session
// store. The consumer's seed is generated here, once, and reused across
// Begin calls for the life of the instance.
//
// Supported options: WithLogger, WithNow, WithTokenClient,
// WithRequestPersister.
func NewConsumer(c *Config, store SessionStore, opt ...Option) (*Consumer, error) {
	const op = "NewConsumer"
	if c == nil {
		return nil, fmt.Errorf("%s: consumer config is nil: %w", op, ErrNilParameter)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: consumer config is invalid: %w", op, err)
	}

	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	opts := getConsumerOpts(opt...)
	seed, err := randString(16)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate seed: %w", op, err)
	}

	consumer := &Consumer{
		config:      c,
		store:       store,
		tokenClient: opts.withTokenClient,
		persister:   opts.withPersister,
		client:      client,
		logger:      opts.withLogger,
		now:         opts.withNow,
		session: &Session{
			Seed:         seed,
			ClientID:     c.ClientID,
			ClientSecret: string(c.ClientSecret),
			SecretType:   DefaultSecretType,
		},
	}
	if consumer.tokenClient == nil {
		consumer.tokenClient = &GrantClient{
			TokenEndpoint: c.TokenEndpoint,
			Client:        client,
		}
	}
	if consumer.persister == nil && c.RequestMethod == RequestMethodFile {
		consumer.persister = &FileRequestPersister{
			Dir:     c.TempDir,
			WebPath: c.TempPath,
		}
	}
	return consumer, nil
}

// Session returns the consumer's in-memory session projection.
func (c *Consumer) Session() *Session {
	return c.session
}

// Restore fully overwrites the in-memory session from the one stored under
// sid.
func (c *Consumer) Restore(ctx context.Context, sid string) error {
	const op = "Consumer.Restore"
	s, err := c.store.GetSession(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%s: session %s: %w", op, sid, ErrUnknownState)
		}
		return fmt.Errorf("%s: unable to read session %s: %w", op, sid, err)
	}
	c.session = s
	return nil
}

// RestoreFromSeed resolves the seed index to the most recently begun flow
// for the seed and restores from it. This is how a consumer is rebuilt
// from a browser cookie that carries only the seed.
func (c *Consumer) RestoreFromSeed(ctx context.Context, seed string) error {
	const op = "Consumer.RestoreFromSeed"
	sid, err := c.store.GetSeed(ctx, seed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%s: seed has no session: %w", op, ErrUnknownState)
		}
		return fmt.Errorf("%s: unable to read seed index: %w", op, err)
	}
	return c.Restore(ctx, sid)
}

// backup persists the in-memory session under sid.
func (c *Consumer) backup(ctx context.Context, sid string) error {
	return c.store.PutSession(ctx, sid, c.session)
}

// Begin starts the flow for the inbound request at contextURL, returning
// the URL the user's browser should be redirected to. The callback URL is
// derived from the request's base path and the configured authz page; the
// scope and response type come from the config unless overridden with
// WithScopes / WithResponseType.
//
// Side effects: the new session is persisted under its fresh state id, the
// seed index is pointed at it, and with by-reference request delivery the
// signed request object is persisted and the session re-persisted with its
// request_uri.
func (c *Consumer) Begin(ctx context.Context, contextURL string, opt ...Option) (string, error) {
	const op = "Consumer.Begin"
	c.logger.Debug("begin", "url", contextURL)

	u, err := url.Parse(contextURL)
	if err != nil {
		return "", fmt.Errorf("%s: invalid context url %q: %w", op, contextURL, err)
	}
	base := *u
	base.RawQuery = ""
	base.Fragment = ""
	basePath := base.String()

	callback := joinURL(basePath, c.config.AuthzPage)
	c.session.RedirectURIs = []string{callback}

	// A restored session may predate the seed; keep whatever it carries.
	if c.session.Seed == "" {
		seed, err := randString(16)
		if err != nil {
			return "", fmt.Errorf("%s: unable to generate seed: %w", op, err)
		}
		c.session.Seed = seed
	}

	opts := getBeginOpts(opt...)
	scope := opts.withScopes
	if len(scope) == 0 {
		scope = c.config.Scope
	}
	scope = strutils.RemoveDuplicates(scope)
	responseType := opts.withResponseType
	if responseType == "" {
		responseType = c.config.ResponseType
	}

	sid := StateID(basePath, c.session.Seed, c.now())
	c.session.State = sid
	if c.session.Grants == nil {
		c.session.Grants = map[string]*Grant{}
	}
	c.session.Grants[sid] = NewGrant(c.session.Seed)

	if err := c.backup(ctx, sid); err != nil {
		return "", fmt.Errorf("%s: unable to store session: %w", op, err)
	}
	if err := c.store.PutSeed(ctx, c.session.Seed, sid); err != nil {
		return "", fmt.Errorf("%s: unable to store seed index: %w", op, err)
	}

	c.session.Request = contextURL
	nonce, err := randString(DefaultNonceLength)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate nonce: %w", op, err)
	}
	c.session.Nonce = nonce

	authConf := oauth2.Config{
		ClientID:    c.session.ClientID,
		RedirectURL: callback,
		Scopes:      scope,
		Endpoint: oauth2.Endpoint{
			AuthURL: c.config.AuthorizationEndpoint,
		},
	}
	authCodeOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_type", responseType),
	}

	if c.config.RequestMethod == RequestMethodFile {
		areq := &message.AuthorizationRequest{
			ClientID:       c.session.ClientID,
			RedirectURI:    callback,
			ResponseType:   responseType,
			Scope:          scope,
			State:          sid,
			Nonce:          nonce,
			UserInfoClaims: c.config.UserInfoClaims,
		}
		if c.config.MaxAge != 0 {
			areq.IDTokenClaims = &message.IDTokenClaims{MaxAge: c.config.MaxAge}
		}
		requestObject, err := signedRequestObject(areq, c.session.ClientSecret)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		uri, filename, err := c.persister.Persist(basePath, []byte(requestObject))
		if err != nil {
			return "", fmt.Errorf("%s: unable to persist request object: %w", op, err)
		}
		c.session.RequestURI = uri
		c.session.RequestFilename = filename
		if err := c.backup(ctx, sid); err != nil {
			return "", fmt.Errorf("%s: unable to store session: %w", op, err)
		}
		// The nonce and claims travel inside the signed object.
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("request_uri", uri))
	} else {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("nonce", nonce))
		if c.config.MaxAge != 0 {
			claims := &message.IDTokenClaims{MaxAge: c.config.MaxAge}
			encoded, err := jsonParam(claims)
			if err != nil {
				return "", fmt.Errorf("%s: unable to encode idtoken_claims: %w", op, err)
			}
			authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("idtoken_claims", encoded))
		}
		if c.config.UserInfoClaims != nil {
			encoded, err := jsonParam(c.config.UserInfoClaims)
			if err != nil {
				return "", fmt.Errorf("%s: unable to encode userinfo_claims: %w", op, err)
			}
			authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("userinfo_claims", encoded))
		}
	}

	location := authConf.AuthCodeURL(sid, authCodeOpts...)
	c.logger.Debug("redirecting", "location", location)
	return location, nil
}

// ParseAuthz handles the redirect back from the authorization server. With
// a code-flow response type it decodes an authorization response, restores
// the session stored under the response's state (merging it into the
// in-memory session without clobbering data), and, when the response also
// carries a token (hybrid delivery), canonicalizes and attaches it. With
// any other response type it decodes the query directly as an implicit
// flow token response.
//
// No session state is touched on any error path.
func (c *Consumer) ParseAuthz(ctx context.Context, method, query string) (*message.AuthorizationResponse, *message.AccessTokenResponse, error) {
	const op = "Consumer.ParseAuthz"
	if method != http.MethodGet {
		return nil, nil, fmt.Errorf("%s: method %q: %w", op, method, ErrUnsupportedMethod)
	}
	c.logger.Debug("authorization response", "query", query)

	if !strings.Contains(c.config.ResponseType, "code") {
		// implicit flow: the token arrives on the redirect itself
		atr, err := message.ParseAccessTokenResponse(query)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if atr.IsError() {
			return nil, nil, fmt.Errorf("%s: server returned %q: %w", op, atr.Error, ErrTokenFailed)
		}
		return nil, atr, nil
	}

	aresp, err := message.ParseAuthorizationResponse(query)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if aresp.IsError() {
		return nil, nil, fmt.Errorf("%s: server returned %q: %w", op, aresp.Error, ErrAuthorizationFailed)
	}

	state := aresp.State
	stored, err := c.store.GetSession(ctx, state)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: state %s: %w", op, state, ErrUnknownState)
		}
		return nil, nil, fmt.Errorf("%s: unable to read session %s: %w", op, state, err)
	}
	c.session.Update(stored)
	c.session.RedirectURIs = append([]string(nil), stored.RedirectURIs...)
	// The stored seed is what the seed index and the browser cookie
	// reference; a fresh consumer's own seed must not replace it.
	if stored.Seed != "" {
		c.session.Seed = stored.Seed
	}

	if c.session.Grants == nil {
		c.session.Grants = map[string]*Grant{}
	}
	grant := c.session.Grants[state]
	if grant == nil {
		grant = NewGrant(c.session.Seed)
		c.session.Grants[state] = grant
	}
	grant.Code = aresp.Code

	var atr *message.AccessTokenResponse
	if aresp.AccessToken != "" {
		// hybrid-style delivery: keep only the recognized token fields
		atr = aresp.TokenResponse()
		c.session.AccessToken = atr
		grant.AddToken(atr)
	}

	if err := c.backup(ctx, state); err != nil {
		return nil, nil, fmt.Errorf("%s: unable to store session: %w", op, err)
	}
	return aresp, atr, nil
}

// Complete performs the access token request, the last step of the code
// flow; it is never used with the implicit flow. Client authentication is
// HTTP Basic with the configured password when one is set, otherwise
// client-secret-in-body with the stored secret.
func (c *Consumer) Complete(ctx context.Context) (*message.AccessTokenResponse, error) {
	const op = "Consumer.Complete"
	state := c.session.State
	if state == "" {
		return nil, fmt.Errorf("%s: no flow in progress: %w", op, ErrInvalidParameter)
	}
	if len(c.session.RedirectURIs) == 0 {
		return nil, fmt.Errorf("%s: no redirect uri recorded for state %s: %w", op, state, ErrInvalidParameter)
	}
	grant := c.session.Grants[state]
	if grant == nil || grant.Code == "" {
		return nil, fmt.Errorf("%s: no authorization code for state %s: %w", op, state, ErrUnknownState)
	}

	var auth ClientAuth
	switch {
	case c.config.Password != "":
		c.logger.Debug("basic auth")
		auth = ClientAuth{
			Style:        oauth2.AuthStyleInHeader,
			ClientID:     c.session.ClientID,
			ClientSecret: string(c.config.Password),
		}
	case c.session.ClientSecret != "":
		c.logger.Debug("request body auth")
		auth = ClientAuth{
			Style:        oauth2.AuthStyleInParams,
			ClientID:     c.session.ClientID,
			ClientSecret: c.session.ClientSecret,
			SecretType:   c.session.SecretType,
		}
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCredentials)
	}

	req := &message.AccessTokenRequest{
		GrantType:   "authorization_code",
		Code:        grant.Code,
		RedirectURI: c.session.RedirectURIs[0],
		State:       state,
	}
	resp, err := c.tokenClient.RequestToken(ctx, req, auth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: server returned %q: %w", op, resp.Error, ErrTokenFailed)
	}

	grant.AddToken(resp)
	if err := c.backup(ctx, state); err != nil {
		return nil, fmt.Errorf("%s: unable to store session: %w", op, err)
	}
	return resp, nil
}

// UserInfo fetches the profile claims for the current state. It requires
// that Complete (or a hybrid ParseAuthz) already attached an access token
// to the state's grant. The result is cached on the session.
func (c *Consumer) UserInfo(ctx context.Context) (*message.UserInfoResponse, error) {
	const op = "Consumer.UserInfo"
	state := c.session.State
	grant := c.session.Grants[state]
	var token *message.AccessTokenResponse
	if grant != nil {
		token = grant.Token()
	}
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%s: state %s: %w", op, state, ErrMissingToken)
	}

	uinfo, err := c.tokenClient.RequestUserInfo(ctx, c.config.UserInfoEndpoint, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if uinfo.IsError() {
		return nil, fmt.Errorf("%s: server returned %q: %w", op, uinfo.Error, ErrTokenFailed)
	}

	c.session.UserInfo = uinfo
	if err := c.backup(ctx, state); err != nil {
		return nil, fmt.Errorf("%s: unable to store session: %w", op, err)
	}
	return uinfo, nil
}

// jsonParam renders a claims structure for transport as a URL parameter.
func jsonParam(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
