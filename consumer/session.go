package consumer

import (
	"github.com/eliasp/oidcrp/message"
)

// Grant holds the authorization code and token(s) obtained for one state
// value. A Grant is created exactly once, at Begin time, and is thereafter
// only mutated, never replaced.
type Grant struct {
	// Seed is the consumer seed the grant's session was derived from.
	Seed string `json:"seed,omitempty"`

	// Code is the authorization code received on the redirect-back.
	Code string `json:"code,omitempty"`

	// Tokens are the token responses obtained for the grant, oldest first.
	Tokens []*message.AccessTokenResponse `json:"tokens,omitempty"`
}

// NewGrant creates a Grant carrying the given seed.
func NewGrant(seed string) *Grant {
	return &Grant{Seed: seed}
}

// AddToken attaches a token response to the grant. A response carrying an
// access token the grant already holds replaces the held one; anything else
// is appended.
func (g *Grant) AddToken(t *message.AccessTokenResponse) {
	if t == nil {
		return
	}
	for i, held := range g.Tokens {
		if held.AccessToken == t.AccessToken {
			g.Tokens[i] = t
			return
		}
	}
	g.Tokens = append(g.Tokens, t)
}

// Token returns the most recently attached token response, or nil.
func (g *Grant) Token() *message.AccessTokenResponse {
	if len(g.Tokens) == 0 {
		return nil
	}
	return g.Tokens[len(g.Tokens)-1]
}

// Clone returns a deep copy of the grant.
func (g *Grant) Clone() *Grant {
	if g == nil {
		return nil
	}
	cp := &Grant{Seed: g.Seed, Code: g.Code}
	for _, t := range g.Tokens {
		tc := *t
		cp.Tokens = append(cp.Tokens, &tc)
	}
	return cp
}

// merge folds a stored grant into g: empty fields are filled from the
// stored grant and its tokens are added to g's, so tokens already attached
// in memory are never discarded.
func (g *Grant) merge(stored *Grant) {
	if stored == nil {
		return
	}
	if g.Seed == "" {
		g.Seed = stored.Seed
	}
	if g.Code == "" {
		g.Code = stored.Code
	}
	for _, t := range stored.Tokens {
		held := false
		for _, mine := range g.Tokens {
			if mine.AccessToken == t.AccessToken {
				held = true
				break
			}
		}
		if !held {
			tc := *t
			g.Tokens = append(g.Tokens, &tc)
		}
	}
}

// Session is the unit of persisted flow state, keyed in the store by the
// session identifier held in State. The consumer only ever holds a
// transient, possibly partial projection of it; the store owns the full
// record.
type Session struct {
	// Seed is the per-consumer random string reused across Begin calls.
	Seed string `json:"seed,omitempty"`

	// Nonce is bound to a single Begin call.
	Nonce string `json:"nonce,omitempty"`

	// State is the session identifier, also sent as the oauth2 state
	// parameter.
	State string `json:"state,omitempty"`

	// Request is the full inbound context URL recorded at Begin time.
	Request string `json:"request,omitempty"`

	// RedirectURIs are the callback URL(s) registered for the flow.
	RedirectURIs []string `json:"redirect_uris,omitempty"`

	// Grants maps a state value to its Grant; exactly one live Grant per
	// in-flight state.
	Grants map[string]*Grant `json:"grant,omitempty"`

	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	SecretType   string `json:"secret_type,omitempty"`

	// AccessToken is the canonicalized token response, once obtained.
	AccessToken *message.AccessTokenResponse `json:"access_token,omitempty"`

	// UserInfo is the last fetched profile response.
	UserInfo *message.UserInfoResponse `json:"user_info,omitempty"`

	// RequestFilename and RequestURI are present only when by-reference
	// request delivery was used.
	RequestFilename string `json:"request_filename,omitempty"`
	RequestURI      string `json:"request_uri,omitempty"`

	RegistrationExpiresIn int64 `json:"registration_expires_in,omitempty"`
}

// Update merges a stored session into s without clobbering data: a stored
// field is taken only when the corresponding field of s is empty. Grants
// are the exception and are always merged, entry by entry.
func (s *Session) Update(stored *Session) {
	if stored == nil {
		return
	}
	if s.Seed == "" {
		s.Seed = stored.Seed
	}
	if s.Nonce == "" {
		s.Nonce = stored.Nonce
	}
	if s.State == "" {
		s.State = stored.State
	}
	if s.Request == "" {
		s.Request = stored.Request
	}
	if len(s.RedirectURIs) == 0 {
		s.RedirectURIs = append([]string(nil), stored.RedirectURIs...)
	}
	if s.ClientID == "" {
		s.ClientID = stored.ClientID
	}
	if s.ClientSecret == "" {
		s.ClientSecret = stored.ClientSecret
	}
	if s.SecretType == "" {
		s.SecretType = stored.SecretType
	}
	if s.AccessToken == nil {
		s.AccessToken = stored.AccessToken
	}
	if s.UserInfo == nil {
		s.UserInfo = stored.UserInfo
	}
	if s.RequestFilename == "" {
		s.RequestFilename = stored.RequestFilename
	}
	if s.RequestURI == "" {
		s.RequestURI = stored.RequestURI
	}
	if s.RegistrationExpiresIn == 0 {
		s.RegistrationExpiresIn = stored.RegistrationExpiresIn
	}
	for state, g := range stored.Grants {
		if s.Grants == nil {
			s.Grants = map[string]*Grant{}
		}
		if current, ok := s.Grants[state]; ok {
			current.merge(g)
			continue
		}
		s.Grants[state] = g.Clone()
	}
}

// Clone returns a deep copy of the session. Stores hand out clones so two
// requests never share mutable state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.RedirectURIs = append([]string(nil), s.RedirectURIs...)
	if s.Grants != nil {
		cp.Grants = make(map[string]*Grant, len(s.Grants))
		for state, g := range s.Grants {
			cp.Grants[state] = g.Clone()
		}
	}
	if s.AccessToken != nil {
		tc := *s.AccessToken
		cp.AccessToken = &tc
	}
	if s.UserInfo != nil {
		uc := *s.UserInfo
		if s.UserInfo.Claims != nil {
			uc.Claims = make(map[string]interface{}, len(s.UserInfo.Claims))
			for k, v := range s.UserInfo.Claims {
				uc.Claims[k] = v
			}
		}
		cp.UserInfo = &uc
	}
	return &cp
}

// Dictionary returns the serializable projection of the session, keyed by
// wire field names. Capabilities held by the consumer (the token client,
// codec configuration, transport) are not session fields and never appear
// here.
func (s *Session) Dictionary() map[string]interface{} {
	d := map[string]interface{}{}
	if s.Seed != "" {
		d["seed"] = s.Seed
	}
	if s.Nonce != "" {
		d["nonce"] = s.Nonce
	}
	if s.State != "" {
		d["state"] = s.State
	}
	if s.Request != "" {
		d["request"] = s.Request
	}
	if len(s.RedirectURIs) > 0 {
		d["redirect_uris"] = append([]string(nil), s.RedirectURIs...)
	}
	if len(s.Grants) > 0 {
		grants := make(map[string]*Grant, len(s.Grants))
		for state, g := range s.Grants {
			grants[state] = g.Clone()
		}
		d["grant"] = grants
	}
	if s.ClientID != "" {
		d["client_id"] = s.ClientID
	}
	if s.ClientSecret != "" {
		d["client_secret"] = s.ClientSecret
	}
	if s.SecretType != "" {
		d["secret_type"] = s.SecretType
	}
	if s.AccessToken != nil {
		d["access_token"] = s.AccessToken
	}
	if s.UserInfo != nil {
		d["user_info"] = s.UserInfo
	}
	if s.RequestFilename != "" {
		d["request_filename"] = s.RequestFilename
	}
	if s.RequestURI != "" {
		d["request_uri"] = s.RequestURI
	}
	if s.RegistrationExpiresIn != 0 {
		d["registration_expires_in"] = s.RegistrationExpiresIn
	}
	return d
}
