// Package consumer implements the relying-party side of OpenID Connect.
//
// The Consumer is a session-bound flow controller: Begin builds the
// redirect to the authorization server and persists the new session,
// ParseAuthz handles the redirect-back for both the authorization code and
// implicit flows, Complete exchanges the authorization code for tokens,
// and UserInfo fetches profile claims. All cross-request state lives in a
// SessionStore; the package also provides issuer discovery (Discover) and
// dynamic client registration (Register) against the same session state.
package consumer
