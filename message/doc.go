// Package message holds the OpenID Connect / OAuth2 protocol messages the
// consumer package exchanges with an authorization server: authorization
// requests and responses, token requests and responses, issuer discovery
// messages, and dynamic client registration messages.
//
// Requests encode to URL query values (the redirect-based parts of the
// protocol are URL-encoded on the wire); responses decode from either a
// redirect query string or a JSON body, depending on the endpoint. Messages
// which can arrive as an OAuth2 error variant expose IsError().
package message
