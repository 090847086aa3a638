package consumer

import (
	"errors"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidCACert     = errors.New("invalid CA certificate")
	ErrIDGeneratorFailed = errors.New("id generation failed")
	ErrNotFound          = errors.New("not found")

	// ErrUnsupportedMethod is returned when the redirect-back callback is
	// delivered with an HTTP method other than GET.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrAuthorizationFailed is returned when the authorization server
	// answered the authorization request with an error response.  The
	// upstream error code is carried in the wrapping message.
	ErrAuthorizationFailed = errors.New("authorization failed")

	// ErrUnknownState is returned when a redirect-back references a state
	// the session store has never seen, or has since lost.
	ErrUnknownState = errors.New("unknown state")

	// ErrTokenFailed is returned when the token or userinfo endpoint
	// answered with an error response.  The upstream error code is carried
	// in the wrapping message.
	ErrTokenFailed = errors.New("token request failed")

	// ErrMissingCredentials is returned by Complete when neither a
	// configured password nor a stored client secret is available.
	ErrMissingCredentials = errors.New("nothing to authenticate with")

	// ErrMissingToken is returned by UserInfo when no access token has been
	// obtained for the current state.
	ErrMissingToken = errors.New("no access token for state")

	// ErrRegistrationFailed is returned when the registration endpoint
	// rejects a registration request; the server's message is carried in
	// the wrapping message.
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrDiscoveryFailed is returned for issuer discovery failures: a
	// non-200 status, too many service redirects, or an empty location
	// list.
	ErrDiscoveryFailed = errors.New("issuer discovery failed")
)
