// oidcrp provides the relying-party (consumer) side of OpenID Connect:
// a session-bound flow controller for the authorization code and implicit
// flows, plus issuer discovery and dynamic client registration clients which
// share its session persistence discipline.
//
// See the consumer package for the core API.
package oidcrp
