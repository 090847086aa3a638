package consumer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-uuid"
	jose "gopkg.in/square/go-jose.v2"

	"github.com/eliasp/oidcrp/message"
)

// RequestPersister writes an opaque request object to a uniquely named
// location and returns a URI from which the authorization server can
// dereference it, together with the name it was stored under.
type RequestPersister interface {
	Persist(baseURL string, requestObject []byte) (uri string, filename string, err error)
}

// FileRequestPersister persists request objects as files in Dir, reachable
// under WebPath relative to the flow's base URL.
type FileRequestPersister struct {
	// Dir is the directory written to.
	Dir string

	// WebPath is the web path under which Dir is served.
	WebPath string
}

var _ RequestPersister = (*FileRequestPersister)(nil)

// Persist writes the request object under a collision-free random name.
// The name carries enough entropy that a single exclusive create suffices;
// an existing path is an error, not a retry.
func (p *FileRequestPersister) Persist(baseURL string, requestObject []byte) (string, string, error) {
	const op = "FileRequestPersister.Persist"
	name, err := uuid.GenerateUUID()
	if err != nil {
		return "", "", fmt.Errorf("%s: unable to generate file name: %w", op, ErrIDGeneratorFailed)
	}
	filename := filepath.Join(p.Dir, name)
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("%s: unable to create %s: %w", op, filename, err)
	}
	if _, err := f.Write(requestObject); err != nil {
		f.Close()
		return "", "", fmt.Errorf("%s: unable to write %s: %w", op, filename, err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("%s: unable to close %s: %w", op, filename, err)
	}
	return joinURL(joinURL(baseURL, p.WebPath), name), filename, nil
}

// signedRequestObject serializes the authorization request as a compact JWS
// signed with the client secret, the self-contained form sent by reference.
func signedRequestObject(req *message.AuthorizationRequest, clientSecret string) (string, error) {
	const op = "signedRequestObject"
	if clientSecret == "" {
		return "", fmt.Errorf("%s: client secret is empty: %w", op, ErrMissingCredentials)
	}
	payload, err := json.Marshal(requestObjectClaims(req))
	if err != nil {
		return "", fmt.Errorf("%s: unable to encode request object: %w", op, err)
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(clientSecret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("%s: unable to create signer: %w", op, err)
	}
	obj, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("%s: unable to sign request object: %w", op, err)
	}
	serialized, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to serialize request object: %w", op, err)
	}
	return serialized, nil
}

// requestObjectClaims maps the authorization request onto its request
// object claim set.
func requestObjectClaims(req *message.AuthorizationRequest) map[string]interface{} {
	claims := map[string]interface{}{}
	if req.ClientID != "" {
		claims["client_id"] = req.ClientID
	}
	if req.RedirectURI != "" {
		claims["redirect_uri"] = req.RedirectURI
	}
	if req.ResponseType != "" {
		claims["response_type"] = req.ResponseType
	}
	if len(req.Scope) > 0 {
		claims["scope"] = strings.Join(req.Scope, " ")
	}
	if req.State != "" {
		claims["state"] = req.State
	}
	if req.Nonce != "" {
		claims["nonce"] = req.Nonce
	}
	if req.IDTokenClaims != nil {
		claims["idtoken_claims"] = req.IDTokenClaims
	}
	if req.UserInfoClaims != nil {
		claims["userinfo_claims"] = req.UserInfoClaims
	}
	return claims
}

// joinURL concatenates a base URL and a page with exactly one separating
// slash, regardless of whether either side carries its own.
func joinURL(base, page string) string {
	switch {
	case strings.HasSuffix(base, "/") && strings.HasPrefix(page, "/"):
		return base + page[1:]
	case strings.HasSuffix(base, "/") || strings.HasPrefix(page, "/"):
		return base + page
	default:
		return base + "/" + page
	}
}
