package message

import "encoding/json"

// IDTokenClaims constrains the id_token the server will issue. Only the
// maximum authentication age is supported.
type IDTokenClaims struct {
	MaxAge int64 `json:"max_age,omitempty"`
}

// ClaimRequest qualifies one requested userinfo claim. A nil *ClaimRequest
// in UserInfoClaims.Claims marks the claim as required with no qualifiers,
// and serializes as JSON null.
type ClaimRequest struct {
	Optional bool `json:"optional,omitempty"`
}

// UserInfoClaims is a structured request for profile claims: a delivery
// format, a preferred locale, and the named claims with their per-claim
// qualifiers.
type UserInfoClaims struct {
	Format string                   `json:"format,omitempty"`
	Locale string                   `json:"locale,omitempty"`
	Claims map[string]*ClaimRequest `json:"claims,omitempty"`
}

// UserInfoResponse holds the profile claims returned by the userinfo
// endpoint. The standard claims are broken out; everything the server
// returned, standard or not, is retained in Claims. It may be an error
// variant.
type UserInfoResponse struct {
	Subject  string `json:"sub,omitempty"`
	Name     string `json:"name,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"verified,omitempty"`
	Picture  string `json:"picture,omitempty"`

	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`

	// Claims is the complete set of claims as returned by the server.
	Claims map[string]interface{} `json:"-"`
}

// IsError reports whether the response is an OAuth2 error variant.
func (r *UserInfoResponse) IsError() bool {
	return r.Error != ""
}

// UnmarshalJSON decodes the standard claims and captures the full claim set.
func (r *UserInfoResponse) UnmarshalJSON(b []byte) error {
	type alias UserInfoResponse
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	var all map[string]interface{}
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	*r = UserInfoResponse(a)
	r.Claims = all
	return nil
}

// MarshalJSON emits the complete claim set when one is present, so a
// response survives a store round trip without losing non-standard claims.
func (r *UserInfoResponse) MarshalJSON() ([]byte, error) {
	if len(r.Claims) > 0 {
		return json.Marshal(r.Claims)
	}
	type alias UserInfoResponse
	return json.Marshal((*alias)(r))
}
