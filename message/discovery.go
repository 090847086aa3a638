package message

import "net/url"

// IssuerRequest asks a simple-web-discovery endpoint which issuer serves a
// principal.
type IssuerRequest struct {
	Service   string
	Principal string
}

// Encode returns the request as URL query values.
func (r *IssuerRequest) Encode() url.Values {
	v := url.Values{}
	if r.Service != "" {
		v.Set("service", r.Service)
	}
	if r.Principal != "" {
		v.Set("principal", r.Principal)
	}
	return v
}

// RequestURL returns the fully formed discovery URL for the given endpoint.
func (r *IssuerRequest) RequestURL(endpoint string) (string, error) {
	return requestURL(endpoint, r.Encode())
}

// ServiceRedirect points discovery at another service location.
type ServiceRedirect struct {
	Location string `json:"location"`
}

// IssuerResponse is the discovery result: either a redirect to follow or the
// locations serving the principal's issuer.
type IssuerResponse struct {
	Locations          []string         `json:"locations,omitempty"`
	SWDServiceRedirect *ServiceRedirect `json:"SWD_service_redirect,omitempty"`
}
