package message

import "fmt"

// ErrorResponse is the generic JSON error body returned by the registration
// and discovery endpoints.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

// Message renders the error for wrapping into a Go error.
func (r *ErrorResponse) Message() string {
	if r.ErrorDescription != "" {
		return fmt.Sprintf("%s: %s", r.Error, r.ErrorDescription)
	}
	return r.Error
}
