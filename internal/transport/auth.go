package transport

import (
	"net/http"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {
	// No authentication applied
}

// BasicAuth implements HTTP Basic authentication as the EveryAction API
// expects it: the application name as username and "apiKey|mode" as
// password, where mode 1 selects the MyCampaign database.
type BasicAuth struct {
	AppName string
	APIKey  string
	Mode    string
}

// Apply implements the Authenticator interface for BasicAuth.
func (a *BasicAuth) Apply(req *http.Request) {
	mode := a.Mode
	if mode == "" {
		mode = "1"
	}
	req.SetBasicAuth(a.AppName, a.APIKey+"|"+mode)
}
