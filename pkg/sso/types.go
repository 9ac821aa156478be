package sso

import "net/http"

// SSOUser is the identity extracted from a provider callback
type SSOUser struct {
	Subject string
	Email   string
	Name    string
}

// Provider is a configured identity provider
type Provider interface {
	// Name identifies the provider in routes ("oidc" or "saml")
	Name() string
	// InitiateLogin redirects the browser to the identity provider
	InitiateLogin(w http.ResponseWriter, r *http.Request, state string) error
	// HandleCallback validates the provider response and extracts the user
	HandleCallback(r *http.Request) (*SSOUser, error)
}
