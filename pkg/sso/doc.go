// Package sso implements single sign-on login against external identity
// providers.
//
// # Overview
//
// Two providers share one Provider interface: OIDC (discovery, auth-code
// exchange, ID-token verification) and SAML (redirect binding to the IdP,
// assertion consumption at the ACS endpoint). Login starts with a
// state cookie, and a verified identity is provisioned into pkg/auth and
// answered with an opaque bearer session token.
//
// There is no password login. Every account enters through a provider.
//
// # Endpoints
//
//	GET      /auth/sso/{provider}/login     redirect to the IdP
//	GET|POST /auth/sso/{provider}/callback  code exchange or SAML ACS
//	GET      /api/auth/me                   current user
//	POST     /api/auth/logout               revoke the current session
//
// # Related Packages
//
//   - pkg/auth: user provisioning and session issuance
package sso
