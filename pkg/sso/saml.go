package sso

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"

	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/legatepro/legate/pkg/config"
)

// SAMLProvider implements SAML 2.0 login for enterprise tenants
type SAMLProvider struct {
	sp             *saml2.SAMLServiceProvider
	attributeEmail string
	attributeName  string
}

// NewSAMLProvider parses the IdP certificate and builds the service
// provider
func NewSAMLProvider(cfg config.SSOConfig) (*SAMLProvider, error) {
	certBlock, _ := pem.Decode([]byte(cfg.SAMLIDPCertificate))
	if certBlock == nil {
		return nil, fmt.Errorf("failed to decode IdP certificate PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse IdP certificate: %w", err)
	}

	certStore := dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	}

	keyStore, err := buildSPKeyStore(cfg)
	if err != nil {
		return nil, err
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      cfg.SAMLIDPSSOURL,
		IdentityProviderIssuer:      cfg.SAMLIDPIssuer,
		ServiceProviderIssuer:       cfg.SAMLSPIssuer,
		AssertionConsumerServiceURL: cfg.SAMLACSURL,
		SignAuthnRequests:           cfg.SAMLSignRequests,
		AudienceURI:                 cfg.SAMLSPIssuer,
		IDPCertificateStore:         &certStore,
		SPKeyStore:                  keyStore,
	}

	return &SAMLProvider{
		sp:             sp,
		attributeEmail: cfg.SAMLAttributeEmail,
		attributeName:  cfg.SAMLAttributeName,
	}, nil
}

// buildSPKeyStore loads the configured SP signing key, or falls back to
// an ephemeral key when request signing is disabled. Signed AuthnRequests
// must verify against the certificate registered with the IdP, so signing
// without a configured key is an error.
func buildSPKeyStore(cfg config.SSOConfig) (dsig.X509KeyStore, error) {
	if cfg.SAMLSPPrivateKey == "" {
		if cfg.SAMLSignRequests {
			return nil, fmt.Errorf("SAML request signing requires a configured SP private key")
		}
		return dsig.RandomKeyStoreForTest(), nil
	}

	keyBlock, _ := pem.Decode([]byte(cfg.SAMLSPPrivateKey))
	if keyBlock == nil {
		return nil, fmt.Errorf("failed to decode SP private key PEM")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		pkcs8Key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SP private key: %w", err)
		}
		var ok bool
		privateKey, ok = pkcs8Key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("SP private key is not RSA")
		}
	}

	certBlock, _ := pem.Decode([]byte(cfg.SAMLSPCertificate))
	if certBlock == nil {
		return nil, fmt.Errorf("failed to decode SP certificate PEM")
	}

	return &dsig.TLSCertKeyStore{
		PrivateKey:  privateKey,
		Certificate: [][]byte{certBlock.Bytes},
	}, nil
}

// Name identifies the provider
func (p *SAMLProvider) Name() string { return "saml" }

// InitiateLogin redirects to the IdP with an AuthnRequest
func (p *SAMLProvider) InitiateLogin(w http.ResponseWriter, r *http.Request, state string) error {
	authURL, err := p.sp.BuildAuthURL(state)
	if err != nil {
		return fmt.Errorf("failed to build auth URL: %w", err)
	}
	http.Redirect(w, r, authURL, http.StatusFound)
	return nil
}

// HandleCallback validates the posted assertion and extracts the user
func (p *SAMLProvider) HandleCallback(r *http.Request) (*SSOUser, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	samlResponse := r.FormValue("SAMLResponse")
	if samlResponse == "" {
		return nil, fmt.Errorf("missing SAMLResponse parameter")
	}

	assertionBytes, err := base64.StdEncoding.DecodeString(samlResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to decode SAMLResponse: %w", err)
	}

	assertionInfo, err := p.sp.RetrieveAssertionInfo(string(assertionBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to validate assertion: %w", err)
	}
	if assertionInfo.WarningInfo != nil {
		if assertionInfo.WarningInfo.InvalidTime {
			return nil, fmt.Errorf("assertion has invalid time")
		}
		if assertionInfo.WarningInfo.NotInAudience {
			return nil, fmt.Errorf("assertion not in expected audience")
		}
	}

	user := &SSOUser{Subject: assertionInfo.NameID}
	for _, attr := range assertionInfo.Values {
		if len(attr.Values) == 0 {
			continue
		}
		switch attr.Name {
		case p.attributeEmail:
			user.Email = attr.Values[0].Value
		case p.attributeName:
			user.Name = attr.Values[0].Value
		}
	}

	if user.Subject == "" {
		return nil, fmt.Errorf("missing NameID in SAML assertion")
	}
	if user.Email == "" {
		return nil, fmt.Errorf("missing email attribute in SAML assertion")
	}
	return user, nil
}
