package oidckit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/zitadel/oidc/v2/pkg/oidc"
)

const discoveryPath = "/.well-known/openid-configuration"

// ProviderConfig is the subset of a provider's discovery document needed to
// drive a login: where to exchange the code and where to fetch userinfo.
type ProviderConfig struct {
	Issuer           string `json:"issuer"`
	TokenEndpoint    string `json:"token_endpoint"`
	UserinfoEndpoint string `json:"userinfo_endpoint"`
}

// DefaultIssuer returns the built-in issuer URL for a well-known provider
// slug, or "" when the provider has no default. The azure default is
// tenant-scoped and requires a tenant id.
func DefaultIssuer(provider, azureTenant string) string {
	switch provider {
	case "azure":
		if azureTenant == "" {
			return ""
		}
		return fmt.Sprintf("https://sts.windows.net/%s/", azureTenant)
	case "gitlab":
		return "https://gitlab.com"
	case "google":
		return "https://accounts.google.com"
	}
	return ""
}

// ResolveIssuer picks the issuer for a deployment: an explicitly configured
// URL always wins, else the default for the named provider. ErrNoIssuer when
// neither yields one.
func ResolveIssuer(issuerURL, provider, azureTenant string) (string, error) {
	if issuerURL != "" {
		return issuerURL, nil
	}
	if u := DefaultIssuer(provider, azureTenant); u != "" {
		return u, nil
	}
	return "", ErrNoIssuer
}

// Discoverer fetches provider discovery documents. It performs a single GET
// per call with no retries; callers own any caching.
type Discoverer struct {
	client *http.Client
	log    hclog.Logger
}

func NewDiscoverer(client *http.Client, log hclog.Logger) *Discoverer {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Discoverer{client: client, log: log.Named("discovery")}
}

// Discover fetches {issuer}/.well-known/openid-configuration and validates
// that the document's issuer claim equals the requested issuer exactly.
// The equality check guards against a spoofed or misrouted discovery
// document; a trailing-slash difference is a mismatch on purpose.
func (d *Discoverer) Discover(ctx context.Context, issuer string) (*ProviderConfig, error) {
	url := strings.TrimRight(issuer, "/") + discoveryPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DiscoveryError{Issuer: issuer, Err: err}
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &DiscoveryError{Issuer: issuer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DiscoveryError{Issuer: issuer, Err: fmt.Errorf("discovery document fetch returned status %d", resp.StatusCode)}
	}
	var doc oidc.DiscoveryConfiguration
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &DiscoveryError{Issuer: issuer, Err: fmt.Errorf("decode discovery document: %w", err)}
	}
	if doc.Issuer != issuer {
		return nil, &DiscoveryError{Issuer: issuer, Err: fmt.Errorf("issuer claim %q does not match issuer URL used to retrieve the configuration", doc.Issuer)}
	}
	d.log.Debug("resolved provider endpoints", "issuer", doc.Issuer, "token_endpoint", doc.TokenEndpoint)
	return &ProviderConfig{
		Issuer:           doc.Issuer,
		TokenEndpoint:    doc.TokenEndpoint,
		UserinfoEndpoint: doc.UserinfoEndpoint,
	}, nil
}
