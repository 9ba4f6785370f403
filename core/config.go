package core

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every deployment value the login core consumes. It is
// passed explicitly into NewService rather than read from ambient state so
// multiple configurations can coexist in one process (tests rely on this).
//
// The env tags mirror the setting names operators already know from the
// classic server configuration, so ConfigFromEnv is drop-in.
type Config struct {
	// IssuerURL overrides provider defaults when set.
	IssuerURL string `env:"OIDC_ISSUER_URL"`
	// Provider is the well-known provider slug ("azure", "gitlab",
	// "google") used to derive a default issuer when IssuerURL is empty.
	Provider    string `env:"AUTH_PROVIDER"`
	AzureTenant string `env:"AZURE_TENANT"`

	// RoleClaim and GroupClaim name the provider claims that carry role and
	// group assignments; empty disables the respective merge.
	RoleClaim  string `env:"OIDC_ROLE_CLAIM"`
	GroupClaim string `env:"OIDC_GROUP_CLAIM"`
	// CustomClaim names the single deployment-defined claim copied into
	// issued session tokens. Constant per deployment.
	CustomClaim string `env:"OIDC_CUSTOM_CLAIM"`

	// SigningSecret is the shared HS256 key for session tokens.
	SigningSecret string `env:"SECRET_KEY"`
	// ClientID doubles as the OAuth2 client id and the expected token
	// audience; when empty the request base URL is used as audience.
	ClientID     string `env:"OAUTH2_CLIENT_ID"`
	ClientSecret string `env:"OAUTH2_CLIENT_SECRET"`

	// AllowedRoles / AllowedEmailDomains are the authorization allow-lists;
	// an empty list means that check always passes.
	AllowedRoles        []string `env:"ALLOWED_OIDC_ROLES"`
	AllowedEmailDomains []string `env:"ALLOWED_EMAIL_DOMAINS"`

	// CustomerViews enables customer-scoped tokens: customer lists are
	// looked up and serialized only when set.
	CustomerViews bool `env:"CUSTOMER_VIEWS"`

	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"24h"`
	// DiscoveryCacheTTL bounds the optional discovery-document cache; zero
	// disables caching even when a cache store is attached.
	DiscoveryCacheTTL time.Duration `env:"OIDC_DISCOVERY_CACHE_TTL"`
}

// ConfigFromEnv loads Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
