package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"

	jwtkit "github.com/open-rails/loginkit/jwt"
	oidckit "github.com/open-rails/loginkit/oidc"
)

// ProviderName is the provider tag stamped into session tokens issued by the
// OpenID Connect login flow.
const ProviderName = "openid"

// KV is the ephemeral key-value surface used for the optional discovery
// cache (see storage/memory and storage/redis).
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

const discoveryCacheKey = "oidc:discovery:"

// Service is the OIDC login core. It is stateless per invocation: every
// Login call is an independent sequential pipeline of blocking provider
// calls, and no lock is held across any of them.
type Service struct {
	cfg    Config
	users  UserStore
	perms  PermissionLookup
	custs  CustomerLookup
	audit  AuditSink
	policy AuthorizationPolicy
	cache  KV
	log    hclog.Logger
	client *http.Client

	disc  *oidckit.Discoverer
	exch  *oidckit.Exchanger
	codec jwtkit.Codec
}

// NewService wires a Service from configuration. Collaborators are attached
// with the WithX setters; only a UserStore is mandatory for Login.
func NewService(cfg Config) *Service {
	s := &Service{
		cfg:    cfg,
		policy: AllowLists{Roles: cfg.AllowedRoles, EmailDomains: cfg.AllowedEmailDomains},
		log:    hclog.NewNullLogger(),
		client: cleanhttp.DefaultPooledClient(),
		codec: jwtkit.Codec{
			Secret:        []byte(cfg.SigningSecret),
			Audience:      cfg.ClientID,
			CustomClaim:   cfg.CustomClaim,
			CustomerViews: cfg.CustomerViews,
		},
	}
	s.rebuildProviderClients()
	return s
}

func (s *Service) rebuildProviderClients() {
	s.disc = oidckit.NewDiscoverer(s.client, s.log)
	s.exch = oidckit.NewExchanger(s.client, s.log, s.cfg.RoleClaim, s.cfg.GroupClaim, s.cfg.CustomClaim)
}

// WithUserStore attaches the local user store.
func (s *Service) WithUserStore(us UserStore) *Service { s.users = us; return s }

// WithPermissions attaches the scope lookup.
func (s *Service) WithPermissions(p PermissionLookup) *Service { s.perms = p; return s }

// WithCustomers attaches the customer lookup.
func (s *Service) WithCustomers(c CustomerLookup) *Service { s.custs = c; return s }

// WithAuditSink attaches the audit trail sink.
func (s *Service) WithAuditSink(a AuditSink) *Service { s.audit = a; return s }

// WithPolicy replaces the default allow-list policy.
func (s *Service) WithPolicy(p AuthorizationPolicy) *Service { s.policy = p; return s }

// WithDiscoveryCache attaches a TTL cache for discovery documents. Caching
// only happens when Config.DiscoveryCacheTTL is positive; entries are written
// after a successful, issuer-verified fetch only.
func (s *Service) WithDiscoveryCache(kv KV) *Service { s.cache = kv; return s }

// WithLogger replaces the no-op default logger.
func (s *Service) WithLogger(log hclog.Logger) *Service {
	if log != nil {
		s.log = log
		s.rebuildProviderClients()
	}
	return s
}

// WithHTTPClient replaces the outbound HTTP client for discovery, token and
// userinfo calls.
func (s *Service) WithHTTPClient(client *http.Client) *Service {
	if client != nil {
		s.client = client
		s.rebuildProviderClients()
	}
	return s
}

// Config exposes the immutable configuration.
func (s *Service) Config() Config { return s.cfg }

// LoginRequest is the caller-supplied half of a login: the authorization
// code delivered to the relying party plus the request context it arrived
// with.
type LoginRequest struct {
	Code        string
	RedirectURI string
	ClientID    string
	Request     RequestInfo
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	// Token is the signed compact session token.
	Token  string
	Claims jwtkit.Claims
	User   *User
	// Created reports whether this login provisioned the user.
	Created   bool
	Login     string
	Scopes    []string
	Customers []string
}

// Login drives the full authorization-code login pipeline:
//
//	discovery -> code exchange -> id_token decode -> userinfo -> claim merge
//	-> user upsert -> status check -> role/domain authorization
//	-> last-login + scope/customer lookups + audit -> signed session token
//
// Each stage failure aborts immediately with a classified error; nothing is
// retried here. A user created earlier in the pipeline persists even when a
// later stage rejects the login (create-then-reject, not rollback).
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if s.users == nil {
		return nil, fmt.Errorf("loginkit: user store not configured")
	}

	pc, err := s.providerConfig(ctx)
	if err != nil {
		return nil, err
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = s.cfg.ClientID
	}
	identity, err := s.exch.Exchange(ctx, pc, req.Code, req.RedirectURI, clientID, s.cfg.ClientSecret)
	if err != nil {
		return nil, classifyProviderError(err)
	}

	user, err := s.users.FindByID(ctx, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", identity.Subject, err)
	}
	created := false
	if user == nil {
		user, err = s.users.Create(ctx, &User{
			ID:            identity.Subject,
			Name:          identity.Name,
			Email:         identity.Email,
			EmailVerified: identity.EmailVerifiedOrDefault(),
			Status:        StatusActive,
			Roles:         []string{},
			Text:          "",
		})
		if err != nil {
			return nil, fmt.Errorf("create user %s: %w", identity.Subject, err)
		}
		created = true
	}

	login := identity.Login()
	if user.Status != StatusActive {
		return nil, notAuthorized(login, fmt.Sprintf("user %s is not active", login))
	}

	roles := oidckit.StringList(identity.Custom[s.cfg.RoleClaim])
	if len(roles) == 0 {
		roles = user.Roles
	}
	groups := oidckit.StringList(identity.Custom[s.cfg.GroupClaim])

	if !s.policy.IsRoleAllowed(roles) && !s.policy.IsDomainAllowed([]string{user.Domain()}) {
		return nil, notAuthorized(login, fmt.Sprintf("user %s is not authorized", login))
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("update last login for %s: %w", login, err)
	}

	scopes, err := s.scopesFor(ctx, login, roles)
	if err != nil {
		return nil, err
	}
	customers, err := s.customersFor(ctx, login, append([]string{user.Domain()}, groups...))
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, AuditEvent{
		OccurredAt:   now,
		Event:        "openid-login",
		Message:      "user login via OpenID Connect",
		User:         login,
		Customers:    customers,
		Scopes:       scopes,
		ResourceID:   identity.Subject,
		ResourceType: "user",
		Request:      req.Request,
	})

	claims := s.buildClaims(identity, login, scopes, customers, req.Request, now)
	token, err := s.codec.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("sign session token for %s: %w", login, err)
	}
	s.log.Info("openid login succeeded", "login", login, "subject", identity.Subject, "created", created)

	return &LoginResult{
		Token:     token,
		Claims:    claims,
		User:      user,
		Created:   created,
		Login:     login,
		Scopes:    scopes,
		Customers: customers,
	}, nil
}

// ParseToken validates a previously issued session token. requestURL is the
// audience fallback when no client id is configured.
func (s *Service) ParseToken(raw, requestURL string) (*jwtkit.Claims, error) {
	return s.codec.Parse(raw, requestURL)
}

// providerConfig resolves the issuer and fetches (or recalls) its endpoint
// configuration. Cached entries were issuer-verified when written, so the
// invariant holds across cache hits.
func (s *Service) providerConfig(ctx context.Context) (*oidckit.ProviderConfig, error) {
	issuer, err := oidckit.ResolveIssuer(s.cfg.IssuerURL, s.cfg.Provider, s.cfg.AzureTenant)
	if err != nil {
		return nil, classifyProviderError(err)
	}

	useCache := s.cache != nil && s.cfg.DiscoveryCacheTTL > 0
	if useCache {
		if b, ok, err := s.cache.Get(ctx, discoveryCacheKey+issuer); err == nil && ok {
			var pc oidckit.ProviderConfig
			if json.Unmarshal(b, &pc) == nil && pc.Issuer == issuer {
				return &pc, nil
			}
		}
	}

	pc, err := s.disc.Discover(ctx, issuer)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	if useCache {
		if b, err := json.Marshal(pc); err == nil {
			if err := s.cache.Set(ctx, discoveryCacheKey+issuer, b, s.cfg.DiscoveryCacheTTL); err != nil {
				s.log.Warn("discovery cache write failed", "issuer", issuer, "error", err)
			}
		}
	}
	return pc, nil
}

func (s *Service) scopesFor(ctx context.Context, login string, roles []string) ([]string, error) {
	if s.perms == nil {
		return nil, nil
	}
	scopes, err := s.perms.ScopesFor(ctx, login, roles)
	if err != nil {
		return nil, fmt.Errorf("look up scopes for %s: %w", login, err)
	}
	return scopes, nil
}

func (s *Service) customersFor(ctx context.Context, login string, groups []string) ([]string, error) {
	if !s.cfg.CustomerViews || s.custs == nil {
		return nil, nil
	}
	customers, err := s.custs.CustomersFor(ctx, login, groups)
	if err != nil {
		return nil, fmt.Errorf("look up customers for %s: %w", login, err)
	}
	return customers, nil
}

// recordAudit hands the event to the sink and only logs on failure; the
// trail never decides a login outcome.
func (s *Service) recordAudit(ctx context.Context, e AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.log.Warn("audit sink rejected event", "event", e.Event, "user", e.User, "error", err)
	}
}

func (s *Service) buildClaims(identity *oidckit.Identity, login string, scopes, customers []string, req RequestInfo, now time.Time) jwtkit.Claims {
	issuer := req.BaseURL
	audience := s.cfg.ClientID
	if audience == "" {
		audience = req.BaseURL
	}
	claims := jwtkit.Claims{
		Issuer:            issuer,
		Type:              "Bearer",
		Subject:           identity.Subject,
		Audience:          audience,
		ExpiresAt:         now.Add(s.cfg.TokenExpiry),
		NotBefore:         now,
		IssuedAt:          now,
		ID:                uuid.NewString(),
		Name:              identity.Name,
		PreferredUsername: login,
		Email:             identity.Email,
		EmailVerified:     identity.EmailVerified,
		Provider:          ProviderName,
		Scopes:            scopes,
		Customers:         customers,
	}
	if s.cfg.CustomClaim != "" {
		if v, ok := identity.Custom[s.cfg.CustomClaim]; ok {
			claims.Extra = map[string]any{s.cfg.CustomClaim: v}
		}
	}
	return claims
}
