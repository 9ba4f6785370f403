// Dev server: wires the login core with an in-memory user store and static
// lookups so the OIDC flow can be exercised end to end against a real
// provider. Not for production.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5/pgxpool"

	authhttp "github.com/open-rails/loginkit/adapters/http"
	"github.com/open-rails/loginkit/core"
	pgmigrations "github.com/open-rails/loginkit/migrations/postgres"
	memorystore "github.com/open-rails/loginkit/storage/memory"
	pgstore "github.com/open-rails/loginkit/storage/postgres"
)

func main() {
	log := hclog.New(&hclog.LoggerOptions{Name: "loginkit-dev", Level: hclog.Debug})

	cfg, err := core.ConfigFromEnv()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.SigningSecret == "" {
		cfg.SigningSecret = "dev-only-secret"
		log.Warn("SECRET_KEY not set, using a development signing secret")
	}

	svc := core.NewService(cfg).
		WithPermissions(core.FixedScopes{"read", "write"}).
		WithCustomers(core.FixedCustomers(nil)).
		WithAuditSink(logSink{log: log.Named("audit")}).
		WithDiscoveryCache(memorystore.NewKV()).
		WithLogger(log)

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		if err := pgmigrations.Apply(context.Background(), pool); err != nil {
			log.Error("apply migrations", "error", err)
			os.Exit(1)
		}
		svc.WithUserStore(pgstore.NewUsers(pool))
		log.Info("using postgres user store")
	} else {
		svc.WithUserStore(memorystore.NewUsers())
		log.Info("using in-memory user store")
	}

	mux := http.NewServeMux()
	mux.Handle("/auth/openid", authhttp.OpenIDHandler(svc))
	mux.Handle("/me", authhttp.Required(svc)(http.HandlerFunc(me)))

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func me(w http.ResponseWriter, r *http.Request) {
	claims := authhttp.ClaimsFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"sub":%q,"login":%q,"scope":%q}`+"\n",
		claims.Subject, claims.PreferredUsername, claims.ScopeString())
}

// logSink writes audit events to the dev log.
type logSink struct {
	log hclog.Logger
}

func (s logSink) Record(_ context.Context, e core.AuditEvent) error {
	s.log.Info(e.Message, "event", e.Event, "user", e.User, "subject", e.ResourceID, "scopes", e.Scopes)
	return nil
}
