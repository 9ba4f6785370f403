package core

import "context"

// PermissionLookup resolves the authorization scopes granted to a login with
// the given effective roles. The scope table itself lives with the host.
type PermissionLookup interface {
	ScopesFor(ctx context.Context, login string, roles []string) ([]string, error)
}

// CustomerLookup resolves the customers (tenants) a login may see, given the
// user's groups and email domain.
type CustomerLookup interface {
	CustomersFor(ctx context.Context, login string, groups []string) ([]string, error)
}

// FixedScopes grants the same scope list to every login. Useful for dev
// servers and tests.
type FixedScopes []string

func (f FixedScopes) ScopesFor(context.Context, string, []string) ([]string, error) {
	return f, nil
}

// FixedCustomers returns the same customer list for every login.
type FixedCustomers []string

func (f FixedCustomers) CustomersFor(context.Context, string, []string) ([]string, error) {
	return f, nil
}
