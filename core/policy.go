package core

// AuthorizationPolicy answers the two allow-list questions asked after a
// user's identity is resolved. Authorization succeeds when either check
// passes; only a double rejection forbids the login.
type AuthorizationPolicy interface {
	// IsRoleAllowed reports whether any of the effective roles is permitted.
	IsRoleAllowed(roles []string) bool
	// IsDomainAllowed reports whether any of the given email domains is
	// permitted.
	IsDomainAllowed(domains []string) bool
}

// AllowLists is the standard policy: a nil/empty list means the check always
// passes, otherwise at least one candidate must appear in the list.
type AllowLists struct {
	Roles        []string
	EmailDomains []string
}

func (a AllowLists) IsRoleAllowed(roles []string) bool {
	return anyAllowed(a.Roles, roles)
}

func (a AllowLists) IsDomainAllowed(domains []string) bool {
	return anyAllowed(a.EmailDomains, domains)
}

func anyAllowed(allowed, candidates []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, c := range candidates {
		for _, a := range allowed {
			if c == a {
				return true
			}
		}
	}
	return false
}
