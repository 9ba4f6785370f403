package oidckit

// Identity is the merged view of the provider's id_token and userinfo
// response. The subject comes from userinfo only; the remaining standard
// fields prefer userinfo and fall back to id_token claims.
type Identity struct {
	Subject           string
	Name              string
	Nickname          string
	PreferredUsername string
	Email             string
	// EmailVerified is nil when neither document carried the claim.
	EmailVerified *bool

	// Custom holds the values of deployment-configured claim names
	// (role claim, group claim, custom session claim), merged with the
	// same userinfo-over-id_token precedence. Absent claims have no key.
	Custom map[string]any
}

// Login is the effective login identifier: preferred_username, else
// nickname, else email.
func (id *Identity) Login() string {
	if id.PreferredUsername != "" {
		return id.PreferredUsername
	}
	if id.Nickname != "" {
		return id.Nickname
	}
	return id.Email
}

// EmailVerifiedOrDefault resolves the tri-state flag for consumers that need
// a concrete boolean: an explicit claim wins, otherwise presence of an email
// address counts as verified.
func (id *Identity) EmailVerifiedOrDefault() bool {
	if id.EmailVerified != nil {
		return *id.EmailVerified
	}
	return id.Email != ""
}

// mergeIdentity applies the fallback order over the two claim documents.
func mergeIdentity(userinfo, idToken map[string]any, claimNames []string) *Identity {
	id := &Identity{
		Subject:           claimString(userinfo, "sub"),
		Nickname:          claimString(userinfo, "nickname"),
		PreferredUsername: claimString(userinfo, "preferred_username"),
		Custom:            map[string]any{},
	}
	id.Name = firstString(userinfo, idToken, "name")
	id.Email = firstString(userinfo, idToken, "email")
	if v, ok := userinfo["email_verified"].(bool); ok {
		id.EmailVerified = &v
	} else if v, ok := idToken["email_verified"].(bool); ok {
		id.EmailVerified = &v
	}
	for _, name := range claimNames {
		if name == "" {
			continue
		}
		if v, ok := userinfo[name]; ok && v != nil {
			id.Custom[name] = v
		} else if v, ok := idToken[name]; ok && v != nil {
			id.Custom[name] = v
		}
	}
	return id
}

func claimString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstString(primary, fallback map[string]any, key string) string {
	if s := claimString(primary, key); s != "" {
		return s
	}
	return claimString(fallback, key)
}

// StringList normalizes a claim value that may arrive as a JSON string,
// array of strings, or mixed array into a string slice. Nil for anything
// else.
func StringList(v any) []string {
	switch vs := v.(type) {
	case nil:
		return nil
	case string:
		if vs == "" {
			return nil
		}
		return []string{vs}
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
