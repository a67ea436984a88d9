package auth

// The guard predicates below are pure: they inspect an AuthContext and
// return nil or a typed error. internal/middleware turns them into gin
// handlers that halt the chain.

// RequireAuthenticated fails with ErrUnauthenticated when ac is nil.
func RequireAuthenticated(ac *AuthContext) error {
	if ac == nil {
		return ErrUnauthenticated
	}
	return nil
}

// RequireRole fails with ErrUnauthenticated when ac is nil and with a
// MissingRoleError when none of its roles is name.
func RequireRole(ac *AuthContext, name string) error {
	if ac == nil {
		return ErrUnauthenticated
	}
	if !ac.HasRole(name) {
		return &MissingRoleError{Role: name}
	}
	return nil
}

// RequirePermission fails with ErrUnauthenticated when ac is nil and
// otherwise with a MissingPermissionError for the first name, in order,
// that ac does not hold. Later names are not evaluated.
func RequirePermission(ac *AuthContext, names ...string) error {
	if ac == nil {
		return ErrUnauthenticated
	}
	for _, name := range names {
		if !ac.HasPermission(name) {
			return &MissingPermissionError{Permission: name}
		}
	}
	return nil
}
