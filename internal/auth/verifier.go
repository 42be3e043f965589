// Package auth provides the interchangeable identity verifiers: a local
// HS256 token issuer/verifier and a delegated verifier backed by a Keycloak
// realm. Callers depend only on the Verifier capability set; the active
// variant is chosen once at start-up by the adapter selector.
package auth

import "context"

// Identity is the verified principal attached to a request.
type Identity struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Verifier checks a bearer credential and answers role queries.
//
// Verify returns errs.ErrUnauthorized (wrapped) for any credential that does
// not verify; the cause stays inspectable but is never conflated with a
// missing entity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
	HasRole(identity *Identity, roles ...string) bool
}

func hasAnyRole(identity *Identity, roles ...string) bool {
	if identity == nil {
		return false
	}
	for _, want := range roles {
		for _, have := range identity.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
