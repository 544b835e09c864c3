// Package authz decides, per request, whether an identity may perform a
// protected operation. It is a set of policy predicates, not a
// framework: handlers call Check before touching any store, and a deny
// short-circuits the request with nothing partially executed.
package authz

import (
	"errors"

	"github.com/moteeees/library/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrDenied          = errors.New("permission denied")
)

// Identity is the authenticated caller, as established by the auth
// middleware. A nil *Identity is an anonymous request.
type Identity struct {
	UserID    primitive.ObjectID
	Login     string
	Role      string
	SessionID primitive.ObjectID
}

// Requirement is a single precondition an identity must satisfy.
type Requirement func(id *Identity) error

// Authenticated requires any logged-in identity.
func Authenticated(id *Identity) error {
	if id == nil {
		return ErrUnauthenticated
	}
	return nil
}

// Staff requires the admin role.
func Staff(id *Identity) error {
	return InGroup(models.RoleAdmin)(id)
}

// InGroup requires the identity to hold the named role.
func InGroup(role string) Requirement {
	return func(id *Identity) error {
		if id == nil {
			return ErrUnauthenticated
		}
		if id.Role != role {
			return ErrDenied
		}
		return nil
	}
}

// Owner requires the identity to be the owning user of a resource.
func Owner(ownerID primitive.ObjectID) Requirement {
	return func(id *Identity) error {
		if id == nil {
			return ErrUnauthenticated
		}
		if id.UserID != ownerID {
			return ErrDenied
		}
		return nil
	}
}

// Check ANDs the requirements, returning the first failure.
func Check(id *Identity, reqs ...Requirement) error {
	for _, req := range reqs {
		if err := req(id); err != nil {
			return err
		}
	}
	return nil
}
