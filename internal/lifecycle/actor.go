// internal/lifecycle/actor.go
package lifecycle

import (
	"github.com/google/uuid"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// HasRole reports whether the actor holds any of the given roles.
func (a Actor) HasRole(roles ...models.UserRole) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// CanView enforces read visibility: admins see everything, everyone else only
// credentials they issued or hold.
func CanView(c models.Credential, actor Actor) error {
	if actor.IsAdmin() || c.IsIssuer(actor.ID) || c.IsHolder(actor.ID) {
		return nil
	}
	return apperrors.Forbidden("not authorized to view this credential")
}

func requireIssuerOrAdmin(c models.Credential, actor Actor, verb string) error {
	if actor.IsAdmin() || c.IsIssuer(actor.ID) {
		return nil
	}
	return apperrors.Forbidden("not authorized to %s this credential", verb)
}

func requireVerifier(actor Actor, verb string) error {
	if actor.HasRole(models.RoleVerifier, models.RoleAdmin) {
		return nil
	}
	return apperrors.Forbidden("only verifiers can %s credentials", verb)
}
