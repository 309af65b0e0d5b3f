package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

// Caller is the identity every core operation receives explicitly.
type Caller struct {
	UserID uuid.UUID
	Role   enums.UserRole
	Status enums.UserStatus
}

func (c Caller) IsAuthenticated() bool {
	return c.UserID != uuid.Nil
}

func (c Caller) IsAdmin() bool {
	return c.IsAuthenticated() && c.Role == enums.UserRoleAdmin
}

func (c Caller) IsApproved() bool {
	return c.IsAuthenticated() && c.Status == enums.UserStatusApproved
}

// RequireAdmin returns a typed error unless the caller is an admin.
func RequireAdmin(caller Caller) error {
	if !caller.IsAuthenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !caller.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
