package domain

import (
	"github.com/google/uuid"
)

// User is the minimal directory projection this service reads for display
// and tenant checks. The user directory itself is owned elsewhere.
type User struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	FirstName string
	LastName  string
	Email     string
	AvatarURL string
	Role      string
	IsActive  bool
}

func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
