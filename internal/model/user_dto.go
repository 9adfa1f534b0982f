package model

import "github.com/google/uuid"

// UserDTO is the authenticated principal attached to every request by the
// auth middleware. TenantID scopes every store query made on its behalf.
type UserDTO struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Role     string
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      string    `json:"role,omitempty"`
}
