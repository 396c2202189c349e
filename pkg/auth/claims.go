package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-payments/pkg/enums"
)

// Actor is the authenticated caller of the admin API.
type Actor struct {
	ID       uuid.UUID
	Role     enums.ActorRole
	SellerID *uuid.UUID
}

// IsAdmin reports whether the actor has platform-wide permissions.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.ActorRoleAdmin
}

// AccessTokenClaims represents the typed JWT issued to operators and sellers.
type AccessTokenClaims struct {
	ActorID  uuid.UUID       `json:"actor_id"`
	Role     enums.ActorRole `json:"role"`
	SellerID *uuid.UUID      `json:"seller_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts validated claims into the request actor.
func (c *AccessTokenClaims) Actor() Actor {
	return Actor{ID: c.ActorID, Role: c.Role, SellerID: c.SellerID}
}
