package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the session token claims issued by the auth provider.
// Subject carries the provider user id; UserID is accepted as a fallback for
// tokens minted by tutorctl.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
}

// Identity is the read-only view of the current learner handed to handlers
// and the session registry.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (c Claims) Identity() Identity {
	uid := c.Subject
	if uid == "" {
		uid = c.UserID
	}
	return Identity{UserID: uid, DisplayName: c.DisplayName, Role: c.Role}
}
