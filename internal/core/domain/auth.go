package domain

import "time"

// Role defines user permission level
type Role string

const (
	RoleAdmin  Role = "admin"  // Manage AI settings
	RoleMember Role = "member" // Invoke AI actions, edit documents
	RoleViewer Role = "viewer" // Read only
)

// IsValid returns true if this is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	default:
		return false
	}
}

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	TeamID    string `json:"team_id"`
	SessionID string `json:"session_id"`
}

// IsAdmin checks if the authenticated user is an admin
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// Authenticated reports whether the context identifies a user
func (a *AuthContext) Authenticated() bool {
	return a != nil && a.UserID != ""
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	TeamID    string `json:"team_id"`
	SessionID string `json:"session_id"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Expired reports whether the claims are past their expiry
func (c *TokenClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != 0 && now.Unix() >= c.ExpiresAt
}
