package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Ensure Adapter implements AuthAdapter
var _ driven.AuthAdapter = (*Adapter)(nil)

// jwtClaims wraps domain.TokenClaims for JWT compatibility
type jwtClaims struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	TeamID    string      `json:"team_id"`
	SessionID string      `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// Adapter signs and verifies HS256 JWTs
type Adapter struct {
	jwtSecret []byte
	issuer    string
	leeway    time.Duration
}

// NewAdapter creates a new auth adapter with the given JWT secret.
// A non-empty issuer is stamped on generated tokens and required on parsed ones.
func NewAdapter(jwtSecret, issuer string) *Adapter {
	return &Adapter{
		jwtSecret: []byte(jwtSecret),
		issuer:    issuer,
		leeway:    30 * time.Second,
	}
}

// GenerateToken creates a signed JWT from domain claims
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	jc := jwtClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		TeamID:    claims.TeamID,
		SessionID: claims.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts domain claims.
// Expired tokens return domain.ErrTokenExpired, anything else unusable
// returns domain.ErrTokenInvalid.
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, opts...)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, domain.ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}

	out := &domain.TokenClaims{
		UserID:    userID,
		Email:     claims.Email,
		Role:      claims.Role,
		TeamID:    claims.TeamID,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	return out, nil
}
