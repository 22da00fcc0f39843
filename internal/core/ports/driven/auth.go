package driven

import "github.com/custodia-labs/quill-core/internal/core/domain"

// AuthAdapter handles token cryptographic operations.
// Tokens are issued by the account service; quill-core only verifies them.
type AuthAdapter interface {
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
