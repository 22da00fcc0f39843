package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

func testClaims(role domain.Role, expiresIn time.Duration) *domain.TokenClaims {
	now := time.Now()
	return &domain.TokenClaims{
		UserID:    "user-123",
		Email:     "writer@example.com",
		Role:      role,
		TeamID:    "team-456",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(expiresIn).Unix(),
	}
}

func TestGenerateToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret", "quill")

	token, err := adapter.GenerateToken(testClaims(domain.RoleMember, time.Hour))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if parts := strings.Count(token, "."); parts != 2 {
		t.Errorf("expected JWT with 3 parts, got %d dots", parts)
	}
}

func TestParseToken_ValidToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret", "quill")
	original := testClaims(domain.RoleAdmin, time.Hour)
	original.SessionID = "session-789"

	token, _ := adapter.GenerateToken(original)

	parsed, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}

	if parsed.UserID != original.UserID {
		t.Errorf("expected UserID %s, got %s", original.UserID, parsed.UserID)
	}
	if parsed.Email != original.Email {
		t.Errorf("expected Email %s, got %s", original.Email, parsed.Email)
	}
	if parsed.Role != original.Role {
		t.Errorf("expected Role %s, got %s", original.Role, parsed.Role)
	}
	if parsed.TeamID != original.TeamID {
		t.Errorf("expected TeamID %s, got %s", original.TeamID, parsed.TeamID)
	}
	if parsed.SessionID != original.SessionID {
		t.Errorf("expected SessionID %s, got %s", original.SessionID, parsed.SessionID)
	}
	if parsed.ExpiresAt != original.ExpiresAt {
		t.Errorf("expected ExpiresAt %d, got %d", original.ExpiresAt, parsed.ExpiresAt)
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret", "")

	token, _ := adapter.GenerateToken(testClaims(domain.RoleMember, -2*time.Hour))

	if _, err := adapter.ParseToken(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_Rejected(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret", "quill")
	valid := testClaims(domain.RoleMember, time.Hour)

	wrongSecret, _ := NewAdapter("other-secret", "quill").GenerateToken(valid)
	wrongIssuer, _ := NewAdapter("test-jwt-secret", "elsewhere").GenerateToken(valid)
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwtClaims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "quill",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		UserID:           "user-123",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "quill"},
	}).SignedString([]byte("test-jwt-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a jwt", "not-a-jwt"},
		{"garbage parts", "invalid.token.here"},
		{"missing signature", "header.payload"},
		{"wrong secret", wrongSecret},
		{"wrong issuer", wrongIssuer},
		{"alg none", unsigned},
		{"no expiry", noExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := adapter.ParseToken(tt.token); !errors.Is(err, domain.ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestParseToken_SubjectFallback(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret", "")

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-from-sub",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-jwt-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != "user-from-sub" {
		t.Errorf("expected user id from subject, got %q", claims.UserID)
	}
}

func TestRoundTrip_AllRoles(t *testing.T) {
	adapter := NewAdapter("test-secret", "quill")

	for _, role := range []domain.Role{domain.RoleMember, domain.RoleAdmin, domain.RoleViewer} {
		t.Run(string(role), func(t *testing.T) {
			token, err := adapter.GenerateToken(testClaims(role, time.Hour))
			if err != nil {
				t.Fatalf("failed to generate token: %v", err)
			}

			parsed, err := adapter.ParseToken(token)
			if err != nil {
				t.Fatalf("failed to parse token: %v", err)
			}
			if parsed.Role != role {
				t.Errorf("expected role %s, got %s", role, parsed.Role)
			}
		})
	}
}

func BenchmarkParseToken(b *testing.B) {
	adapter := NewAdapter("benchmark-secret", "quill")
	token, _ := adapter.GenerateToken(testClaims(domain.RoleMember, time.Hour))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = adapter.ParseToken(token)
	}
}
