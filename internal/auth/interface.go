package auth

import "lifeplan/internal/domain/models"

// JWTVerifier validates bearer tokens issued by Supabase Auth
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Invalid, expired or anonymous tokens yield domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close releases any resources held by the verifier
	Close() error
}
