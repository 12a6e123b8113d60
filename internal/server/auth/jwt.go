// Package auth implements the signed-token codec: minting and parsing of
// HS256 JWTs carrying the subject user id, an expiry, and a type
// discriminator separating access tokens from refresh tokens.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vettta06/devteam-ai/internal/common"
)

// TokenType discriminates access tokens from refresh tokens. A token of one
// type is never accepted where the other is required.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims carries the standard registered claims plus the token type. The
// user id travels in the registered sub claim; sub, exp, and type are all
// required for a token to be accepted.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"type"`
}

// GenerateToken mints a signed token for userID expiring at now+validity.
// Each token carries a random jti so two tokens minted for the same user in
// the same second still differ; the refresh store relies on token strings
// being unique.
func GenerateToken(userID string, tokenType TokenType, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
			ID:        uuid.NewString(),
		},
		TokenType: tokenType,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry in a single step and returns
// the claims. Malformed payloads, bad signatures, expired tokens, and tokens
// missing required fields all collapse to common.ErrInvalidToken so callers
// cannot accidentally trust a partially valid token.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	if claims.TokenType != TokenAccess && claims.TokenType != TokenRefresh {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromToken parses tokenString and additionally requires its type to
// match want. A mismatch is indistinguishable from any other invalid token.
func GetUserIDFromToken(tokenString string, secretKey []byte, want TokenType) (string, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}

	if claims.TokenType != want {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
