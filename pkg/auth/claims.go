package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload is the input for minting a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   string
	JTI    string
}

// AccessTokenClaims is the typed claim set embedded in every access token.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"uid"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}
