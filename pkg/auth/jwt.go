package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "taskgraph/pkg/errors"
)

// Claims are the token claims this service cares about.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTValidator verifies HMAC-signed bearer tokens.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for tokens signed with the shared
// secret and issued by the configured issuer.
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Validate parses and verifies a token string and returns the subject (the
// user ID) on success.
func (v *JWTValidator) Validate(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", pkgerrors.NewUnauthorizedError("invalid token").WithCause(err)
	}
	if !token.Valid {
		return "", pkgerrors.NewUnauthorizedError("invalid token")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", pkgerrors.NewUnauthorizedError("token has no subject")
	}

	return subject, nil
}
