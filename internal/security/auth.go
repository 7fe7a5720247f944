// Package security holds the identity verifier and the relay-credential
// issuer. Both are consumed by the dispatch layer and know nothing about
// rooms or transports.
package security

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vvoice/signaling/internal/domain"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenVerifier turns an opaque auth token into verified claims.
type TokenVerifier interface {
	Verify(token string) (domain.Claims, error)
}

// JWTVerifier validates HS256 tokens issued by the login service.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(token string) (domain.Claims, error) {
	if token == "" {
		return domain.Claims{}, ErrMissingToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return domain.Claims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Claims{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	if sub == "" || name == "" {
		return domain.Claims{}, ErrInvalidToken
	}

	role := domain.RoleMember
	if r, _ := claims["role"].(string); r == string(domain.RoleAdmin) {
		role = domain.RoleAdmin
	}
	return domain.Claims{UserID: domain.UserID(sub), DisplayName: name, Role: role}, nil
}
