package devapi

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tendant/idm-forms/pkg/errors"
)

// TokenType is the token_type reported with every access token.
const TokenType = "Bearer"

// Claims are the access token claims.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// TokenIssuer signs HS256 access tokens and verifies them for protected routes.
type TokenIssuer struct {
	secret []byte
	issuer string
	auth   *jwtauth.JWTAuth
	now    func() time.Time
}

func NewTokenIssuer(secret, issuer string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		auth:   jwtauth.New("HS256", []byte(secret), nil),
		now:    time.Now,
	}
}

// Issue signs a token for u that expires after ttl.
func (t *TokenIssuer) Issue(u User, ttl time.Duration) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:  u.Name,
		Email: u.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, errors.InternalWrap(err, "failed to sign token")
	}
	return signed, expiresAt, nil
}

// JWTAuth is the verifier used by jwtauth middleware.
func (t *TokenIssuer) JWTAuth() *jwtauth.JWTAuth {
	return t.auth
}
