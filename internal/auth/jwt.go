package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"paygate/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify an API caller. Subject is the merchant or service name.
type Claims struct {
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// GenerateToken issues an HS256 token for subject, valid for cfg.TokenTTL.
func GenerateToken(cfg *config.AuthConfig, subject string) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    cfg.Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func ParseToken(cfg *config.AuthConfig, tokenString string) (*Claims, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate accepts either the static API key or a signed token and
// returns the caller's subject.
func Authenticate(cfg *config.AuthConfig, credential string) (string, error) {
	if credential == "" {
		return "", ErrInvalidToken
	}
	if cfg.APIKey != "" && subtle.ConstantTimeCompare([]byte(credential), []byte(cfg.APIKey)) == 1 {
		return "api-key", nil
	}
	claims, err := ParseToken(cfg, credential)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
