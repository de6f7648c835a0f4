// Package auth provides JWT issuance and the Echo auth middleware for the
// migration API.
package auth

import (
	"fmt"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims issued to operators.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs a JWT for the given subject.
func GenerateToken(subject, secret string, expiresIn time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(expiresIn)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// JWTMiddleware builds the Echo JWT middleware with a skipper for public paths.
func JWTMiddleware(secret string, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		Skipper:    skipper,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return &Claims{}
		},
	})
}

// Subject extracts the authenticated subject from the request context, "" when
// the request was not authenticated.
func Subject(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return ""
	}
	return claims.Subject
}
