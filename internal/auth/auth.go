/*
Package auth verifies the bearer tokens issued by the account service and
puts the caller's user_id into the echo context.
*/
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const AccessTokenDuration = 15 * time.Minute

type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an HS256 token for userID.
func GenerateAccessToken(secret []byte, userID string, now time.Time) (string, error) {
	claims := &JwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseAccessToken validates tokenString and returns its user id.
func ParseAccessToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("token has no user_id")
	}
	return claims.UserID, nil
}

// JwtAuthMiddleware accepts the token from the Authorization header, or from
// the access-token cookie for browser dashboards. Websocket clients that
// cannot set headers may pass it as the access_token query parameter.
func JwtAuthMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var tokenString string

			authHeader := c.Request().Header.Get("Authorization")
			switch {
			case strings.HasPrefix(authHeader, "Bearer "):
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			case c.QueryParam("access_token") != "":
				tokenString = c.QueryParam("access_token")
			default:
				cookie, err := c.Cookie("access-token")
				if err != nil {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing token"})
				}
				tokenString = cookie.Value
			}

			userID, err := ParseAccessToken(secret, tokenString)
			if err != nil {
				log.Warn().Err(err).Msg("Token validation error")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			}

			c.Set("user_id", userID)
			return next(c)
		}
	}
}
