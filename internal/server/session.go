package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const sessionCookieName = "session"

// signSessionToken mints a signed JWT whose subject is an anonymous
// session id. Voting identity is per-session, not per-user.
func signSessionToken(sessionID string, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": sessionID,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// parseSessionToken returns the session id carried by a signed token.
func parseSessionToken(token string, secret []byte) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid session token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid session claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("session token missing subject")
	}
	return sub, nil
}

// extractSessionToken pulls a token from the Authorization header or the
// session cookie.
func extractSessionToken(c echo.Context) string {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// ensureSession resolves the caller's session id, minting a fresh one (and
// setting the cookie) when the request carries no token or an expired one.
func ensureSession(c echo.Context, secret []byte, ttl time.Duration) (string, error) {
	if tok := extractSessionToken(c); tok != "" {
		if id, err := parseSessionToken(tok, secret); err == nil {
			return id, nil
		}
	}
	id := uuid.NewString()
	signed, err := signSessionToken(id, secret, ttl)
	if err != nil {
		return "", err
	}
	cookie := new(http.Cookie)
	cookie.Name = sessionCookieName
	cookie.Value = signed
	cookie.Path = "/"
	cookie.MaxAge = int(ttl / time.Second)
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteLaxMode
	if os.Getenv("NEWSBLEND_ENV") == "prod" {
		cookie.Secure = true
	}
	c.SetCookie(cookie)
	return id, nil
}
