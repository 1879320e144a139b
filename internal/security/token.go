package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a bearer token fails verification for any
// reason: bad signature, malformed payload, wrong signing method, or expiry.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims are the claims embedded in a bearer token. The token is a
// capability reference to a session row; it is never trusted alone, so the
// claims carry only what the authorization gate needs to find the session.
type SessionClaims struct {
	SessionID string `json:"sid"`
	UserID    uint64 `json:"uid"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs a bearer token embedding the session reference.
func IssueSessionToken(secret string, expiry time.Duration, sessionID string, userID uint64, username string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("issue token: empty secret")
	}
	now := time.Now().UTC()
	claims := SessionClaims{
		SessionID: sessionID,
		UserID:    userID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("issue token: sign: %w", err)
	}
	return signed, nil
}

// ParseSessionToken verifies a bearer token and returns its claims. It fails
// closed: any verification error maps to ErrInvalidToken.
func ParseSessionToken(secret, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.SessionID) == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
