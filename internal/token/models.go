package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token. Only UserID is supplied by the
// caller; the registered claims are stamped by Issue.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type IssueResult struct {
	Token string
	// ExpiresAt is zero when the codec issues non-expiring tokens.
	ExpiresAt time.Time
}
