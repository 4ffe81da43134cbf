package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo holds the unverified claims of a bearer token, used for logging only.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// InspectToken decodes a JWT without verifying it. Opaque tokens report ok=false.
func InspectToken(token string) (TokenInfo, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, false
	}
	var info TokenInfo
	if sub, ok := claims["sub"]; ok && sub != nil {
		info.Subject = fmt.Sprint(sub)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, true
}

// Expired reports whether the token carried an expiry that lies before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !i.ExpiresAt.After(now)
}

func tokenAttrs(token string) []any {
	info, ok := InspectToken(token)
	if !ok {
		return []any{slog.Bool("jwt", false)}
	}
	attrs := []any{slog.Bool("jwt", true), slog.String("subject", info.Subject)}
	if !info.ExpiresAt.IsZero() {
		attrs = append(attrs, slog.Time("expires_at", info.ExpiresAt), slog.Bool("expired", info.Expired(time.Now())))
	}
	return attrs
}
