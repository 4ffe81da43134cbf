package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/slooze/slooze-web/internal/session"
)

// NewSessionRegistry builds the per-browser client registry. Tokens are kept
// in Redis under the browser session ID when rdb is set, and in process
// memory otherwise. Idle clients are dropped after the browser session TTL.
func NewSessionRegistry(cfg *Config, apiClient session.API, rdb *redis.Client, logger *slog.Logger) *session.Registry {
	return session.NewRegistry(func(browserSessionID string) *session.Client {
		var store session.TokenStore
		if rdb != nil {
			store = session.NewRedisTokenStore(rdb, session.TokenKey(cfg.TokenKey, browserSessionID), cfg.SessionTTL)
		} else {
			store = session.NewMemoryTokenStore("")
		}
		return session.NewClient(apiClient, store, logger.With(slog.String("browser_session", browserSessionID[:min(8, len(browserSessionID))])))
	}, cfg.SessionTTL)
}
