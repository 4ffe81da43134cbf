package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "session-secret", "slooze_session", time.Hour, false), mr
}

func sessionCookie(t *testing.T, res *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestSessionFlashSurvivesOneRoundTrip(t *testing.T) {
	manager, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: FlashSuccess, Message: "Order created #42"})

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))
	cookie := sessionCookie(t, res, manager.CookieName())
	assert.True(t, strings.HasPrefix(cookie.Value, sess.ID+"."))
	assert.True(t, mr.Exists(sessionKeyPrefix+sess.ID))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)

	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Order created #42", flash.Message)
	require.NoError(t, manager.Commit(ctx, httptest.NewRecorder(), next, loaded))

	again, err := manager.Load(ctx, next)
	require.NoError(t, err)
	assert.Nil(t, again.PopFlash())
}

func TestSessionKeepsIDWhenStoreExpired(t *testing.T) {
	manager, mr := newTestManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))
	mr.FlushAll()

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(sessionCookie(t, res, manager.CookieName()))
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
}

func TestSessionRejectsUnsignedCookies(t *testing.T) {
	manager, _ := newTestManager(t)
	other := NewSessionManager(nil, "other-secret", "slooze_session", time.Hour, false)
	planted := "11111111-2222-3333-4444-555555555555"

	tests := []struct {
		name  string
		value string
	}{
		{name: "path", value: "../../etc"},
		{name: "bare uuid", value: planted},
		{name: "bad signature", value: planted + ".AAAA"},
		{name: "foreign secret", value: other.sign(planted)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: manager.CookieName(), Value: tt.value})

			sess, err := manager.Load(context.Background(), req)
			require.NoError(t, err)
			assert.NotEqual(t, planted, sess.ID)
			assert.True(t, sess.isNew)
		})
	}
}

func TestSessionRenewIssuesNewID(t *testing.T) {
	manager, mr := newTestManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.Set(CSRFSessionKey, "old-token")
	require.NoError(t, manager.Commit(ctx, httptest.NewRecorder(), req, sess))
	oldID := sess.ID

	freshID := NewSessionID()
	manager.Renew(sess, freshID)
	sess.AddFlash(FlashMessage{Kind: FlashSuccess, Message: "hi"})
	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))

	assert.Equal(t, freshID, sess.ID)
	assert.False(t, mr.Exists(sessionKeyPrefix+oldID))
	assert.True(t, mr.Exists(sessionKeyPrefix+freshID))
	assert.Empty(t, sess.Get(CSRFSessionKey))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(sessionCookie(t, res, manager.CookieName()))
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, freshID, loaded.ID)
	require.NotNil(t, loaded.PopFlash())
}

func TestSessionDestroyRemovesData(t *testing.T) {
	manager, mr := newTestManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	require.NoError(t, manager.Commit(ctx, httptest.NewRecorder(), req, sess))
	require.True(t, mr.Exists(sessionKeyPrefix+sess.ID))

	manager.Destroy(sess)
	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))
	assert.False(t, mr.Exists(sessionKeyPrefix+sess.ID))
	assert.Equal(t, -1, sessionCookie(t, res, manager.CookieName()).MaxAge)
}

func TestCSRFTokenLifecycle(t *testing.T) {
	csrf := NewCSRFManager("csrf-secret")
	ctx := context.Background()
	sess := newSession("abc")

	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, newSession("other"), token), ErrCSRFTokenMissing)

	_, err = csrf.EnsureToken(ctx, nil)
	assert.ErrorIs(t, err, ErrSessionMissing)
}
