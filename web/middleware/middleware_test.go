package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-college/web/db"
)

const testSecret = "jwt_test_secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[string]*db.User

func (f fakeUsers) ByID(_ context.Context, id string) (*db.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	return u, nil
}

func protectedRouter(users UserLoader, roles ...db.Role) *gin.Engine {
	r := gin.New()
	chain := []gin.HandlerFunc{RequireAuth(testSecret, users)}
	if len(roles) > 0 {
		chain = append(chain, Authorize(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})
	r.GET("/private", chain...)
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	student := &db.User{ID: "u1", Email: "s@example.edu", Role: db.RoleStudent}
	r := protectedRouter(fakeUsers{"u1": student})

	token, err := IssueToken(testSecret, student, time.Hour, time.Now())
	require.NoError(t, err)

	w := get(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u1"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "garbage").Code)

	forged, err := IssueToken("other_secret", student, time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, forged).Code)

	expired, err := IssueToken(testSecret, student, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, expired).Code)

	ghost, err := IssueToken(testSecret, &db.User{ID: "gone"}, time.Hour, time.Now())
	require.NoError(t, err)
	w = get(r, ghost)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}

func TestAuthorizeUsesStoredRole(t *testing.T) {
	admin := &db.User{ID: "a1", Role: db.RoleAdmin}
	student := &db.User{ID: "u1", Role: db.RoleStudent}
	r := protectedRouter(fakeUsers{"a1": admin, "u1": student}, db.RoleAdmin)

	adminToken, _ := IssueToken(testSecret, admin, time.Hour, time.Now())
	assert.Equal(t, http.StatusOK, get(r, adminToken).Code)

	// a token minted while the user claimed admin does not outlive the stored role
	studentToken, _ := IssueToken(testSecret, &db.User{ID: "u1", Role: db.RoleAdmin}, time.Hour, time.Now())
	assert.Equal(t, http.StatusForbidden, get(r, studentToken).Code)
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	rl := NewMemoryLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)
	ok, _ = rl.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _ = rl.Allow(ctx, "10.0.0.1")
	assert.True(t, ok, "bucket refills over the window")

	now = now.Add(2 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestRedisLimiter(t *testing.T) {
	client, mock := redismock.NewClientMock()
	rl := NewRedisLimiter(client, 2, time.Minute)
	ctx := context.Background()
	key := "ratelimit:10.0.0.1"

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectIncr(key).SetVal(3)

	for _, want := range []bool{true, true, false} {
		ok, err := rl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitMiddleware(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := gin.New()
	r.Use(RateLimit(NewRedisLimiter(client, 1, time.Minute), zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	key := "ratelimit:192.0.2.1"
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK}, codes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
