package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/medrecords-users/internal/domain/identity"
	"github.com/oksasatya/medrecords-users/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/whoami", func(c *gin.Context) {
		actor, _ := identity.ActorFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"actor":      actor,
			"user_id":    c.GetString(CtxUserIDKey),
			"real_ip":    c.GetString("real_ip"),
			"request_id": c.GetString("request_id"),
		})
	})
	return r
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthSetsActor(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", time.Minute)
	token, _, err := jwt.GenerateAccessToken("user-1", "admin")
	require.NoError(t, err)

	r := newEngine(Auth(jwt))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w, body := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", body["actor"])
	assert.Equal(t, "user-1", body["user_id"])

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	w, body = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", body["actor"])
}

func TestAuthRejects(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", time.Minute)
	other, _, err := helpers.NewJWTManager("other", time.Minute).GenerateAccessToken("user-1", "admin")
	require.NoError(t, err)
	r := newEngine(Auth(jwt))

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"bad secret":   "Bearer " + other,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w, body := serve(r, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestIDMiddleware())

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Equal(t, generated, body["request_id"])

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w, _ = serve(r, req)
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	w, _ = serve(r, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
}

func TestRealIP(t *testing.T) {
	r := newEngine(RealIP())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	_, body := serve(r, req)
	assert.Equal(t, "203.0.113.9", body["real_ip"])

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("CF-Connecting-IP", "198.51.100.7")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	_, body = serve(r, req)
	assert.Equal(t, "198.51.100.7", body["real_ip"])
}

func TestOnlyPrivateIP(t *testing.T) {
	r := newEngine(RealIP(), OnlyPrivateIP())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Forwarded-For", "127.0.0.1")
	w, _ := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	w, _ = serve(r, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestKeyByActor(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Set("real_ip", "203.0.113.9")
	assert.Equal(t, "rl:actor:anon:ip:203.0.113.9", KeyByActor()(c))

	c.Set(CtxUserIDKey, "user-1")
	assert.Equal(t, "rl:actor:user-1", KeyByActor()(c))
	assert.Equal(t, "rl:actor:user-1:path:/x", KeyByActorAndPath()(c))
}

func TestRateLimitWithoutRedisIsNoop(t *testing.T) {
	r := newEngine(RateLimit(nil, 1, time.Minute, KeyByIP(), nil))
	for i := 0; i < 3; i++ {
		w, _ := serve(r, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer func() { _ = rdb.Close() }()

	r := newEngine(RateLimit(rdb, 1, time.Minute, KeyByIP(), nil))
	for i := 0; i < 3; i++ {
		w, _ := serve(r, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
