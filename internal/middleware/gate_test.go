package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/revocation"
	"tecbook-auth/internal/token"
)

var t0 = time.Unix(1_700_000_000, 0)

type fixture struct {
	gate     *Gate
	codec    *token.Codec
	manager  *revocation.Manager
	dir      directory.Directory
	now      time.Time
	rejected []*Failure
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: t0}

	codec, err := token.NewCodec([]byte(strings.Repeat("k", 32)), time.Hour, token.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.codec = codec
	f.manager = revocation.NewManager(codec)
	f.dir = directory.NewMemory()

	ctx := context.Background()
	_, err = f.dir.Create(ctx, directory.Account{Email: "alice@tecsup.edu.pe", Role: directory.RoleStudent, Active: true})
	require.NoError(t, err)
	_, err = f.dir.Create(ctx, directory.Account{Email: "gone@tecsup.edu.pe", Role: directory.RoleTeacher})
	require.NoError(t, err)

	f.gate = NewGate(
		NewRoutes([]string{"/api/auth/login", "/health", "/api/public/"}),
		f.manager,
		f.dir,
		WithGateClock(func() time.Time { return f.now }),
		WithRejectHook(func(fl *Failure) { f.rejected = append(f.rejected, fl) }),
	)
	return f
}

func (f *fixture) sign(t *testing.T, email string) string {
	t.Helper()
	tok, err := f.codec.Sign(email, f.now)
	require.NoError(t, err)
	return tok
}

func (f *fixture) serve(path, authz string) (*httptest.ResponseRecorder, *Principal) {
	var seen *Principal
	h := f.gate.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			seen = &p
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGate_ValidToken(t *testing.T) {
	f := newFixture(t)

	rec, p := f.serve("/api/courses", "Bearer "+f.sign(t, "alice@tecsup.edu.pe"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, p)
	assert.Equal(t, "alice@tecsup.edu.pe", p.Account.Email)
	assert.Equal(t, []string{"ROLE_ALUMNO"}, p.Authorities)
	assert.Empty(t, f.rejected)
}

func TestGate_MissingToken(t *testing.T) {
	f := newFixture(t)

	for _, authz := range []string{"", "Token abc", "Bearer "} {
		rec, p := f.serve("/api/courses", authz)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, authz)
		assert.Nil(t, p)

		body := decodeError(t, rec)
		assert.Equal(t, "Unauthorized", body.Error)
		assert.Equal(t, "Token JWT requerido", body.Message)
		assert.Equal(t, t0.UnixMilli(), body.Timestamp)
	}
	assert.Len(t, f.rejected, 3)
}

func TestGate_InvalidTokens(t *testing.T) {
	f := newFixture(t)

	expired := f.sign(t, "alice@tecsup.edu.pe")
	f.now = t0.Add(time.Second)
	revoked := f.sign(t, "alice@tecsup.edu.pe")
	require.NoError(t, f.manager.Blacklist(revoked))

	rec, _ := f.serve("/api/courses", "Bearer "+revoked)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token JWT revocado", decodeError(t, rec).Message)

	rec, _ = f.serve("/api/courses", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token JWT inválido", decodeError(t, rec).Message)

	f.now = t0.Add(2 * time.Hour)
	rec, _ = f.serve("/api/courses", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token JWT expirado", decodeError(t, rec).Message)
}

func TestGate_UnknownAndInactiveAccounts(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.serve("/api/courses", "Bearer "+f.sign(t, "ghost@tecsup.edu.pe"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.serve("/api/courses", "Bearer "+f.sign(t, "gone@tecsup.edu.pe"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", decodeError(t, rec).Error)
}

type brokenDirectory struct{ directory.Directory }

func (brokenDirectory) LoadByEmail(context.Context, string) (directory.Account, error) {
	return directory.Account{}, errors.New("connection refused")
}

type panickingChecker struct{}

func (panickingChecker) Check(string) (token.Claims, error) { panic("boom") }

func TestGate_FailsClosed(t *testing.T) {
	f := newFixture(t)
	tok := f.sign(t, "alice@tecsup.edu.pe")

	f.gate.dir = brokenDirectory{}
	rec, p := f.serve("/api/courses", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, p)

	f.gate.tokens = panickingChecker{}
	rec, p = f.serve("/api/courses", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, p)
}

func TestGate_PublicPathsSkipTheGate(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/auth/login", "/health", "/api/public/careers"} {
		rec, p := f.serve(path, "Bearer garbage")
		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assert.Nil(t, p, "public routes carry no principal")
	}
	assert.Empty(t, f.rejected)
}

func TestGinRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)

	r := gin.New()
	r.Use(GinRequireAuth(f.gate))
	r.GET("/api/auth/user", func(c *gin.Context) {
		p, ok := GinPrincipal(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"email": p.Account.Email})
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+f.sign(t, "alice@tecsup.edu.pe"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"alice@tecsup.edu.pe"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token JWT requerido", decodeError(t, rec).Message)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
