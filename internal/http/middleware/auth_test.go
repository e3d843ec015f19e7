package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/travelog-backend/internal/platform/ctxutil"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type staticVerifier map[string]uuid.UUID

func (v staticVerifier) Verify(tok string) (uuid.UUID, error) {
	if id, ok := v[tok]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("bad token")
}

func newAuthRouter(am *AuthMiddleware, chain ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachRequestContext())
	handlers := append(chain, func(c *gin.Context) {
		id, _ := ctxutil.UserID(c.Request.Context())
		c.String(http.StatusOK, id.String())
	})
	r.GET("/x", handlers...)
	return r
}

func doGet(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	user := uuid.New()
	am := NewAuthMiddleware(logger.Nop(), staticVerifier{"good": user}, nil)
	r := newAuthRouter(am, am.RequireAuth())

	if rec := doGet(r, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: want=401 got=%d", rec.Code)
	}
	if rec := doGet(r, "bad"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: want=401 got=%d", rec.Code)
	}
	rec := doGet(r, "good")
	if rec.Code != http.StatusOK || rec.Body.String() != user.String() {
		t.Fatalf("good token: code=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Fatalf("request id header missing")
	}
}

func TestOptionalAuth(t *testing.T) {
	user := uuid.New()
	am := NewAuthMiddleware(logger.Nop(), staticVerifier{"good": user}, nil)
	r := newAuthRouter(am, am.OptionalAuth())

	if rec := doGet(r, ""); rec.Code != http.StatusOK || rec.Body.String() != uuid.Nil.String() {
		t.Fatalf("anonymous: code=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := doGet(r, "good"); rec.Body.String() != user.String() {
		t.Fatalf("caller not attached: %s", rec.Body.String())
	}
	if rec := doGet(r, "bad"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: want=401 got=%d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	admin, user := uuid.New(), uuid.New()
	am := NewAuthMiddleware(logger.Nop(), staticVerifier{"admin": admin, "user": user}, []uuid.UUID{admin})
	r := newAuthRouter(am, am.RequireAuth(), am.RequireAdmin())

	if rec := doGet(r, "user"); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: want=403 got=%d", rec.Code)
	}
	if rec := doGet(r, "admin"); rec.Code != http.StatusOK {
		t.Fatalf("admin: want=200 got=%d", rec.Code)
	}
}
