package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/travelog-backend/internal/http/response"
	"github.com/yungbote/travelog-backend/internal/platform/ctxutil"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type TokenVerifier interface {
	Verify(tokenString string) (uuid.UUID, error)
}

type AuthMiddleware struct {
	log      *logger.Logger
	verifier TokenVerifier
	admins   map[uuid.UUID]bool
}

func NewAuthMiddleware(log *logger.Logger, verifier TokenVerifier, adminIDs []uuid.UUID) *AuthMiddleware {
	admins := make(map[uuid.UUID]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &AuthMiddleware{
		log:      log.With("middleware", "AuthMiddleware"),
		verifier: verifier,
		admins:   admins,
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errMissingToken)
			c.Abort()
			return
		}
		userID, err := am.verifier.Verify(tokenString)
		if err != nil {
			am.log.Debug("Rejected bearer token", "error", err)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
			c.Abort()
			return
		}
		attachUser(c, userID)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through. An invalid token is still rejected.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			c.Next()
			return
		}
		userID, err := am.verifier.Verify(tokenString)
		if err != nil {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
			c.Abort()
			return
		}
		attachUser(c, userID)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := ctxutil.UserID(c.Request.Context())
		if !ok || !am.admins[userID] {
			response.RespondError(c, http.StatusForbidden, "forbidden", errNotAdmin)
			c.Abort()
			return
		}
		c.Next()
	}
}

func attachUser(c *gin.Context, userID uuid.UUID) {
	ctx := c.Request.Context()
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		rd = &ctxutil.RequestData{}
		ctx = ctxutil.WithRequestData(ctx, rd)
	}
	rd.UserID = userID
	c.Request = c.Request.WithContext(ctx)
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
