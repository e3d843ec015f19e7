package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/travelog-backend/internal/http/response"
	"github.com/yungbote/travelog-backend/internal/platform/ctxutil"
)

var errNoCaller = errors.New("authenticated user required")

// pathID parses the :id route param, writing a 400 on failure.
func pathID(c *gin.Context, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := ctxutil.UserID(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errNoCaller)
		return uuid.Nil, false
	}
	return id, true
}
