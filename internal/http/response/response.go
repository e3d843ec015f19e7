package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/travelog-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps an apierr kind to its status; the kind doubles as
// the error code. Internal errors hide their message.
func RespondServiceError(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	status := apierr.HTTPStatus(kind)
	_ = c.Error(err)
	if status == http.StatusInternalServerError && kind == apierr.KindInternal {
		c.JSON(status, ErrorEnvelope{Error: APIError{Message: "internal error", Code: string(kind)}})
		return
	}
	RespondError(c, status, string(kind), err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
