package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/benchwise/protolab-backend/internal/pkg/errs"
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

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondStoreError maps the shared error taxonomy onto response codes.
// Not-found and forbidden stay distinct; connection failures surface as 503.
func RespondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrProtocolNotFound), errors.Is(err, errs.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, errs.ErrAlreadyReviewed):
		RespondError(c, http.StatusConflict, "already_reviewed", err)
	case errors.Is(err, errs.ErrDuplicateKey):
		RespondError(c, http.StatusConflict, "duplicate", err)
	case errors.Is(err, errs.ErrForbidden):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, errs.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, errs.ErrConnection):
		RespondError(c, http.StatusServiceUnavailable, "backend_unavailable", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
