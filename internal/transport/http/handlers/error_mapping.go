package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arkadem/campus-platform-iam/internal/infra/security"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response. Password policy violations carry their
// rule message through so the client can tell the user what to fix. Unmapped
// errors are attached to the gin context and surface in the access log.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if !errors.Is(err, cs.Err) {
			continue
		}

		message := cs.Message
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			message = policyErr.Message
		}

		c.JSON(cs.Status, NewErrorResponse(c, message))
		return
	}

	_ = c.Error(err)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
