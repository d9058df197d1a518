package response

import (
	"net/http"

	authErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
)

type Envelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

// Error aborts the chain with the error envelope. Internal errors get a fixed
// message; the full error goes to c.Errors for the request logger.
func Error(c *gin.Context, err error) {
	status := authErrors.HTTPStatus(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Envelope{
		Success:    false,
		StatusCode: status,
		Message:    publicMessage(err, status),
	})
}

func publicMessage(err error, status int) string {
	switch {
	case status == http.StatusInternalServerError:
		return "internal server error"
	case authErrors.IsInvalidToken(err):
		// причина из верификатора (expired, signature) нужна клиенту, чтобы решить, звать ли refresh
		return err.Error()
	case authErrors.IsInvalidCredentials(err):
		return "invalid credentials"
	case authErrors.IsTooManyRequests(err):
		return "too many requests"
	default:
		return err.Error()
	}
}
