package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"auth-gateway/internal/service"
	"auth-gateway/internal/token"
	"auth-gateway/internal/validation"
)

// fail maps a domain error to its HTTP status and writes the response.
// Unknown errors are logged and answered with a generic 500.
func (h *Handler) fail(c *gin.Context, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func statusFor(err error) (int, any) {
	var (
		verr *validation.Error
		rej  *service.BackendRejectedError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Fields
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest, gin.H{"detail": service.ErrInvalidCredentials.Error()}
	case errors.Is(err, service.ErrDuplicateUser):
		return http.StatusBadRequest, gin.H{"username": service.ErrDuplicateUser.Error()}
	case errors.As(err, &rej):
		return http.StatusBadRequest, rej.Detail
	case errors.Is(err, service.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, gin.H{"detail": service.ErrBackendUnavailable.Error()}
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusUnauthorized, gin.H{"detail": service.ErrUserNotFound.Error()}
	case errors.Is(err, token.ErrInvalidToken):
		return http.StatusUnauthorized, gin.H{"detail": msgTokenInvalid}
	default:
		return http.StatusInternalServerError, gin.H{"detail": "internal error"}
	}
}
