package http

import (
	"context"
	"errors"
	"net/http"

	customErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// challenge is sent with every 401 so clients know which scheme to retry with.
const challenge = "Token"

// statusClientClosedRequest is nginx's code for a client that closed the
// connection before the response was written.
const statusClientClosedRequest = 499

func handleError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		log.Debug("client went away", zap.String("path", c.Request.URL.Path))
		c.Status(statusClientClosedRequest)
		return
	case errors.Is(err, context.DeadlineExceeded):
		log.Debug("request deadline exceeded", zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request timed out"})
		return
	}

	switch customErrors.KindOf(err) {
	case customErrors.KindInvalidArgument:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case customErrors.KindUnauthorized:
		c.Header("WWW-Authenticate", challenge)
		msg := "authentication required"
		if errors.Is(err, customErrors.ErrInvalidCredentials) {
			msg = "invalid credentials"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	case customErrors.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case customErrors.KindAlreadyExists:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case customErrors.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
