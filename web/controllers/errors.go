package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-college/payment/order"
)

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// statusFor maps an error kind to its HTTP status. sigStatus differs between
// the client verify path (400) and the webhook path (401).
func statusFor(err error, sigStatus int) int {
	switch {
	case errors.Is(err, order.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrConfigurationMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, order.ErrSignatureMismatch):
		return sigStatus
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrUpstreamProvider):
		return http.StatusBadGateway
	case errors.Is(err, order.ErrStateConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func failWith(c *gin.Context, log *zap.Logger, err error, sigStatus int) {
	status := statusFor(err, sigStatus)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		fail(c, status, "Internal server error")
		return
	}
	fail(c, status, err.Error())
}
