package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldtrack/internal/tabular"
)

// statusFor 错误分类 -> HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, tabular.ErrLookup):
		return http.StatusNotFound
	case errors.Is(err, tabular.ErrConnection):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func fail(c *gin.Context, err error, warnings ...string) {
	body := gin.H{"error": err.Error()}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	c.JSON(statusFor(err), body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
