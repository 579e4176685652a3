package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/forum"
)

// apiError writes {"detail": ...} with the status mapped from err.
// Unexpected errors are logged and hidden behind a generic message.
func apiError(c *gin.Context, err error) {
	status := statusFor(err)
	var fe *forum.Error
	switch {
	case errors.As(err, &fe):
		c.JSON(status, gin.H{"detail": fe.Detail})
	case status == http.StatusInternalServerError:
		log.Printf("[WEB]: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"detail": "Internal server error"})
	default:
		c.JSON(status, gin.H{"detail": err.Error()})
	}
}

// bindJSON decodes the body into v and answers 422 when it does not fit
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return false
	}
	return true
}

// paramID parses a positive int64 path parameter
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// apiParamID is paramID for JSON handlers, it answers 422 on a bad id
func apiParamID(c *gin.Context, name string) (int64, bool) {
	id, ok := paramID(c, name)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid " + name})
	}
	return id, ok
}

// queryInt reads an integer query parameter, def when missing or malformed
func queryInt(c *gin.Context, name string, def int64) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return def
	}
	return v
}
