// Package httputil defines the JSON envelope and handler contract shared
// by every quote API endpoint.
package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope around every API payload. Exactly one of
// Data and Error is set.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HandleSuccess writes a 200 with the payload wrapped in the envelope.
func HandleSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// Error writes an enveloped failure with the given status code.
func Error(c *gin.Context, status int, err string) {
	c.JSON(status, Response{
		Success: false,
		Error:   err,
	})
}

func HandleBadRequest(c *gin.Context, err string) {
	Error(c, http.StatusBadRequest, err)
}

func HandleNotFound(c *gin.Context, err string) {
	Error(c, http.StatusNotFound, err)
}

func HandleInternalError(c *gin.Context, err string) {
	Error(c, http.StatusInternalServerError, err)
}
