// Package response writes the JSON envelope shared by the local API and the app backend:
// {"success": bool, "data": ..., "error": "..."}.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the envelope the local API sends to UI collaborators.
// Data is omitted on failures and Error on successes.
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RawBody reads the backend's envelope with data left undecoded. Some backend
// routes report failures in Message instead of Error.
type RawBody struct {
	Success *bool           `json:"success,omitempty"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Body{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Body{Error: msg})
}

// OK sends 200 with a store read.
func OK(c *gin.Context, data any) { ok(c, http.StatusOK, data) }

// Accepted sends 202 with the optimistic state. Its confirmation is still queued.
func Accepted(c *gin.Context, data any) { ok(c, http.StatusAccepted, data) }

// NoContent sends 204.
func NoContent(c *gin.Context) { c.Status(http.StatusNoContent) }

func BadRequest(c *gin.Context, msg string)         { fail(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string)       { fail(c, http.StatusUnauthorized, msg) }
func NotFound(c *gin.Context, msg string)           { fail(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)           { fail(c, http.StatusConflict, msg) }
func ServiceUnavailable(c *gin.Context, msg string) { fail(c, http.StatusServiceUnavailable, msg) }
func Internal(c *gin.Context, msg string)           { fail(c, http.StatusInternalServerError, msg) }
