// Package http provides the signed device endpoints and the middleware that
// authenticates them.
package http

import (
	"github.com/gin-gonic/gin"
)

// rawBodyKey is the gin context key holding the verified request body.
const rawBodyKey = "envoy.raw_body"

// setRawBody stores the verified body bytes in the gin context.
func setRawBody(c *gin.Context, body []byte) {
	c.Set(rawBodyKey, body)
}

// GetRawBody returns the exact body bytes the signature was verified against.
// Returns (nil, false) when SignatureMiddleware did not run for the request.
func GetRawBody(c *gin.Context) ([]byte, bool) {
	value, ok := c.Get(rawBodyKey)
	if !ok {
		return nil, false
	}
	body, ok := value.([]byte)
	return body, ok
}
