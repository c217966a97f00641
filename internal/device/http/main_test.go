package http

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}
