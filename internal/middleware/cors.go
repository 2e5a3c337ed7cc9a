package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Content-Type", "Authorization", "Cookie", "X-Requested-With"}
)

const (
	corsMaxAge = "86400"

	AllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	AllowHeaders = "Content-Type, Authorization, Cookie, X-Requested-With"
)

// Preflight answers every OPTIONS request with 204 and the same header set,
// whether or not the caller sent an Origin.
func Preflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", requestOrigin(c))
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", AllowMethods)
		h.Set("Access-Control-Allow-Headers", AllowHeaders)
		h.Set("Access-Control-Max-Age", corsMaxAge)
		if c.GetHeader("Origin") != "" {
			h.Add("Vary", "Origin")
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}

// CORS echoes the caller's origin with credentials allowed on actual
// requests. Preflights never reach it.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	})
}

// CORSFinalize guarantees Allow-Origin and Allow-Credentials on every
// response, including requests without an Origin header.
func CORSFinalize() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		if h.Get("Access-Control-Allow-Origin") == "" {
			h.Set("Access-Control-Allow-Origin", requestOrigin(c))
		}
		if h.Get("Access-Control-Allow-Credentials") == "" {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		c.Next()
	}
}

func requestOrigin(c *gin.Context) string {
	if origin := strings.TrimSpace(c.GetHeader("Origin")); origin != "" {
		return origin
	}
	return "*"
}
