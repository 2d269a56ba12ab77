package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ocrweb/pkg/apitoken"
)

// jwtAuthMiddleware accepts bearer tokens signed with secret. The subject
// claim is exposed to handlers as "client".
func jwtAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing or invalid Authorization header"})
			return
		}
		client, err := apitoken.Verify(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}
		if client != "" {
			c.Set("client", client)
		}
		c.Next()
	}
}
