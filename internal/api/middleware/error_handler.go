package middleware

import (
	"log"

	"github.com/gin-gonic/gin"
)

// ErrorHandler recovers from handler panics and returns a generic 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered: %v", r)
				c.JSON(500, gin.H{"error": "Internal server error"})
				c.Abort()
			}
		}()

		c.Next()
	}
}
