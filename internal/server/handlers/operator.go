package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const operatorContextKey = "operator"

// RequireOperator pulls the operator name from the X-Operator header, falling
// back to the operator query parameter, and rejects requests carrying neither.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := strings.TrimSpace(c.GetHeader("X-Operator"))
		if operator == "" {
			operator = strings.TrimSpace(c.Query("operator"))
		}
		if operator == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "operator name is required"})
			return
		}

		c.Set(operatorContextKey, operator)
		c.Next()
	}
}

// OperatorFrom reads the operator name stored by RequireOperator.
func OperatorFrom(c *gin.Context) string {
	return c.GetString(operatorContextKey)
}
