package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "stayledger/internal/core/context"
)

// HeaderOperator names the acting front-desk operator for audit stamps.
const HeaderOperator = "X-Operator"

// Operator propagates the operator identifier into the request context.
// Authentication itself is handled at the gateway; this service only needs
// the name for created_by/checked_by stamps.
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if operator := c.GetHeader(HeaderOperator); operator != "" {
			ctx := appctx.WithOperator(c.Request.Context(), operator)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
