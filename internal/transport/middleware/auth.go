package middleware

import (
	"net/http"
	"strings"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/gin-gonic/gin"
)

const (
	OwnerHeader = "X-User-ID"
	OwnerKey    = "owner"
)

// RequireOwner takes the authenticated identity set by the fronting gateway.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{
				Success: false,
				Error:   "authentication required",
			})
			return
		}
		c.Set(OwnerKey, owner)
		c.Next()
	}
}
