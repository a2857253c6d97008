package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimit consults gate per owner. It must run after RequireOwner. When the
// gate itself fails the request is let through.
func RateLimit(gate ratelimit.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gate == nil {
			c.Next()
			return
		}
		owner := c.GetString(OwnerKey)

		allowed, retryAfter, err := gate.Allow(c.Request.Context(), owner)
		if err != nil {
			logrus.WithError(err).WithField("owner", owner).Warn("Rate limit check failed")
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, entity.ErrorResponse{
				Success: false,
				Error:   "too many uploads, please try again later",
			})
			return
		}
		c.Next()
	}
}
