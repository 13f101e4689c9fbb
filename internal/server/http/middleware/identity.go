package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Context keys set by the identity middleware.
const (
	AccountIDContextKey = "accountID"
	ActorContextKey     = "actor"
)

// Identity headers set by the upstream gateway. Authentication itself
// happens before requests reach this service.
const (
	accountIDHeader = "X-User-ID"
	actorHeader     = "X-Actor"
)

// AccountRequired extracts the member account id from the gateway
// header and aborts with 401 when it is absent or malformed.
func AccountRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(accountIDHeader)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(AccountIDContextKey, id)
		c.Next()
	}
}

// ActorRequired extracts the admin actor id for audit attribution and
// aborts with 401 when it is absent.
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(actorHeader)
		if actor == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(ActorContextKey, actor)
		c.Next()
	}
}
