package device

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CookieName identifies the long-lived device cookie.
	CookieName = "ghostradar_device_id"

	// cookieMaxAge outlives any billing cycle.
	cookieMaxAge = 365 * 24 * 60 * 60
)

// Middleware reads the device cookie, minting a fresh id when it is absent,
// and injects the id into the request context. The cookie is (re)set on every
// response so the expiry keeps sliding forward. The token is an opaque random
// identifier, not a signed credential.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || id == "" {
			id = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, id, cookieMaxAge, "/", "", false, true)

		ctx := WithID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
