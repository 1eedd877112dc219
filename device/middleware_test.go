// Package device tests cookie-based identity resolution.
package device

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestRouter(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/probe", func(c *gin.Context) {
		id, ok := IDFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		*seen = id
		c.Status(http.StatusOK)
	})
	return router
}

func TestMiddlewareMintsNewID(t *testing.T) {
	var seen string
	router := newTestRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("minted id %q is not a uuid: %v", seen, err)
	}

	cookies := resp.Result().Cookies()
	var found *http.Cookie
	for _, c := range cookies {
		if c.Name == CookieName {
			found = c
		}
	}
	if found == nil {
		t.Fatalf("response missing %s cookie", CookieName)
	}
	if found.Value != seen {
		t.Fatalf("cookie value %q != context id %q", found.Value, seen)
	}
	if !found.HttpOnly {
		t.Fatalf("device cookie must be HttpOnly")
	}
	if found.Path != "/" {
		t.Fatalf("device cookie path = %q, want /", found.Path)
	}
	if found.MaxAge != cookieMaxAge {
		t.Fatalf("device cookie max-age = %d, want %d", found.MaxAge, cookieMaxAge)
	}
	if found.SameSite != http.SameSiteLaxMode {
		t.Fatalf("device cookie samesite = %v, want Lax", found.SameSite)
	}
}

func TestMiddlewareReusesExistingID(t *testing.T) {
	var seen string
	router := newTestRouter(&seen)

	existing := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: existing})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if seen != existing {
		t.Fatalf("existing id %q was replaced with %q", existing, seen)
	}

	// Cookie is re-set so the expiry keeps sliding.
	for _, c := range resp.Result().Cookies() {
		if c.Name == CookieName && c.Value == existing {
			return
		}
	}
	t.Fatalf("existing id was not re-set on the response")
}
