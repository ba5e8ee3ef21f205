package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAllowExhaustsCapacity(t *testing.T) {
	l := NewTokenBucket(3, 3)

	for i := 0; i < 3; i++ {
		if !l.allow("t-1") {
			t.Fatalf("request %d rejected before capacity exhausted", i+1)
		}
	}
	if l.allow("t-1") {
		t.Fatal("request beyond capacity allowed")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := NewTokenBucket(1, 1)

	if !l.allow("t-1") {
		t.Fatal("first key rejected")
	}
	if l.allow("t-1") {
		t.Fatal("first key not exhausted")
	}
	if !l.allow("t-2") {
		t.Fatal("second key throttled by first key's usage")
	}
}

func TestKeyedMiddlewareSeparatesClientsOnSameIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := NewTokenBucket(1, 1)
	r := gin.New()
	r.GET("/x", l.GinMiddlewareKeyed(func(c *gin.Context) string {
		return c.GetHeader("X-Teacher")
	}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	get := func(teacher string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Teacher", teacher)
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := get("t-1"); code != http.StatusOK {
		t.Fatalf("first request for t-1: got %d, want 200", code)
	}
	if code := get("t-1"); code != http.StatusTooManyRequests {
		t.Fatalf("second request for t-1: got %d, want 429", code)
	}
	// Same IP, different teacher: must not share t-1's bucket.
	if code := get("t-2"); code != http.StatusOK {
		t.Fatalf("first request for t-2: got %d, want 200", code)
	}
}

func TestKeyedMiddlewareFallsBackToClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := NewTokenBucket(1, 1)
	r := gin.New()
	r.GET("/x", l.GinMiddlewareKeyed(func(c *gin.Context) string {
		return ""
	}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	get := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := get("10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first request: got %d, want 200", code)
	}
	if code := get("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("repeat from same IP: got %d, want 429", code)
	}
	if code := get("10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("request from other IP: got %d, want 200", code)
	}
}
