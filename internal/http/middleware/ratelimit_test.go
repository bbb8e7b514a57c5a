package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "203.0.113.7:5555"

	if got := KeyByIP()(c); got != "ip:203.0.113.7" {
		t.Fatalf("KeyByIP = %q; want ip:203.0.113.7", got)
	}
}

func TestNewRateLimiter_BurstCoercion_AndGetVisitorReuse(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d; want 1", rl.burst)
	}
	a := rl.getVisitor("k")
	b := rl.getVisitor("k")
	if a != b {
		t.Fatalf("getVisitor should reuse the bucket for the same key")
	}
}

func TestRateLimiter_getVisitor_GC(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByIP())
	rl.ttl = time.Millisecond

	old := rl.getVisitor("old")
	rl.mu.Lock()
	rl.visitors["old"].lastSeen = time.Now().Add(-time.Hour)
	rl.cleanupN = 4999
	rl.mu.Unlock()

	fresh := rl.getVisitor("old")
	if fresh == old {
		t.Fatalf("idle bucket should have been evicted and recreated")
	}
	rl.mu.Lock()
	n := rl.cleanupN
	rl.mu.Unlock()
	if n != 0 {
		t.Fatalf("cleanup counter not reset: %d", n)
	}
}

func TestRateLimiter_Handler_AllowDenyAndExempt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(NewRateLimiter(0.0001, 1, KeyByIP()).Exempt("/health").Handler())
	r.GET("/api/v1/read", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "198.51.100.1:1234"
		r.ServeHTTP(w, req)
		return w
	}

	if w := do("/api/v1/read"); w.Code != http.StatusOK {
		t.Fatalf("first request -> %d; want 200", w.Code)
	}
	w := do("/api/v1/read")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request -> %d; want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("missing Retry-After")
	}
	if body := w.Body.String(); !strings.Contains(body, `"status":"error"`) || !strings.Contains(body, `"code":"too_many_requests"`) {
		t.Fatalf("unexpected 429 body: %s", body)
	}

	for i := 0; i < 3; i++ {
		if w := do("/health"); w.Code != http.StatusOK {
			t.Fatalf("exempt path limited: %d", w.Code)
		}
	}
}
