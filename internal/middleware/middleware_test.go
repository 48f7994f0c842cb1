package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequestID_GeneratesAndKeeps(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = RequestIDFrom(c.Request().Context())
		return okHandler(c)
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Fatalf("generated id is not a uuid: %q", rec.Header().Get(RequestIDHeader))
	}
	if seen != rec.Header().Get(RequestIDHeader) {
		t.Errorf("context id %q != header id", seen)
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	if got := serve(e, req).Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("incoming id replaced: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	if got := serve(e, req).Header().Get(RequestIDHeader); got == "<script>" {
		t.Error("non-uuid id must be replaced")
	}
}

func TestCSRF(t *testing.T) {
	e := echo.New()
	e.Use(CSRF())
	e.GET("/new", func(c echo.Context) error { return c.String(http.StatusOK, GetCSRFToken(c)) })
	e.POST("/new", okHandler)
	e.POST("/api/events", okHandler)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/new", nil))
	token := rec.Body.String()
	if len(token) != csrfTokenLength*2 {
		t.Fatalf("token = %q", token)
	}
	cookie := rec.Result().Cookies()[0]

	// Missing token.
	req := httptest.NewRequest(http.MethodPost, "/new", nil)
	req.AddCookie(cookie)
	if rec := serve(e, req); rec.Code != http.StatusForbidden {
		t.Errorf("missing token: status %d", rec.Code)
	}

	// Form token.
	form := url.Values{CSRFFormField: {token}}
	req = httptest.NewRequest(http.MethodPost, "/new", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(cookie)
	if rec := serve(e, req); rec.Code != http.StatusOK {
		t.Errorf("valid form token: status %d", rec.Code)
	}

	// API skipped.
	if rec := serve(e, httptest.NewRequest(http.MethodPost, "/api/events", nil)); rec.Code != http.StatusOK {
		t.Errorf("api route: status %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("third request must be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other IPs are independent")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("1.1.1.1") {
		t.Error("new window must reset the count")
	}
}

func TestRateLimiter_SkipsReads(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(1, time.Minute)
	e.Use(rl.Middleware())
	e.GET("/", okHandler)
	e.POST("/", okHandler)

	for i := 0; i < 3; i++ {
		if rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusOK {
			t.Fatalf("GET %d: status %d", i, rec.Code)
		}
	}
	serve(e, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec := serve(e, httptest.NewRequest(http.MethodPost, "/", nil)); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second POST: status %d", rec.Code)
	}
}

func TestIPExtractor(t *testing.T) {
	extract := buildIPExtractor([]string{"10.0.0.0/8", "not-a-cidr"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.1.2.3")
	if got := extract(req); got != "203.0.113.7" {
		t.Errorf("trusted proxy: got %q", got)
	}

	req.RemoteAddr = "198.51.100.1:5555"
	if got := extract(req); got != "198.51.100.1" {
		t.Errorf("untrusted peer: got %q", got)
	}
}

func TestClientIP(t *testing.T) {
	e := echo.New()
	TrustedProxies(e, []string{"127.0.0.0/8"})
	e.Use(ClientIP())
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = ClientIPFrom(c.Request().Context())
		return okHandler(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	req.Header.Set("X-Real-IP", "203.0.113.9")
	serve(e, req)
	if seen != "203.0.113.9" {
		t.Errorf("client ip = %q", seen)
	}
}

func TestWantsJSON(t *testing.T) {
	e := echo.New()
	for path, want := range map[string]bool{
		"/api/events": true,
		"/api":        true,
		"/apis":       false,
		"/healthz":    true,
		"/events/1":   false,
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		if got := WantsJSON(c); got != want {
			t.Errorf("WantsJSON(%q) = %v", path, got)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/", okHandler)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	csp := rec.Header().Get("Content-Security-Policy")
	var scriptSrc string
	for _, d := range strings.Split(csp, ";") {
		if d = strings.TrimSpace(d); strings.HasPrefix(d, "script-src") {
			scriptSrc = d
		}
	}
	if scriptSrc != "script-src 'self'" {
		t.Errorf("script-src = %q", scriptSrc)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers = %v", rec.Header())
	}
}
