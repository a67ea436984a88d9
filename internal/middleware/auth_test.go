package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/telemetry"
)

const (
	testSecret   = "middleware-test-secret-32-chars!!"
	testCookie   = "bt_session"
	otherSecret  = "some-other-secret-with-32-chars!!"
	testTokenTTL = time.Hour
)

func newTestCodec(t *testing.T, secret string, opts ...auth.TokenOption) *auth.TokenCodec {
	t.Helper()
	c, err := auth.NewTokenCodec(secret, testTokenTTL, opts...)
	if err != nil {
		t.Fatalf("NewTokenCodec() error: %v", err)
	}
	return c
}

func issueToken(t *testing.T, codec *auth.TokenCodec, userID string, roles []string, perms auth.PermissionMap) string {
	t.Helper()
	token, err := codec.Issue(auth.Claims{
		UserID:      userID,
		Email:       userID + "@example.com",
		Roles:       roles,
		Permissions: perms,
	})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	return token
}

// whoami reports the identity the middleware attached, or "anonymous".
func newAuthRouter(codec *auth.TokenCodec) *gin.Engine {
	r := gin.New()
	r.Use(AuthContextMiddleware(codec, testCookie))
	r.GET("/whoami", func(c *gin.Context) {
		ac, ok := GetAuthContext(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		fromReq, _ := auth.FromContext(c.Request.Context())
		if fromReq != ac {
			c.String(http.StatusInternalServerError, "request context mismatch")
			return
		}
		c.String(http.StatusOK, ac.UserID)
	})
	return r
}

func whoami(r *gin.Engine, cookie, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func verifications(result string) float64 {
	return telemetry.CounterValue(telemetry.AuthTokenVerificationsTotal, prometheus.Labels{"result": result})
}

func TestAuthContextMiddleware_Sources(t *testing.T) {
	codec := newTestCodec(t, testSecret)
	r := newAuthRouter(codec)
	cookieToken := issueToken(t, codec, "cookie-user", nil, nil)
	bearerToken := issueToken(t, codec, "bearer-user", nil, nil)

	tests := []struct {
		name   string
		cookie string
		bearer string
		want   string
	}{
		{"no token", "", "", "anonymous"},
		{"cookie", cookieToken, "", "cookie-user"},
		{"bearer header", "", bearerToken, "bearer-user"},
		{"cookie wins over header", cookieToken, bearerToken, "cookie-user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := whoami(r, tt.cookie, tt.bearer)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			if got := w.Body.String(); got != tt.want {
				t.Errorf("identity = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthContextMiddleware_RejectedTokensStayAnonymous(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	codec := newTestCodec(t, testSecret, auth.WithClock(func() time.Time { return now }))
	r := newAuthRouter(codec)

	foreign := issueToken(t, newTestCodec(t, otherSecret, auth.WithClock(func() time.Time { return now })), "forged", nil, nil)
	expiring := issueToken(t, codec, "late", nil, nil)

	tests := []struct {
		name    string
		token   string
		result  string
		advance time.Duration
	}{
		{"foreign signature", foreign, tokenInvalidSignature, 0},
		{"malformed", "not-a-token", tokenMalformed, 0},
		{"expired", expiring, tokenExpired, 2 * testTokenTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = start.Add(tt.advance)
			before := verifications(tt.result)

			w := whoami(r, tt.token, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, middleware must never reject", w.Code)
			}
			if got := w.Body.String(); got != "anonymous" {
				t.Errorf("identity = %q, want anonymous", got)
			}
			if got := verifications(tt.result); got != before+1 {
				t.Errorf("auth_token_verifications_total{result=%q} = %v, want %v", tt.result, got, before+1)
			}
		})
	}
}

func TestAuthContextMiddleware_CountsOutcomes(t *testing.T) {
	codec := newTestCodec(t, testSecret)
	r := newAuthRouter(codec)

	noneBefore := verifications(tokenNone)
	validBefore := verifications(tokenValid)

	whoami(r, "", "")
	whoami(r, issueToken(t, codec, "u-1", nil, nil), "")

	if got := verifications(tokenNone); got != noneBefore+1 {
		t.Errorf("none = %v, want %v", got, noneBefore+1)
	}
	if got := verifications(tokenValid); got != validBefore+1 {
		t.Errorf("valid = %v, want %v", got, validBefore+1)
	}
}

func TestAuthContextMiddleware_CarriesClaims(t *testing.T) {
	codec := newTestCodec(t, testSecret)
	token := issueToken(t, codec, "u-7", []string{"Tester"}, auth.PermissionMap{auth.PermViewBug: true})

	r := gin.New()
	r.Use(AuthContextMiddleware(codec, testCookie))
	var got *auth.AuthContext
	r.GET("/", func(c *gin.Context) {
		got, _ = GetAuthContext(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("no AuthContext attached")
	}
	if !got.HasRole("Tester") || !got.HasPermission(auth.PermViewBug) || got.HasPermission(auth.PermUpdateBug) {
		t.Errorf("AuthContext = %+v, want role Tester with viewBug only", got)
	}
}

func TestGetAuthContext_Anonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if ac, ok := GetAuthContext(c); ok || ac != nil {
		t.Errorf("GetAuthContext() = %v, %v; want nil, false", ac, ok)
	}
}
