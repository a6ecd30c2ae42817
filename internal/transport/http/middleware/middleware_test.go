package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skillswap/internal/core/auth"
	resp "skillswap/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(t *testing.T, r *gin.Engine, req *http.Request) resp.Resp {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out resp.Resp
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAuthJWTSetsIdentity(t *testing.T) {
	j := &auth.JWTer{Secret: []byte("k"), Issuer: "skillswap", TTL: time.Minute}
	r := gin.New()
	r.GET("/u", AuthJWT(j, ""), func(c *gin.Context) {
		c.JSON(http.StatusOK, resp.OK(gin.H{"uid": c.GetString(KeyUserID), "role": c.GetString(KeyRole)}))
	})
	r.GET("/a", AuthJWT(j, "admin"), func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) })

	tok, _, _ := j.Issue("u1", "u1name", "user")
	req := httptest.NewRequest(http.MethodGet, "/u", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	out := serve(t, r, req)
	data, _ := out.Data.(map[string]any)
	if out.Code != 0 || data["uid"] != "u1" || data["role"] != "user" {
		t.Fatalf("got %+v", out)
	}

	req = httptest.NewRequest(http.MethodGet, "/a", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if out := serve(t, r, req); out.Code != resp.CodeForbidden || out.Kind != "forbidden" {
		t.Fatalf("non-admin got %+v", out)
	}
	if out := serve(t, r, httptest.NewRequest(http.MethodGet, "/u", nil)); out.Code != resp.CodeUnauthorized {
		t.Fatalf("missing token got %+v", out)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimitPerIP(0.001, 2), func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) })

	from := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(t, r, req).Code
	}
	for i := 0; i < 2; i++ {
		if c := from("10.0.0.1"); c != 0 {
			t.Fatalf("request %d limited: %d", i, c)
		}
	}
	if c := from("10.0.0.1"); c != resp.CodeTooManyRequests {
		t.Fatalf("third request code = %d", c)
	}
	if c := from("10.0.0.2"); c != 0 {
		t.Fatalf("other ip limited: %d", c)
	}
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	if out := serve(t, r, httptest.NewRequest(http.MethodGet, "/boom", nil)); out.Code != resp.CodeServerError {
		t.Fatalf("got %+v", out)
	}
}

func TestTimeoutReportsGatewayTimeout(t *testing.T) {
	r := gin.New()
	r.GET("/slow", Timeout(10*time.Millisecond), func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	if out := serve(t, r, httptest.NewRequest(http.MethodGet, "/slow", nil)); out.Code != resp.CodeTimeout {
		t.Fatalf("got %+v", out)
	}
}

func TestRequestIDKeepsOrReplaces(t *testing.T) {
	r := gin.New()
	r.GET("/", RequestID(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	cases := []struct {
		in   string
		keep bool
	}{
		{"req-123_abc.9", true},
		{"", false},
		{"bad id with spaces", false},
		{strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.in != "" {
			req.Header.Set(KeyRequestID, tc.in)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		got := w.Header().Get(KeyRequestID)
		if got != w.Body.String() || got == "" {
			t.Fatalf("header %q body %q", got, w.Body.String())
		}
		if (got == tc.in) != tc.keep {
			t.Fatalf("request id %q -> %q", tc.in, got)
		}
	}
}

func TestAbortRecordsBizCode(t *testing.T) {
	var seen int
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Next(); seen = bizCode(c) })
	r.GET("/conflict", func(c *gin.Context) { Abort(c, resp.CodeConflict, "conflict", "taken") })
	r.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) })

	out := serve(t, r, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	if out.Code != resp.CodeConflict || out.Kind != "conflict" || seen != resp.CodeConflict {
		t.Fatalf("out = %+v, seen = %d", out, seen)
	}
	serve(t, r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if seen != 0 {
		t.Fatalf("ok request recorded code %d", seen)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if seen != http.StatusNotFound {
		t.Fatalf("unmatched route recorded code %d", seen)
	}
}

func TestMaxBodyBytesRejectsDeclaredLength(t *testing.T) {
	r := gin.New()
	r.POST("/", MaxBodyBytes(8), func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) })
	out := serve(t, r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 9))))
	if out.Code != resp.CodeBadRequest || out.Kind != "validation" {
		t.Fatalf("out = %+v", out)
	}
	if out := serve(t, r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))); out.Code != resp.CodeOK {
		t.Fatalf("small body = %+v", out)
	}
}
