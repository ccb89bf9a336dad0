package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"roomtoken/internal/app/token"
	"roomtoken/internal/configs"
	"roomtoken/internal/pkg/limiter"
	"roomtoken/internal/pkg/pow"
)

const (
	testKeyID  = "APItestkey0001"
	testSecret = "handler-test-secret-0123456789abcdefghij"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

type testServer struct {
	handler http.Handler
	now     time.Time
	deps    *AppDeps
}

func newTestServer(t *testing.T, mutate ...func(*AppDeps)) *testServer {
	t.Helper()

	ts := &testServer{now: t0}
	clock := func() time.Time { return ts.now }

	authority, err := token.NewAuthority(testKeyID, testSecret, 24*time.Hour, token.WithClock(clock))
	require.NoError(t, err)

	ts.deps = &AppDeps{
		Config: &configs.AppConfig{
			Environment:      "development",
			ServiceName:      "Room Token Server",
			ServiceVersion:   "1.2.3",
			AllowedOrigins:   []string{"*"},
			RoomServiceURL:   "wss://rooms.example",
			MetricsNamespace: "roomtoken",
		},
		Tokens: authority,
		Now:    clock,
	}
	for _, m := range mutate {
		m(ts.deps)
	}
	ts.handler = Router(ts.deps)
	return ts
}

func (ts *testServer) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/", "/health"} {
		rec := ts.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "Room Token Server", body["service"])
		assert.Equal(t, "1.2.3", body["version"])
		assert.Equal(t, "2025-03-14T09:26:53Z", body["timestamp"])
	}
}

func TestIssueThenValidate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/token",
		`{"user_id":"user-123","full_name":"Sarah Johnson","room_name":"appointment-456"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	issued := decode(t, rec)
	assert.Equal(t, "appointment-456", issued["room_name"])
	assert.Equal(t, "wss://rooms.example", issued["url"])
	assert.Equal(t, "2025-03-15T09:26:53Z", issued["expires_at"])
	tok := issued["token"].(string)
	require.NotEmpty(t, tok)

	rec = ts.do(http.MethodPost, "/validate", `{"token":"`+tok+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode(t, rec)
	assert.Equal(t, true, v["valid"])
	assert.Equal(t, "user-123", v["identity"])
	assert.Equal(t, "Sarah Johnson", v["name"])
	assert.Equal(t, "appointment-456", v["room"])
	assert.NotContains(t, v, "error")

	ts.now = t0.Add(25 * time.Hour)
	rec = ts.do(http.MethodPost, "/validate", `{"token":"`+tok+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decode(t, rec)
	assert.Equal(t, false, v["valid"])
	assert.Equal(t, token.PublicInvalidMessage, v["error"])
	assert.NotContains(t, v, "identity")
}

func TestIssue_LegacyFieldsAndDerivedRoom(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/token",
		`{"participant_name":"guest-7","room":"lobby-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "lobby-1", decode(t, rec)["room_name"])

	rec = ts.do(http.MethodPost, "/token",
		`{"user_id":"user-123","full_name":"Sarah Johnson","user_email":"sarah.j@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sarah.j-20250314092653", decode(t, rec)["room_name"])
}

func TestIssue_MetadataForms(t *testing.T) {
	ts := newTestServer(t)

	cases := map[string]struct {
		metadata string
		status   int
	}{
		"object":          {`{"role":"patient"}`, http.StatusOK},
		"string of json":  {`"{\"role\":\"patient\"}"`, http.StatusOK},
		"empty string":    {`""`, http.StatusOK},
		"null":            {`null`, http.StatusOK},
		"number":          {`42`, http.StatusBadRequest},
		"nested object":   {`{"role":{"x":1}}`, http.StatusBadRequest},
		"string not json": {`"role=patient"`, http.StatusBadRequest},
		"plain string":    {`"vip"`, http.StatusBadRequest},
		"non-string json": {`"{\"role\":\"patient\",\"age\":30}"`, http.StatusBadRequest},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/token",
				`{"user_id":"user-123","full_name":"Sarah Johnson","room_name":"room-1","metadata":`+tc.metadata+`}`, nil)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestParseMetadata_DefaultFromEmail(t *testing.T) {
	in := IssueTokenInput{UserID: "user-123", FullName: "Sarah Johnson", UserEmail: "s@example.com"}
	cr, err := in.toCredentialRequest()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"user_email": "s@example.com",
		"user_id":    "user-123",
		"full_name":  "Sarah Johnson",
	}, cr.Metadata)
	assert.Equal(t, "s@example.com", cr.IdentityHint)

	in.Metadata = json.RawMessage(`{"k":"v"}`)
	cr, err = in.toCredentialRequest()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, cr.Metadata)
}

func TestIssue_Errors(t *testing.T) {
	ts := newTestServer(t)

	cases := map[string]struct {
		body        string
		contentType string
		status      int
		code        float64
	}{
		"short identity": {`{"user_id":"ab","full_name":"Sarah Johnson","room_name":"room-1"}`, "application/json", http.StatusBadRequest, 1001},
		"missing name":   {`{"user_id":"user-123","room_name":"room-1"}`, "application/json", http.StatusBadRequest, 1001},
		"unknown field":  {`{"user_id":"user-123","admin":true}`, "application/json", http.StatusBadRequest, 1003},
		"trailing data":  {`{"participant_name":"guest-7"} {}`, "application/json", http.StatusBadRequest, 1004},
		"not json":       {`user_id=user-123`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType, 1002},
		"bad metadata":   {`{"participant_name":"guest-7","metadata":[1]}`, "application/json", http.StatusBadRequest, 2001},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Equal(t, tc.code, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestIssue_ArgumentReasonIsReported(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/token", `{"user_id":"ab","full_name":"Sarah Johnson","room_name":"room-1"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "identity")
}

func TestValidate_TokenSources(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/token", `{"participant_name":"guest-7","room":"lobby-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decode(t, rec)["token"].(string)

	assert.Equal(t, true, decode(t, ts.do(http.MethodPost, "/validate?token="+tok, "", nil))["valid"])
	assert.Equal(t, true, decode(t, ts.do(http.MethodPost, "/validate", "", map[string]string{
		"Authorization": "Bearer " + tok,
	}))["valid"])
}

func TestValidate_GarbageIsOpaque(t *testing.T) {
	ts := newTestServer(t)

	inputs := []string{
		"",
		"not-a-token",
		"a.b.c",
		`{"token":`,
	}

	for _, in := range inputs {
		var rec *httptest.ResponseRecorder
		if strings.HasPrefix(in, "{") {
			rec = ts.do(http.MethodPost, "/validate", in, nil)
		} else {
			rec = ts.do(http.MethodPost, "/validate", `{"token":`+strconv.Quote(in)+`}`, nil)
		}

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["valid"])
		assert.Equal(t, token.PublicInvalidMessage, body["error"])
		assert.NotContains(t, rec.Body.String(), testSecret)
	}
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom: " + testSecret)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(5000), body["code"])
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestPowGate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := pow.NewManager(ctx, 1)
	t.Cleanup(func() {
		cancel()
		<-manager.Done()
	})

	ts := newTestServer(t, func(d *AppDeps) { d.PoW = manager })
	body := `{"participant_name":"guest-7","room":"lobby-1"}`

	rec := ts.do(http.MethodPost, "/token", body, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, float64(3001), decode(t, rec)["code"])

	rec = ts.do(http.MethodGet, "/pow/challenge", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	challenge := decode(t, rec)
	nonce := challenge["nonce"].(string)
	assert.Equal(t, float64(1), challenge["difficulty"])

	var counter, wrong string
	for i := 0; counter == "" || wrong == ""; i++ {
		if pow.Solves(nonce, strconv.Itoa(i), 1) {
			if counter == "" {
				counter = strconv.Itoa(i)
			}
		} else if wrong == "" {
			wrong = strconv.Itoa(i)
		}
	}

	rec = ts.do(http.MethodPost, "/pow/verify", `{"nonce":"`+nonce+`","counter":"`+wrong+`"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, float64(3002), decode(t, rec)["code"])

	rec = ts.do(http.MethodPost, "/pow/verify", `{"nonce":"`+nonce+`","counter":"`+counter+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	proof := decode(t, rec)["pow_token"].(string)

	rec = ts.do(http.MethodPost, "/token", body, map[string]string{pow.TokenHeaderKey: proof})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPowRoutesAbsentWhenDisabled(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/pow/challenge", "", nil).Code)
}

func TestCORS_NoOriginsAllowsNone(t *testing.T) {
	ts := newTestServer(t, func(d *AppDeps) {
		d.Config.Environment = "production"
		d.Config.AllowedOrigins = nil
	})

	rec := ts.do(http.MethodOptions, "/token", "", map[string]string{
		"Origin":                        "https://evil.example",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ExplicitOriginAllowsCredentials(t *testing.T) {
	ts := newTestServer(t, func(d *AppDeps) {
		d.Config.Environment = "production"
		d.Config.AllowedOrigins = []string{"https://app.example"}
	})

	preflight := func(origin string) *httptest.ResponseRecorder {
		return ts.do(http.MethodOptions, "/token", "", map[string]string{
			"Origin":                        origin,
			"Access-Control-Request-Method": http.MethodPost,
		})
	}

	rec := preflight("https://app.example")
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight("https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardNeverAllowsCredentials(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodOptions, "/token", "", map[string]string{
		"Origin":                        "https://app.example",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

type failingService struct {
	err error
}

func (f failingService) Issue(context.Context, token.CredentialRequest) (*token.Credential, error) {
	return nil, f.err
}

func (f failingService) Validate(context.Context, string) token.ValidationResult {
	return token.ValidationResult{Reason: token.ReasonMalformed}
}

func TestIssue_UnexpectedErrorIsGeneric(t *testing.T) {
	ts := newTestServer(t, func(d *AppDeps) {
		d.Tokens = failingService{err: fmt.Errorf("%w: sign with %s failed", token.ErrUnexpected, testSecret)}
	})

	rec := ts.do(http.MethodPost, "/token", `{"participant_name":"guest-7","room":"lobby-1"}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(5001), body["code"])
	assert.Equal(t, "Failed to generate token.", body["message"])
	assert.NotContains(t, rec.Body.String(), testSecret)
	assert.NotContains(t, rec.Body.String(), "sign with")
}

func TestTokenLimiter_IgnoresForwardedForByDefault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := limiter.NewIPRateLimiter(ctx, rate.Limit(0.001), 1, time.Hour)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})

	ts := newTestServer(t, func(d *AppDeps) { d.TokenLimiter = l })
	body := `{"participant_name":"guest-7","room":"lobby-1"}`

	rec := ts.do(http.MethodPost, "/token", body, map[string]string{"X-Forwarded-For": "203.0.113.1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/token", body, map[string]string{"X-Forwarded-For": "203.0.113.2"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "spoofed header must not open a new bucket")
}

func TestTokenLimiter_UsesForwardedForWhenTrusted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := limiter.NewIPRateLimiter(ctx, rate.Limit(0.001), 1, time.Hour)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})

	ts := newTestServer(t, func(d *AppDeps) {
		d.TokenLimiter = l
		d.Config.TrustProxyHeaders = true
	})
	body := `{"participant_name":"guest-7","room":"lobby-1"}`

	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/token", body, map[string]string{"X-Forwarded-For": "203.0.113.1"}).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/token", body, map[string]string{"X-Forwarded-For": "203.0.113.2"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(http.MethodPost, "/token", body, map[string]string{"X-Forwarded-For": "203.0.113.2"}).Code)
}
