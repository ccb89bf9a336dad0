package logx

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.77:5123", "203.0.113.0"},
		{"203.0.113.77", "203.0.113.0"},
		{"127.0.0.1:80", "127.0.0.1"},
		{"[2001:db8:85a3::8a2e:370:7334]:443", "2001:db8:85a3::"},
		{"not-an-ip", "unknown_ip"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, anonymizeIP(tt.in))
		})
	}
}

func TestRedactURI(t *testing.T) {
	u, err := url.Parse("/validate?token=eyJhbGciOi.abc.def&verbose=1")
	require.NoError(t, err)
	assert.Equal(t, "/validate?token=REDACTED&verbose=1", redactURI(u))

	u, err = url.Parse("/health?probe=k8s")
	require.NoError(t, err)
	assert.Equal(t, "/health?probe=k8s", redactURI(u))

	u, err = url.Parse("/token")
	require.NoError(t, err)
	assert.Equal(t, "/token", redactURI(u))
}

func TestRequestLogger_NeverLogsTokenQuery(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, zerolog.InfoLevel)

	h := middleware.RequestID(RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodPost, "/validate?token=super.secret.value", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.NotContains(t, out, "super.secret.value")
	assert.Contains(t, out, "inside handler")
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"request_id"`)
}

func TestCtx_FallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, zerolog.DebugLevel)

	Ctx(context.Background()).Debug().Msg("global fallback")
	assert.Contains(t, buf.String(), "global fallback")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARN", false))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("", false))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("", true))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("loud", false))
}
