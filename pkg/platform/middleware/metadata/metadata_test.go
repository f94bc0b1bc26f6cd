package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phonebook/pkg/requestcontext"
)

func TestMiddlewareHandler(t *testing.T) {
	tests := []struct {
		name           string
		headers        map[string]string
		remoteAddr     string
		trustedProxies string
		expectedIP     string
		expectedUA     string
	}{
		{
			name:       "ignores XFF from untrusted peer",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1", "User-Agent": "Mozilla/5.0"},
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "192.168.1.1",
			expectedUA: "Mozilla/5.0",
		},
		{
			name:           "skips trusted hops in XFF",
			headers:        map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.2", "User-Agent": "curl/7.64.1"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: "10.0.0.0/8",
			expectedIP:     "203.0.113.1",
			expectedUA:     "curl/7.64.1",
		},
		{
			name:           "ignores entries a client prepends to XFF",
			headers:        map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.9"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: "10.0.0.0/8",
			expectedIP:     "203.0.113.9",
		},
		{
			name:           "uses X-Real-IP from trusted proxy",
			headers:        map[string]string{"X-Real-IP": "198.51.100.4"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: "10.0.0.0/8",
			expectedIP:     "198.51.100.4",
		},
		{
			name:           "rejects garbage XFF",
			headers:        map[string]string{"X-Forwarded-For": "not-an-ip"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: "10.0.0.0/8",
			expectedIP:     "10.0.0.1",
		},
		{
			name:       "strips port from IPv6",
			remoteAddr: "[2001:db8::1]:443",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "missing remote addr",
			remoteAddr: "",
			expectedIP: UnknownIP,
		},
		{
			name:       "unmaps IPv4-in-IPv6 peers",
			remoteAddr: "[::ffff:192.0.2.10]:8080",
			expectedIP: "192.0.2.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured context.Context
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = r.Context()
			})

			prefixes, err := ParseTrustedProxies(tt.trustedProxies)
			require.NoError(t, err)
			mw := New(prefixes...)
			pinned := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
			mw.now = func() time.Time { return pinned }

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			mw.Handler(next).ServeHTTP(httptest.NewRecorder(), req)

			require.NotNil(t, captured)
			assert.Equal(t, tt.expectedIP, requestcontext.ClientIP(captured))
			assert.Equal(t, tt.expectedUA, requestcontext.UserAgent(captured))
			assert.Equal(t, pinned, requestcontext.Now(captured))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies(" 10.0.0.0/8, ,192.168.0.0/16")
	require.NoError(t, err)
	assert.Len(t, prefixes, 2)

	_, err = ParseTrustedProxies("10.0.0.0/33")
	assert.Error(t, err)
}
