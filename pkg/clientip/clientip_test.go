package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/intakebilling/pkg/clientip"
)

func TestResolver_IP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		trusted    []string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "203.0.113.7:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "untrusted header ignored",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			remoteAddr: "203.0.113.7:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "trusted header wins",
			trusted:    []string{"cf-connecting-ip"},
			headers:    map[string]string{"CF-Connecting-IP": "198.51.100.1"},
			remoteAddr: "10.0.0.2:443",
			want:       "198.51.100.1",
		},
		{
			name:       "first valid entry of forwarded list",
			trusted:    []string{"X-Forwarded-For"},
			headers:    map[string]string{"X-Forwarded-For": "garbage, 198.51.100.9, 10.0.0.1"},
			remoteAddr: "10.0.0.2:443",
			want:       "198.51.100.9",
		},
		{
			name:       "headers checked in order",
			trusted:    []string{"X-Real-IP", "X-Forwarded-For"},
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9", "X-Real-IP": "198.51.100.4"},
			remoteAddr: "10.0.0.2:443",
			want:       "198.51.100.4",
		},
		{
			name:       "invalid header falls back",
			trusted:    []string{"X-Real-IP"},
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			remoteAddr: "[2001:db8::1]:8080",
			want:       "2001:db8::1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.10",
			want:       "192.0.2.10",
		},
		{
			name:       "unparseable",
			remoteAddr: "pipe",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/checkout/start", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.New(tt.trusted...).IP(r))
		})
	}
}

func TestResolver_Middleware(t *testing.T) {
	t.Parallel()

	res := clientip.New("X-Real-IP")
	var fromCtx, fromKey string
	h := res.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = clientip.FromContext(r.Context())
		fromKey = res.KeyFunc(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "198.51.100.4")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "198.51.100.4", fromCtx)
	assert.Equal(t, "198.51.100.4", fromKey)

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	plain.RemoteAddr = "192.0.2.1:1000"
	assert.Equal(t, "192.0.2.1", res.KeyFunc(plain))
}
