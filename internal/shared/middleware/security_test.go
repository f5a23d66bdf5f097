package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestClientIP tests client IP extraction for IPv4, IPv6 and forwarded requests
func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"IPv4 with port", "192.168.1.10:54321", "", "192.168.1.10"},
		{"IPv6 loopback with port", "[::1]:54321", "", "::1"},
		{"IPv6 with port", "[2001:db8::1]:8080", "", "2001:db8::1"},
		{"No port", "192.168.1.10", "", "192.168.1.10"},
		{"Forwarded single", "10.0.0.1:1234", "203.0.113.7", "203.0.113.7"},
		{"Forwarded chain", "10.0.0.1:1234", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if got := clientIP(r); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
