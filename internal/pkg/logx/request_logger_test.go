package logx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"203.0.113.77:5555", "203.0.113.0"},
		{"203.0.113.77", "203.0.113.0"},
		{"127.0.0.1:80", "127.0.0.1"},
		{"[::1]:80", "127.0.0.1"},
		{"[2001:db8:1:2:3:4:5:6]:443", "2001:db8:1:2::"},
		{"not-an-ip", "unknown_ip"},
		{"", "unknown_ip"},
	}

	for _, tt := range tests {
		if got := AnonymizeIP(tt.in); got != tt.want {
			t.Errorf("AnonymizeIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.InfoLevel)

	h := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.RemoteAddr = "203.0.113.77:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line %q is not JSON: %v", buf.String(), err)
	}

	if line["level"] != "warn" {
		t.Errorf("level = %v, want warn for a 404", line["level"])
	}
	if line["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v", line["status"])
	}
	if line["remote_ip"] != "203.0.113.0" {
		t.Errorf("remote_ip = %v, want the anonymized address", line["remote_ip"])
	}
	if line["request_uri"] != "/missing" {
		t.Errorf("request_uri = %v", line["request_uri"])
	}
}
