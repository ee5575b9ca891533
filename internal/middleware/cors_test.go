package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name        string
		origins     []string
		origin      string
		method      string
		wantStatus  int
		wantAllow   string
		wantCreds   string
		wantHeaders string
	}{
		{
			name: "explicit origin", origins: []string{"https://plates.example"},
			origin: "https://plates.example", method: http.MethodGet,
			wantStatus: http.StatusTeapot, wantAllow: "https://plates.example", wantCreds: "true",
			wantHeaders: "Content-Type, X-Plate-Session-ID",
		},
		{
			name: "wildcard has no credentials", origins: []string{"*"},
			origin: "https://other.example", method: http.MethodGet,
			wantStatus: http.StatusTeapot, wantAllow: "https://other.example",
			wantHeaders: "Content-Type, X-Plate-Session-ID",
		},
		{
			name: "unknown origin", origins: []string{"https://plates.example"},
			origin: "https://evil.example", method: http.MethodGet,
			wantStatus: http.StatusTeapot,
		},
		{
			name: "preflight short-circuits", origins: []string{"*"},
			origin: "https://plates.example", method: http.MethodOptions,
			wantStatus: http.StatusOK, wantAllow: "https://plates.example",
			wantHeaders: "Content-Type, X-Plate-Session-ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := CORS(tt.origins, "X-Plate-Session-ID")(next)
			req := httptest.NewRequest(tt.method, "/api/chat", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Fatalf("allow origin = %q, want %q", got, tt.wantAllow)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Fatalf("allow credentials = %q, want %q", got, tt.wantCreds)
			}
			if got := rec.Header().Get("Access-Control-Allow-Headers"); got != tt.wantHeaders {
				t.Fatalf("allow headers = %q, want %q", got, tt.wantHeaders)
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	t.Parallel()

	if got := Origins(""); len(got) != 1 || got[0] != "*" {
		t.Fatalf("empty frontend should allow any origin, got %v", got)
	}
	if got := Origins("https://plates.example/"); len(got) != 1 || got[0] != "https://plates.example" {
		t.Fatalf("unexpected origins %v", got)
	}
}
