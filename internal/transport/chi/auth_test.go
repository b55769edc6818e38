package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		apiKey string
		want   int
	}{
		{name: "no keys passes through", keys: nil, path: "/answer", want: http.StatusOK},
		{name: "empty keys pass through", keys: []string{"", ""}, path: "/answer", want: http.StatusOK},
		{name: "missing header", keys: []string{"secret"}, path: "/answer", want: http.StatusUnauthorized},
		{name: "basic scheme", keys: []string{"secret"}, path: "/answer",
			header: "Basic dXNlcjpwYXNz", want: http.StatusUnauthorized},
		{name: "wrong key", keys: []string{"secret"}, path: "/answer",
			header: "Bearer wrong", want: http.StatusUnauthorized},
		{name: "key prefix is not enough", keys: []string{"secret"}, path: "/answer",
			header: "Bearer secre", want: http.StatusUnauthorized},
		{name: "valid key", keys: []string{"secret"}, path: "/answer",
			header: "Bearer secret", want: http.StatusOK},
		{name: "second key", keys: []string{"k1", "k2"}, path: "/collections/notes",
			header: "Bearer k2", want: http.StatusOK},
		{name: "x-api-key header", keys: []string{"secret"}, path: "/answer",
			apiKey: "secret", want: http.StatusOK},
		{name: "wrong x-api-key", keys: []string{"secret"}, path: "/answer",
			apiKey: "nope", want: http.StatusUnauthorized},
		{name: "health exempt", keys: []string{"secret"}, path: "/health", want: http.StatusOK},
		{name: "metrics exempt", keys: []string{"secret"}, path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyAuth(tt.keys)(okHandler())

			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			var resp errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != codeUnauthorized {
				t.Errorf("code = %s, want %s", resp.Code, codeUnauthorized)
			}
		})
	}
}
