package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// seen captures what the fake provider received.
type seen struct {
	method string
	path   string
	auth   string
	ctype  string
	body   string
	called bool
}

func testRelay(t *testing.T, provider http.HandlerFunc) (http.Handler, *seen) {
	t.Helper()
	s := &seen{}
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*s = seen{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			ctype:  r.Header.Get("Content-Type"),
			body:   string(b),
			called: true,
		}
		provider(w, r)
	}))
	t.Cleanup(up.Close)

	r := New(Config{ProviderURL: up.URL, Logger: slog.New(slog.DiscardHandler)})
	return r.Handler(), s
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, MailPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func jsonOK(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/ld+json; charset=utf-8")
		json.NewEncoder(w).Encode(v)
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"/domains", true},
		{"/accounts", true},
		{"/accounts/123", true},
		{"/token", true},
		{"/messages", true},
		{"/messages/abc", true},
		{"/domainsX", true},
		{"/me", false},
		{"/unknown", false},
		{"domains", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := Allowed(tt.endpoint); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.endpoint, got, tt.want)
		}
	}
}

func TestRejectedEndpoint(t *testing.T) {
	h, s := testRelay(t, jsonOK(map[string]any{}))

	w := post(t, h, `{"endpoint":"/unknown"}`)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Endpoint not allowed"}` {
		t.Errorf("body: got %s", got)
	}
	if s.called {
		t.Error("provider must not be contacted for rejected endpoints")
	}
}

func TestForwardGetDefaults(t *testing.T) {
	h, s := testRelay(t, jsonOK(map[string]any{"hydra:member": []any{}}))

	w := post(t, h, `{"endpoint":"/domains"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body)
	}
	if s.method != http.MethodGet || s.path != "/domains" {
		t.Errorf("upstream: got %s %s", s.method, s.path)
	}
	if s.ctype != "application/json" {
		t.Errorf("content-type: got %q", s.ctype)
	}
	if s.auth != "" {
		t.Errorf("no auth header expected without token, got %q", s.auth)
	}
	if s.body != "" {
		t.Errorf("GET should carry no body, got %q", s.body)
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("response not json: %v", err)
	}
	if _, ok := got["hydra:member"]; !ok {
		t.Errorf("json not passed through: %v", got)
	}
}

func TestForwardPostWithToken(t *testing.T) {
	h, s := testRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"acc-1"}`))
	})

	w := post(t, h, `{"endpoint":"/accounts","method":"POST","payload":{"address":"a@x.io","password":"pw"},"token":"jwt"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", w.Code)
	}
	if s.method != http.MethodPost {
		t.Errorf("method: got %s", s.method)
	}
	if s.auth != "Bearer jwt" {
		t.Errorf("auth: got %q", s.auth)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(s.body), &payload); err != nil {
		t.Fatalf("upstream body not json: %q", s.body)
	}
	if payload["address"] != "a@x.io" || payload["password"] != "pw" {
		t.Errorf("payload: got %v", payload)
	}
}

func TestDeleteDropsPayload(t *testing.T) {
	h, s := testRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	w := post(t, h, `{"endpoint":"/accounts/123","method":"DELETE","payload":{"x":1},"token":"jwt"}`)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", w.Code)
	}
	if s.method != http.MethodDelete || s.path != "/accounts/123" {
		t.Errorf("upstream: got %s %s", s.method, s.path)
	}
	if s.body != "" {
		t.Errorf("DELETE should carry no body, got %q", s.body)
	}
}

func TestLowercaseMethod(t *testing.T) {
	h, s := testRelay(t, jsonOK(map[string]any{"token": "t"}))

	post(t, h, `{"endpoint":"/token","method":"post","payload":{"a":1}}`)

	if s.method != http.MethodPost || s.body == "" {
		t.Errorf("got %s with body %q", s.method, s.body)
	}
}

func TestUpstreamError(t *testing.T) {
	h, _ := testRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("address already used"))
	})

	w := post(t, h, `{"endpoint":"/accounts","method":"POST","payload":{}}`)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", w.Code)
	}
	var got map[string]string
	json.Unmarshal(w.Body.Bytes(), &got)
	if got["error"] != "address already used" {
		t.Errorf("error body: got %v", got)
	}
}

func TestTextPassthrough(t *testing.T) {
	h, _ := testRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("raw source"))
	})

	w := post(t, h, `{"endpoint":"/messages/1/download"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if w.Body.String() != "raw source" {
		t.Errorf("body: got %q", w.Body.String())
	}
}

func TestTransportFailure(t *testing.T) {
	up := httptest.NewServer(http.NotFoundHandler())
	url := up.URL
	up.Close()

	h := New(Config{ProviderURL: url, Logger: slog.New(slog.DiscardHandler)}).Handler()
	w := post(t, h, `{"endpoint":"/domains"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", w.Code)
	}
	var got map[string]string
	json.Unmarshal(w.Body.Bytes(), &got)
	if got["error"] == "" {
		t.Error("expected error message")
	}
}

func TestMalformedDescriptor(t *testing.T) {
	h, s := testRelay(t, jsonOK(map[string]any{}))

	for _, body := range []string{`not json`, `{"method":"GET"}`} {
		w := post(t, h, body)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s: status %d, want 500", body, w.Code)
		}
	}
	if s.called {
		t.Error("provider must not be contacted")
	}
}

func TestSecurityHeaders(t *testing.T) {
	h, _ := testRelay(t, jsonOK(map[string]any{}))

	for _, w := range []*httptest.ResponseRecorder{
		post(t, h, `{"endpoint":"/domains"}`),
		post(t, h, `{"endpoint":"/nope"}`),
	} {
		want := map[string]string{
			"X-Content-Type-Options": "nosniff",
			"X-Frame-Options":        "DENY",
			"Referrer-Policy":        "no-referrer",
			"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
		}
		for k, v := range want {
			if got := w.Header().Get(k); got != v {
				t.Errorf("%s: got %q, want %q", k, got, v)
			}
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
	}
}

func TestRequestIDReused(t *testing.T) {
	h, _ := testRelay(t, jsonOK(map[string]any{}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", w.Code)
	}
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id: got %q", got)
	}
}

func TestStartLocal(t *testing.T) {
	up := httptest.NewServer(jsonOK([]any{}))
	t.Cleanup(up.Close)

	l, err := Start(Config{ProviderURL: up.URL, Logger: slog.New(slog.DiscardHandler)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Close()

	if !strings.HasPrefix(l.URL(), "http://127.0.0.1:") || !strings.HasSuffix(l.URL(), MailPath) {
		t.Errorf("url: got %q", l.URL())
	}

	resp, err := http.Post(l.URL(), "application/json", strings.NewReader(`{"endpoint":"/domains"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d", resp.StatusCode)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, Config{Addr: "127.0.0.1:0", Logger: slog.New(slog.DiscardHandler)})
	}()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("serve: %v", err)
	}
}
