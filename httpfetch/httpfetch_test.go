package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	return req
}

func TestFetchCachesResponses(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Minute, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}

	for range 3 {
		body, err := Fetch(context.Background(), cache, srv.Client(), newRequest(t, srv.URL), nil)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if string(body) != `{"ok":true}` {
			t.Errorf("body = %q", body)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("upstream requests = %d, want 1 (cached)", got)
	}
}

func TestFetchCachesHTTPErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Minute, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}

	for range 2 {
		_, err := Fetch(context.Background(), cache, srv.Client(), newRequest(t, srv.URL), nil)
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
			t.Fatalf("error = %v, want HTTPError 404", err)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("upstream requests = %d, errors must be cached too", got)
	}
}

func TestFetchNullCacheAlwaysFetches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	cache := NewNull()
	for range 2 {
		if _, err := Fetch(context.Background(), cache, srv.Client(), newRequest(t, srv.URL), nil); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("upstream requests = %d, null cache must not persist", got)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		{&HTTPError{StatusCode: http.StatusServiceUnavailable}, true},
		{&HTTPError{StatusCode: http.StatusNotFound}, false},
		{&HTTPError{StatusCode: http.StatusUnauthorized}, false},
		{errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestURLToKeyStable(t *testing.T) {
	a := URLToKey("https://api.github.com/users/alice")
	b := URLToKey("https://api.github.com/users/alice")
	c := URLToKey("https://api.github.com/users/bob")
	if a != b {
		t.Error("same URL must produce the same key")
	}
	if a == c {
		t.Error("different URLs must produce different keys")
	}
}
