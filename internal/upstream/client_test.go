package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/things" || r.URL.Query().Get("q") != "x" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	c, err := New(Options{Name: "test", BaseURL: srv.URL + "/v1/", UserAgent: "test-agent"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var got struct {
		Value int `json:"value"`
	}
	if err := c.GetJSON(context.Background(), "/things", url.Values{"q": {"x"}}, &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Value != 42 {
		t.Fatalf("expected 42, got %d", got.Value)
	}
}

func TestGetJSONErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(Options{Name: "test", BaseURL: srv.URL}, zerolog.Nop())
	err := c.GetJSON(context.Background(), "/", nil, &struct{}{})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadGateway {
		t.Fatalf("expected status error, got %v", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatal("status errors must match ErrUnavailable")
	}
}

func TestGetJSONUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, _ := New(Options{Name: "test", BaseURL: base}, zerolog.Nop())
	if err := c.GetJSON(context.Background(), "/", nil, &struct{}{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewRejectsInvalidBase(t *testing.T) {
	if _, err := New(Options{Name: "test", BaseURL: "not a url"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error")
	}
}
