package affirmation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/friendsincode/classboard/internal/cache"
	"github.com/friendsincode/classboard/internal/upstream"
	"github.com/rs/zerolog"
)

func TestCurrentCachesText(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"affirmation":" You are doing great "}`))
	}))
	defer srv.Close()

	client, _ := upstream.New(upstream.Options{Name: "affirmation", BaseURL: srv.URL}, zerolog.Nop())
	s := NewService(client, cache.NewMemory(zerolog.Nop()))

	for i := 0; i < 2; i++ {
		text, err := s.Current(context.Background())
		if err != nil || text != "You are doing great" {
			t.Fatalf("current: %q, %v", text, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}
}

func TestCurrentEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, _ := upstream.New(upstream.Options{Name: "affirmation", BaseURL: srv.URL}, zerolog.Nop())
	s := NewService(client, cache.NewMemory(zerolog.Nop()))
	if _, err := s.Current(context.Background()); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}
