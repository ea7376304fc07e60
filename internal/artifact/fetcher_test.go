package artifact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediagen/internal/domain"
)

func TestFetchReturnsBodyAndContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/webm")
		_, _ = w.Write([]byte("B"))
	}))
	defer srv.Close()

	data, ct, err := NewFetcher(Options{HTTPClient: srv.Client()}).Fetch(context.Background(), srv.URL+"/v.webm")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "B" || ct != "video/webm" {
		t.Fatalf("got %q %q", data, ct)
	}
}

func TestFetchDefaultsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, ct, err := NewFetcher(Options{HTTPClient: srv.Client()}).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ct != DefaultContentType {
		t.Fatalf("content type = %q", ct)
	}
}

func TestFetchRejectsNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := NewFetcher(Options{HTTPClient: srv.Client()}).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrArtifactFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestFetchRejectsOversizedAndInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	f := NewFetcher(Options{HTTPClient: srv.Client(), MaxBytes: 4})
	if _, _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, domain.ErrArtifactFetch) {
		t.Fatalf("expected size error, got %v", err)
	}
	if _, _, err := f.Fetch(context.Background(), "not a url"); !errors.Is(err, domain.ErrArtifactFetch) {
		t.Fatalf("expected invalid url error, got %v", err)
	}
}
