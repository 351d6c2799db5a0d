package references

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestFetcher_FetchAll_SkipsFailedReferences(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4E, 0x47}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write(payload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(zaptest.NewLogger(t))

	refs := fetcher.FetchAll(context.Background(), []string{
		server.URL + "/ok",
		server.URL + "/missing",
		"http://127.0.0.1:1/unreachable",
	})

	if len(refs) != 1 {
		t.Fatalf("Expected 1 fetched reference, got %d", len(refs))
	}
	if !bytes.Equal(refs[0], payload) {
		t.Errorf("Fetched bytes do not match: %v", refs[0])
	}
}

func TestFetcher_FetchAll_AllMissingReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(zaptest.NewLogger(t))

	refs := fetcher.FetchAll(context.Background(), []string{server.URL + "/a", server.URL + "/b"})
	if len(refs) != 0 {
		t.Errorf("Expected no references, got %d", len(refs))
	}
}

func TestFetcher_FetchAll_NoURLs(t *testing.T) {
	fetcher := NewFetcher(zaptest.NewLogger(t))

	refs := fetcher.FetchAll(context.Background(), nil)
	if len(refs) != 0 {
		t.Errorf("Expected no references, got %d", len(refs))
	}
}
