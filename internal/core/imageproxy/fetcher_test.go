package imageproxy

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHTTPFetcher_Fetch_Success(t *testing.T) {
	expectedData := []byte("test image data")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Query().Get("id") != "ABC123" {
			t.Errorf("unexpected id: %s", r.URL.Query().Get("id"))
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Lightbox-ImageProxy") {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(expectedData)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 10)

	result, err := fetcher.Fetch(context.Background(), server.URL+"/uc?id=ABC123")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !bytes.Equal(result.Data, expectedData) {
		t.Errorf("expected data %q, got %q", expectedData, result.Data)
	}
	if result.ContentType != "image/jpeg" {
		t.Errorf("expected content type image/jpeg, got %q", result.ContentType)
	}
	if result.URL != server.URL+"/uc?id=ABC123" {
		t.Errorf("unexpected result URL: %s", result.URL)
	}
}

func TestHTTPFetcher_Fetch_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte("nope"))
		}))

		fetcher := NewHTTPFetcher(5*time.Second, 10)
		_, err := fetcher.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrSourceFetchFailed) {
			t.Errorf("status %d: expected ErrSourceFetchFailed, got: %v", status, err)
		}
		server.Close()
	}
}

func TestHTTPFetcher_Fetch_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 10)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrSourceFetchFailed) {
		t.Errorf("expected ErrSourceFetchFailed, got: %v", err)
	}
}

func TestHTTPFetcher_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(50*time.Millisecond, 10)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrSourceFetchFailed) {
		t.Errorf("expected ErrSourceFetchFailed, got: %v", err)
	}
}

func TestHTTPFetcher_Fetch_NetworkError(t *testing.T) {
	fetcher := NewHTTPFetcher(5*time.Second, 10)
	_, err := fetcher.Fetch(context.Background(), "http://127.0.0.1:1")
	if !errors.Is(err, ErrSourceFetchFailed) {
		t.Errorf("expected ErrSourceFetchFailed, got: %v", err)
	}
}

func TestHTTPFetcher_Fetch_TooLarge(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 1024*1024+1)

	t.Run("declared content length", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
			w.Write(body)
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(5*time.Second, 1)
		_, err := fetcher.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrImageTooLarge) {
			t.Errorf("expected ErrImageTooLarge, got: %v", err)
		}
	})

	t.Run("chunked without content length", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			for i := 0; i < len(body); i += 64 * 1024 {
				end := i + 64*1024
				if end > len(body) {
					end = len(body)
				}
				w.Write(body[i:end])
				w.(http.Flusher).Flush()
			}
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(5*time.Second, 1)
		_, err := fetcher.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrImageTooLarge) {
			t.Errorf("expected ErrImageTooLarge, got: %v", err)
		}
	})
}

// scriptedFetcher returns a fixed outcome per URL and records calls.
type scriptedFetcher struct {
	mu       sync.Mutex
	outcomes map[string]error
	data     []byte
	calls    []string
}

func (f *scriptedFetcher) Fetch(ctx context.Context, url string) (*SourceFetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	err, scripted := f.outcomes[url]
	f.mu.Unlock()

	if !scripted {
		err = errors.New("unscripted URL")
	}
	if err != nil {
		return nil, err
	}
	return &SourceFetchResult{URL: url, Data: f.data, ContentType: "text/html"}, nil
}

func (f *scriptedFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func testCandidates(prefixes ...string) []Candidate {
	candidates := make([]Candidate, 0, len(prefixes))
	for _, p := range prefixes {
		p := p
		candidates = append(candidates, func(id string) string { return p + id })
	}
	return candidates
}

func TestResolver_FallsBackUntilSuccess(t *testing.T) {
	fetcher := &scriptedFetcher{
		outcomes: map[string]error{
			"a/ID": errors.New("connection refused"),
			"b/ID": ErrSourceFetchFailed,
			"c/ID": nil,
			"d/ID": nil,
		},
		data: []byte("body"),
	}
	resolver, err := NewResolver(fetcher, testCandidates("a/", "b/", "c/", "d/"))
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	result, err := resolver.Resolve(context.Background(), "ID")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.URL != "c/ID" {
		t.Errorf("expected third candidate to win, got %s", result.URL)
	}

	calls := fetcher.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 fetch attempts, got %d: %v", len(calls), calls)
	}
	for i, want := range []string{"a/ID", "b/ID", "c/ID"} {
		if calls[i] != want {
			t.Errorf("attempt %d: expected %s, got %s", i, want, calls[i])
		}
	}
}

func TestResolver_FirstSuccessShortCircuits(t *testing.T) {
	fetcher := &scriptedFetcher{
		outcomes: map[string]error{"a/ID": nil, "b/ID": nil},
		data:     []byte("body"),
	}
	resolver, _ := NewResolver(fetcher, testCandidates("a/", "b/"))

	if _, err := resolver.Resolve(context.Background(), "ID"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if calls := fetcher.Calls(); len(calls) != 1 {
		t.Errorf("expected 1 fetch attempt, got %d", len(calls))
	}
}

func TestResolver_NonImageContentTypeIsStillReturned(t *testing.T) {
	fetcher := &scriptedFetcher{
		outcomes: map[string]error{"a/ID": nil},
		data:     []byte("<html>redirect</html>"),
	}
	resolver, _ := NewResolver(fetcher, testCandidates("a/", "b/"))

	result, err := resolver.Resolve(context.Background(), "ID")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.ContentType != "text/html" {
		t.Errorf("expected text/html body to pass through, got %q", result.ContentType)
	}
}

func TestResolver_AllCandidatesFail(t *testing.T) {
	fetcher := &scriptedFetcher{
		outcomes: map[string]error{
			"a/ID": errors.New("timeout"),
			"b/ID": ErrSourceFetchFailed,
			"c/ID": ErrImageTooLarge,
		},
	}
	resolver, _ := NewResolver(fetcher, testCandidates("a/", "b/", "c/"))

	_, err := resolver.Resolve(context.Background(), "ID")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got: %v", err)
	}
	if calls := fetcher.Calls(); len(calls) != 3 {
		t.Errorf("expected every candidate to be tried, got %d attempts", len(calls))
	}
}

func TestResolver_StopsOnCancelledContext(t *testing.T) {
	fetcher := &scriptedFetcher{outcomes: map[string]error{}}
	resolver, _ := NewResolver(fetcher, testCandidates("a/", "b/"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := resolver.Resolve(ctx, "ID")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got: %v", err)
	}
	if calls := fetcher.Calls(); len(calls) != 0 {
		t.Errorf("expected no attempts after cancellation, got %d", len(calls))
	}
}

func TestNewResolver_Defaults(t *testing.T) {
	if _, err := NewResolver(nil, nil); !errors.Is(err, ErrNilDependency) {
		t.Errorf("expected ErrNilDependency, got: %v", err)
	}

	resolver, err := NewResolver(&scriptedFetcher{}, nil)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	if len(resolver.candidates) != len(DefaultCandidates) {
		t.Errorf("expected %d default candidates, got %d", len(DefaultCandidates), len(resolver.candidates))
	}
}

func TestDefaultCandidates(t *testing.T) {
	want := []string{
		"https://drive.google.com/uc?export=download&id=ABC123",
		"https://drive.google.com/uc?export=view&id=ABC123",
		"https://lh3.googleusercontent.com/d/ABC123",
		"https://drive.google.com/thumbnail?id=ABC123&sz=w2400",
	}
	if len(DefaultCandidates) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(DefaultCandidates))
	}
	for i, c := range DefaultCandidates {
		if got := c("ABC123"); got != want[i] {
			t.Errorf("candidate %d: expected %s, got %s", i, want[i], got)
		}
	}
}

func TestDefaultCandidates_EscapeIdentifier(t *testing.T) {
	for i, c := range DefaultCandidates {
		got := c("a?b/c")
		if strings.Contains(got, "a?b") || strings.Contains(got, "b/c") {
			t.Errorf("candidate %d did not escape identifier: %s", i, got)
		}
	}
}
