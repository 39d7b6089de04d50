package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const samplePage = `<html><body>
  <h1>Store</h1>
  <div id="price">  42,00
     EUR  </div>
  <p>unrelated   footer</p>
</body></html>`

func pageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSelectorExtraction(t *testing.T) {
	t.Parallel()
	srv := pageServer(t, http.StatusOK, samplePage)
	f := NewHTTPFetcher(Config{})

	page, err := f.Fetch(context.Background(), srv.URL, "#price")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.ExtractedTarget != "42,00 EUR" {
		t.Fatalf("target = %q, want whitespace-normalized %q", page.ExtractedTarget, "42,00 EUR")
	}
	if page.HashTarget == "" {
		t.Fatal("fingerprint must be set on success")
	}
}

func TestFetchEmptySelectorUsesBody(t *testing.T) {
	t.Parallel()
	srv := pageServer(t, http.StatusOK, samplePage)
	f := NewHTTPFetcher(Config{})

	page, err := f.Fetch(context.Background(), srv.URL, "  ")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.ExtractedTarget != "Store 42,00 EUR unrelated footer" {
		t.Fatalf("target = %q", page.ExtractedTarget)
	}
}

func TestFetchHashStableAcrossReflow(t *testing.T) {
	t.Parallel()
	a := pageServer(t, http.StatusOK, `<body><div id="x">alpha beta</div></body>`)
	b := pageServer(t, http.StatusOK, `<body><div id="x">
		alpha
		beta </div></body>`)
	f := NewHTTPFetcher(Config{})

	pa, err := f.Fetch(context.Background(), a.URL, "#x")
	if err != nil {
		t.Fatalf("Fetch a: %v", err)
	}
	pb, err := f.Fetch(context.Background(), b.URL, "#x")
	if err != nil {
		t.Fatalf("Fetch b: %v", err)
	}
	if pa.HashTarget != pb.HashTarget {
		t.Fatal("reflowed markup with identical text must fingerprint identically")
	}
}

func TestFetchErrorStatus(t *testing.T) {
	t.Parallel()
	srv := pageServer(t, http.StatusNotFound, "gone")
	f := NewHTTPFetcher(Config{})

	if _, err := f.Fetch(context.Background(), srv.URL, ""); err == nil {
		t.Fatal("4xx status must be an error")
	}
}

func TestFetchSendsUserAgent(t *testing.T) {
	t.Parallel()
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<body>ok</body>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{UserAgent: "custom-agent/2"})
	if _, err := f.Fetch(context.Background(), srv.URL, ""); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != "custom-agent/2" {
		t.Fatalf("user agent = %q", gotUA)
	}
}
