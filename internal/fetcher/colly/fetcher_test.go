package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	ticks := []time.Time{time.Unix(10, 0), time.Unix(10, int64(250*time.Millisecond))}
	f.now = func() time.Time {
		next := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return next
	}
	var result baseline.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, f.now(), &result, &fetchErr)
	if hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("body"),
		Headers: &http.Header{
			"X-Resp":       {"ok"},
			protocolHeader: {"HTTP/2.0"},
			finalURLHeader: {"https://example.com/landing"},
		},
	})
	if result.StatusCode != http.StatusOK || string(result.Body) != "body" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Headers.Get("X-Resp") != "ok" {
		t.Fatalf("expected headers copied, got %+v", result.Headers)
	}
	if result.Headers.Get(protocolHeader) != "" || result.Headers.Get(finalURLHeader) != "" {
		t.Fatalf("expected internal headers stripped, got %+v", result.Headers)
	}
	if result.Protocol != "HTTP/2.0" || result.FinalURL != "https://example.com/landing" {
		t.Fatalf("unexpected meta: %q %q", result.Protocol, result.FinalURL)
	}
	if result.Duration != 250*time.Millisecond {
		t.Fatalf("unexpected duration %s", result.Duration)
	}

	hooks.onError(nil, errors.New("boom"))
	if fetchErr == nil || fetchErr.Error() != "boom" {
		t.Fatalf("expected fetchErr set, got %v", fetchErr)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	if cfg.UserAgent != DefaultUserAgent || cfg.Timeout != DefaultTimeout || cfg.MaxRedirects != DefaultMaxRedirects {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	f := New(Config{UserAgent: "probe-agent"})
	collector := f.buildCollector(context.Background(), 64)
	if collector.UserAgent != "probe-agent" {
		t.Fatalf("expected user agent override, got %q", collector.UserAgent)
	}
	if collector.MaxBodySize != 64 {
		t.Fatalf("expected body limit, got %d", collector.MaxBodySize)
	}
}

func TestFetchFollowsRedirectAndRecordsFinalURL(t *testing.T) {
	t.Parallel()

	var gotUA string
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Cache-Control", "max-age=60")
		_, _ = w.Write([]byte("<title>ok</title>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := New(Config{})
	resp, err := f.Fetch(context.Background(), srv.URL+"/start")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.URL != srv.URL+"/start" || resp.FinalURL != srv.URL+"/final" {
		t.Fatalf("unexpected urls: %q -> %q", resp.URL, resp.FinalURL)
	}
	if resp.Protocol != "HTTP/1.1" {
		t.Fatalf("unexpected protocol %q", resp.Protocol)
	}
	if resp.Headers.Get("Cache-Control") != "max-age=60" {
		t.Fatalf("expected cache header, got %+v", resp.Headers)
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("unexpected user agent %q", gotUA)
	}
	if resp.FetchedAt.IsZero() {
		t.Fatal("expected fetch timestamp")
	}
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := New(Config{}).Fetch(context.Background(), srv.URL)
	var fe *baseline.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound || fe.URL != srv.URL {
		t.Fatalf("unexpected fetch error: %+v", fe)
	}
}

func TestFetchRedirectOverflow(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	_, err := New(Config{MaxRedirects: 2}).Fetch(context.Background(), srv.URL+"/r")
	var fe *baseline.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !strings.Contains(fe.Message, "stopped after 2 redirects") {
		t.Fatalf("unexpected message %q", fe.Message)
	}
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}).Fetch(ctx, "http://127.0.0.1:1/")
	var fe *baseline.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestFetchAssetTruncates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	t.Cleanup(srv.Close)

	body, err := New(Config{AssetMaxBytes: 10}).FetchAsset(context.Background(), srv.URL+"/site.css")
	if err != nil {
		t.Fatalf("fetch asset: %v", err)
	}
	if len(body) != 10 {
		t.Fatalf("expected truncated body, got %d bytes", len(body))
	}
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
