package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Interest rates</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Central bank raises interest rates</h1>
<p>The central bank raised its benchmark interest rate by a quarter point on Tuesday, citing persistent inflation in services.</p>
<p>Officials said further increases remain possible if price pressures fail to ease over the coming quarters.</p>
<p>Markets had largely expected the move, and bond yields were little changed after the announcement was published.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func testConfig() *FetcherConfig {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func newTestFetcher(t *testing.T, opts ...FetcherOption) *Fetcher {
	t.Helper()
	f, err := NewFetcher(testConfig(), zap.NewNop(), opts...)
	require.NoError(t, err)
	return f
}

func TestFetcher_ExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	page := newTestFetcher(t).Fetch(context.Background(), srv.URL+"/rates")
	require.NotNil(t, page)
	assert.Contains(t, page.Content, "persistent inflation")
	assert.Equal(t, srv.URL+"/rates", page.Link)
}

func TestFetcher_EmptyPageGivesUpAfterMaxAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	page := newTestFetcher(t).Fetch(context.Background(), srv.URL)
	assert.Nil(t, page)
	assert.Equal(t, int32(5), hits.Load())
}

func TestFetcher_ServerErrorRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Nil(t, newTestFetcher(t).Fetch(context.Background(), srv.URL))
	assert.Equal(t, int32(5), hits.Load())
}

func TestFetcher_RecoversOnLaterAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	page := newTestFetcher(t).Fetch(context.Background(), srv.URL)
	require.NotNil(t, page)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_CachesOnlySuccess(t *testing.T) {
	var hits atomic.Int32
	var ready atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !ready.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	ctx := context.Background()

	assert.Nil(t, f.Fetch(ctx, srv.URL))
	assert.Equal(t, int32(5), hits.Load())

	ready.Store(true)
	first := f.Fetch(ctx, srv.URL)
	require.NotNil(t, first)
	assert.Equal(t, int32(6), hits.Load())

	second := f.Fetch(ctx, srv.URL)
	assert.Same(t, first, second)
	assert.Equal(t, int32(6), hits.Load(), "cached page is served without a request")
}

func TestFetcher_InvalidLinks(t *testing.T) {
	f := newTestFetcher(t)
	for _, link := range []string{"", "   ", "not a url", "ftp://example.com/file", "mailto:someone@example.com", "https://"} {
		t.Run(link, func(t *testing.T) {
			assert.Nil(t, f.Fetch(context.Background(), link))
		})
	}
}

type fakeRenderer struct {
	calls atomic.Int32
	body  string
}

func (r *fakeRenderer) Render(context.Context, string) ([]byte, error) {
	r.calls.Add(1)
	return []byte(r.body), nil
}

func TestFetcher_RendererFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="app"></div><script>render()</script></body></html>`))
	}))
	defer srv.Close()

	r := &fakeRenderer{body: articleHTML}
	page := newTestFetcher(t, WithRenderer(r)).Fetch(context.Background(), srv.URL)
	require.NotNil(t, page)
	assert.Contains(t, page.Content, "bond yields")
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestFetcher_CancelledContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RetryDelay = time.Hour
	f, err := NewFetcher(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.Nil(t, f.Fetch(ctx, srv.URL))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.LessOrEqual(t, hits.Load(), int32(1))
}

func TestURLValidator(t *testing.T) {
	v := NewURLValidator(DefaultConfig())
	tests := []struct {
		link  string
		valid bool
	}{
		{"https://example.com/a?b=c", true},
		{"HTTP://example.com", true},
		{"  https://example.com  ", true},
		{"", false},
		{"/relative/path", false},
		{"javascript:alert(1)", false},
		{"ftp://example.com", false},
		{"https:///nohost", false},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			u, err := v.Validate(tt.link)
			if tt.valid {
				require.NoError(t, err)
				assert.NotEmpty(t, u.Host)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestExtractTagText(t *testing.T) {
	text := ExtractTagText([]byte(articleHTML))
	assert.Contains(t, text, "Central bank raises interest rates")
	assert.NotContains(t, text, "Copyright")
	assert.False(t, strings.Contains(text, "\n"))

	nested := `<html><body><div><div>short</div><div>this leaf div has enough words to count</div></div></body></html>`
	assert.Equal(t, "this leaf div has enough words to count", ExtractTagText([]byte(nested)))

	assert.Empty(t, ExtractTagText(nil))
}
