package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head>
<meta data-hid="title" content="SALAH ET FATI">
</head><body>
<a href="/content/salah-et-fati">one</a>
<div class="episode-container"><img src="/img/123_tile_image.jpg"><span class="episode-name">Pilot</span></div>
<div class="episode-container"><img src="/img/124_tile_image.jpg"></div>
<div class="info-datas">Audio</div><div><span>Arabe</span></div>
</body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vodcat-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	c := NewClient(WithUserAgent("vodcat-test"), WithLogger(testLogger()))
	doc, err := c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	title, ok := FirstAttr(doc, `meta[data-hid="title"]`, "content")
	require.True(t, ok)
	assert.Equal(t, "SALAH ET FATI", title)

	containers := doc.Find("div.episode-container")
	require.Len(t, containers, 2)
	src, ok := FirstAttr(containers[1], "img", "src")
	require.True(t, ok)
	assert.Equal(t, "/img/124_tile_image.jpg", src)

	_, ok = First(containers[1], "span.episode-name")
	assert.False(t, ok)

	info, ok := First(doc, "div.info-datas")
	require.True(t, ok)
	next, ok := info.Next()
	require.True(t, ok)
	val, ok := First(next, "a, span")
	require.True(t, ok)
	assert.Equal(t, "Arabe", val.Text())
}

func TestClient_Get_NonOKIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(WithLogger(testLogger()))
	_, err := c.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_Get_TransportErrorIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(WithLogger(testLogger()))
	_, err := c.Fetch(context.Background(), url)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestClient_Get_RetriesServerErrorOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := NewClient(WithLogger(testLogger()))
	body, err := c.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Get_DecodesCompressedBodies(t *testing.T) {
	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte("brotli body"))
	require.NoError(t, bw.Close())

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte("gzip body"))
	require.NoError(t, gw.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "br")
		switch r.URL.Path {
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(br.Bytes())
		case "/gz":
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(gz.Bytes())
		}
	}))
	defer server.Close()

	c := NewClient(WithLogger(testLogger()))

	body, err := c.Get(context.Background(), server.URL+"/br")
	require.NoError(t, err)
	assert.Equal(t, "brotli body", string(body))

	body, err = c.Get(context.Background(), server.URL+"/gz")
	require.NoError(t, err)
	assert.Equal(t, "gzip body", string(body))
}

func TestClient_Get_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 100))
	}))
	defer server.Close()

	c := NewClient(WithMaxBodyBytes(10), WithLogger(testLogger()))
	_, err := c.Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true}`))
	}))
	defer server.Close()

	var out struct {
		Status bool `json:"status"`
	}
	c := NewClient(WithLogger(testLogger()))
	require.NoError(t, c.GetJSON(context.Background(), server.URL, &out))
	assert.True(t, out.Status)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 1))
	l := NewLimiter(5, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
	assert.NoError(t, Wait(context.Background(), nil))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, retryBackoff, parseRetryAfter(""))
	assert.Equal(t, retryBackoff, parseRetryAfter("soon"))
	assert.Equal(t, maxRetryAfter, parseRetryAfter("3600"))
}

func TestClient_Get_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(WithTimeout(20*time.Millisecond), WithLogger(testLogger()))
	_, err := c.Get(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrFetch)
}
