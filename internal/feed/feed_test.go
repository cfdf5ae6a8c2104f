package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/vodcat/internal/catalog"
	"github.com/vmunix/vodcat/internal/fetch"
	"github.com/vmunix/vodcat/internal/resolver"
	"github.com/vmunix/vodcat/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const feedJSON = `{
  "status": true,
  "data": {
    "content": [
      {"id": 10, "type": "show", "title": "", "slug": "australias-open",
       "image": {"2-3": {"x-large": "https://img/10.jpg"}},
       "video": {"sources": {"HLS": [
         {"Name": "Low", "Link": "https://cdn/bloomberg/low-10.smil/playlist.m3u8"},
         {"Name": "High", "Link": "https://cdn/bloomberg/2168982-8h534X8441YD7B1.smil/playlist.m3u8"}]}}},
      {"id": 11, "type": "episode", "title": " Round one ",
       "video": {"sources": {"HLS": [{"Name": "High", "Link": "https://cdn/bloomberg/ep-11.smil/playlist.m3u8"}]}}},
      {"id": 12, "type": "episode", "title": "No stream", "video": {"sources": {"HLS": []}}},
      {"id": 30, "type": "movie", "title": "market WEEK",
       "image": {"2-3": {"x-large": "https://img/30v.jpg"}, "16-9": {"x-large": "https://img/30p.jpg"}},
       "video": {"sources": {"HLS": [{"Name": "High", "Link": "https://cdn/bloomberg/mv-30.smil/playlist.m3u8"}]}}},
      {"id": 99, "type": "article", "title": "ignored"}
    ]
  }
}`

func TestParser_Parse(t *testing.T) {
	var resp Response
	require.NoError(t, decode(feedJSON, &resp))

	p, err := NewParser(nil, "")
	require.NoError(t, err)
	recs := p.Parse(resp.Data.Content)

	require.Len(t, recs.Shows, 1)
	show := recs.Shows[0]
	assert.Equal(t, "Australias Open", show.Name)
	require.Len(t, show.Episodes, 3)

	assert.Equal(t, int64(10), show.Episodes[0].CUID)
	assert.Equal(t, catalog.StreamID("2168982-8h534X8441YD7B1"), show.Episodes[0].StreamID)
	assert.Equal(t, "https://cdn/bloomberg/2168982-8h534X8441YD7B1.smil/playlist.m3u8", show.Episodes[0].StreamURL)

	assert.Equal(t, "Round one", show.Episodes[1].Name)
	assert.Equal(t, catalog.StreamID("ep-11"), show.Episodes[1].StreamID)
	assert.Equal(t, "https://img/10.jpg", show.Episodes[1].ImageURL, "episodes fall back to the show image")

	assert.Empty(t, show.Episodes[2].StreamID)

	require.Len(t, recs.Movies, 1)
	m := recs.Movies[0]
	assert.Equal(t, "Market Week", m.Title)
	assert.Equal(t, "https://img/30v.jpg", m.VerticalImage)
	assert.Equal(t, "https://img/30p.jpg", m.PosterImage)
	assert.Equal(t, catalog.StreamID("mv-30"), m.StreamID)
}

func TestParser_Preference(t *testing.T) {
	it := Item{ID: 1, Type: TypeEpisode}
	it.Video.Sources.HLS = []resolver.Variant{
		{Name: "Low", Link: "https://cdn/bloomberg/low.smil"},
		{Name: "Medium", Link: "https://cdn/bloomberg/mid.smil"},
	}

	p, err := NewParser([]string{"High", "Medium"}, "")
	require.NoError(t, err)
	rec := p.episode(it)
	assert.Equal(t, catalog.StreamID("mid"), rec.StreamID)

	_, err = NewParser(nil, "(")
	assert.Error(t, err)
}

func TestCategoryFromURL(t *testing.T) {
	c, err := CategoryFromURL("https://api-now.asharq.com/api/categories/%D8%A7%D9%82%D8%AA%D8%B5%D8%A7%D8%AF/?limit=500")
	require.NoError(t, err)
	assert.Equal(t, "اقتصاد", c)

	_, err = CategoryFromURL("https://api-now.asharq.com/api")
	assert.Error(t, err)
}

func TestImporter_Import(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, feedJSON)
	}))
	defer server.Close()

	ctx := context.Background()
	st := store.NewJSONStore(t.TempDir(), testLogger())
	im := NewImporter(fetch.NewClient(fetch.WithLogger(testLogger())), st, testLogger())
	f := Feed{Name: "economy", URL: server.URL + "/api/categories/economy/?limit=500"}

	res, err := im.Import(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, "economy", res.Category)
	assert.Equal(t, 5, res.Items)
	assert.Equal(t, 2, res.Stats.Episodes)
	assert.Equal(t, 1, res.Stats.Movies)
	assert.Equal(t, 1, res.Stats.Rejected)

	cat, err := st.Load(ctx, "economy")
	require.NoError(t, err)
	require.Len(t, cat.Series, 1)
	assert.Equal(t, "E02", cat.Series[0].Episodes[1].Label())
	require.Len(t, cat.Movies, 1)

	// importing the same feed again adds nothing
	res, err = im.Import(ctx, f)
	require.NoError(t, err)
	assert.Zero(t, res.Stats.Added())
	again, err := st.Load(ctx, "economy")
	require.NoError(t, err)
	assert.Equal(t, cat, again)
}

func TestImporter_FetchError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	im := NewImporter(fetch.NewClient(fetch.WithLogger(testLogger())),
		store.NewJSONStore(t.TempDir(), testLogger()), testLogger())
	_, err := im.Import(context.Background(), Feed{Name: "x", URL: server.URL + "/api/categories/x/", Category: "x"})
	assert.ErrorIs(t, err, fetch.ErrFetch)
}

func TestImporter_StatusFalse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status": false, "data": {"content": []}}`)
	}))
	defer server.Close()

	dir := t.TempDir()
	st := store.NewJSONStore(dir, testLogger())
	im := NewImporter(fetch.NewClient(fetch.WithLogger(testLogger())), st, testLogger())
	_, err := im.Import(context.Background(), Feed{Name: "x", URL: server.URL + "/api/categories/x/", Category: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrFetch)

	_, statErr := os.Stat(st.Path("x"))
	assert.True(t, os.IsNotExist(statErr), "nothing is saved for a failed feed")
}

func decode(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
