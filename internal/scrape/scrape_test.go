package scrape

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/vodcat/internal/fetch"
	"github.com/vmunix/vodcat/internal/fetch/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustParse(t *testing.T, html string) fetch.Document {
	t.Helper()
	doc, err := fetch.ParseHTMLString(html)
	require.NoError(t, err)
	return doc
}

const seriesHTML = `<html><head>
<meta data-hid="title" content="LALLA   laaroussa &amp;amp; co">
</head><body>
<div class="episode-container">
  <img src="https://cdn.forja.ma/img/1001_tile_image.jpg">
  <span class="episode-name"> Episode
    one </span>
</div>
<div class="episode-container">
  <img src="https://cdn.forja.ma/img/1002_tile_image.jpg">
</div>
<div class="episode-container"><span class="episode-name">no image</span></div>
</body></html>`

func TestParseSeriesPage(t *testing.T) {
	page := ParseSeriesPage(mustParse(t, seriesHTML), DefaultSelectors())

	assert.Equal(t, "Lalla Laaroussa & Co", page.Title)
	require.Len(t, page.Episodes, 3)
	assert.Equal(t, EpisodeCandidate{ImageURL: "https://cdn.forja.ma/img/1001_tile_image.jpg", Name: "Episode one"}, page.Episodes[0])
	assert.Equal(t, "https://cdn.forja.ma/img/1002_tile_image.jpg", page.Episodes[1].ImageURL)
	assert.Empty(t, page.Episodes[1].Name)
	assert.Empty(t, page.Episodes[2].ImageURL)
	assert.Equal(t, "no image", page.Episodes[2].Name)
}

func TestParseSeriesPage_Defaults(t *testing.T) {
	page := ParseSeriesPage(mustParse(t, `<html><body><p>nothing here</p></body></html>`), DefaultSelectors())

	assert.Equal(t, UnknownSeries, page.Title)
	assert.Empty(t, page.Episodes)
}

const movieHTML = `<html><head>
<meta data-hid="title" content="the   last journey">
</head><body>
<p class="editable-content-ar">  A long   road home. </p>
<div class="info-datas">Réalisateur</div>
<div><a href="/p/1">Jane Doe</a><span>ignored</span></div>
<div class="info-datas">Audio</div>
<div><span>Arabe</span></div>
<div class="info-datas">Distribution</div>
<div></div>
<img alt="Contenu principal vertical image" src="https://cdn.forja.ma/img/77_vertical_image.jpg">
<img alt="Contenu poster image" src="https://cdn.forja.ma/img/77_poster_image.jpg">
</body></html>`

func TestParseMoviePage(t *testing.T) {
	page := ParseMoviePage(mustParse(t, movieHTML), DefaultSelectors())

	assert.Equal(t, "The Last Journey", page.Title)
	assert.Equal(t, "A long road home.", page.Synopsis)
	assert.Equal(t, map[string]string{
		"Réalisateur":  "Jane Doe",
		"Audio":        "Arabe",
		"Distribution": MissingInfoText,
	}, page.Info)
	assert.Equal(t, "https://cdn.forja.ma/img/77_vertical_image.jpg", page.VerticalImage)
	assert.Equal(t, "https://cdn.forja.ma/img/77_poster_image.jpg", page.PosterImage)
}

func TestParseMoviePage_Defaults(t *testing.T) {
	page := ParseMoviePage(mustParse(t, `<html><body></body></html>`), DefaultSelectors())

	assert.Equal(t, UnknownTitle, page.Title)
	assert.Equal(t, NoSynopsis, page.Synopsis)
	assert.Empty(t, page.Info)
	assert.Empty(t, page.VerticalImage)
	assert.Empty(t, page.PosterImage)
}

func TestSelectors_WithDefaults(t *testing.T) {
	sel := Selectors{EpisodeContainer: "li.ep"}.WithDefaults()

	assert.Equal(t, "li.ep", sel.EpisodeContainer)
	assert.Equal(t, DefaultSelectors().Title, sel.Title)
	assert.Equal(t, "src", sel.EpisodeImageAttr)
}

func TestExtractor_Series(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().
		Fetch(gomock.Any(), "https://forja.ma/content/lalla?lang=fr").
		Return(mustParse(t, seriesHTML), nil)

	ex := NewExtractor(f, Selectors{}, testLogger())
	page, err := ex.Series(context.Background(), "https://forja.ma/content/lalla?lang=fr")
	require.NoError(t, err)
	assert.Len(t, page.Episodes, 3)
}

func TestExtractor_FetchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		Return(nil, fetch.ErrFetch).
		Times(2)

	ex := NewExtractor(f, Selectors{}, testLogger())
	_, err := ex.Series(context.Background(), "https://forja.ma/content/x")
	assert.ErrorIs(t, err, fetch.ErrFetch)
	_, err = ex.Movie(context.Background(), "https://forja.ma/content/y")
	assert.ErrorIs(t, err, fetch.ErrFetch)
}

const listingHTML = `<html><body>
<a href="/content/lalla-laaroussa">Lalla</a>
<a href="/about">About</a>
<a href="/content/mouja?lang=ar#top">Mouja</a>
<a href="https://other.example/content/foreign">Foreign</a>
<a href="https://forja.ma/content/absolute">Absolute</a>
<a>no href</a>
<a href="/content/lalla-laaroussa">Lalla again</a>
</body></html>`

func TestCrawler_ItemURLs(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().
		Fetch(gomock.Any(), "https://forja.ma/category/drama").
		Return(mustParse(t, listingHTML), nil)

	c, err := NewCrawler(f, CrawlerConfig{}, testLogger())
	require.NoError(t, err)

	urls, err := c.ItemURLs(context.Background(), "https://forja.ma/category/drama", DefaultSeriesQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://forja.ma/content/lalla-laaroussa?lang=fr",
		"https://forja.ma/content/mouja?lang=fr",
		"https://forja.ma/content/absolute?lang=fr",
		"https://forja.ma/content/lalla-laaroussa?lang=fr",
	}, urls)
}

func TestCrawler_MovieQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		Return(mustParse(t, `<a href="/content/film">Film</a>`), nil)

	c, err := NewCrawler(f, CrawlerConfig{BaseURL: "https://forja.ma"}, testLogger())
	require.NoError(t, err)

	urls, err := c.ItemURLs(context.Background(), "https://forja.ma/category/movies", DefaultMovieQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://forja.ma/content/film?play=false&lang=fr"}, urls)
}

func TestCrawler_FetchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		Return(nil, errors.Join(fetch.ErrFetch, errors.New("status 503")))

	c, err := NewCrawler(f, CrawlerConfig{}, testLogger())
	require.NoError(t, err)

	_, err = c.ItemURLs(context.Background(), "https://forja.ma/category/drama", DefaultSeriesQuery)
	assert.ErrorIs(t, err, fetch.ErrFetch)
}

func TestNewCrawler_InvalidBase(t *testing.T) {
	_, err := NewCrawler(nil, CrawlerConfig{BaseURL: "not a url"}, testLogger())
	assert.Error(t, err)
}
