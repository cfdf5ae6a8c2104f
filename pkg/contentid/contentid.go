// Package contentid extracts content and stream identifiers from the URLs a
// catalog site exposes: image URLs carry the content id (CUID) next to a fixed
// marker, redirect targets carry the stream id as a path segment.
//
// Every function is total: malformed, empty or overflowing input reports
// "not found" instead of failing. When a string holds several candidates the
// leftmost one wins.
package contentid

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	tileImageRe     = regexp.MustCompile(`(\d+)_tile_image`)
	verticalImageRe = regexp.MustCompile(`(\d+)_vertical_image`)
	posterImageRe   = regexp.MustCompile(`(\d+)_poster_image`)
	anyImageRe      = regexp.MustCompile(`(\d+)_(?:tile|vertical|poster)_image`)

	// redirectIDRe matches the first all-digit path segment, e.g. /1234/.
	redirectIDRe = regexp.MustCompile(`/(\d+)/`)
)

// FromTileImage extracts the CUID from a series episode tile,
// e.g. ".../123_tile_image.jpg".
func FromTileImage(url string) (int64, bool) {
	return parseCUID(tileImageRe, url)
}

// FromVerticalImage extracts the CUID from a movie's vertical artwork.
func FromVerticalImage(url string) (int64, bool) {
	return parseCUID(verticalImageRe, url)
}

// FromPosterImage extracts the CUID from a movie's poster artwork.
func FromPosterImage(url string) (int64, bool) {
	return parseCUID(posterImageRe, url)
}

// FromImageURL accepts any of the tile, vertical or poster markers and returns
// the leftmost match.
func FromImageURL(url string) (int64, bool) {
	return parseCUID(anyImageRe, url)
}

// FromRedirectURL extracts the stream id from a redirect target such as
// "https://cdn.example/hls/98765/index.m3u8". The id is returned verbatim so
// leading zeros survive. An all-zero segment is not an id.
func FromRedirectURL(url string) (string, bool) {
	id, ok := Match(redirectIDRe, url)
	if !ok || strings.Trim(id, "0") == "" {
		return "", false
	}
	return id, true
}

// Match returns the first capture group of re in s. A pattern without a
// capture group yields the whole match.
func Match(re *regexp.Regexp, s string) (string, bool) {
	if re == nil || s == "" {
		return "", false
	}
	m := re.FindStringSubmatch(s)
	switch {
	case m == nil:
		return "", false
	case len(m) > 1:
		return m[1], m[1] != ""
	default:
		return m[0], m[0] != ""
	}
}

// parseCUID converts the first capture of re into a positive int64.
// Zero is rejected: the site never issues it and it doubles as "unset".
func parseCUID(re *regexp.Regexp, s string) (int64, bool) {
	raw, ok := Match(re, s)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
