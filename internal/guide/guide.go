// Package guide builds an XMLTV programme guide from a paginated schedule
// API. It shares nothing with the catalog pipeline beyond the HTTP client.
package guide

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/vodcat/internal/store"
)

// Defaults for the Roya schedule API.
const (
	DefaultURLTemplate = "https://backend.roya.tv/api/v01/channels/schedule-pagination?page={page}&day_number=0&device_size=Size02Q40&device_type=1"
	DefaultPages       = 6
	DefaultLang        = "ar"
	DefaultGenerator   = "Roya TV EPG Generator"

	timestampLayout = "20060102150405 -0700"
	scheduleLayout  = "2006-01-02 15:04:05"
)

// ID is a schedule identifier sent either as a number or a string.
type ID string

// UnmarshalJSON accepts a number, a string or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Page is one schedule API response.
type Page struct {
	Data []Day `json:"data"`
}

// Day lists channels for a date (YYYY-MM-DD).
type Day struct {
	Date     string    `json:"date"`
	Channels []Channel `json:"channel"`
}

// Channel carries its programmes for the day.
type Channel struct {
	ID       ID        `json:"id"`
	Title    string    `json:"title"`
	Programs []Program `json:"programs"`
}

// Program times are HH:MM:SS on the day's date.
type Program struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// TV is the XMLTV document.
type TV struct {
	XMLName    xml.Name    `xml:"tv"`
	Generator  string      `xml:"generator-info-name,attr,omitempty"`
	Channels   []TVChannel `xml:"channel"`
	Programmes []Programme `xml:"programme"`
}

// TVChannel is an XMLTV channel definition.
type TVChannel struct {
	ID          string `xml:"id,attr"`
	DisplayName string `xml:"display-name"`
}

// Programme is an XMLTV programme.
type Programme struct {
	Start   string    `xml:"start,attr"`
	Stop    string    `xml:"stop,attr"`
	Channel string    `xml:"channel,attr"`
	Title   LangValue `xml:"title"`
	Desc    LangValue `xml:"desc"`
}

// LangValue is text tagged with a language.
type LangValue struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Getter downloads and decodes JSON.
type Getter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Config configures a Builder. Zero values take the defaults above.
type Config struct {
	URLTemplate string
	Pages       int
	Lang        string
	Generator   string
}

// Builder assembles a guide from schedule pages.
type Builder struct {
	getter Getter
	cfg    Config
	log    *slog.Logger
}

// NewBuilder creates a builder.
func NewBuilder(g Getter, cfg Config, log *slog.Logger) *Builder {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if cfg.Pages <= 0 {
		cfg.Pages = DefaultPages
	}
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	if cfg.Generator == "" {
		cfg.Generator = DefaultGenerator
	}
	return &Builder{getter: g, cfg: cfg, log: log.With("component", "guide")}
}

// PageURL renders the schedule URL for page n.
func (b *Builder) PageURL(n int) string {
	return strings.ReplaceAll(b.cfg.URLTemplate, "{page}", strconv.Itoa(n))
}

// Build fetches pages 1..Pages. A page that fails is logged and skipped;
// Build fails only when ctx is cancelled.
func (b *Builder) Build(ctx context.Context) (*TV, error) {
	tv := &TV{Generator: b.cfg.Generator}
	known := make(map[string]bool)

	for n := 1; n <= b.cfg.Pages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var page Page
		if err := b.getter.GetJSON(ctx, b.PageURL(n), &page); err != nil {
			b.log.Warn("schedule page unavailable", "page", n, "error", err)
			continue
		}
		if len(page.Data) == 0 {
			b.log.Debug("schedule page empty", "page", n)
		}
		b.add(tv, known, page)
	}
	b.log.Info("guide built", "channels", len(tv.Channels), "programmes", len(tv.Programmes))
	return tv, nil
}

func (b *Builder) add(tv *TV, known map[string]bool, page Page) {
	for _, day := range page.Data {
		for i, ch := range day.Channels {
			id := channelID(ch, i)
			if !known[id] {
				known[id] = true
				tv.Channels = append(tv.Channels, TVChannel{ID: id, DisplayName: ch.Title})
			}
			for _, prog := range ch.Programs {
				start, stop, ok := programmeTimes(day.Date, prog)
				if !ok {
					continue
				}
				tv.Programmes = append(tv.Programmes, Programme{
					Start:   start,
					Stop:    stop,
					Channel: id,
					Title:   LangValue{Lang: b.cfg.Lang, Value: prog.Name},
					Desc:    LangValue{Lang: b.cfg.Lang, Value: prog.Description},
				})
			}
		}
	}
}

// channelID is "channel_<id>"; channels without an id fall back to their
// title, then to their position.
func channelID(ch Channel, pos int) string {
	switch {
	case ch.ID != "":
		return "channel_" + string(ch.ID)
	case strings.TrimSpace(ch.Title) != "":
		return "channel_" + strings.Join(strings.Fields(strings.ToLower(ch.Title)), "-")
	default:
		return fmt.Sprintf("channel_unknown_%d", pos)
	}
}

// programmeTimes formats start and stop as XMLTV timestamps. A stop at or
// before start is taken to be past midnight.
func programmeTimes(date string, p Program) (string, string, bool) {
	if p.StartTime == "" || p.EndTime == "" {
		return "", "", false
	}
	start, err := time.Parse(scheduleLayout, date+" "+p.StartTime)
	if err != nil {
		return "", "", false
	}
	stop, err := time.Parse(scheduleLayout, date+" "+p.EndTime)
	if err != nil {
		return "", "", false
	}
	if !stop.After(start) {
		stop = stop.AddDate(0, 0, 1)
	}
	return start.Format(timestampLayout), stop.Format(timestampLayout), true
}

// Write encodes tv as indented XMLTV.
func Write(w io.Writer, tv *TV) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes tv to path atomically.
func WriteFile(path string, tv *TV) error {
	var buf bytes.Buffer
	if err := Write(&buf, tv); err != nil {
		return err
	}
	if err := store.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write guide %s: %w", path, err)
	}
	return nil
}
