// internal/api/v1/types.go
package v1

import (
	"time"

	"github.com/vmunix/vodcat/internal/catalog"
	"github.com/vmunix/vodcat/internal/history"
	"github.com/vmunix/vodcat/internal/pipeline"
	"github.com/vmunix/vodcat/internal/server"
)

type statusResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Running    bool              `json:"running"`
	LastRun    *time.Time        `json:"last_run,omitempty"`
	NextRun    *time.Time        `json:"next_run,omitempty"`
	Categories int               `json:"categories"`
	Results    []resultResponse  `json:"results"`
	JobErrors  map[string]string `json:"job_errors,omitempty"`
}

type resultResponse struct {
	Category   string `json:"category"`
	RunID      string `json:"run_id,omitempty"`
	Status     string `json:"status"`
	Items      int    `json:"items"`
	Episodes   int    `json:"episodes_added"`
	Movies     int    `json:"movies_added"`
	NewSeries  int    `json:"new_series"`
	Known      int    `json:"known"`
	Unresolved int    `json:"unresolved"`
	Failed     int    `json:"failed_items"`
	Skipped    int    `json:"skipped_items"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type categoryResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

type catalogResponse struct {
	Category string           `json:"category"`
	Series   []seriesResponse `json:"series"`
	Movies   []movieResponse  `json:"movies"`
}

type seriesResponse struct {
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Episodes []episodeResponse `json:"episodes"`
}

type episodeResponse struct {
	CUID      int64            `json:"cuid"`
	Season    string           `json:"season"`
	Episode   string           `json:"episode"`
	Name      string           `json:"name,omitempty"`
	ImageURL  string           `json:"image_url"`
	StreamID  catalog.StreamID `json:"stream_id"`
	StreamURL string           `json:"stream_url,omitempty"`
}

type movieResponse struct {
	CUID          int64             `json:"cuid"`
	Title         string            `json:"title"`
	Category      string            `json:"category"`
	Synopsis      string            `json:"synopsis"`
	Info          map[string]string `json:"info"`
	VerticalImage string            `json:"vertical_image"`
	PosterImage   string            `json:"poster_image"`
	StreamID      catalog.StreamID  `json:"stream_id"`
	StreamURL     string            `json:"stream_url,omitempty"`
}

type listRunsResponse struct {
	Items []*history.Run `json:"items"`
	Total int            `json:"total"`
}

type triggerRequest struct {
	Categories []string `json:"categories"`
}

type triggerResponse struct {
	Queued []string `json:"queued"`
}

func resultToResponse(r pipeline.Result) resultResponse {
	resp := resultResponse{
		Category:   r.Category,
		RunID:      r.RunID,
		Status:     r.Status(),
		Items:      r.Items,
		Episodes:   r.Stats.Episodes,
		Movies:     r.Stats.Movies,
		NewSeries:  r.Stats.NewSeries,
		Known:      r.Known + r.Stats.Duplicates,
		Unresolved: r.Unresolved,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

func statusToResponse(st server.Status, categories int) statusResponse {
	resp := statusResponse{
		Status:     "ok",
		Running:    st.Running,
		Categories: categories,
		Results:    make([]resultResponse, 0, len(st.Results)),
		JobErrors:  st.JobError,
	}
	if !st.LastRun.IsZero() {
		resp.LastRun = &st.LastRun
	}
	if !st.NextRun.IsZero() {
		resp.NextRun = &st.NextRun
	}
	for _, r := range st.Results {
		resp.Results = append(resp.Results, resultToResponse(r))
	}
	return resp
}

func catalogToResponse(c *catalog.Catalog) catalogResponse {
	resp := catalogResponse{
		Category: c.Category,
		Series:   make([]seriesResponse, 0, len(c.Series)),
		Movies:   make([]movieResponse, 0, len(c.Movies)),
	}
	for _, sr := range c.Series {
		out := seriesResponse{
			Name:     sr.Name,
			Category: sr.Category,
			Episodes: make([]episodeResponse, 0, len(sr.Episodes)),
		}
		for _, e := range sr.Episodes {
			out.Episodes = append(out.Episodes, episodeResponse{
				CUID:      e.CUID,
				Season:    e.Season,
				Episode:   e.Label(),
				Name:      e.Name,
				ImageURL:  e.ImageURL,
				StreamID:  e.StreamID,
				StreamURL: e.StreamURL,
			})
		}
		resp.Series = append(resp.Series, out)
	}
	for _, m := range c.Movies {
		resp.Movies = append(resp.Movies, movieResponse{
			CUID:          m.CUID,
			Title:         m.Title,
			Category:      m.Category,
			Synopsis:      m.Synopsis,
			Info:          m.Info,
			VerticalImage: m.VerticalImage,
			PosterImage:   m.PosterImage,
			StreamID:      m.StreamID,
			StreamURL:     m.StreamURL,
		})
	}
	return resp
}
