package scrape

// Selectors locates the parts of an item page. Fields ending in Attr name the
// attribute read from the element matched by the preceding selector.
type Selectors struct {
	Title     string `toml:"title"`
	TitleAttr string `toml:"title_attr"`

	EpisodeContainer string `toml:"episode_container"`
	EpisodeImage     string `toml:"episode_image"`
	EpisodeImageAttr string `toml:"episode_image_attr"`
	EpisodeName      string `toml:"episode_name"`

	Synopsis      string `toml:"synopsis"`
	Info          string `toml:"info"`
	InfoValue     string `toml:"info_value"`
	VerticalImage string `toml:"vertical_image"`
	PosterImage   string `toml:"poster_image"`
	ImageAttr     string `toml:"image_attr"`

	ListingLink string `toml:"listing_link"`
}

// DefaultSelectors matches the forja.ma page layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:            `meta[data-hid="title"]`,
		TitleAttr:        "content",
		EpisodeContainer: "div.episode-container",
		EpisodeImage:     "img",
		EpisodeImageAttr: "src",
		EpisodeName:      "span.episode-name",
		Synopsis:         "p.editable-content-ar",
		Info:             "div.info-datas",
		InfoValue:        "a, span",
		VerticalImage:    `img[alt="Contenu principal vertical image"]`,
		PosterImage:      `img[alt="Contenu poster image"]`,
		ImageAttr:        "src",
		ListingLink:      "a[href]",
	}
}

// WithDefaults fills every empty field from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&s.Title, d.Title)
	fill(&s.TitleAttr, d.TitleAttr)
	fill(&s.EpisodeContainer, d.EpisodeContainer)
	fill(&s.EpisodeImage, d.EpisodeImage)
	fill(&s.EpisodeImageAttr, d.EpisodeImageAttr)
	fill(&s.EpisodeName, d.EpisodeName)
	fill(&s.Synopsis, d.Synopsis)
	fill(&s.Info, d.Info)
	fill(&s.InfoValue, d.InfoValue)
	fill(&s.VerticalImage, d.VerticalImage)
	fill(&s.PosterImage, d.PosterImage)
	fill(&s.ImageAttr, d.ImageAttr)
	fill(&s.ListingLink, d.ListingLink)
	return s
}
