package metadata

// Person is an author or narrator entry.
type Person struct {
	ASIN string `json:"asin,omitempty"`
	Name string `json:"name"`
}

// Genre is a genre or tag entry; Type discriminates the two.
type Genre struct {
	ASIN string `json:"asin,omitempty"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Series describes the series a book belongs to.
type Series struct {
	ASIN     string `json:"asin,omitempty"`
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
}

// Record models the metadata service book payload.
type Record struct {
	ASIN          string   `json:"asin"`
	Title         string   `json:"title"`
	Subtitle      *string  `json:"subtitle,omitempty"`
	Authors       []Person `json:"authors"`
	Narrators     []Person `json:"narrators"`
	Genres        []Genre  `json:"genres"`
	Language      string   `json:"language"`
	ReleaseDate   string   `json:"releaseDate"`
	Summary       string   `json:"summary"`
	PublisherName string   `json:"publisherName"`
	SeriesPrimary *Series  `json:"seriesPrimary,omitempty"`
}

const (
	GenreTypeGenre = "genre"
	GenreTypeTag   = "tag"
)
