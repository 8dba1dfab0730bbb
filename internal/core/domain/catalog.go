package domain

// CatalogItem is one loop in the sample library. BPM is 0 and Key is ""
// when the catalog does not know them.
type CatalogItem struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Name     string  `json:"name,omitempty"`
	BPM      float64 `json:"bpm"`
	Key      string  `json:"key"`
	Category string  `json:"category,omitempty"`
	DrumType string  `json:"drumType,omitempty"`
	URL      string  `json:"url"`
}

// Recommendation pairs a catalog item with its compatibility score. The
// score is internal ranking state and is not serialised.
type Recommendation struct {
	Item  CatalogItem
	Score float64 `json:"-"`
}

// ExtractedFilters are the structured search facets recovered from free
// text. Empty fields mean "not mentioned".
type ExtractedFilters struct {
	LoopType      string `json:"loopType,omitempty"`
	Instrument    string `json:"instrument,omitempty"`
	Genre         string `json:"genre,omitempty"`
	Keyword       string `json:"keyword,omitempty"`
	Key           string `json:"key,omitempty"`
	TimeSignature string `json:"timeSignature,omitempty"`
}

// Empty reports whether nothing was recognised.
func (f ExtractedFilters) Empty() bool {
	return f == ExtractedFilters{}
}
