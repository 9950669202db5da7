package breed

// Placeholder values substituted when the remote source omits a field.
const (
	Unknown       = "Unknown"
	NoDescription = "No description"
)

// Breed is a locally cached cat breed plus its favorite status.
// It is the row shape of the breeds table.
type Breed struct {
	// ID is the breed identifier, unique in the store
	ID string `json:"id"`

	Name        string `json:"name"`
	Origin      string `json:"origin"`
	Temperament string `json:"temperament"`
	Description string `json:"description"`
	LifeSpan    string `json:"life_span"`

	// ImageURL always comes from the image record, never the breed metadata
	ImageURL string `json:"image_url"`

	// IsFavorite is owned by the local store; remote data never sets it
	IsFavorite bool `json:"is_favorite"`
}

// RawImage is an image record as returned by the image search endpoint.
// It pairs an image with zero or one breed metadata entries.
type RawImage struct {
	ID     string     `json:"id"`
	URL    string     `json:"url"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Breeds []RawBreed `json:"breeds"`
}

// RawBreed is breed metadata attached to a RawImage.
// Nil fields were absent (or null) in the payload.
type RawBreed struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Origin      *string `json:"origin"`
	Temperament *string `json:"temperament"`
	Description *string `json:"description"`
	LifeSpan    *string `json:"life_span"`
}
