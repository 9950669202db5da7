package breed

// FromImage maps a raw image record to a Breed.
//
// The first breed entry supplies the breed fields; an image without breed
// metadata becomes a breed keyed by the image id with placeholder fields.
// IsFavorite is always false.
func FromImage(img RawImage) Breed {
	b := Breed{
		ID:          img.ID,
		Name:        Unknown,
		Origin:      Unknown,
		Temperament: Unknown,
		Description: NoDescription,
		LifeSpan:    Unknown,
		ImageURL:    img.URL,
	}
	if len(img.Breeds) == 0 {
		return b
	}

	meta := img.Breeds[0]
	b.ID = meta.ID
	b.Name = orDefault(meta.Name, Unknown)
	b.Origin = orDefault(meta.Origin, Unknown)
	b.Temperament = orDefault(meta.Temperament, Unknown)
	b.Description = orDefault(meta.Description, NoDescription)
	b.LifeSpan = orDefault(meta.LifeSpan, Unknown)
	return b
}

// FromImages maps every record, preserving order.
func FromImages(imgs []RawImage) []Breed {
	out := make([]Breed, len(imgs))
	for i, img := range imgs {
		out[i] = FromImage(img)
	}
	return out
}

func orDefault(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
