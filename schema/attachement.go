package schema

// Image is an inline image payload attached to a message
type Image struct {
	// Data raw image bytes
	Data []byte `json:"-"`
	// MimeType image media type, e.g. image/jpeg
	MimeType string `json:"mime_type,omitempty"`
}

// Attachement message attachement
type Attachement struct {
	// ImageURLs attached image_url
	ImageURLs []string `json:"image_url,omitempty"`
	// Images attached inline images
	Images []Image `json:"-"`
}

// NewImageAttachement returns an Attachement holding a single inline image
func NewImageAttachement(data []byte, mimeType string) *Attachement {
	return &Attachement{
		Images: []Image{{Data: data, MimeType: mimeType}},
	}
}

// HasImages reports whether the attachement carries any image
func (a *Attachement) HasImages() bool {
	return a != nil && (len(a.Images) > 0 || len(a.ImageURLs) > 0)
}
