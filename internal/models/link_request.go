package models

// CreateLinkRequest represents the request body for registering a new link.
// One of SourcePageURL or ThumbnailSourceURL must be set: either we scrape
// the page for its og:image, or the caller already knows the preview image
// URL (in which case it takes precedence and no scrape happens). Either way
// the image is downloaded and re-hosted before the record is persisted.
type CreateLinkRequest struct {
	DestinationURL     string `json:"destination_url" binding:"required,url"`
	SourcePageURL      string `json:"source_page_url,omitempty" binding:"omitempty,url"`
	ThumbnailSourceURL string `json:"thumbnail_source_url,omitempty" binding:"omitempty,url"`
}
