package entities

import "time"

// Link represents a curated link entity in the database.
// ThumbnailURL always points at the re-hosted copy of the preview image in
// the object store, never at the source site's CDN.
type Link struct {
	ID             string    `json:"id"` // UUID
	DestinationURL string    `json:"destination_url"`
	ThumbnailURL   string    `json:"thumbnail_url"`
	CreatedAt      time.Time `json:"created_at"`
}
