package models

import "linkboard-be/internal/entities"

// CreateLinkResponse represents the response after registering a link
type CreateLinkResponse struct {
	Message string         `json:"message"`
	Link    *entities.Link `json:"link"`
}

// ListLinksResponse represents one page of the newest-first link listing
type ListLinksResponse struct {
	Links   []*entities.Link `json:"links"`
	HasMore bool             `json:"has_more"`
	Page    int              `json:"page"`
}

// ThumbnailResponse represents the response of the thumbnail preview endpoint
type ThumbnailResponse struct {
	Thumbnail string `json:"thumbnail"`
}
