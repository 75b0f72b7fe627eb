package controllers

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"linkboard-be/internal/extractor"
	"linkboard-be/internal/models"
	"linkboard-be/internal/repository"
	"linkboard-be/internal/service"

	"github.com/gin-gonic/gin"
)

type LinkController struct {
	linkService service.LinkService
}

func NewLinkController(linkService service.LinkService) *LinkController {
	return &LinkController{
		linkService: linkService,
	}
}

// ListLinks handles GET /api/v1/links?page=N
func (lc *LinkController) ListLinks(c *gin.Context) {
	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid page number",
			})
			return
		}
		page = parsed
	}

	resp, err := lc.linkService.ListLinks(c.Request.Context(), page)
	if err != nil {
		// A read failure is an error, never an empty page
		log.Printf("ERROR: list links: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch links",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateLink handles POST /api/v1/links
func (lc *LinkController) CreateLink(c *gin.Context) {
	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.SourcePageURL == "" && req.ThumbnailSourceURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Either source_page_url or thumbnail_source_url is required",
		})
		return
	}

	link, err := lc.linkService.CreateLink(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, extractor.ErrThumbnailNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Thumbnail not found on source page",
			})
		case errors.Is(err, extractor.ErrFetchFailed):
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Failed to fetch from source site",
			})
		case errors.Is(err, service.ErrThumbnailTooLarge):
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Thumbnail image is too large",
			})
		default:
			log.Printf("ERROR: create link: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to add link",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, models.CreateLinkResponse{
		Message: "Link added successfully",
		Link:    link,
	})
}

// DeleteLink handles DELETE /api/v1/links/:id
func (lc *LinkController) DeleteLink(c *gin.Context) {
	id := c.Param("id")

	err := lc.linkService.DeleteLink(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid ID format",
			})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Link not found",
			})
		default:
			log.Printf("ERROR: delete link %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete link",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Link and thumbnail deleted successfully",
	})
}

// GetThumbnail handles GET /api/v1/thumbnail?url= - extraction-only preview
func (lc *LinkController) GetThumbnail(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid or missing URL",
		})
		return
	}
	if u, err := url.Parse(pageURL); err != nil || u.Scheme == "" || u.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid or missing URL",
		})
		return
	}

	thumbnail, err := lc.linkService.ResolveThumbnail(c.Request.Context(), pageURL)
	if err != nil {
		switch {
		case errors.Is(err, extractor.ErrThumbnailNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Thumbnail not found",
			})
		default:
			log.Printf("ERROR: resolve thumbnail for %s: %v", pageURL, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to fetch thumbnail",
			})
		}
		return
	}

	c.JSON(http.StatusOK, models.ThumbnailResponse{Thumbnail: thumbnail})
}
