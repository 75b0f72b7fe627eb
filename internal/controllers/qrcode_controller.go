package controllers

import (
	"errors"
	"net/http"

	"linkboard-be/internal/repository"
	"linkboard-be/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

type QRCodeController struct {
	linkService service.LinkService
}

func NewQRCodeController(linkService service.LinkService) *QRCodeController {
	return &QRCodeController{
		linkService: linkService,
	}
}

// GenerateQRCode handles GET /api/v1/links/:id/qrcode - renders a QR code
// for the link's destination URL
func (qc *QRCodeController) GenerateQRCode(c *gin.Context) {
	id := c.Param("id")

	link, err := qc.linkService.GetLink(c.Request.Context(), id)
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
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to look up link",
			})
		}
		return
	}

	// 256x256 pixels, medium error recovery
	png, err := qrcode.Encode(link.DestinationURL, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate QR code",
		})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
