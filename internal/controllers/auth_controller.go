package controllers

import (
	"errors"
	"log"
	"net/http"

	"linkboard-be/internal/models"
	"linkboard-be/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

// Register handles POST /api/v1/auth/register - creates an operator account
// and returns a token so the operator is logged in straight away
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	response, err := ac.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{
				"error": "An account with this email already exists",
			})
		default:
			log.Printf("ERROR: register operator: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to register",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Login handles POST /api/v1/auth/login. Unknown email and wrong password
// both come back as the same 401.
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	response, err := ac.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid email or password",
			})
		default:
			log.Printf("ERROR: login operator: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to log in",
			})
		}
		return
	}

	c.JSON(http.StatusOK, response)
}
