package controller

import (
	"errors"
	"net/http"

	"ecommerce-api/internal/dto"
	"ecommerce-api/internal/model"
	"ecommerce-api/internal/repository"
	"ecommerce-api/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Service *service.AuthService
	Users   service.UserRepository
}

func NewAuthController(s *service.AuthService, users service.UserRepository) *AuthController {
	return &AuthController{Service: s, Users: users}
}

func toProfile(u *model.User) dto.UserProfile {
	return dto.UserProfile{
		ID:          u.ID.Hex(),
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		TotalOrders: u.TotalOrders,
		TotalSpent:  u.TotalSpent,
		LastLogin:   u.LastLogin,
	}
}

// POST /api/auth/register
func (ctl *AuthController) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := ctl.Service.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.AuthResponse{Token: token, User: toProfile(user)})
}

// POST /api/auth/login
func (ctl *AuthController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := ctl.Service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{Token: token, User: toProfile(user)})
}

// GET /api/auth/me — requiere token
func (ctl *AuthController) Me(c *gin.Context) {
	user, err := ctl.Users.FindByID(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, toProfile(user))
}
