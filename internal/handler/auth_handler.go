package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"userhub/internal/auth"
	"userhub/internal/errors"
	"userhub/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Identity is the public part of a registered user.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Message string   `json:"message"`
	User    Identity `json:"user"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MeUser is the identity decoded from the caller's token.
type MeUser struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	Message string `json:"message"`
	User    MeUser `json:"user"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		User:    Identity{Name: user.Name, Email: user.Email},
	})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Message:   "Login successful",
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
	})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return respondError(errors.ErrUnauthorized)
	}
	return c.JSON(http.StatusOK, MeResponse{
		Message: "Authenticated",
		User:    MeUser{UserID: id.UserID.String(), Name: id.Name},
	})
}
