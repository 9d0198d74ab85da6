package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/shafran-auth/internal/middleware"
	"github.com/example/shafran-auth/internal/services"
	"github.com/example/shafran-auth/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth      *services.AuthService
	validator *utils.Validator
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, validator *utils.Validator) *AuthHandler {
	return &AuthHandler{auth: auth, validator: validator}
}

type registerRequest struct {
	Phone string `json:"phone" validate:"required"`
	Name  string `json:"name" validate:"required,max=100"`
}

type loginRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type verifyRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,max=16"`
}

func (h *AuthHandler) parse(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Validate(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// Register sends a verification code to a new phone number.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.Name = strings.TrimSpace(req.Name)

	if err := h.auth.RequestRegistrationCode(c.UserContext(), req.Phone, req.Name); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "verification code sent",
		"phone":   req.Phone,
	})
}

// Verify confirms a registration code and returns a session token.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	result, err := h.auth.ConfirmRegistration(c.UserContext(), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Code))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "registration successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

// Login sends a verification code to a registered phone number.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	req.Phone = strings.TrimSpace(req.Phone)

	if err := h.auth.RequestLoginCode(c.UserContext(), req.Phone); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "verification code sent",
		"phone":   req.Phone,
	})
}

// LoginVerify confirms a login code and returns a session token.
func (h *AuthHandler) LoginVerify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	result, err := h.auth.ConfirmLoginCode(c.UserContext(), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Code))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "login successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

// Me returns the user behind the bearer token.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing authorization token")
	}

	user, err := h.auth.CurrentUser(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}
