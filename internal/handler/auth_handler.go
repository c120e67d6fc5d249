package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/service"
	"github.com/noah-isme/classmirror-api/internal/utils"
)

const sessionTokenTTL = 24 * time.Hour

// AuthHandler provisions principals from OAuth callbacks and issues session
// tokens.
type AuthHandler struct {
	principals service.PrincipalService
	jwtSecret  string
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewAuthHandler creates a new handler instance.
func NewAuthHandler(principals service.PrincipalService, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		principals: principals,
		jwtSecret:  jwtSecret,
		validate:   validator.New(),
		logger:     logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches the auth endpoints. The login route is public; me
// requires a session.
func (h *AuthHandler) Register(public fiber.Router, protected fiber.Router) {
	public.Post("/login", h.login)
	protected.Get("/me", h.me)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var request dto.LoginRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(request); err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	principal, err := h.principals.UpsertFromLogin(c.Context(), request)
	if err != nil {
		h.logger.Error().Err(err).Str("external_id", request.ExternalID).Msg("login provisioning failed")
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	token, err := h.issueSessionToken(principal.ID, principal.Role)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to sign session token")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to issue session")
	}

	return utils.SendSuccess(c, "login successful", dto.LoginResponse{
		Principal: dto.NewPrincipalResponse(principal),
		Token:     token,
	})
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	principalID := principalIDFromContext(c)
	if principalID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing principal context")
	}

	principal, err := h.principals.GetByID(c.Context(), principalID)
	if err != nil {
		status, message := statusFromError(err)
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "principal retrieved", dto.NewPrincipalResponse(principal))
}

func (h *AuthHandler) issueSessionToken(principalID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  principalID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(sessionTokenTTL).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
}
