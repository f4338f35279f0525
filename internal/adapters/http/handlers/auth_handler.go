package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
	// refreshCookiePath keeps the refresh token off every request but auth ones
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler handles sign-up, sign-in and session endpoints
type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

// RegisterRequest links a login to an enrolled member number
type RegisterRequest struct {
	MemberNo string `json:"member_no"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) normalize() string {
	r.MemberNo = strings.ToUpper(strings.TrimSpace(r.MemberNo))
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	switch {
	case r.MemberNo == "":
		return "Member number is required"
	case len(r.Username) < 3 || len(r.Username) > 50:
		return "Username must be 3 to 50 characters"
	case r.Password == "":
		return "Password is required"
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return "A valid email is required"
	}
	return ""
}

// LoginRequest represents login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries the refresh token for clients that cannot hold cookies
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// authPayload is what sign-in style endpoints return. The refresh token is
// only echoed to clients that sent theirs in the body.
func authPayload(result *services.AuthResponse, withRefresh bool) fiber.Map {
	payload := fiber.Map{"access_token": result.AccessToken, "user": result.User}
	if withRefresh {
		payload["refresh_token"] = result.RefreshToken
	}
	return payload
}

// Register handles user registration
// @Summary Register new user
// @Description Create a login for an enrolled member. One account per member.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if msg := req.normalize(); msg != "" {
		return response.BadRequest(c, msg)
	}

	result, err := h.authService.Register(c.Context(), &services.RegisterInput{
		MemberNo: req.MemberNo,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(c),
	})
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return response.NotFound(c, "Member number not found")
		}
		return serviceError(c, err, "Failed to register user")
	}

	h.setAuthCookies(c, result)
	return response.Created(c, "User registered successfully", authPayload(result, false))
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user and return tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return response.BadRequest(c, "Username and password are required")
	}

	result, err := h.authService.Login(c.Context(), &services.LoginInput{
		Username: req.Username,
		Password: req.Password,
		Client:   clientInfo(c),
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return response.Unauthorized(c, "Invalid username or password")
		}
		return serviceError(c, err, "Failed to login")
	}

	h.setAuthCookies(c, result)
	return response.Success(c, "Login successful", authPayload(result, false))
}

// refreshFailures are the refresh errors that end the client's session
var refreshFailures = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrTokenExpired, fiber.StatusUnauthorized, "Refresh token expired, please login again"},
	{services.ErrTokenRevoked, fiber.StatusUnauthorized, "Refresh token revoked, please login again"},
	{services.ErrInvalidToken, fiber.StatusUnauthorized, "Invalid refresh token"},
	{services.ErrUserNotFound, fiber.StatusUnauthorized, "Invalid refresh token"},
	{services.ErrUserInactive, fiber.StatusForbidden, "User account is inactive"},
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Description Rotate the refresh token and issue a new access token. The token
// @Description is read from the refresh_token cookie, or from the body when no cookie is sent.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest false "Refresh token for cookieless clients"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	token, fromBody := c.Cookies(refreshCookie), false
	if token == "" {
		var req RefreshRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return response.BadRequest(c, "Invalid request body")
			}
		}
		token, fromBody = req.RefreshToken, true
	}
	if token == "" {
		return response.Unauthorized(c, "Refresh token not found")
	}

	result, err := h.authService.RefreshToken(c.Context(), token, clientInfo(c))
	if err != nil {
		for _, f := range refreshFailures {
			if errors.Is(err, f.err) {
				h.clearAuthCookies(c)
				return response.Error(c, f.status, f.message)
			}
		}
		return serviceError(c, err, "Failed to refresh token")
	}

	if !fromBody {
		h.setAuthCookies(c, result)
	}
	return response.Success(c, "Token refreshed successfully", authPayload(result, fromBody))
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the refresh token and clear cookies
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(refreshCookie); token != "" {
		_ = h.authService.Logout(c.Context(), token)
	}

	h.clearAuthCookies(c)
	return response.Success(c, "Logged out successfully", nil)
}

// LogoutAll handles logout from all devices
// @Summary Logout from all devices
// @Description Revoke all refresh tokens for the user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	revoked, err := h.authService.LogoutAll(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to logout from all devices")
	}

	h.clearAuthCookies(c)
	return response.Success(c, "Logged out from all devices", fiber.Map{"revoked": revoked})
}

// Sessions lists the devices the user is signed in on
// @Summary List sessions
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/sessions [get]
func (h *AuthHandler) Sessions(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	sessions, err := h.authService.Sessions(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to list sessions")
	}
	return response.Success(c, "Sessions retrieved successfully", sessions)
}

// RevokeSession signs one device out
// @Summary Revoke a session
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/sessions/{id} [delete]
func (h *AuthHandler) RevokeSession(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid session ID")
	}

	if err := h.authService.RevokeSession(c.Context(), userID, id); err != nil {
		return serviceError(c, err, "Failed to revoke session")
	}
	return response.Success(c, "Session revoked", nil)
}

// Me returns the current user info
// @Summary Get current user
// @Description Get the signed-in user with member name and avatar
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.authService.Me(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to get user")
	}
	return response.Success(c, "User retrieved successfully", fiber.Map{"user": user})
}

func clientInfo(c *fiber.Ctx) services.ClientInfo {
	return services.ClientInfo{UserAgent: c.Get(fiber.HeaderUserAgent), IP: c.IP()}
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, result *services.AuthResponse) {
	c.Cookie(h.cookie(accessCookie, "/", result.AccessToken, h.cfg.JWT.AccessTokenMins*60))
	c.Cookie(h.cookie(refreshCookie, refreshCookiePath, result.RefreshToken, h.cfg.JWT.RefreshTokenDays*24*60*60))
}

func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	c.Cookie(h.cookie(accessCookie, "/", "", -1))
	c.Cookie(h.cookie(refreshCookie, refreshCookiePath, "", -1))
}

// cookie builds an HTTP-only auth cookie. A negative maxAge deletes it.
func (h *AuthHandler) cookie(name, path, value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	}
}
