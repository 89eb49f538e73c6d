package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/review-portal/internal/constants"
	"github.com/yukikurage/review-portal/internal/dto"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
	"github.com/yukikurage/review-portal/internal/middleware"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/services"
	"github.com/yukikurage/review-portal/internal/utils"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	ssoService  *services.SSOService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, ssoService *services.SSOService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		ssoService:  ssoService,
	}
}

// Register creates a new account. Managers must be approved before they can
// sign in.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Email    string      `json:"email" binding:"required,email"`
		Password string      `json:"password" binding:"required"`
		Role     models.Role `json:"role" binding:"required,role"`
		Name     string      `json:"name" binding:"required,max=100"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Name:     req.Name,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if !startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*actor))
}

// UpdateCurrentUser edits the signed-in user's name or password.
func (h *AuthHandler) UpdateCurrentUser(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateProfileRequest struct {
		Name     *string `json:"name" binding:"omitempty,max=100"`
		Password *string `json:"password"`
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), actor, services.UpdateProfileInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// LinkSSO attaches an external identity to the signed-in account.
func (h *AuthHandler) LinkSSO(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type LinkSSORequest struct {
		Provider string `json:"provider" binding:"required"`
		Code     string `json:"code" binding:"required"`
	}

	var req LinkSSORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.ssoService.Link(c.Request.Context(), actor, req.Provider, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// StartSSO sends the browser to the provider's consent page. The state it
// carries is kept in the session and checked by SSOCallback.
func (h *AuthHandler) StartSSO(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))

	state, err := utils.GenerateState()
	if err != nil {
		apierrors.InternalError(c, "Failed to start sign-in")
		return
	}
	target, err := h.ssoService.AuthURL(provider, state)
	if err != nil {
		respondError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeySSO, provider+" "+state)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}
	c.Redirect(http.StatusFound, target)
}

// SSOCallback completes an SSO sign-in with the provider's authorization code.
func (h *AuthHandler) SSOCallback(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	code := c.Query("code")
	if code == "" {
		apierrors.BadRequest(c, "Missing authorization code")
		return
	}
	if h.ssoService.RequiresState(provider) && !consumeSSOState(c, provider, c.Query("state")) {
		respondError(c, services.ErrSSOStateMismatch)
		return
	}

	user, err := h.ssoService.Login(c.Request.Context(), provider, code)
	if err != nil {
		respondError(c, err)
		return
	}

	if !startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ListSSOProviders returns the providers accepted by the callback route.
func (h *AuthHandler) ListSSOProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.ssoService.Providers()})
}

// consumeSSOState removes the pending sign-in from the session and reports
// whether it was started for provider with state.
func consumeSSOState(c *gin.Context, provider, state string) bool {
	session := sessions.Default(c)
	pending, _ := session.Get(constants.SessionKeySSO).(string)
	if pending == "" || state == "" {
		return false
	}
	session.Delete(constants.SessionKeySSO)
	_ = session.Save()

	want := provider + " " + state
	return subtle.ConstantTimeCompare([]byte(pending), []byte(want)) == 1
}

func startSession(c *gin.Context, user *models.User) bool {
	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return false
	}
	return true
}
