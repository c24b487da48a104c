package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
	"github.com/arkadem/campus-platform-iam/internal/usecase"
)

// AuthHandler exposes the account lifecycle endpoints.
type AuthHandler struct {
	auth           *usecase.AuthService
	accessTokenTTL time.Duration
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, accessTokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, accessTokenTTL: accessTokenTTL}
}

// RegisterRoutes binds the lifecycle routes onto the group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register/code", h.sendRegistrationCode)
	r.POST("/register", h.register)
	r.POST("/login", h.login)
	r.POST("/refresh", h.refresh)
	r.POST("/logout", h.logout)
	r.POST("/password/reset/code", h.sendResetCode)
	r.POST("/password/reset", h.resetPassword)
}

var sendCodeErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidArgument, Status: http.StatusBadRequest, Message: "invalid email address"},
	{Err: usecase.ErrDuplicateAccount, Status: http.StatusConflict, Message: "email already registered"},
	{Err: usecase.ErrInvalidStatus, Status: http.StatusForbidden, Message: "account status does not permit registration"},
	{Err: usecase.ErrRateLimited, Status: http.StatusTooManyRequests, Message: "code already sent, try again later"},
	{Err: usecase.ErrDeliveryFailed, Status: http.StatusBadGateway, Message: "failed to deliver verification code"},
}

func (h *AuthHandler) sendRegistrationCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	if err := h.auth.SendRegistrationCode(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, sendCodeErrorCases, http.StatusInternalServerError, "failed to send verification code")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
}

var registerErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidArgument, Status: http.StatusBadRequest, Message: "invalid registration payload"},
	{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
	{Err: usecase.ErrCodeExpired, Status: http.StatusBadRequest, Message: "verification code expired"},
	{Err: usecase.ErrCodeInvalid, Status: http.StatusBadRequest, Message: "verification code invalid"},
	{Err: usecase.ErrDuplicateAccount, Status: http.StatusConflict, Message: "email already registered"},
	{Err: usecase.ErrInvalidStatus, Status: http.StatusForbidden, Message: "account status does not permit registration"},
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	account, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Email:           req.Email,
		Nickname:        req.Nickname,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Code:            req.Code,
	})
	if err != nil {
		RespondWithMappedError(c, err, registerErrorCases, http.StatusInternalServerError, "failed to register account")
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{Account: newAccountSummary(account.Sanitized())})
}

var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidArgument, Status: http.StatusBadRequest, Message: "invalid login payload"},
	{Err: usecase.ErrAccountLocked, Status: http.StatusTooManyRequests, Message: "too many failed attempts, try again later"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Err: usecase.ErrInvalidStatus, Status: http.StatusForbidden, Message: "account is not active"},
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "authentication failed")
		return
	}

	c.JSON(http.StatusOK, h.tokenPair(result))
}

var refreshErrorCases = []ErrorCase{
	{Err: usecase.ErrRefreshTokenInvalid, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
	{Err: usecase.ErrInvalidStatus, Status: http.StatusForbidden, Message: "account is not active"},
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithMappedError(c, err, refreshErrorCases, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	c.JSON(http.StatusOK, h.tokenPair(result))
}

func (h *AuthHandler) logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		RespondWithMappedError(c, err, logoutErrorCases, http.StatusInternalServerError, "failed to logout")
		return
	}

	c.Status(http.StatusNoContent)
}

var logoutErrorCases = []ErrorCase{
	{Err: usecase.ErrRefreshTokenInvalid, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
}

var resetCodeErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidArgument, Status: http.StatusBadRequest, Message: "invalid email address"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
	{Err: usecase.ErrInvalidStatus, Status: http.StatusForbidden, Message: "account is not active"},
	{Err: usecase.ErrRateLimited, Status: http.StatusTooManyRequests, Message: "code already sent, try again later"},
	{Err: usecase.ErrDeliveryFailed, Status: http.StatusBadGateway, Message: "failed to deliver verification code"},
}

func (h *AuthHandler) sendResetCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	if err := h.auth.SendPasswordResetCode(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, resetCodeErrorCases, http.StatusInternalServerError, "failed to send reset code")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "reset code sent"})
}

var resetPasswordErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidArgument, Status: http.StatusBadRequest, Message: "invalid reset payload"},
	{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
	{Err: usecase.ErrCodeExpired, Status: http.StatusBadRequest, Message: "verification code expired"},
	{Err: usecase.ErrCodeInvalid, Status: http.StatusBadRequest, Message: "verification code invalid"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
	{Err: usecase.ErrInvalidStatus, Status: http.StatusForbidden, Message: "account is not active"},
}

func (h *AuthHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	if err := h.auth.ResetPasswordByCode(c.Request.Context(), req.Email, req.Code, req.Password, req.ConfirmPassword); err != nil {
		RespondWithMappedError(c, err, resetPasswordErrorCases, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

func (h *AuthHandler) tokenPair(result *domain.LoginResult) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.accessTokenTTL.Seconds()),
		Account:      newAccountSummary(result.Account),
	}
}
