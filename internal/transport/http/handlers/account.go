package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arkadem/campus-platform-iam/internal/transport/http/middleware"
	"github.com/arkadem/campus-platform-iam/internal/usecase"
)

// AccountHandler exposes profile endpoints for the authenticated account.
type AccountHandler struct {
	accounts *usecase.AccountService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes binds profile routes; all of them require authentication.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	r.GET("/me", requireAuth, h.me)
	r.PATCH("/me/nickname", requireAuth, h.updateNickname)
	r.POST("/me/password", requireAuth, h.changePassword)
	r.POST("/me/deactivate", requireAuth, h.deactivate)
}

var profileErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidArgument, Status: http.StatusBadRequest, Message: "invalid request"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
	{Err: usecase.ErrInvalidStatus, Status: http.StatusForbidden, Message: "account is not active"},
}

// resolveSelf turns the token's address into the caller's account.
func (h *AccountHandler) resolveSelf(c *gin.Context) (string, bool) {
	address := middleware.GetAddress(c)
	if address == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return "", false
	}

	account, err := h.accounts.GetByEmail(c.Request.Context(), address)
	if err != nil {
		RespondWithMappedError(c, err, profileErrorCases, http.StatusInternalServerError, "failed to load account")
		return "", false
	}

	return account.ID, true
}

func (h *AccountHandler) me(c *gin.Context) {
	address := middleware.GetAddress(c)
	if address == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.accounts.GetByEmail(c.Request.Context(), address)
	if err != nil {
		RespondWithMappedError(c, err, profileErrorCases, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account.Sanitized()))
}

func (h *AccountHandler) updateNickname(c *gin.Context) {
	var req UpdateNicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "nickname is required"))
		return
	}

	id, ok := h.resolveSelf(c)
	if !ok {
		return
	}

	account, err := h.accounts.UpdateNickname(c.Request.Context(), id, req.Nickname)
	if err != nil {
		RespondWithMappedError(c, err, profileErrorCases, http.StatusInternalServerError, "failed to update nickname")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account.Sanitized()))
}

var changePasswordErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidArgument, Status: http.StatusBadRequest, Message: "invalid request"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
	{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
	{Err: usecase.ErrInvalidStatus, Status: http.StatusForbidden, Message: "account is not active"},
}

func (h *AccountHandler) changePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "old_password and new_password are required"))
		return
	}

	id, ok := h.resolveSelf(c)
	if !ok {
		return
	}

	if err := h.accounts.UpdatePassword(c.Request.Context(), id, req.OldPassword, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, changePasswordErrorCases, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

func (h *AccountHandler) deactivate(c *gin.Context) {
	id, ok := h.resolveSelf(c)
	if !ok {
		return
	}

	if err := h.accounts.Deactivate(c.Request.Context(), id); err != nil {
		RespondWithMappedError(c, err, profileErrorCases, http.StatusInternalServerError, "failed to deactivate account")
		return
	}

	c.Status(http.StatusNoContent)
}
