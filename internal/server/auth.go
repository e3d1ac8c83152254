package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IssueToken exchanges email and password for a bearer token.
func (s *Server) IssueToken(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.userSvc.Authenticate(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respondWithToken(c, http.StatusOK, user, "")
}

// AcceptInvitation sets the password of an invited user and signs them in.
func (s *Server) AcceptInvitation(c *gin.Context) {
	var req tokenPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.userSvc.AcceptInvitation(c.Request.Context(), strings.TrimSpace(req.Token), req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respondWithToken(c, http.StatusOK, user, "Your password was set successfully. You are now signed in.")
}

// CompletePasswordReset consumes a reset token sent by ResetPartnerUserPassword.
func (s *Server) CompletePasswordReset(c *gin.Context) {
	var req tokenPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.userSvc.ResetPassword(c.Request.Context(), strings.TrimSpace(req.Token), req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respondWithToken(c, http.StatusOK, user, "Your password has been changed successfully.")
}

func (s *Server) respondWithToken(c *gin.Context, status int, user *userdomain.User, message string) {
	raw, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{"data": tokenResponse{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}
