package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	partneruserdomain "github.com/smallbiznis/partnerdesk/internal/partneruser/domain"
)

type invitePartnerUserRequest struct {
	User struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

func (s *Server) ListPartnerUsers(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	partnerID, err := idParam(c, "partner_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	list, err := s.partnerUserSvc.ListUsers(c.Request.Context(), userID, partnerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"partner": list.Partner,
		"users":   list.Users,
		"user":    list.Draft,
	}})
}

func (s *Server) InvitePartnerUser(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	partnerID, err := idParam(c, "partner_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req invitePartnerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.partnerUserSvc.InviteUser(c.Request.Context(), userID, partneruserdomain.InviteUserRequest{
		PartnerID: partnerID,
		Email:     strings.TrimSpace(req.User.Email),
		Name:      strings.TrimSpace(req.User.Name),
	})
	if err != nil {
		if res != nil && !res.Success {
			_, payload := mapError(err)
			payload.Message = res.Message
			c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: payload})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": res.User, "message": res.Message})
}

func (s *Server) RevokePartnerUser(c *gin.Context) {
	s.partnerUserAction(c, s.partnerUserSvc.RevokeAccess)
}

func (s *Server) ResendPartnerUserInvitation(c *gin.Context) {
	s.partnerUserAction(c, s.partnerUserSvc.ResendInvitation)
}

func (s *Server) ResetPartnerUserPassword(c *gin.Context) {
	s.partnerUserAction(c, s.partnerUserSvc.ResetPassword)
}

type partnerUserActionFunc func(ctx context.Context, actorID, partnerID, userID snowflake.ID) (*partneruserdomain.Result, error)

func (s *Server) partnerUserAction(c *gin.Context, action partnerUserActionFunc) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	partnerID, err := idParam(c, "partner_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	targetID, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := action(c.Request.Context(), actorID, partnerID, targetID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !res.Success {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: errorPayload{
			Type:    "validation_error",
			Message: res.Message,
		}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res.User, "message": res.Message})
}
