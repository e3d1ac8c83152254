package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/partnerdesk/internal/observability/context"
)

const (
	contextUserIDKey    = "user_id"
	contextPartnerIDKey = "partner_id"
	bearerPrefix        = "bearer "
)

// AuthRequired verifies the bearer token and records the acting user.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.tokens.Verify(header[len(bearerPrefix):])
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), string(ActorUser), userID.String()))
		c.Next()
	}
}

func userIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(snowflake.ID)
	return id, ok && id != 0
}
