package server

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/partnerdesk/internal/authorization"
	obscontext "github.com/smallbiznis/partnerdesk/internal/observability/context"
	organizationdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	"github.com/smallbiznis/partnerdesk/internal/orgcontext"
)

type ActorType string

const ActorUser ActorType = "user"

// partnerScope resolves the partner a request acts for and checks action on it.
// Partner users act for their own partner; organization admins may name a
// partner of their organization with ?partner_id=.
func (s *Server) partnerScope(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		partner, err := s.resolvePartner(c, action)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := orgcontext.WithPartnerID(c.Request.Context(), partner.ID)
		ctx = orgcontext.WithOrgID(ctx, partner.OrgID)
		ctx = obscontext.WithPartnerID(ctx, partner.ID.String())
		ctx = obscontext.WithOrgID(ctx, partner.OrgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPartnerIDKey, partner.ID)
		c.Next()
	}
}

func (s *Server) resolvePartner(c *gin.Context, action string) (*organizationdomain.Partner, error) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return nil, ErrUnauthorized
	}
	ctx := c.Request.Context()

	var partnerID snowflake.ID
	if raw := strings.TrimSpace(c.Query("partner_id")); raw != "" {
		id, err := parseOptionalSnowflakeID(raw)
		if err != nil {
			return nil, ErrPartnerOnly
		}
		partnerID = *id
	} else {
		scope, err := s.authzSvc.Scope(ctx, userID)
		if err != nil {
			return nil, err
		}
		id, ok := scope.PrimaryPartner()
		if !ok {
			return nil, ErrPartnerOnly
		}
		partnerID = id
	}

	partner, err := s.organizationSvc.GetPartner(ctx, partnerID)
	if err != nil {
		if errors.Is(err, organizationdomain.ErrNotFound) {
			return nil, ErrPartnerOnly
		}
		return nil, err
	}

	err = s.authzSvc.Authorize(ctx, userID, authorization.PartnerDomain(partner.ID), authorization.ObjectRequest, action)
	if errors.Is(err, authorization.ErrForbidden) {
		err = s.authzSvc.Authorize(ctx, userID, authorization.OrgDomain(partner.OrgID), authorization.ObjectRequest, action)
	}
	if err != nil {
		if errors.Is(err, authorization.ErrForbidden) {
			return nil, ErrPartnerOnly
		}
		return nil, err
	}
	return partner, nil
}

func partnerIDFromContext(c *gin.Context) snowflake.ID {
	value, ok := c.Get(contextPartnerIDKey)
	if !ok {
		return 0
	}
	id, _ := value.(snowflake.ID)
	return id
}
