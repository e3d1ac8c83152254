package authorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
)

const (
	ObjectRequest     = "request"
	ObjectPartnerUser = "partner_user"
)

const (
	ActionRequestView   = "request.view"
	ActionRequestCreate = "request.create"
	ActionRequestPrint  = "request.print"

	ActionPartnerUserManage = "partner_user.manage"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidDomain = errors.New("invalid_domain")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	// Authorize returns ErrForbidden unless userID holds a role in domain
	// that allows action on object.
	Authorize(ctx context.Context, userID snowflake.ID, domain string, object string, action string) error
	Scope(ctx context.Context, userID snowflake.ID) (Scope, error)
}

func PartnerDomain(id snowflake.ID) string {
	return fmt.Sprintf("%s:%s", userdomain.ResourcePartner, id)
}

func OrgDomain(id snowflake.ID) string {
	return fmt.Sprintf("%s:%s", userdomain.ResourceOrganization, id)
}

func subjectFor(userID snowflake.ID) string {
	return fmt.Sprintf("user:%s", userID)
}

func roleName(role string) string {
	return "role:" + role
}

// Scope lists the resources a user holds roles on.
type Scope struct {
	UserID      snowflake.ID
	PartnerIDs  []snowflake.ID
	OrgIDs      []snowflake.ID
	AdminOrgIDs []snowflake.ID
}

// PrimaryPartner is the partner a user acts for when none is named.
func (s Scope) PrimaryPartner() (snowflake.ID, bool) {
	if len(s.PartnerIDs) == 0 {
		return 0, false
	}
	return s.PartnerIDs[0], true
}

func (s Scope) IsOrgAdmin(orgID snowflake.ID) bool {
	for _, id := range s.AdminOrgIDs {
		if id == orgID {
			return true
		}
	}
	return false
}
