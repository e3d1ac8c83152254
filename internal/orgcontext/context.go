package orgcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type orgKey struct{}

type partnerKey struct{}

// WithOrgID stores the organization that owns the current request scope.
func WithOrgID(ctx context.Context, orgID snowflake.ID) context.Context {
	return context.WithValue(ctx, orgKey{}, orgID)
}

// OrgIDFromContext returns the org ID from context, if set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(orgKey{}).(snowflake.ID)
	return id, ok && id != 0
}

// WithPartnerID stores the partner a request is acting for.
func WithPartnerID(ctx context.Context, partnerID snowflake.ID) context.Context {
	return context.WithValue(ctx, partnerKey{}, partnerID)
}

func PartnerIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(partnerKey{}).(snowflake.ID)
	return id, ok && id != 0
}
