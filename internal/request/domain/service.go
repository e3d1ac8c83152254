package domain

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/partnerdesk/internal/catalog/domain"
	"github.com/smallbiznis/partnerdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

type Service interface {
	// Build consolidates and validates a submission without saving it.
	Build(ctx context.Context, req CreateRequest) (*Request, error)
	// Create builds the request and saves it together with the partner
	// notification. When validation fails the returned Request still holds
	// the submitted state and the error is a *ValidationErrors.
	Create(ctx context.Context, req CreateRequest) (*Request, error)
	Get(ctx context.Context, partnerID, id snowflake.ID) (*Request, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	RequestableItems(ctx context.Context, partnerID snowflake.ID) ([]catalogdomain.ValidItem, error)
	PickList(ctx context.Context, partnerID, id snowflake.ID) (io.Reader, error)
}

// Notifier informs the partner's organization about a new request. It runs
// inside the save transaction; an error rolls the request back.
type Notifier interface {
	NotifyRequestCreated(ctx context.Context, tx *gorm.DB, req *Request) error
}

type CreateRequest struct {
	PartnerID     snowflake.ID
	PartnerUserID snowflake.ID
	RequestType   string
	Comments      string
	LineItems     []LineItemInput
	Overrides     Overrides
}

// LineItemInput is one submitted row, before consolidation.
type LineItemInput struct {
	ItemID   string
	Unit     Unit
	Quantity string
	Children []Child
}

// Overrides are applied after consolidation to a fixed set of fields.
type Overrides struct {
	Status      *string
	RequestType *string
	CreatedAt   *time.Time
}

type ListRequest struct {
	PartnerID snowflake.ID
	pagination.Pagination
}

type ListResponse struct {
	Requests []RequestListItem
	PageInfo pagination.PageInfo
	// Total counts every request of the partner, across pages.
	Total int64
}

type RequestListItem struct {
	ID            snowflake.ID `json:"id"`
	RequestType   string       `json:"request_type"`
	Status        string       `json:"status"`
	Comments      string       `json:"comments"`
	TotalQuantity int          `json:"total_quantity"`
	CreatedAt     time.Time    `json:"created_at"`
}
