package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/partnerdesk/internal/orgcontext"
	requestdomain "github.com/smallbiznis/partnerdesk/internal/request/domain"
	"github.com/smallbiznis/partnerdesk/pkg/db/pagination"
)

const msgRequestCreated = "Request was successfully created."

type createPartnerRequestBody struct {
	RequestType  string         `json:"request_type"`
	Comments     string         `json:"comments"`
	ItemRequests []lineItemBody `json:"item_requests"`
}

type lineItemBody struct {
	ItemID      flexString  `json:"item_id"`
	Quantity    flexString  `json:"quantity"`
	RequestUnit *string     `json:"request_unit"`
	Children    []childBody `json:"children"`
}

type childBody struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

func (b lineItemBody) toInput() requestdomain.LineItemInput {
	unit := requestdomain.NoUnit()
	if b.RequestUnit != nil {
		unit = requestdomain.ParseUnit(*b.RequestUnit)
	}
	children := make([]requestdomain.Child, 0, len(b.Children))
	for _, child := range b.Children {
		children = append(children, requestdomain.Child{
			ID:   strings.TrimSpace(string(child.ID)),
			Name: strings.TrimSpace(child.Name),
		})
	}
	return requestdomain.LineItemInput{
		ItemID:   string(b.ItemID),
		Unit:     unit,
		Quantity: string(b.Quantity),
		Children: children,
	}
}

func (s *Server) ListPartnerRequests(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.requestSvc.List(c.Request.Context(), requestdomain.ListRequest{
		PartnerID:  partnerIDFromContext(c),
		Pagination: query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Requests, "page_info": resp.PageInfo, "total": resp.Total})
}

// NewPartnerRequest returns what a request form needs.
func (s *Server) NewPartnerRequest(c *gin.Context) {
	items, err := s.requestSvc.RequestableItems(c.Request.Context(), partnerIDFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"items":         items,
		"units_enabled": s.policy.Get().UnitsEnabled,
		"request_types": []string{
			requestdomain.RequestTypeQuantity,
			requestdomain.RequestTypeIndividual,
			requestdomain.RequestTypeChild,
		},
	}})
}

func (s *Server) CreatePartnerRequest(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var body createPartnerRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rows := make([]requestdomain.LineItemInput, 0, len(body.ItemRequests))
	for _, item := range body.ItemRequests {
		rows = append(rows, item.toInput())
	}

	ctx := c.Request.Context()
	req, err := s.requestSvc.Create(ctx, requestdomain.CreateRequest{
		PartnerID:     partnerIDFromContext(c),
		PartnerUserID: userID,
		RequestType:   strings.TrimSpace(body.RequestType),
		Comments:      body.Comments,
		LineItems:     rows,
	})
	if err != nil {
		verrs, ok := requestdomain.AsValidationErrors(err)
		if !ok {
			AbortWithError(c, err)
			return
		}
		status, payload := mapError(verrs)
		payload.Help = s.organizationHelp(c)
		c.JSON(status, gin.H{"error": payload, "data": req})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": req, "message": msgRequestCreated})
}

// organizationHelp lists who a partner can contact when a request is rejected.
func (s *Server) organizationHelp(c *gin.Context) []string {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		return nil
	}
	org, err := s.organizationSvc.GetOrganization(c.Request.Context(), orgID)
	if err != nil {
		return nil
	}
	help := []string{"Still need help? Please contact your essentials bank, " + org.Name}
	if email := strings.TrimSpace(org.Email); email != "" {
		help = append(help, "Our email on record for them is: "+email)
	}
	return help
}

func (s *Server) GetPartnerRequest(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req, err := s.requestSvc.Get(c.Request.Context(), partnerIDFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": req})
}

func (s *Server) PrintPartnerRequest(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	r, err := s.requestSvc.PickList(c.Request.Context(), partnerIDFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if r == nil {
		AbortWithError(c, errors.New("empty pick list"))
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="request-%s.pdf"`, id.String()))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
