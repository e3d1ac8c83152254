package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// PickListData is what a warehouse needs to pull a partner request.
type PickListData struct {
	OrganizationName string
	PartnerName      string
	RequestID        string
	RequestType      string
	RequestedAt      string
	Comments         string
	Items            []PickListItem
}

type PickListItem struct {
	Name       string
	PartnerKey string
	Quantity   int
	Unit       string
}

type PDFProvider struct{}

func NewProvider() *PDFProvider {
	return &PDFProvider{}
}

func (p *PDFProvider) GeneratePickList(ctx context.Context, data PickListData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Request pick list", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.OrganizationName, props.Text{
			Size:  10,
			Align: align.Right,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Partner: "+data.PartnerName, props.Text{Top: 0}),
			text.New("Request: "+data.RequestID, props.Text{Top: 5}),
			text.New("Type: "+data.RequestType, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Requested at: "+data.RequestedAt, props.Text{Align: align.Right}),
		),
	)

	if data.Comments != "" {
		m.AddRow(15,
			text.NewCol(12, "Comments: "+data.Comments, props.Text{Size: 9}),
		)
	}

	m.AddRow(10,
		text.NewCol(5, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Partner key", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Quantity", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	total := 0
	for _, item := range data.Items {
		total += item.Quantity
		m.AddRow(8,
			text.NewCol(5, item.Name, props.Text{Size: 9}),
			text.NewCol(3, item.PartnerKey, props.Text{Size: 9}),
			text.NewCol(2, strconv.Itoa(item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Unit, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(6),
		text.NewCol(4, "Total items", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, fmt.Sprintf("%d", total), props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
