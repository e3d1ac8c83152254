package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/partnerdesk/internal/catalog/domain"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/request/domain"
)

const (
	msgEmptyRequest = "Ensure each line item has a item selected AND a quantity greater than 0."
	msgSingleUnit   = "Please ensure a single unit is selected for each item"
	unknownItemName = "this item"
)

// itemLookup loads the organization's valid items on first use.
type itemLookup struct {
	load   func(ctx context.Context) ([]catalogdomain.ValidItem, error)
	byID   map[snowflake.ID]catalogdomain.ValidItem
	loaded bool
}

func (l *itemLookup) find(ctx context.Context, id snowflake.ID) (catalogdomain.ValidItem, bool, error) {
	if id == 0 {
		return catalogdomain.ValidItem{}, false, nil
	}
	if !l.loaded {
		items, err := l.load(ctx)
		if err != nil {
			return catalogdomain.ValidItem{}, false, err
		}
		l.byID = make(map[snowflake.ID]catalogdomain.ValidItem, len(items))
		for _, item := range items {
			l.byID[item.ID] = item
		}
		l.loaded = true
	}
	item, ok := l.byID[id]
	return item, ok, nil
}

type consolidator struct {
	unitsEnabled bool
	childKey     func(domain.Child) string
	lookup       *itemLookup
}

func newConsolidator(policy config.RequestPolicy, lookup *itemLookup) *consolidator {
	return &consolidator{
		unitsEnabled: policy.UnitsEnabled,
		childKey:     childKeyFunc(policy.ChildrenDedupeKey),
		lookup:       lookup,
	}
}

type consolidation struct {
	items []domain.ItemRequest
	// merged counts rows folded into an earlier line.
	merged   int
	conflict bool
}

// run folds submitted rows into at most one line per item identifier.
// Rows without an item are kept as separate lines.
func (c *consolidator) run(ctx context.Context, rows []domain.LineItemInput, errs *domain.ValidationErrors) (consolidation, error) {
	var out consolidation
	index := make(map[string]int, len(rows))

	for _, row := range rows {
		raw := strings.TrimSpace(row.ItemID)
		if raw == "" && strings.TrimSpace(row.Quantity) == "" {
			continue
		}

		unit := row.Unit
		if !c.unitsEnabled {
			unit = domain.NoUnit()
		}
		quantity := coerceQuantity(row.Quantity)
		itemID := parseItemID(raw)
		key := mergeKey(raw, itemID)

		if pos, ok := index[key]; ok {
			existing := &out.items[pos]
			if existing.RequestUnit != unit {
				name, err := c.displayName(ctx, itemID)
				if err != nil {
					return consolidation{}, err
				}
				errs.AddOnce(domain.FieldBase, "Please use the same unit for every "+name)
				out.conflict = true
				continue
			}
			existing.Quantity = addQuantity(existing.Quantity, quantity)
			existing.Children = mergeChildren(existing.Children, row.Children, c.childKey)
			out.merged++
			continue
		}

		item, found, err := c.lookup.find(ctx, itemID)
		if err != nil {
			return consolidation{}, err
		}
		name := unknownItemName
		if found {
			name = item.Name
		}

		if itemID != 0 {
			switch {
			case unit.IsNoneSelected():
				errs.AddOnce(domain.FieldBase, "Please select a unit for "+name)
			case c.unitsEnabled && unit.IsNamed() && found && !item.SupportsUnit(unit.Name()):
				errs.AddOnce(domain.FieldBase, unit.Name()+" is not a supported unit for "+name)
			}
		}

		out.items = append(out.items, domain.ItemRequest{
			ItemID:      itemID,
			Name:        item.Name,
			PartnerKey:  item.PartnerKey,
			Quantity:    quantity,
			RequestUnit: unit,
			Children:    mergeChildren(nil, row.Children, c.childKey),
		})
		if key != "" {
			index[key] = len(out.items) - 1
		}
	}

	if out.conflict {
		errs.AddOnce(domain.FieldBase, msgSingleUnit)
	}
	return out, nil
}

func (c *consolidator) displayName(ctx context.Context, id snowflake.ID) (string, error) {
	item, found, err := c.lookup.find(ctx, id)
	if err != nil {
		return "", err
	}
	if !found || strings.TrimSpace(item.Name) == "" {
		return unknownItemName, nil
	}
	return item.Name, nil
}

// summarize derives the denormalized request_items column.
func summarize(items []domain.ItemRequest) []domain.RequestItemEntry {
	out := make([]domain.RequestItemEntry, 0, len(items))
	for _, ir := range items {
		entry := domain.RequestItemEntry{Quantity: ir.Quantity}
		if ir.HasItem() {
			entry.ItemID = ir.ItemID.String()
		}
		if ir.RequestUnit.IsNamed() {
			entry.RequestUnit = ir.RequestUnit.Name()
		}
		out = append(out, entry)
	}
	return out
}

// mergeKey identifies rows that fold into the same line. Parsed ids win over
// their spelling, so "12" and "012" share a line.
func mergeKey(raw string, id snowflake.ID) string {
	switch {
	case id != 0:
		return "id:" + id.String()
	case raw != "":
		return "raw:" + raw
	default:
		return ""
	}
}

func parseItemID(raw string) snowflake.ID {
	if raw == "" {
		return 0
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// coerceQuantity reads a leading, optionally signed integer and ignores the
// rest, so "12 packs" is 12 and "abc" or "" is 0.
func coerceQuantity(raw string) int {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	if s == "" {
		return 0
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	var digits strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= '0' && ch <= '9' {
			digits.WriteByte(ch)
			continue
		}
		// Underscores may separate digits, as in "1_000".
		if ch == '_' && digits.Len() > 0 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			continue
		}
		break
	}
	if digits.Len() == 0 {
		return 0
	}

	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil || n > math.MaxInt32 {
		n = math.MaxInt32
	}
	if negative {
		return -int(n)
	}
	return int(n)
}

func addQuantity(a, b int) int {
	sum := int64(a) + int64(b)
	switch {
	case sum > math.MaxInt32:
		return math.MaxInt32
	case sum < math.MinInt32:
		return math.MinInt32
	default:
		return int(sum)
	}
}

func childKeyFunc(mode string) func(domain.Child) string {
	switch mode {
	case config.ChildrenDedupeByIDAndName:
		return func(c domain.Child) string { return c.ID + "\x00" + c.Name }
	default:
		return func(c domain.Child) string { return c.ID }
	}
}

// mergeChildren appends incoming children whose key is not already present.
func mergeChildren(existing, incoming []domain.Child, key func(domain.Child) string) []domain.Child {
	out := make([]domain.Child, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, list := range [][]domain.Child{existing, incoming} {
		for _, child := range list {
			k := key(child)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, child)
		}
	}
	return out
}
