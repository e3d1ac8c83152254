package service

import (
	"math"
	"testing"

	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/request/domain"
	"github.com/stretchr/testify/assert"
)

func TestCoerceQuantity(t *testing.T) {
	cases := map[string]int{
		"":         0,
		"12":       12,
		"  7":      7,
		"+4":       4,
		"-3":       -3,
		"12 packs": 12,
		"1_000":    1000,
		"1__0":     1,
		"abc":      0,
		"3.9":      3,
	}
	for in, want := range cases {
		assert.Equal(t, want, coerceQuantity(in), "input %q", in)
	}
	assert.Equal(t, math.MaxInt32, coerceQuantity("99999999999999999999"))
}

func TestAddQuantityClamps(t *testing.T) {
	assert.Equal(t, 29, addQuantity(12, 17))
	assert.Equal(t, math.MaxInt32, addQuantity(math.MaxInt32, 1))
}

func TestMergeChildrenByKey(t *testing.T) {
	existing := []domain.Child{{ID: "1", Name: "A"}}
	incoming := []domain.Child{{ID: "1", Name: "B"}, {ID: "2", Name: "C"}}

	byID := mergeChildren(existing, incoming, childKeyFunc(config.ChildrenDedupeByID))
	assert.Equal(t, []domain.Child{{ID: "1", Name: "A"}, {ID: "2", Name: "C"}}, byID)

	byIDAndName := mergeChildren(existing, incoming, childKeyFunc(config.ChildrenDedupeByIDAndName))
	assert.Len(t, byIDAndName, 3)
}

func TestParseItemID(t *testing.T) {
	assert.EqualValues(t, 42, parseItemID("42"))
	assert.Zero(t, parseItemID(""))
	assert.Zero(t, parseItemID("abc"))
	assert.Zero(t, parseItemID("-5"))
}
