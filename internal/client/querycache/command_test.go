package querycache

import (
	"testing"

	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateInList(t *testing.T) {
	a, b := newDraft(t), newDraft(t)
	list := []*pricing.PricingRequest{a, b}
	eff := UpdateInList(SalesListKey(seller.UserID), b.ID, func(pr *pricing.PricingRequest) error { return pr.Submit(seller) })

	v, ok := eff.Forward(list)
	require.True(t, ok)
	out := v.([]*pricing.PricingRequest)
	assert.Same(t, a, out[0])
	assert.Equal(t, pricing.StatusUnderReview, out[1].State())
	assert.Equal(t, pricing.StatusDraft, b.State(), "input untouched")
	assert.Same(t, b, list[1])

	_, ok = eff.Forward(nil)
	assert.False(t, ok)
	_, ok = UpdateInList(eff.Key, "missing", func(*pricing.PricingRequest) error { return nil }).Forward(list)
	assert.False(t, ok)
	_, ok = UpdateInList(eff.Key, a.ID, func(pr *pricing.PricingRequest) error { return pr.Assign(analyst) }).Forward(list)
	assert.False(t, ok, "an illegal transition leaves the value alone")
}

func TestRemoveAndPrepend(t *testing.T) {
	a, b := newDraft(t), newDraft(t)
	list := []*pricing.PricingRequest{a, b}

	v, ok := RemoveFromList(AvailableKey("pa-a"), a.ID).Forward(list)
	require.True(t, ok)
	assert.Equal(t, []*pricing.PricingRequest{b}, v)
	assert.Len(t, list, 2)
	assert.Same(t, a, list[0])

	_, ok = RemoveFromList(AvailableKey("pa-a"), "missing").Forward(list)
	assert.False(t, ok)

	v, ok = PrependToList(MineKey("pa-a"), b).Forward([]*pricing.PricingRequest{a, b})
	require.True(t, ok)
	out := v.([]*pricing.PricingRequest)
	require.Len(t, out, 2)
	assert.Equal(t, b.ID, out[0].ID)
	assert.NotSame(t, b, out[0])
	assert.Same(t, a, out[1])
}

func TestUpdateDetails(t *testing.T) {
	pr := newDraft(t)
	require.NoError(t, pr.Submit(seller))

	v, ok := UpdateDetails(DetailsKey(pr.ID), func(p *pricing.PricingRequest) error { return p.Assign(analyst) }).Forward(pr)
	require.True(t, ok)
	assert.Equal(t, pricing.StatusActive, v.(*pricing.PricingRequest).State())
	assert.Equal(t, pricing.StatusUnderReview, pr.State())

	_, ok = UpdateDetails(DetailsKey(pr.ID), func(*pricing.PricingRequest) error { return nil }).Forward(nil)
	assert.False(t, ok)
}
