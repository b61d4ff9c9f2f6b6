package shipping

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *PackagingResolver {
	t.Helper()
	r, err := NewPackagingResolver(DefaultResolverConfig())
	require.NoError(t, err)
	return r
}

func sumUnits(pkgs []Package) int {
	total := 0
	for _, p := range pkgs {
		total += p.RepresentedUnits
	}
	return total
}

func TestNormalizeBulkQuantity(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, 0},
		{"negative", -5000, 0},
		{"tiny rounds down then clamps to min", 1, BulkMin},
		{"just below half step", 2499, BulkMin},
		{"half step rounds up", 2500, 5000},
		{"below next half step", 7499, 5000},
		{"next half step rounds up", 7500, 10000},
		{"exact multiple unchanged", 15000, 15000},
		{"max unchanged", BulkMax, BulkMax},
		{"above max clamps", 1_000_000, BulkMax},
		{"rounds above max then clamps", 962_500, BulkMax},
		{"max int clamps without overflow", math.MaxInt64, BulkMax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBulkQuantity(tt.in))
		})
	}
}

func TestPackagingResolver_BulkUnitsAlwaysSumToQuantity(t *testing.T) {
	r := newTestResolver(t)

	for q := BulkMin; q <= BulkMax; q += BulkStep {
		plan, err := r.Resolve([]CartItem{{Kind: ItemKindBulk, Quantity: q}})
		require.NoError(t, err)

		got := sumUnits(plan.Parcels) + sumUnits(plan.Pallets)
		if !assert.Equal(t, q, got, "quantity %d", q) {
			return
		}
		assert.Equal(t, q, plan.Totals.BulkUnits)
	}
}

func TestPackagingResolver_Deterministic(t *testing.T) {
	r := newTestResolver(t)
	items := []CartItem{
		{Kind: ItemKindBulk, Quantity: 45000},
		{Kind: ItemKindKit, Quantity: 11},
		{Kind: ItemKindTest, Quantity: 1},
	}

	first, err := r.Resolve(items)
	require.NoError(t, err)
	second, err := r.Resolve(items)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPackagingResolver_SingleBoxFor15000(t *testing.T) {
	r := newTestResolver(t)

	plan, err := r.Resolve([]CartItem{{Kind: ItemKindBulk, Quantity: 15000}})
	require.NoError(t, err)

	require.Len(t, plan.Parcels, 1)
	assert.Empty(t, plan.Pallets)
	assert.Equal(t, PackageKindParcel, plan.Parcels[0].Kind)
	assert.Equal(t, TagBulkBox, plan.Parcels[0].PackagingTag)
	assert.Equal(t, 15000, plan.Parcels[0].RepresentedUnits)
	assert.Equal(t, 57.0, plan.Parcels[0].WeightLb)
	assert.Equal(t, "box-15k", plan.Parcels[0].Label)
}

func TestPackagingResolver_PalletTiers(t *testing.T) {
	r := newTestResolver(t)

	plan, err := r.Resolve([]CartItem{{Kind: ItemKindBulk, Quantity: 480000}})
	require.NoError(t, err)

	assert.Empty(t, plan.Parcels)
	require.Len(t, plan.Pallets, 2)
	for _, p := range plan.Pallets {
		assert.Equal(t, PackageKindPallet, p.Kind)
		assert.Equal(t, TagBulkPallet, p.PackagingTag)
		assert.Equal(t, 240000, p.RepresentedUnits)
	}
}

func TestPackagingResolver_SelectsFirstCoveringTier(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		units int
		label string
	}{
		{5000, "box-5k"},
		{10000, "box-10k"},
		{20000, "box-2x10k"},
		{25000, "box-2x15k"},
		{65000, "pallet-120k"},
		{960000, "pallet-4x240k"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.label, r.TierFor(tt.units).Label, "units %d", tt.units)
	}
}

func TestPackagingResolver_ClampsAboveLargestTier(t *testing.T) {
	cfg := DefaultResolverConfig()
	cfg.Tiers = []TierRow{
		{MaxUnits: 10000, PackageCount: 1, PackageKind: TierBox, WeightLb: 38, Dims: Dimensions{18, 14, 10}, Label: "small"},
		{MaxUnits: 20000, PackageCount: 2, PackageKind: TierBox, WeightLb: 38, Dims: Dimensions{18, 14, 10}, Label: "large"},
	}
	r, err := NewPackagingResolver(cfg)
	require.NoError(t, err)

	plan, err := r.Resolve([]CartItem{{Kind: ItemKindBulk, Quantity: 45000}})
	require.NoError(t, err)

	require.Len(t, plan.Parcels, 2)
	assert.Equal(t, "large", plan.Parcels[0].Label)
	assert.Equal(t, 45000, sumUnits(plan.Parcels))

	t.Run("huge summed bulk quantity saturates", func(t *testing.T) {
		plan, err := newTestResolver(t).Resolve([]CartItem{
			{Kind: ItemKindBulk, Quantity: math.MaxInt64 / 2},
			{Kind: ItemKindBulk, Quantity: math.MaxInt64 / 2},
			{Kind: ItemKindBulk, Quantity: math.MaxInt64 / 2},
		})
		require.NoError(t, err)

		assert.Equal(t, BulkMax, plan.Totals.BulkUnits)
		assert.Empty(t, plan.Parcels)
		require.Len(t, plan.Pallets, 4)
		assert.Equal(t, BulkMax, sumUnits(plan.Pallets))
	})
}

func TestPackagingResolver_RemainderGoesToFirstPackage(t *testing.T) {
	cfg := DefaultResolverConfig()
	cfg.Tiers = []TierRow{
		{MaxUnits: 10000, PackageCount: 3, PackageKind: TierBox, WeightLb: 15, Dims: Dimensions{12, 12, 12}, Label: "thirds"},
	}
	r, err := NewPackagingResolver(cfg)
	require.NoError(t, err)

	pkgs := r.ResolveBulk(10000)

	require.Len(t, pkgs, 3)
	assert.Equal(t, 3334, pkgs[0].RepresentedUnits)
	assert.Equal(t, 3333, pkgs[1].RepresentedUnits)
	assert.Equal(t, 3333, pkgs[2].RepresentedUnits)
}

func TestPackagingResolver_ResolveKits(t *testing.T) {
	r := newTestResolver(t)
	carton := KitCarton{Name: "c4", Capacity: 4, Dims: Dimensions{12, 10, 6}}

	t.Run("partial last carton", func(t *testing.T) {
		pkgs := r.ResolveKits(9, carton)

		require.Len(t, pkgs, 3)
		assert.Equal(t, 4, pkgs[0].RepresentedUnits)
		assert.Equal(t, 4, pkgs[1].RepresentedUnits)
		assert.Equal(t, 1, pkgs[2].RepresentedUnits)
		assert.Equal(t, 6.4, pkgs[0].WeightLb)
		assert.Equal(t, 1.6, pkgs[2].WeightLb)
		assert.Equal(t, TagKitCarton, pkgs[0].PackagingTag)
	})

	t.Run("evenly divisible fills last carton", func(t *testing.T) {
		pkgs := r.ResolveKits(8, carton)

		require.Len(t, pkgs, 2)
		assert.Equal(t, 4, pkgs[1].RepresentedUnits)
	})

	t.Run("non-positive quantity produces nothing", func(t *testing.T) {
		assert.Empty(t, r.ResolveKits(0, carton))
		assert.Empty(t, r.ResolveKits(-2, carton))
	})

	t.Run("carton count and last carton for many sizes", func(t *testing.T) {
		for c := 1; c <= 9; c++ {
			geometry := KitCarton{Name: "g", Capacity: c, Dims: Dimensions{10, 10, 10}}
			for k := 1; k <= 50; k++ {
				pkgs := r.ResolveKits(k, geometry)
				cartons := (k + c - 1) / c

				require.Len(t, pkgs, cartons, "K=%d C=%d", k, c)
				assert.Equal(t, k-(cartons-1)*c, pkgs[cartons-1].RepresentedUnits, "K=%d C=%d", k, c)
				assert.Equal(t, k, sumUnits(pkgs))
			}
		}
	})
}

func TestPackagingResolver_KitCartonPerCarrier(t *testing.T) {
	r := newTestResolver(t)

	assert.Equal(t, SmallParcelKitCarton, r.KitCartonFor(CarrierSmallParcel))
	assert.Equal(t, LargeParcelKitCarton, r.KitCartonFor(CarrierLargeParcel))
	assert.Equal(t, SmallParcelKitCarton, r.KitCartonFor(CarrierFreightBroker))
}

func TestPackagingResolver_TestItem(t *testing.T) {
	r := newTestResolver(t)

	plan, err := r.Resolve([]CartItem{{Kind: ItemKindTest, Quantity: 3}})
	require.NoError(t, err)

	require.Len(t, plan.Parcels, 1)
	p := plan.Parcels[0]
	assert.Equal(t, TagTest, p.PackagingTag)
	assert.Equal(t, SmallParcelKitCarton.Dims, p.Dims)
	assert.Equal(t, DefaultTestParcelWeightLb, p.WeightLb)
	assert.Equal(t, 1, plan.Totals.TestQty)
}

func TestPackagingResolver_MixedOrderLayout(t *testing.T) {
	r := newTestResolver(t)

	plan, err := r.Resolve([]CartItem{
		{Kind: ItemKindTest, Quantity: 1},
		{Kind: ItemKindKit, Quantity: 5},
		{Kind: ItemKindBulk, Quantity: 5000},
		{Kind: ItemKindKit, Quantity: 2},
	})
	require.NoError(t, err)

	require.Len(t, plan.Parcels, 4)
	assert.Equal(t, TagBulkBox, plan.Parcels[0].PackagingTag)
	assert.Equal(t, TagKitCarton, plan.Parcels[1].PackagingTag)
	assert.Equal(t, TagKitCarton, plan.Parcels[2].PackagingTag)
	assert.Equal(t, TagTest, plan.Parcels[3].PackagingTag)
	assert.Equal(t, PlanTotals{BulkUnits: 5000, KitQty: 7, TestQty: 1}, plan.Totals)
}

func TestPackagingResolver_NonPositiveQuantitiesContributeNothing(t *testing.T) {
	r := newTestResolver(t)

	plan, err := r.Resolve([]CartItem{
		{Kind: ItemKindBulk, Quantity: 0},
		{Kind: ItemKindKit, Quantity: -3},
		{Kind: ItemKindTest, Quantity: 0},
	})
	require.NoError(t, err)

	assert.True(t, plan.IsEmpty())
	assert.Equal(t, PlanTotals{}, plan.Totals)
}

func TestPackagingResolver_UnknownKind(t *testing.T) {
	r := newTestResolver(t)

	_, err := r.Resolve([]CartItem{
		{Kind: ItemKindBulk, Quantity: 5000},
		{Kind: ItemKind("crate"), Quantity: 1},
	})

	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "items[1].kind", verr.Field)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewPackagingResolver_InvalidConfig(t *testing.T) {
	valid := DefaultResolverConfig()

	tests := []struct {
		name    string
		mutate  func(*ResolverConfig)
		wantErr error
	}{
		{"empty tiers", func(c *ResolverConfig) { c.Tiers = nil }, ErrTierTableEmpty},
		{"unordered tiers", func(c *ResolverConfig) {
			c.Tiers = []TierRow{c.Tiers[1], c.Tiers[0]}
		}, ErrTierTableUnordered},
		{"zero package count", func(c *ResolverConfig) {
			c.Tiers = []TierRow{{MaxUnits: 5000, PackageCount: 0, PackageKind: TierBox, WeightLb: 1}}
		}, ErrTierRowInvalid},
		{"unknown package kind", func(c *ResolverConfig) {
			c.Tiers = []TierRow{{MaxUnits: 5000, PackageCount: 1, PackageKind: "crate", WeightLb: 1}}
		}, ErrTierRowInvalid},
		{"zero capacity carton", func(c *ResolverConfig) {
			c.DefaultCarton = KitCarton{Name: "bad", Dims: Dimensions{1, 1, 1}}
		}, ErrKitCartonInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			cfg.Tiers = DefaultTierTable()
			tt.mutate(&cfg)

			_, err := NewPackagingResolver(cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
