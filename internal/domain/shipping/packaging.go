package shipping

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Bulk quantity correction. Requested bulk quantities are rounded half-up to
// the nearest BulkStep and then clamped into [BulkMin, BulkMax].
const (
	BulkStep = 5000
	BulkMin  = 5000
	BulkMax  = 960000
)

// Default kit and test parcel weights.
const (
	DefaultWeightPerKitLb     = 1.6
	DefaultTestParcelWeightLb = 1.0
)

var (
	ErrTierTableEmpty     = errors.New("shipping: tier table is empty")
	ErrTierTableUnordered = errors.New("shipping: tier maxUnits must be strictly increasing")
	ErrTierRowInvalid     = errors.New("shipping: invalid tier row")
	ErrKitCartonInvalid   = errors.New("shipping: invalid kit carton")
)

// TierPackageKind is the physical form of a bulk tier.
type TierPackageKind string

const (
	TierBox    TierPackageKind = "box"
	TierPallet TierPackageKind = "pallet"
)

// TierRow maps a bulk quantity ceiling to concrete packages.
type TierRow struct {
	MaxUnits     int             `json:"maxUnits" mapstructure:"max_units"`
	PackageCount int             `json:"packageCount" mapstructure:"package_count"`
	PackageKind  TierPackageKind `json:"packageKind" mapstructure:"package_kind"`
	WeightLb     float64         `json:"weightLb" mapstructure:"weight_lb"`
	Dims         Dimensions      `json:"dims" mapstructure:"dims"`
	Label        string          `json:"label" mapstructure:"label"`
}

// DefaultTierTable is the production bulk packaging table, ascending by MaxUnits.
func DefaultTierTable() []TierRow {
	box5k := Dimensions{Length: 14, Width: 12, Height: 8}
	box10k := Dimensions{Length: 18, Width: 14, Height: 10}
	box15k := Dimensions{Length: 22, Width: 16, Height: 12}
	palletLow := Dimensions{Length: 48, Width: 40, Height: 36}
	palletTall := Dimensions{Length: 48, Width: 40, Height: 60}

	return []TierRow{
		{MaxUnits: 5000, PackageCount: 1, PackageKind: TierBox, WeightLb: 19, Dims: box5k, Label: "box-5k"},
		{MaxUnits: 10000, PackageCount: 1, PackageKind: TierBox, WeightLb: 38, Dims: box10k, Label: "box-10k"},
		{MaxUnits: 15000, PackageCount: 1, PackageKind: TierBox, WeightLb: 57, Dims: box15k, Label: "box-15k"},
		{MaxUnits: 20000, PackageCount: 2, PackageKind: TierBox, WeightLb: 38, Dims: box10k, Label: "box-2x10k"},
		{MaxUnits: 30000, PackageCount: 2, PackageKind: TierBox, WeightLb: 57, Dims: box15k, Label: "box-2x15k"},
		{MaxUnits: 45000, PackageCount: 3, PackageKind: TierBox, WeightLb: 57, Dims: box15k, Label: "box-3x15k"},
		{MaxUnits: 60000, PackageCount: 4, PackageKind: TierBox, WeightLb: 57, Dims: box15k, Label: "box-4x15k"},
		{MaxUnits: 120000, PackageCount: 1, PackageKind: TierPallet, WeightLb: 480, Dims: palletLow, Label: "pallet-120k"},
		{MaxUnits: 240000, PackageCount: 1, PackageKind: TierPallet, WeightLb: 940, Dims: palletTall, Label: "pallet-240k"},
		{MaxUnits: 480000, PackageCount: 2, PackageKind: TierPallet, WeightLb: 940, Dims: palletTall, Label: "pallet-2x240k"},
		{MaxUnits: 720000, PackageCount: 3, PackageKind: TierPallet, WeightLb: 940, Dims: palletTall, Label: "pallet-3x240k"},
		{MaxUnits: 960000, PackageCount: 4, PackageKind: TierPallet, WeightLb: 940, Dims: palletTall, Label: "pallet-4x240k"},
	}
}

// KitCarton is the carton geometry one carrier packs kits into.
type KitCarton struct {
	Name     string     `json:"name" mapstructure:"name"`
	Capacity int        `json:"capacity" mapstructure:"capacity"`
	Dims     Dimensions `json:"dims" mapstructure:"dims"`
}

// Validate checks the carton can hold at least one kit.
func (c KitCarton) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: %s: capacity must be positive", ErrKitCartonInvalid, c.Name)
	}
	if c.Dims.CubicInches() <= 0 {
		return fmt.Errorf("%w: %s: dimensions must be positive", ErrKitCartonInvalid, c.Name)
	}
	return nil
}

// Default kit cartons per carrier.
var (
	SmallParcelKitCarton = KitCarton{Name: "kit-carton-4", Capacity: 4, Dims: Dimensions{Length: 12, Width: 10, Height: 6}}
	LargeParcelKitCarton = KitCarton{Name: "kit-carton-8", Capacity: 8, Dims: Dimensions{Length: 16, Width: 12, Height: 10}}
)

// ResolverConfig configures a PackagingResolver.
type ResolverConfig struct {
	Tiers []TierRow
	// DefaultCarton is used to build the plan before any carrier is chosen.
	DefaultCarton KitCarton
	// CarrierCartons overrides the kit carton for specific carriers.
	CarrierCartons     map[CarrierID]KitCarton
	WeightPerKitLb     float64
	TestParcelWeightLb float64
}

// DefaultResolverConfig returns the production packaging configuration.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Tiers:         DefaultTierTable(),
		DefaultCarton: SmallParcelKitCarton,
		CarrierCartons: map[CarrierID]KitCarton{
			CarrierSmallParcel: SmallParcelKitCarton,
			CarrierLargeParcel: LargeParcelKitCarton,
		},
		WeightPerKitLb:     DefaultWeightPerKitLb,
		TestParcelWeightLb: DefaultTestParcelWeightLb,
	}
}

// PackagingResolver converts cart quantities into packages. It holds only
// read-only configuration and is safe for concurrent use.
type PackagingResolver struct {
	tiers          []TierRow
	defaultCarton  KitCarton
	carrierCartons map[CarrierID]KitCarton
	testCarton     KitCarton
	weightPerKit   decimal.Decimal
	testWeightLb   float64
}

// NewPackagingResolver validates cfg and builds a resolver.
func NewPackagingResolver(cfg ResolverConfig) (*PackagingResolver, error) {
	if len(cfg.Tiers) == 0 {
		return nil, ErrTierTableEmpty
	}
	for i, row := range cfg.Tiers {
		if row.MaxUnits <= 0 || row.PackageCount <= 0 || row.WeightLb <= 0 {
			return nil, fmt.Errorf("%w: row %d (%s)", ErrTierRowInvalid, i, row.Label)
		}
		if row.PackageKind != TierBox && row.PackageKind != TierPallet {
			return nil, fmt.Errorf("%w: row %d: unknown package kind %q", ErrTierRowInvalid, i, row.PackageKind)
		}
		if i > 0 && row.MaxUnits <= cfg.Tiers[i-1].MaxUnits {
			return nil, fmt.Errorf("%w: row %d", ErrTierTableUnordered, i)
		}
	}
	if err := cfg.DefaultCarton.Validate(); err != nil {
		return nil, err
	}

	cartons := make(map[CarrierID]KitCarton, len(cfg.CarrierCartons))
	for id, c := range cfg.CarrierCartons {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		cartons[id] = c
	}

	weightPerKit := cfg.WeightPerKitLb
	if weightPerKit <= 0 {
		weightPerKit = DefaultWeightPerKitLb
	}
	testWeight := cfg.TestParcelWeightLb
	if testWeight <= 0 {
		testWeight = DefaultTestParcelWeightLb
	}

	tiers := make([]TierRow, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)

	return &PackagingResolver{
		tiers:          tiers,
		defaultCarton:  cfg.DefaultCarton,
		carrierCartons: cartons,
		testCarton:     smallestCarton(cfg.DefaultCarton, cartons),
		weightPerKit:   decimal.NewFromFloat(weightPerKit),
		testWeightLb:   testWeight,
	}, nil
}

// smallestCarton picks the carton with the least volume. Ties resolve by name
// so the choice does not depend on map iteration order.
func smallestCarton(def KitCarton, cartons map[CarrierID]KitCarton) KitCarton {
	all := []KitCarton{def}
	for _, c := range cartons {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		vi, vj := all[i].Dims.CubicInches(), all[j].Dims.CubicInches()
		if vi != vj {
			return vi < vj
		}
		return all[i].Name < all[j].Name
	})
	return all[0]
}

// Tiers returns a copy of the tier table.
func (r *PackagingResolver) Tiers() []TierRow {
	out := make([]TierRow, len(r.tiers))
	copy(out, r.tiers)
	return out
}

// KitCartonFor returns the carton geometry used when packing kits for carrier.
func (r *PackagingResolver) KitCartonFor(carrier CarrierID) KitCarton {
	if c, ok := r.carrierCartons[carrier]; ok {
		return c
	}
	return r.defaultCarton
}

// Resolve builds the package plan for items using the default kit carton.
// Quantities of the same kind are summed first. Non-positive quantities
// contribute nothing.
func (r *PackagingResolver) Resolve(items []CartItem) (PackagePlan, error) {
	var bulkQty, kitQty int
	hasTest := false

	for i, item := range items {
		if !item.Kind.IsValid() {
			return PackagePlan{}, NewValidationError(
				fmt.Sprintf("items[%d].kind", i),
				fmt.Sprintf("unknown item kind %q", item.Kind),
			)
		}
		if item.Quantity <= 0 {
			continue
		}
		switch item.Kind {
		case ItemKindBulk:
			bulkQty = addCapped(bulkQty, item.Quantity, BulkMax+1)
		case ItemKindKit:
			kitQty = addCapped(kitQty, item.Quantity, math.MaxInt)
		case ItemKindTest:
			hasTest = true
		}
	}

	plan := PackagePlan{
		Parcels: []Package{},
		Pallets: []Package{},
	}

	if bulkQty > 0 {
		units := NormalizeBulkQuantity(bulkQty)
		plan.Totals.BulkUnits = units
		for _, pkg := range r.ResolveBulk(units) {
			if pkg.Kind == PackageKindPallet {
				plan.Pallets = append(plan.Pallets, pkg)
			} else {
				plan.Parcels = append(plan.Parcels, pkg)
			}
		}
	}

	if kitQty > 0 {
		plan.Totals.KitQty = kitQty
		plan.Parcels = append(plan.Parcels, r.ResolveKits(kitQty, r.defaultCarton)...)
	}

	if hasTest {
		plan.Totals.TestQty = 1
		plan.Parcels = append(plan.Parcels, r.TestParcel())
	}

	return plan, nil
}

// NormalizeBulkQuantity rounds q half-up to BulkStep and clamps it into
// [BulkMin, BulkMax]. It returns 0 for q <= 0.
func NormalizeBulkQuantity(q int) int {
	if q <= 0 {
		return 0
	}
	if q > BulkMax {
		return BulkMax
	}
	rounded := ((q + BulkStep/2) / BulkStep) * BulkStep
	if rounded < BulkMin {
		return BulkMin
	}
	if rounded > BulkMax {
		return BulkMax
	}
	return rounded
}

// addCapped returns sum+n, saturating at limit. Both operands are non-negative.
func addCapped(sum, n, limit int) int {
	if n >= limit-sum {
		return limit
	}
	return sum + n
}

// TierFor returns the first row whose MaxUnits covers units, or the last row.
func (r *PackagingResolver) TierFor(units int) TierRow {
	idx := sort.Search(len(r.tiers), func(i int) bool {
		return r.tiers[i].MaxUnits >= units
	})
	if idx == len(r.tiers) {
		idx = len(r.tiers) - 1
	}
	return r.tiers[idx]
}

// ResolveBulk produces the packages for an already normalized bulk quantity.
// Units are split evenly and the remainder goes to the first package.
func (r *PackagingResolver) ResolveBulk(units int) []Package {
	if units <= 0 {
		return nil
	}
	row := r.TierFor(units)

	kind, tag := PackageKindParcel, TagBulkBox
	if row.PackageKind == TierPallet {
		kind, tag = PackageKindPallet, TagBulkPallet
	}

	base := units / row.PackageCount
	remainder := units % row.PackageCount

	pkgs := make([]Package, row.PackageCount)
	for i := range pkgs {
		pkgs[i] = Package{
			Kind:             kind,
			WeightLb:         row.WeightLb,
			Dims:             row.Dims,
			RepresentedUnits: base,
			PackagingTag:     tag,
			Label:            row.Label,
		}
	}
	pkgs[0].RepresentedUnits += remainder
	return pkgs
}

// ResolveKits packs qty kits into cartons of the given geometry. Every carton
// but the last is full.
func (r *PackagingResolver) ResolveKits(qty int, carton KitCarton) []Package {
	if qty <= 0 || carton.Capacity <= 0 {
		return nil
	}
	count := qty / carton.Capacity
	if qty%carton.Capacity != 0 {
		count++
	}

	pkgs := make([]Package, count)
	for i := range pkgs {
		kits := carton.Capacity
		if i == count-1 {
			kits = qty - (count-1)*carton.Capacity
		}
		pkgs[i] = Package{
			Kind:             PackageKindParcel,
			WeightLb:         r.kitWeight(kits),
			Dims:             carton.Dims,
			RepresentedUnits: kits,
			PackagingTag:     TagKitCarton,
			Label:            carton.Name,
		}
	}
	return pkgs
}

// TestParcel returns the single diagnostic parcel emitted for a test item.
func (r *PackagingResolver) TestParcel() Package {
	return Package{
		Kind:         PackageKindParcel,
		WeightLb:     r.testWeightLb,
		Dims:         r.testCarton.Dims,
		PackagingTag: TagTest,
		Label:        r.testCarton.Name,
	}
}

func (r *PackagingResolver) kitWeight(kits int) float64 {
	return r.weightPerKit.Mul(decimal.NewFromInt(int64(kits))).Round(2).InexactFloat64()
}
