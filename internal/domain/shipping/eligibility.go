package shipping

// Eligibility policy defaults.
const (
	// DefaultSmallParcelMaxWeightLb is the small-parcel provider's per-package weight ceiling.
	DefaultSmallParcelMaxWeightLb = 70.0

	// DefaultSmallParcelExcludesBulkBoxes keeps bulk-box parcels away from the
	// small-parcel provider, whose rating endpoint rejects them in practice.
	DefaultSmallParcelExcludesBulkBoxes = true
)

// Skip reasons recorded in RoutingDecision.Skipped.
const (
	SkipReasonPalletized       = "shipment contains pallets"
	SkipReasonBulkBoxes        = "bulk boxes are not quoted by this carrier"
	SkipReasonOverweight       = "a parcel exceeds the carrier weight ceiling"
	SkipReasonNoParcels        = "no parcels to quote"
	SkipReasonNoPallets        = "no pallets to quote"
	SkipReasonParcelsInFreight = "parcels in a palletized shipment are not quoted"
)

// EligibilityPolicy holds the business rules the router applies.
type EligibilityPolicy struct {
	SmallParcelExcludesBulkBoxes bool    `mapstructure:"small_parcel_excludes_bulk_boxes"`
	SmallParcelMaxWeightLb       float64 `mapstructure:"small_parcel_max_weight_lb"`
}

// DefaultEligibilityPolicy returns the production policy.
func DefaultEligibilityPolicy() EligibilityPolicy {
	return EligibilityPolicy{
		SmallParcelExcludesBulkBoxes: DefaultSmallParcelExcludesBulkBoxes,
		SmallParcelMaxWeightLb:       DefaultSmallParcelMaxWeightLb,
	}
}

// SkippedCarrier explains why a carrier was not selected.
type SkippedCarrier struct {
	CarrierID CarrierID `json:"carrierId"`
	Reason    string    `json:"reason"`
}

// RoutingDecision is the router output.
type RoutingDecision struct {
	Selections []CarrierSelection
	Skipped    []SkippedCarrier
}

// CarrierIDs lists the selected carriers in submission order.
func (d RoutingDecision) CarrierIDs() []CarrierID {
	ids := make([]CarrierID, len(d.Selections))
	for i, s := range d.Selections {
		ids[i] = s.CarrierID
	}
	return ids
}

// EligibilityRouter decides which carriers may quote a plan and which
// packages each one sees.
type EligibilityRouter struct {
	resolver *PackagingResolver
	policy   EligibilityPolicy
}

// NewEligibilityRouter creates a router. Kit parcels are re-packed per carrier
// through resolver.
func NewEligibilityRouter(resolver *PackagingResolver, policy EligibilityPolicy) *EligibilityRouter {
	if policy.SmallParcelMaxWeightLb <= 0 {
		policy.SmallParcelMaxWeightLb = DefaultSmallParcelMaxWeightLb
	}
	return &EligibilityRouter{resolver: resolver, policy: policy}
}

// Policy returns the active policy.
func (r *EligibilityRouter) Policy() EligibilityPolicy {
	return r.policy
}

// Route applies the decision table to plan. Selections come out in a fixed
// order (freight-broker, small-parcel, large-parcel) which is also the
// tie-break order for equal prices. A carrier with no packages is never selected.
func (r *EligibilityRouter) Route(plan PackagePlan) RoutingDecision {
	var d RoutingDecision

	if plan.HasPallets() {
		d.Selections = append(d.Selections, CarrierSelection{
			CarrierID: CarrierFreightBroker,
			Packages:  clonePackages(plan.Pallets),
		})
		reason := SkipReasonPalletized
		if len(plan.Parcels) > 0 {
			reason = SkipReasonParcelsInFreight
		}
		d.Skipped = append(d.Skipped,
			SkippedCarrier{CarrierID: CarrierSmallParcel, Reason: reason},
			SkippedCarrier{CarrierID: CarrierLargeParcel, Reason: reason},
		)
		return d
	}

	d.Skipped = append(d.Skipped, SkippedCarrier{CarrierID: CarrierFreightBroker, Reason: SkipReasonNoPallets})

	if len(plan.Parcels) == 0 {
		d.Skipped = append(d.Skipped,
			SkippedCarrier{CarrierID: CarrierSmallParcel, Reason: SkipReasonNoParcels},
			SkippedCarrier{CarrierID: CarrierLargeParcel, Reason: SkipReasonNoParcels},
		)
		return d
	}

	small := r.parcelsFor(CarrierSmallParcel, plan)
	if reason, ok := r.smallParcelEligible(small); ok {
		d.Selections = append(d.Selections, CarrierSelection{CarrierID: CarrierSmallParcel, Packages: small})
	} else {
		d.Skipped = append(d.Skipped, SkippedCarrier{CarrierID: CarrierSmallParcel, Reason: reason})
	}

	large := r.parcelsFor(CarrierLargeParcel, plan)
	if len(large) > 0 {
		d.Selections = append(d.Selections, CarrierSelection{CarrierID: CarrierLargeParcel, Packages: large})
	} else {
		d.Skipped = append(d.Skipped, SkippedCarrier{CarrierID: CarrierLargeParcel, Reason: SkipReasonNoParcels})
	}

	return d
}

func (r *EligibilityRouter) smallParcelEligible(parcels []Package) (string, bool) {
	if len(parcels) == 0 {
		return SkipReasonNoParcels, false
	}
	for _, p := range parcels {
		if r.policy.SmallParcelExcludesBulkBoxes && p.IsBulkBox() {
			return SkipReasonBulkBoxes, false
		}
		if p.WeightLb > r.policy.SmallParcelMaxWeightLb {
			return SkipReasonOverweight, false
		}
	}
	return "", true
}

// parcelsFor returns the plan's parcels with kit cartons re-packed using the
// carrier's own carton geometry. Order is bulk boxes, kit cartons, test parcel.
func (r *EligibilityRouter) parcelsFor(carrier CarrierID, plan PackagePlan) []Package {
	out := make([]Package, 0, len(plan.Parcels))
	for _, p := range plan.Parcels {
		if p.IsBulkBox() {
			out = append(out, p)
		}
	}
	out = append(out, r.resolver.ResolveKits(plan.Totals.KitQty, r.resolver.KitCartonFor(carrier))...)
	for _, p := range plan.Parcels {
		if p.PackagingTag == TagTest {
			out = append(out, p)
		}
	}
	return out
}

func clonePackages(pkgs []Package) []Package {
	out := make([]Package, len(pkgs))
	copy(out, pkgs)
	return out
}
