package shipping

import "github.com/shopspring/decimal"

// densityClasses is the NMFC density scale: the first row whose minimum
// density (lb/ft³) is met gives the freight class.
var densityClasses = []struct {
	minDensity float64
	class      string
}{
	{50, "50"},
	{35, "55"},
	{30, "60"},
	{22.5, "65"},
	{15, "70"},
	{13.5, "77.5"},
	{12, "85"},
	{10.5, "92.5"},
	{9, "100"},
	{8, "110"},
	{7, "125"},
	{6, "150"},
	{5, "175"},
	{4, "200"},
	{3, "250"},
	{2, "300"},
	{1, "400"},
}

// LowestDensityClass applies below 1 lb/ft³ and to packages without volume.
const LowestDensityClass = "500"

// Density returns pounds per cubic foot rounded to two decimals.
func Density(weightLb float64, dims Dimensions) float64 {
	cubicFeet := dims.CubicFeet()
	if cubicFeet <= 0 {
		return 0
	}
	return decimal.NewFromFloat(weightLb).
		Div(decimal.NewFromFloat(cubicFeet)).
		Round(2).
		InexactFloat64()
}

// FreightClass returns the NMFC freight class for a handling unit.
func FreightClass(weightLb float64, dims Dimensions) string {
	density := Density(weightLb, dims)
	for _, row := range densityClasses {
		if density >= row.minDensity {
			return row.class
		}
	}
	return LowestDensityClass
}
