package services

import "math"

// Units accepted on forecast items.
const (
	UnitKg    = "kg"
	UnitTonne = "tonne"
	UnitM     = "m"
	UnitM2    = "m2"
	UnitM3    = "m3"
	UnitL     = "l"
	UnitItem  = "item"
)

var validUnits = map[string]bool{
	UnitKg:    true,
	UnitTonne: true,
	UnitM:     true,
	UnitM2:    true,
	UnitM3:    true,
	UnitL:     true,
	UnitItem:  true,
}

// IsValidUnit reports whether u is one of the unit enumeration values.
func IsValidUnit(u string) bool {
	return validUnits[u]
}

// ValidateQuantityInput rejects out-of-range or non-finite values at the
// boundary. The compute functions below assume validated input and never
// clamp.
func ValidateQuantityInput(quantity, excessPercent float64, unit string) error {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
		return NewValidationError("quantity", "must be a finite value >= 0")
	}
	if math.IsNaN(excessPercent) || math.IsInf(excessPercent, 0) || excessPercent < 0 || excessPercent > 100 {
		return NewValidationError("excess_percent", "must be between 0 and 100")
	}
	if !IsValidUnit(unit) {
		return NewValidationError("unit", "unknown unit: "+unit)
	}
	return nil
}

// ComputeWasteQty applies the wastage allowance to a raw quantity. Full
// floating precision is retained; rounding happens at presentation only.
func ComputeWasteQty(quantity, excessPercent float64) float64 {
	return quantity * (1 + excessPercent/100)
}

// ComputeWasteKg converts a forecast quantity to mass in kilograms. Returns
// nil when the unit needs a conversion factor that is not available, and for
// non-mass units (m2, item). A nil here is a first-class "indeterminate"
// result, never an error and never a fabricated zero.
func ComputeWasteKg(quantity, excessPercent float64, unit string, kgPerM, densityKgM3 *float64) *float64 {
	wasteQty := ComputeWasteQty(quantity, excessPercent)

	switch unit {
	case UnitKg:
		return &wasteQty
	case UnitTonne:
		kg := wasteQty * 1000
		return &kg
	case UnitM:
		if kgPerM == nil {
			return nil
		}
		kg := wasteQty * (*kgPerM)
		return &kg
	case UnitM3:
		if densityKgM3 == nil {
			return nil
		}
		kg := wasteQty * (*densityKgM3)
		return &kg
	case UnitL:
		if densityKgM3 == nil {
			return nil
		}
		kg := (wasteQty / 1000) * (*densityKgM3)
		return &kg
	default:
		// m2 and item are non-mass units; the quantity is still kept for
		// count-based reporting.
		return nil
	}
}

// UnitNeedsFactor reports whether mass conversion for the unit depends on a
// stream factor (density or linear mass).
func UnitNeedsFactor(unit string) bool {
	return unit == UnitM || unit == UnitM3 || unit == UnitL
}
