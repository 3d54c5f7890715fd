// pkg/normalizer/columns.go
package normalizer

import (
	"math"
	"strconv"
	"strings"

	"github.com/greenview/ingress/pkg/model"
)

// Canonical sustainability column names. This is the wire-level vocabulary
// consumed by every downstream reporting, chart, and chat collaborator.
const (
	ColSupplier            = "Supplier"
	ColFacility            = "Facility"
	ColRegion              = "Region"
	ColTimestamp           = "Timestamp"
	ColEnergyConsumption   = "Energy_Consumption_kWh"
	ColElectricityGen      = "Electricity_Generation_MWh"
	ColHeatGen             = "Heat_Generation_MWh"
	ColCO2Emissions        = "CO2_Emissions_kg"
	ColWaterUsage          = "Water_Usage_Liters"
	ColWasteGenerated      = "Waste_Generated_kg"
	ColRenewablePercentage = "Renewable_Energy_Percentage"
	ColRecycledPercentage  = "Recycled_Waste_Percentage"
	ColFleetEVPercentage   = "Fleet_EV_Percentage"
)

// CanonicalColumns lists every canonical column in schema order.
var CanonicalColumns = []string{
	ColSupplier,
	ColFacility,
	ColRegion,
	ColTimestamp,
	ColEnergyConsumption,
	ColElectricityGen,
	ColHeatGen,
	ColCO2Emissions,
	ColWaterUsage,
	ColWasteGenerated,
	ColRenewablePercentage,
	ColRecycledPercentage,
	ColFleetEVPercentage,
}

// numericColumns is the set of canonical columns that hold measurements.
// Everything else is stored as text.
var numericColumns = map[string]bool{
	ColEnergyConsumption:   true,
	ColElectricityGen:      true,
	ColHeatGen:             true,
	ColCO2Emissions:        true,
	ColWaterUsage:          true,
	ColWasteGenerated:      true,
	ColRenewablePercentage: true,
	ColRecycledPercentage:  true,
	ColFleetEVPercentage:   true,
}

// synonyms maps normalized source column names to canonical columns.
// Keys are lowercase with spaces, underscores, and hyphens stripped, so
// "Energy Consumption (kWh)" and "energy_consumption_kwh" both resolve.
var synonyms = map[string]string{
	"supplier":  ColSupplier,
	"company":   ColSupplier,
	"vendor":    ColSupplier,
	"facility":  ColFacility,
	"plant":     ColFacility,
	"site":      ColFacility,
	"region":    ColRegion,
	"timestamp": ColTimestamp,
	"date":      ColTimestamp,
	"time":      ColTimestamp,

	"energyconsumption":    ColEnergyConsumption,
	"energyconsumptionkwh": ColEnergyConsumption,
	"energy":               ColEnergyConsumption,

	"electricitygeneration":    ColElectricityGen,
	"electricitygenerationmwh": ColElectricityGen,
	"electricity":              ColElectricityGen,

	"heatgeneration":    ColHeatGen,
	"heatgenerationmwh": ColHeatGen,
	"heat":              ColHeatGen,

	"co2emissions":   ColCO2Emissions,
	"co2emissionskg": ColCO2Emissions,
	"co2":            ColCO2Emissions,
	"carbon":         ColCO2Emissions,
	"emissions":      ColCO2Emissions,

	"waterusage":       ColWaterUsage,
	"waterusageliters": ColWaterUsage,
	"water":            ColWaterUsage,

	"wastegenerated":   ColWasteGenerated,
	"wastegeneratedkg": ColWasteGenerated,
	"waste":            ColWasteGenerated,

	"renewableenergy":           ColRenewablePercentage,
	"renewableenergypercentage": ColRenewablePercentage,
	"renewable":                 ColRenewablePercentage,

	"recycledwaste":           ColRecycledPercentage,
	"recycledwastepercentage": ColRecycledPercentage,
	"recycled":                ColRecycledPercentage,

	"fleetev":           ColFleetEVPercentage,
	"fleetevpercentage": ColFleetEVPercentage,
	"ev":                ColFleetEVPercentage,
	"electric":          ColFleetEVPercentage,
}

// normalizeName lowercases a column name and strips spaces, underscores,
// hyphens, and parenthesized unit suffixes down to bare characters.
func normalizeName(name string) string {
	lowered := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch r {
		case ' ', '_', '-', '(', ')', '%', '/':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MapColumn maps an arbitrary uploaded column name onto the canonical
// schema. The second return is false when no synonym matches; such columns
// are excluded from the normalized view but remain in raw storage.
// MapColumn is a pure function of the static synonym table.
func MapColumn(raw string) (string, bool) {
	canonical, ok := synonyms[normalizeName(raw)]
	return canonical, ok
}

// IsNumericColumn reports whether a canonical column holds measurements.
func IsNumericColumn(canonical string) bool {
	return numericColumns[canonical]
}

// CoerceValue converts a raw cell into the representation required by its
// canonical column. Numeric columns strip thousands separators and parse
// as float; an unparseable value becomes null, never zero, since zero is
// a valid measurement. Text columns pass through as strings.
//
// The second return is false when the input is empty: the field is then
// omitted entirely from the normalized row rather than stored as null, so
// sparse uploads cannot overwrite real data with false zeros.
func CoerceValue(canonical string, v model.Value) (model.Value, bool) {
	if v.IsEmpty() {
		return model.Null, false
	}

	if !numericColumns[canonical] {
		return model.String(v.AsString()), true
	}

	if v.Kind == model.KindNumber {
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return model.Null, true
		}
		return model.Number(v.Num), true
	}

	cleaned := strings.ReplaceAll(strings.TrimSpace(v.Str), ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Null, true
	}
	return model.Number(f), true
}
