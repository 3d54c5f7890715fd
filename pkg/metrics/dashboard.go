// pkg/metrics/dashboard.go
package metrics

import (
	"math"

	"github.com/greenview/ingress/pkg/model"
	"github.com/greenview/ingress/pkg/normalizer"
)

// DashboardMetrics is the live aggregate view over the most recent
// normalized rows, recomputed on every request rather than persisted.
type DashboardMetrics struct {
	TotalEnergyKWh      float64 `json:"total_energy_kwh"`
	TotalCO2Kg          float64 `json:"total_co2_kg"`
	TotalWaterLiters    float64 `json:"total_water_liters"`
	TotalWasteKg        float64 `json:"total_waste_kg"`
	AvgRenewablePercent float64 `json:"avg_renewable_percent"`
	AvgRecycledPercent  float64 `json:"avg_recycled_percent"`
	AvgFleetEVPercent   float64 `json:"avg_fleet_ev_percent"`
	SupplierCount       int     `json:"supplier_count"`
	DataPoints          int     `json:"data_points"`
	DisplayScore        int     `json:"display_score"`
}

// Dashboard aggregates normalized rows for display. Unlike the snapshot
// formula, missing measurements count as zero here: the display score
// averages renewable, recycled, and fleet-EV percentages across every
// row, so sparse data reads as a low score instead of being hidden.
func Dashboard(rows []model.Row) *DashboardMetrics {
	m := &DashboardMetrics{}
	if len(rows) == 0 {
		return m
	}

	var (
		renewableSum float64
		recycledSum  float64
		fleetEVSum   float64
		suppliers    = map[string]struct{}{}
	)

	for _, row := range rows {
		energy, _ := numberField(row, normalizer.ColEnergyConsumption)
		co2, _ := numberField(row, normalizer.ColCO2Emissions)
		water, _ := numberField(row, normalizer.ColWaterUsage)
		waste, _ := numberField(row, normalizer.ColWasteGenerated)
		renewable, _ := numberField(row, normalizer.ColRenewablePercentage)
		recycled, _ := numberField(row, normalizer.ColRecycledPercentage)
		fleetEV, _ := numberField(row, normalizer.ColFleetEVPercentage)

		m.TotalEnergyKWh += energy
		m.TotalCO2Kg += co2
		m.TotalWaterLiters += water
		m.TotalWasteKg += waste
		renewableSum += renewable
		recycledSum += recycled
		fleetEVSum += fleetEV

		if supplier, ok := stringField(row, normalizer.ColSupplier); ok && supplier != "" {
			suppliers[supplier] = struct{}{}
		}
	}

	n := float64(len(rows))
	m.AvgRenewablePercent = renewableSum / n
	m.AvgRecycledPercent = recycledSum / n
	m.AvgFleetEVPercent = fleetEVSum / n
	m.SupplierCount = len(suppliers)
	m.DataPoints = len(rows)
	m.DisplayScore = int(math.Round((m.AvgRenewablePercent + m.AvgRecycledPercent + m.AvgFleetEVPercent) / 3))

	return m
}
