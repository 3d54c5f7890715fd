// pkg/metrics/aggregate.go
package metrics

import (
	"encoding/json"
	"math"
	"time"

	"github.com/greenview/ingress/pkg/model"
	"github.com/greenview/ingress/pkg/normalizer"
)

// additionalMetrics is the provenance blob stored with each snapshot.
type additionalMetrics struct {
	DataPoints   int    `json:"dataPoints"`
	CalculatedAt string `json:"calculatedAt"`
}

// Aggregate computes a metrics snapshot from a dataset's rows. A row
// contributes only when it carries at least one positive energy, CO2, or
// renewable signal; rows of pure identity data are excluded so empty
// uploads cannot dilute the averages.
//
// Energy arrives in kWh and is stored in MWh. Emissions arrive in kg; the
// carbon footprint restates them in tonnes.
func Aggregate(datasetID string, rows []model.Row) *model.MetricsSnapshot {
	var (
		totalEnergyMWh     float64
		renewableEnergyMWh float64
		co2Kg              float64
		dataPoints         int
		suppliers          = map[string]struct{}{}
	)

	for _, row := range rows {
		energy, _ := numberField(row, normalizer.ColEnergyConsumption)
		co2, _ := numberField(row, normalizer.ColCO2Emissions)
		renewable, _ := numberField(row, normalizer.ColRenewablePercentage)

		if energy <= 0 && co2 <= 0 && renewable <= 0 {
			continue
		}
		dataPoints++

		totalEnergyMWh += energy / 1000
		co2Kg += co2
		if renewable > 0 {
			renewableEnergyMWh += energy * renewable / 100 / 1000
		}

		if supplier, ok := stringField(row, normalizer.ColSupplier); ok && supplier != "" {
			suppliers[supplier] = struct{}{}
		}
	}

	renewableShare := 0.0
	if totalEnergyMWh > 0 {
		renewableShare = clamp(renewableEnergyMWh/totalEnergyMWh*100, 0, 100)
	}

	efficiencyBase := totalEnergyMWh
	if efficiencyBase < 1 {
		efficiencyBase = 1
	}
	energyEfficiency := clamp(100-co2Kg/efficiencyBase, 0, 100)

	score := int(math.Round((renewableShare + energyEfficiency) / 2))

	extra, _ := json.Marshal(additionalMetrics{
		DataPoints:   dataPoints,
		CalculatedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return &model.MetricsSnapshot{
		DatasetID:           datasetID,
		TotalEnergyMWh:      totalEnergyMWh,
		RenewableEnergyMWh:  renewableEnergyMWh,
		CO2EmissionsKg:      co2Kg,
		CarbonFootprint:     co2Kg / 1000,
		RenewableShare:      renewableShare,
		EnergyEfficiency:    energyEfficiency,
		SustainabilityScore: score,
		TotalSuppliers:      len(suppliers),
		AdditionalMetrics:   extra,
	}
}
