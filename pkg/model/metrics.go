// pkg/model/metrics.go
package model

import (
	"github.com/jmoiron/sqlx/types"
)

// MetricsSnapshot is the aggregate sustainability metrics computed once
// per successful ingestion from a dataset's normalized rows.
type MetricsSnapshot struct {
	DatasetID           string         `db:"dataset_id" json:"dataset_id"`
	TotalEnergyMWh      float64        `db:"total_energy_mwh" json:"total_energy_mwh"`
	RenewableEnergyMWh  float64        `db:"renewable_energy_mwh" json:"renewable_energy_mwh"`
	CO2EmissionsKg      float64        `db:"co2_emissions_kg" json:"co2_emissions_kg"`
	CarbonFootprint     float64        `db:"carbon_footprint" json:"carbon_footprint"`
	RenewableShare      float64        `db:"renewable_share" json:"renewable_share"`
	EnergyEfficiency    float64        `db:"energy_efficiency" json:"energy_efficiency"`
	SustainabilityScore int            `db:"sustainability_score" json:"sustainability_score"`
	TotalSuppliers      int            `db:"total_suppliers" json:"total_suppliers"`
	AdditionalMetrics   types.JSONText `db:"additional_metrics" json:"additional_metrics"`
}
