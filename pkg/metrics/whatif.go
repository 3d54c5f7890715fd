// pkg/metrics/whatif.go
package metrics

import "math"

// Scenario weights. Renewable adoption dominates, then emissions, then
// supply-chain practices.
const (
	weightRenewable   = 0.40
	weightEmissions   = 0.35
	weightSupplyChain = 0.25
)

// Scenario holds the three what-if sliders.
type Scenario struct {
	RenewablePercent float64 `json:"renewable_percent"`
	EmissionsTonnes  float64 `json:"emissions_tonnes"`
	SupplyChainScore float64 `json:"supply_chain_score"`
}

// ScenarioResult is the transient projection for a scenario. Nothing
// here is persisted.
type ScenarioResult struct {
	RenewableScore   float64 `json:"renewable_score"`
	EmissionScore    float64 `json:"emission_score"`
	SupplyChainScore float64 `json:"supply_chain_score"`
	ProjectedScore   int     `json:"projected_score"`
}

// ProjectScore computes a hypothetical sustainability score from scenario
// inputs. The emission component maps 50 tonnes to a perfect score and
// 120 tonnes to zero, floored so extreme emissions cannot go negative.
func ProjectScore(s Scenario) ScenarioResult {
	renewableScore := clamp(s.RenewablePercent, 0, 100)
	emissionScore := math.Max(0, 100-((s.EmissionsTonnes-50)/70)*100)
	supplyScore := s.SupplyChainScore

	projected := weightRenewable*renewableScore +
		weightEmissions*emissionScore +
		weightSupplyChain*supplyScore

	return ScenarioResult{
		RenewableScore:   renewableScore,
		EmissionScore:    emissionScore,
		SupplyChainScore: supplyScore,
		ProjectedScore:   int(math.Round(projected)),
	}
}
