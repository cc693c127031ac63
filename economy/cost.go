package economy

import (
	"math"

	"github.com/townforge/agentcore/domain/economy"
	"github.com/townforge/agentcore/domain/observation"
)

// ClaimCost computes the $ARENA cost to claim a plot given how many
// plots the town has already claimed, the town's level, the world's
// cost multiplier, and whether the claiming agent owns zero plots yet
// (bootstrap discount of ~55%). Scarcity and level scale the base cost
// linearly; the exact formula is an implementer-tunable constant block
// per spec §9.
func ClaimCost(claimedPlots, townLevel int, worldCostMultiplier float64, bootstrap bool) int {
	base := float64(economy.BaseClaimCost+economy.ClaimScarcityStep*claimedPlots) * float64(townLevel) * worldCostMultiplier
	if bootstrap {
		base *= float64(10000-economy.BootstrapClaimDiscountBps) / 10000
	}
	cost := int(math.Round(base))
	if cost < 1 {
		cost = 1
	}
	return cost
}

// ZoneBaseCost returns a zone's base build cost before level/world
// multipliers.
func ZoneBaseCost(z observation.Zone) int {
	switch z {
	case observation.ZoneResidential:
		return economy.ZoneBaseCostResidential
	case observation.ZoneCommercial:
		return economy.ZoneBaseCostCommercial
	case observation.ZoneCivic:
		return economy.ZoneBaseCostCivic
	case observation.ZoneIndustrial:
		return economy.ZoneBaseCostIndustrial
	case observation.ZoneEntertainment:
		return economy.ZoneBaseCostEntertainment
	default:
		return economy.ZoneBaseCostResidential
	}
}

// BuildCost computes the $ARENA cost to start a build on a zone, scaled
// by town level, world cost multiplier, and the bootstrap discount.
func BuildCost(z observation.Zone, townLevel int, worldCostMultiplier float64, bootstrap bool) int {
	base := float64(ZoneBaseCost(z)) * float64(townLevel) * worldCostMultiplier
	if bootstrap {
		base *= float64(10000-economy.BootstrapClaimDiscountBps) / 10000
	}
	cost := int(math.Round(base))
	if cost < 1 {
		cost = 1
	}
	return cost
}

// EstimateClaimCost is the planner/dispatcher's affordability check
// entry point: approximate cost for the cheapest available plot in the
// given town state, used before an agent owns anything.
func EstimateClaimCost(claimedPlots, townLevel int, worldCostMultiplier float64) int {
	return ClaimCost(claimedPlots, townLevel, worldCostMultiplier, true)
}
