package economy

// Named economy constants from spec §4.7. Exact claim-cost and build-cost
// scarcity multipliers are only partially specified by the source system;
// per the open question in spec §9 these are kept as a single tunable
// block rather than guessed precisely.
const (
	SolvencyRescueTriggerBankroll = 35
	SolvencyRescueTriggerReserve  = 5
	SolvencyRescueArena           = 30
	SolvencyRescueCooldownTicks   = 3
	SolvencyRescueHealthBump      = 3
	SolvencyRescueWindowTicks     = 16
	SolvencyRescueMaxPerWindow    = 2
	SolvencyRescueRepaymentBps    = 2500
	SolvencyRescueRepaymentFloor  = 90
	SolvencyPoolFloor             = 1000

	// Claim/build cost tuning (spec §4.4, §9 open question).
	BaseClaimCost           = 20
	ClaimScarcityStep       = 2 // cost += step * claimedPlots
	BootstrapClaimDiscountBps = 5500 // ~55% off for agents with zero owned plots

	// Zone base build costs before level/world multipliers.
	ZoneBaseCostResidential   = 40
	ZoneBaseCostCommercial    = 60
	ZoneBaseCostCivic         = 90
	ZoneBaseCostIndustrial    = 70
	ZoneBaseCostEntertainment = 65

	// Work wage formula bounds: clamp(3..6, ceil(max(8, buildCost)/(minCalls*2))).
	WorkWageMin = 3
	WorkWageMax = 6

	// Completion bonus: clamp(6..24, round(0.45 * max(10, buildCost))).
	CompletionBonusMin = 6
	CompletionBonusMax = 24

	// Non-rest streak milestones and their one-time rewards.
	StreakMilestone3  = 3
	StreakMilestone5  = 5
	StreakMilestone8  = 8
	StreakMilestone13 = 13
	StreakReward3     = 6
	StreakReward5     = 10
	StreakReward8     = 14
	StreakReward13    = 20

	// Soft-policy overlay budget: override rate over the trailing window.
	OverlayWindowSize = 24
	OverlayBudgetRate = 0.4

	// Fumble tax applied on any caught execution exception.
	FumbleTax           = 1
	FumbleTaxMinBankroll = 4

	// Trade cooldown: ticks that must elapse between trades before a
	// buy_arena/sell_arena is allowed through without overlay rewrite.
	TradeCooldownTicks = 3
)

// StreakReward returns the one-time reward for reaching milestone n, or 0
// if n is not a milestone.
func StreakReward(milestone int) int {
	switch milestone {
	case StreakMilestone3:
		return StreakReward3
	case StreakMilestone5:
		return StreakReward5
	case StreakMilestone8:
		return StreakReward8
	case StreakMilestone13:
		return StreakReward13
	default:
		return 0
	}
}

// streakMilestones in ascending order, used to find the next milestone a
// streak has just reached.
var streakMilestones = []int{StreakMilestone3, StreakMilestone5, StreakMilestone8, StreakMilestone13}
