// Package action defines the Action discriminated union agents produce
// each tick and the execution dispatcher consumes.
package action

// Type identifies one of the Action variants.
type Type string

const (
	BuyArena     Type = "buy_arena"
	SellArena    Type = "sell_arena"
	ClaimPlot    Type = "claim_plot"
	StartBuild   Type = "start_build"
	DoWork       Type = "do_work"
	CompleteBuild Type = "complete_build"
	PlayArena    Type = "play_arena"
	TransferArena Type = "transfer_arena"
	BuySkill     Type = "buy_skill"
	Mine         Type = "mine" // legacy, always redirected
	Rest         Type = "rest"
)

// Skill enumerates the paid-skill oracle's supported skills.
type Skill string

const (
	SkillMarketDepth    Skill = "MARKET_DEPTH"
	SkillBlueprintIndex Skill = "BLUEPRINT_INDEX"
	SkillScoutReport    Skill = "SCOUT_REPORT"
)

// Action is a tagged variant: Type selects which of the parameter fields
// below are meaningful. Unknown/zero-value fields for the chosen variant
// are the caller's responsibility to populate before execution.
type Action struct {
	Type      Type
	Reasoning string

	// buy_arena / sell_arena
	AmountIn    int
	MinAmountOut int

	// claim_plot / start_build (target resolution)
	PlotID    string
	PlotIndex int

	// start_build
	BuildingType string

	// play_arena
	GameType string
	Wager    int

	// transfer_arena
	TargetAgentName string
	Amount          int

	// buy_skill
	Skill              Skill
	Question           string
	WhyNow             string
	ExpectedNextAction string
	IfThen             string

	// policy-overlay bookkeeping, carried so overlays can judge intent
	Why        string
	NextAction string
}

// IsSpend reports whether the variant debits the agent's bankroll as its
// primary effect, used by the UNDERFUNDED_ACTION overlay.
func (a Action) IsSpend() bool {
	switch a.Type {
	case BuyArena, ClaimPlot, StartBuild, PlayArena, TransferArena, BuySkill:
		return true
	default:
		return false
	}
}
