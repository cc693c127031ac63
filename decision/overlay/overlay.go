// Package overlay implements the policy overlay from spec §4.3: a chain
// of soft corrections applied to a model decision, each gated by the
// agent's trailing 24-decision override-rate budget (open when < 40%).
package overlay

import (
	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/decision"
	"github.com/townforge/agentcore/domain/observation"
)

// Funds is the funding state the overlay needs for its warning checks.
type Funds struct {
	Bankroll       int
	ReserveBalance int
}

// Deps are the overlay's external collaborators: a trade-cooldown oracle
// and the agent's sliding override-rate budget.
type Deps struct {
	TradedRecently func(agentID string) bool
	BudgetOpen     func(agentID string) bool
}

// Apply runs every overlay in spec order against chosen, returning the
// (possibly rewritten) action and the diagnostic notes for each overlay
// that evaluated, whether or not it applied.
func Apply(agentID string, obs observation.Observation, chosen action.Action, funds Funds, goalStack []string, deps Deps) (action.Action, []decision.Note) {
	var notes []decision.Note
	current := chosen
	budgetOpen := deps.BudgetOpen(agentID)

	if note, rewritten, ok := tradeCooldown(current, deps.TradedRecently(agentID), budgetOpen); ok {
		notes = append(notes, note)
		if note.Applied {
			current = rewritten
		}
	}

	if note, rewritten, ok := initialFoothold(current, obs, budgetOpen); ok {
		notes = append(notes, note)
		if note.Applied {
			current = rewritten
		}
	}

	if note, rewritten, ok := buildPriority(current, obs, budgetOpen); ok {
		notes = append(notes, note)
		if note.Applied {
			current = rewritten
		}
	}

	if note, rewritten, ok := liveObjectiveClaim(current, obs, goalStack, budgetOpen); ok {
		notes = append(notes, note)
		if note.Applied {
			current = rewritten
		}
	}

	if note, ok := underfundedWarning(current, funds); ok {
		notes = append(notes, note)
	}

	return current, notes
}

// tradeCooldown converts buy_arena/sell_arena to rest when the agent
// traded within economy.TradeCooldownTicks, or when the action is missing
// its why+nextAction plan fields (TRADE_WITHOUT_PLAN).
func tradeCooldown(a action.Action, tradedRecently, budgetOpen bool) (decision.Note, action.Action, bool) {
	if a.Type != action.BuyArena && a.Type != action.SellArena {
		return decision.Note{}, a, false
	}
	switch {
	case tradedRecently:
		note := decision.Note{Tier: decision.TierEconomicWarning, Code: "TRADE_COOLDOWN", Message: "traded too recently, converting to rest"}
		if budgetOpen {
			note.Applied = true
			return note, action.Action{Type: action.Rest, Reasoning: "overlay: trade cooldown"}, true
		}
		return note, a, true
	case a.Why == "" || a.NextAction == "":
		note := decision.Note{Tier: decision.TierEconomicWarning, Code: "TRADE_WITHOUT_PLAN", Message: "trade missing why/nextAction, converting to rest"}
		if budgetOpen {
			note.Applied = true
			return note, action.Action{Type: action.Rest, Reasoning: "overlay: trade without plan"}, true
		}
		return note, a, true
	default:
		return decision.Note{}, a, false
	}
}

// initialFoothold rewrites a chosen rest into claim_plot when the agent
// owns nothing yet and a plot is available to claim.
func initialFoothold(a action.Action, obs observation.Observation, budgetOpen bool) (decision.Note, action.Action, bool) {
	if a.Type != action.Rest || len(obs.OwnedPlots) != 0 || len(obs.AvailablePlots) == 0 {
		return decision.Note{}, a, false
	}
	note := decision.Note{Tier: decision.TierStrategyNudge, Code: "INITIAL_FOOTHOLD", Message: "no plots owned, steering toward first claim"}
	if !budgetOpen {
		return note, a, true
	}
	note.Applied = true
	target := obs.AvailablePlots[0]
	return note, action.Action{Type: action.ClaimPlot, PlotIndex: target.Index, Reasoning: "overlay: initial foothold"}, true
}

// buildPriority steers toward the highest-priority build step
// (COMPLETE_READY_BUILD > KEEP_BUILD_MOMENTUM > START_CLAIMED_BUILD) when
// the model didn't already choose a build-related action, skipping when
// the model explicitly chose to buy the blueprint-index skill.
func buildPriority(a action.Action, obs observation.Observation, budgetOpen bool) (decision.Note, action.Action, bool) {
	if a.Type == action.BuySkill && a.Skill == action.SkillBlueprintIndex {
		return decision.Note{}, a, false
	}
	switch a.Type {
	case action.CompleteBuild, action.DoWork, action.StartBuild, action.ClaimPlot:
		return decision.Note{}, a, false
	}

	for _, p := range obs.OwnedPlots {
		if p.Status == observation.PlotUnderConstruction && p.ApiCallsUsed >= p.Zone.MinWorkSteps() {
			note := decision.Note{Tier: decision.TierStrategyNudge, Code: "COMPLETE_READY_BUILD", Message: "a build is ready to complete"}
			if !budgetOpen {
				return note, a, true
			}
			note.Applied = true
			return note, action.Action{Type: action.CompleteBuild, PlotID: p.ID, PlotIndex: p.Index, Reasoning: "overlay: complete ready build"}, true
		}
	}
	best := -1
	var bestPlot observation.Plot
	for _, p := range obs.OwnedPlots {
		if p.Status == observation.PlotUnderConstruction && p.ApiCallsUsed > best {
			best = p.ApiCallsUsed
			bestPlot = p
		}
	}
	if best >= 0 {
		note := decision.Note{Tier: decision.TierStrategyNudge, Code: "KEEP_BUILD_MOMENTUM", Message: "continuing the most progressed build"}
		if !budgetOpen {
			return note, a, true
		}
		note.Applied = true
		return note, action.Action{Type: action.DoWork, PlotID: bestPlot.ID, PlotIndex: bestPlot.Index, Reasoning: "overlay: keep build momentum"}, true
	}
	for _, p := range obs.OwnedPlots {
		if p.Status == observation.PlotClaimed {
			note := decision.Note{Tier: decision.TierStrategyNudge, Code: "START_CLAIMED_BUILD", Message: "starting construction on an already-claimed plot"}
			if !budgetOpen {
				return note, a, true
			}
			note.Applied = true
			return note, action.Action{Type: action.StartBuild, PlotID: p.ID, PlotIndex: p.Index, BuildingType: string(p.Zone), Reasoning: "overlay: start claimed build"}, true
		}
	}
	return decision.Note{}, a, false
}

// liveObjectiveClaim steers a claim_plot when the agent's goal stack
// names a plot index it must claim ("claim:<index>") that is still
// available.
func liveObjectiveClaim(a action.Action, obs observation.Observation, goalStack []string, budgetOpen bool) (decision.Note, action.Action, bool) {
	if a.Type == action.ClaimPlot {
		return decision.Note{}, a, false
	}
	for _, g := range goalStack {
		idx, ok := parseClaimGoal(g)
		if !ok {
			continue
		}
		for _, p := range obs.AvailablePlots {
			if p.Index == idx {
				note := decision.Note{Tier: decision.TierStrategyNudge, Code: "LIVE_OBJECTIVE_CLAIM", Message: "a tracked objective requires claiming this plot before its deadline"}
				if !budgetOpen {
					return note, a, true
				}
				note.Applied = true
				return note, action.Action{Type: action.ClaimPlot, PlotIndex: idx, Reasoning: "overlay: live objective claim"}, true
			}
		}
	}
	return decision.Note{}, a, false
}

func parseClaimGoal(g string) (int, bool) {
	const prefix = "claim:"
	if len(g) <= len(prefix) || g[:len(prefix)] != prefix {
		return 0, false
	}
	n := 0
	for _, c := range g[len(prefix):] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// underfundedWarning attaches a diagnostic (non-rewriting) note when the
// chosen spending action exceeds bankroll by more than the reserve could
// plausibly cover.
func underfundedWarning(a action.Action, funds Funds) (decision.Note, bool) {
	if !a.IsSpend() {
		return decision.Note{}, false
	}
	cost := spendEstimate(a)
	if cost <= funds.Bankroll {
		return decision.Note{}, false
	}
	if cost <= funds.Bankroll+funds.ReserveBalance {
		return decision.Note{}, false
	}
	return decision.Note{
		Tier:    decision.TierEconomicWarning,
		Code:    "UNDERFUNDED_ACTION",
		Message: "chosen action's estimated cost exceeds bankroll and reserve",
	}, true
}

func spendEstimate(a action.Action) int {
	switch a.Type {
	case action.BuyArena:
		return a.AmountIn
	case action.PlayArena:
		return a.Wager
	case action.TransferArena:
		return a.Amount
	default:
		return 0
	}
}
