package decision

import (
	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/economy"
)

// WheelState mirrors the active wheel-of-fate window; decision and
// planner each take their own copy rather than sharing a type so neither
// package depends on the other's vocabulary.
type WheelState struct {
	Active   bool
	Fighting bool // a fight phase is currently FIGHTING, not just ANNOUNCING
	GameType string
	Wager    int
}

// Nudge is the operator's optional steer for a degen-loop agent.
type Nudge string

const (
	NudgeNone  Nudge = ""
	NudgeBuild Nudge = "build"
	NudgeWork  Nudge = "work"
	NudgeFight Nudge = "fight"
	NudgeTrade Nudge = "trade"
)

// DegenFunds is the funding state the degen-loop policy needs.
type DegenFunds struct {
	Bankroll       int
	ReserveBalance int
}

const degenTradeSellChunk = 80

// Loop is the closed-form degen-loop policy (spec §4.3(2)): always returns
// an Action without any model call, in strict priority order: active
// wheel fight, explicit nudge, complete-ready build, continue active
// build, start a claimed plot, bootstrap claim (nudge=build only),
// profit-rotation swap, idle hold.
func Loop(obs observation.Observation, funds DegenFunds, wheel WheelState, nudge Nudge) action.Action {
	if wheel.Active && wheel.Fighting {
		return fightAction(wheel)
	}

	if nudge != NudgeNone {
		if a, ok := nudgedAction(obs, funds, nudge); ok {
			return a
		}
	}

	if p, ok := readyToComplete(obs); ok {
		return action.Action{Type: action.CompleteBuild, PlotID: p.ID, PlotIndex: p.Index, Reasoning: "degen-loop: build ready to complete"}
	}

	if p, ok := mostProgressedBuild(obs); ok {
		return action.Action{Type: action.DoWork, PlotID: p.ID, PlotIndex: p.Index, Reasoning: "degen-loop: continuing active build"}
	}

	if p, ok := firstClaimedPlot(obs); ok {
		return action.Action{Type: action.StartBuild, PlotID: p.ID, PlotIndex: p.Index, BuildingType: string(p.Zone), Reasoning: "degen-loop: starting claimed plot"}
	}

	if a, ok := profitRotation(funds); ok {
		return a
	}

	return action.Action{Type: action.Rest, Reasoning: "degen-loop: idle hold"}
}

func fightAction(wheel WheelState) action.Action {
	gameType := wheel.GameType
	if gameType == "" {
		gameType = "POKER"
	}
	wager := wheel.Wager
	if wager <= 0 {
		wager = 25
	}
	return action.Action{Type: action.PlayArena, GameType: gameType, Wager: wager, Reasoning: "degen-loop: active wheel fight"}
}

func nudgedAction(obs observation.Observation, funds DegenFunds, nudge Nudge) (action.Action, bool) {
	switch nudge {
	case NudgeFight:
		return action.Action{Type: action.PlayArena, GameType: "POKER", Wager: 25, Reasoning: "degen-loop: explicit fight nudge"}, true
	case NudgeWork:
		if p, ok := mostProgressedBuild(obs); ok {
			return action.Action{Type: action.DoWork, PlotID: p.ID, PlotIndex: p.Index, Reasoning: "degen-loop: explicit work nudge"}, true
		}
		return action.Action{}, false
	case NudgeBuild:
		if p, ok := readyToComplete(obs); ok {
			return action.Action{Type: action.CompleteBuild, PlotID: p.ID, PlotIndex: p.Index, Reasoning: "degen-loop: explicit build nudge"}, true
		}
		if p, ok := mostProgressedBuild(obs); ok {
			return action.Action{Type: action.DoWork, PlotID: p.ID, PlotIndex: p.Index, Reasoning: "degen-loop: explicit build nudge"}, true
		}
		if p, ok := firstClaimedPlot(obs); ok {
			return action.Action{Type: action.StartBuild, PlotID: p.ID, PlotIndex: p.Index, BuildingType: string(p.Zone), Reasoning: "degen-loop: explicit build nudge"}, true
		}
		if len(obs.AvailablePlots) == 0 {
			return action.Action{}, false
		}
		level := 1
		if obs.Town != nil {
			level = obs.Town.Level
		}
		mult := obs.WorldStats.CostMultiplier
		if mult <= 0 {
			mult = 1
		}
		estimate := economy.EstimateClaimCost(len(obs.AvailablePlots), level, mult)
		if funds.Bankroll < estimate {
			return action.Action{}, false
		}
		target := obs.AvailablePlots[0]
		return action.Action{Type: action.ClaimPlot, PlotIndex: target.Index, Reasoning: "degen-loop: explicit build nudge bootstrap claim"}, true
	case NudgeTrade:
		if a, ok := profitRotation(funds); ok {
			return a, true
		}
		return action.Action{}, false
	default:
		return action.Action{}, false
	}
}

func readyToComplete(obs observation.Observation) (observation.Plot, bool) {
	for _, p := range obs.OwnedPlots {
		if p.Status == observation.PlotUnderConstruction && p.ApiCallsUsed >= p.Zone.MinWorkSteps() {
			return p, true
		}
	}
	return observation.Plot{}, false
}

func mostProgressedBuild(obs observation.Observation) (observation.Plot, bool) {
	best := -1
	var bestPlot observation.Plot
	for _, p := range obs.OwnedPlots {
		if p.Status != observation.PlotUnderConstruction {
			continue
		}
		if p.ApiCallsUsed > best {
			best = p.ApiCallsUsed
			bestPlot = p
		}
	}
	return bestPlot, best >= 0
}

func firstClaimedPlot(obs observation.Observation) (observation.Plot, bool) {
	for _, p := range obs.OwnedPlots {
		if p.Status == observation.PlotClaimed {
			return p, true
		}
	}
	return observation.Plot{}, false
}

// profitRotation is the degen-loop's own swap heuristic, distinct from the
// manual planner's trade plan: it only fires without an explicit nudge
// when there's a clear surplus to rotate.
func profitRotation(funds DegenFunds) (action.Action, bool) {
	if funds.ReserveBalance >= 12 && funds.Bankroll <= 130 {
		return action.Action{Type: action.BuyArena, AmountIn: funds.ReserveBalance, Why: "rotating reserve surplus into $ARENA", NextAction: "play_arena", Reasoning: "degen-loop: profit rotation buy"}, true
	}
	if funds.Bankroll >= 200 {
		amount := degenTradeSellChunk
		if amount > funds.Bankroll {
			amount = funds.Bankroll
		}
		return action.Action{Type: action.SellArena, AmountIn: amount, Why: "rotating $ARENA surplus to reserve", NextAction: "start_build", Reasoning: "degen-loop: profit rotation sell"}, true
	}
	return action.Action{}, false
}
