// Package planner implements the manual operator action planner from
// spec §4.6: a pure, deterministic mapping from an operator's coarse
// intent ("build", "work", "fight", "trade", "rest") plus an agent's
// observed world state to a concrete command intent+params. It performs
// no I/O and is the pure, testable surface operators use to issue
// commands without seeing full world state (spec §8 property 9).
package planner

import (
	"fmt"

	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/economy"
	"github.com/townforge/agentcore/internal/corerr"
)

// Kind is the coarse operator intent.
type Kind string

const (
	KindBuild Kind = "build"
	KindWork  Kind = "work"
	KindFight Kind = "fight"
	KindTrade Kind = "trade"
	KindRest  Kind = "rest"
)

// WheelState is the current wheel-of-fate window, if any, used by the
// "fight" plan to pick a game type/wager.
type WheelState struct {
	Active   bool
	GameType string
	Wager    int
}

// Result is the outcome of PlanDeterministicAction: either a concrete
// intent+params to turn into a Command, or a typed rejection.
type Result struct {
	OK         bool
	Intent     string
	Params     map[string]any
	Note       string
	ReasonCode corerr.Code
	Reason     string
}

func rejected(code corerr.Code, reason string) Result {
	return Result{OK: false, ReasonCode: code, Reason: reason}
}

// AgentFunds is the minimal funding state the planner needs; it is kept
// separate from domain/agent.Agent so the planner stays decoupled from
// the full agent lifecycle type.
type AgentFunds struct {
	Bankroll       int
	ReserveBalance int
}

// Trade chunk sizes the deterministic trade plan uses; these are the
// planner's own tuning constants, distinct from the dynamic AMM pricing
// the execution dispatcher uses for real trades.
const tradeSellChunk = 80

// PlanDeterministicAction maps one coarse operator kind to a concrete
// intent, given the agent's current observation and funds.
func PlanDeterministicAction(agentID string, kind Kind, obs observation.Observation, funds AgentFunds, wheel WheelState) Result {
	switch kind {
	case KindRest:
		return Result{OK: true, Intent: "rest", Params: map[string]any{}}
	case KindFight:
		return planFight(wheel)
	case KindWork:
		return planWork(obs)
	case KindBuild:
		return planBuild(obs, funds)
	case KindTrade:
		return planTrade(funds)
	default:
		return rejected(corerr.CodeInvalidIntent, fmt.Sprintf("unknown planner kind %q", kind))
	}
}

func planFight(wheel WheelState) Result {
	gameType := "POKER"
	wager := 25
	if wheel.Active && wheel.GameType != "" {
		gameType = wheel.GameType
		wager = wheel.Wager
	}
	return Result{
		OK:     true,
		Intent: "play_arena",
		Params: map[string]any{"gameType": gameType, "wager": wager},
	}
}

func planWork(obs observation.Observation) Result {
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
	if best < 0 {
		return rejected(corerr.CodeConstraintViolation, "No active construction to work on")
	}
	return Result{
		OK:     true,
		Intent: "do_work",
		Params: map[string]any{
			"plotId":       bestPlot.ID,
			"plotIndex":    bestPlot.Index,
			"apiCallsUsed": bestPlot.ApiCallsUsed,
		},
	}
}

func planBuild(obs observation.Observation, funds AgentFunds) Result {
	// Prefer continuing an under-construction plot.
	for _, p := range obs.OwnedPlots {
		if p.Status == observation.PlotUnderConstruction {
			return Result{
				OK:     true,
				Intent: "do_work",
				Params: map[string]any{
					"plotId":       p.ID,
					"plotIndex":    p.Index,
					"apiCallsUsed": p.ApiCallsUsed,
				},
			}
		}
	}

	// Else start a build on a plot already claimed by this agent.
	for _, p := range obs.OwnedPlots {
		if p.Status == observation.PlotClaimed {
			return Result{
				OK:     true,
				Intent: "start_build",
				Params: map[string]any{
					"plotId":    p.ID,
					"plotIndex": p.Index,
				},
			}
		}
	}

	// Else bootstrap: claim the first available plot.
	if len(obs.AvailablePlots) == 0 {
		return rejected(corerr.CodeTargetUnavailable, "No claimable plot available in the active town")
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
		return rejected(corerr.CodeInsufficientArena, fmt.Sprintf("Need about %d $ARENA to bootstrap-claim a plot, have %d", estimate, funds.Bankroll))
	}

	target := obs.AvailablePlots[0]
	return Result{
		OK:     true,
		Intent: "claim_plot",
		Params: map[string]any{"plotIndex": target.Index},
	}
}

func planTrade(funds AgentFunds) Result {
	if funds.ReserveBalance >= 12 && funds.Bankroll <= 130 {
		return Result{
			OK:     true,
			Intent: "buy_arena",
			Params: map[string]any{"amountIn": funds.ReserveBalance, "nextAction": "play_arena"},
		}
	}
	if funds.Bankroll >= 40 {
		amount := tradeSellChunk
		if amount > funds.Bankroll {
			amount = funds.Bankroll
		}
		return Result{
			OK:     true,
			Intent: "sell_arena",
			Params: map[string]any{"amountIn": amount, "nextAction": "start_build"},
		}
	}
	return rejected(corerr.CodeConstraintViolation, "Insufficient funds for any deterministic trade plan")
}
