// Package execution implements the transactional execution dispatcher
// from spec §4.4: every decided Action is validated, coerced, possibly
// redirected, and applied against the external collaborators. Grounded
// on the host platform's trigger-execution loop (execute, then persist
// the outcome, never letting one failure abort the batch) and its
// gasbank-style "mutate only inside a guarded, re-read transaction"
// discipline for every economy-pool touch.
package execution

import (
	"context"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/decision"
	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/economy"
	"github.com/townforge/agentcore/internal/corerr"
)

// Result is the outcome of dispatching one action.
type Result struct {
	ActualAction action.Action // the action actually executed, after redirects
	Success      bool
	Narrative    string
	Cost         int
	Err          error
}

// Dispatcher wires every collaborator the execution variants need.
type Dispatcher struct {
	Town   collaborator.TownService
	AMM    collaborator.AMM
	Arena  collaborator.Arena
	Oracle collaborator.SkillOracle
	LM     collaborator.LanguageModel
	Pool   collaborator.EconomyPoolStore
	Visual collaborator.BuildingVisual // optional

	Tracker *economy.Tracker
}

// New wires a Dispatcher.
func New(town collaborator.TownService, amm collaborator.AMM, arena collaborator.Arena, oracle collaborator.SkillOracle, lm collaborator.LanguageModel, pool collaborator.EconomyPoolStore, visual collaborator.BuildingVisual, tracker *economy.Tracker) *Dispatcher {
	return &Dispatcher{Town: town, AMM: amm, Arena: arena, Oracle: oracle, LM: lm, Pool: pool, Visual: visual, Tracker: tracker}
}

// Execute dispatches chosen for a during one tick's pipeline. strict is
// true for STRONG/OVERRIDE commands: no redirects, preconditions surface
// as a failed Result with a corerr.Code instead of being silently routed
// around. On any error (including from a collaborator), Execute still
// returns a Result rather than propagating — nothing escapes to the
// scheduler loop (spec §7). The fumble tax is applied to errors in
// lenient mode only; a strict-mode failure is returned without it.
func (d *Dispatcher) Execute(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, chosen action.Action, strict bool, tick int64) Result {
	if a.Incapacitated() && chosen.Type != action.Rest {
		if strict {
			return Result{ActualAction: chosen, Success: false, Err: corerr.New(corerr.CodeAgentIncapacitated, "agent is incapacitated")}
		}
		chosen = action.Action{Type: action.Rest, Reasoning: "redirect: incapacitated"}
	}

	if chosen.Type != action.Rest && !obs.HasActiveTown() {
		if strict {
			return Result{ActualAction: chosen, Success: false, Err: corerr.New(corerr.CodeNoTown, "no active town")}
		}
		chosen = action.Action{Type: action.Rest, Reasoning: "redirect: no active town"}
	}

	res := d.dispatch(ctx, a, obs, wheel, chosen, strict, tick)
	if res.Err != nil && !strict {
		if tax, err := d.Tracker.FumbleTax(ctx, d.Pool, a); err == nil && tax > 0 {
			res.Cost += tax
		}
	}
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, act action.Action, strict bool, tick int64) Result {
	switch act.Type {
	case action.ClaimPlot:
		return d.claimPlot(ctx, a, obs, wheel, act, strict)
	case action.StartBuild:
		return d.startBuild(ctx, a, obs, wheel, act, strict)
	case action.DoWork:
		return d.doWork(ctx, a, obs, wheel, act, strict)
	case action.CompleteBuild:
		return d.completeBuild(ctx, a, obs, wheel, act, strict)
	case action.BuyArena:
		return d.trade(ctx, a, wheel, act, collaborator.SwapBuyArena, strict, tick)
	case action.SellArena:
		return d.trade(ctx, a, wheel, act, collaborator.SwapSellArena, strict, tick)
	case action.PlayArena:
		return d.playArena(ctx, a, obs, wheel, act, strict)
	case action.TransferArena:
		return d.transferArena(ctx, a, obs, wheel, act, strict)
	case action.BuySkill:
		return d.buySkill(ctx, a, act, strict)
	case action.Mine:
		return d.mine(ctx, a, obs, wheel, strict, tick)
	case action.Rest:
		return d.rest(ctx, a, obs, wheel, strict, tick)
	default:
		return Result{ActualAction: action.Action{Type: action.Rest}, Success: false, Err: corerr.New(corerr.CodeInvalidIntent, "unknown action type")}
	}
}
