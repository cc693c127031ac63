package decision

import (
	"context"

	"github.com/townforge/agentcore/decision/overlay"
	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/command"
	domaindecision "github.com/townforge/agentcore/domain/decision"
	"github.com/townforge/agentcore/domain/economy"
	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/internal/corerr"
	"github.com/townforge/agentcore/memory"
)

// reasonFromCode maps the dispatcher's/translator's error taxonomy onto the
// narrower set of reasons a rejected command can carry back to its issuer.
func reasonFromCode(code corerr.Code) command.ReasonCode {
	switch code {
	case corerr.CodeInvalidIntent, corerr.CodeInvalidAmount, corerr.CodeInvalidPlotIndex:
		return command.ReasonInvalidIntent
	case corerr.CodeTargetUnavailable, corerr.CodeNoClaimedPlot, corerr.CodeNoActiveBuild,
		corerr.CodeNoOpponents, corerr.CodeNotReady, corerr.CodeNoReserve, corerr.CodeNoArena, corerr.CodeNoTown:
		return command.ReasonTargetUnavailable
	case corerr.CodeInsufficientArena, corerr.CodeConstraintViolation:
		return command.ReasonConstraintViolation
	case corerr.CodeAgentIncapacitated:
		return command.ReasonAgentIncapacitated
	default:
		return command.ReasonExecutionError
	}
}

// nudgeKinds are the coarse planner-style intents a SUGGEST command can
// carry into the degen-loop policy as a nudge.
var nudgeKinds = map[string]Nudge{
	"build": NudgeBuild,
	"work":  NudgeWork,
	"fight": NudgeFight,
	"trade": NudgeTrade,
}

// Funds is the funding snapshot the engine threads through to the
// degen-loop policy and the overlay.
type Funds struct {
	Bankroll       int
	ReserveBalance int
}

// Engine drives the three mutually exclusive decision paths (spec
// §4.3): forced command translation, the degen-loop policy, or a model
// call followed by the policy overlay.
type Engine struct {
	Model   *ModelEngine
	Memory  *memory.Store
	Tracker *economy.Tracker
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(model *ModelEngine, mem *memory.Store, tracker *economy.Tracker) *Engine {
	return &Engine{Model: model, Memory: mem, Tracker: tracker}
}

// Decide runs the decision pipeline for one agent's tick. rejected is
// non-nil when a forced command failed to translate, so the caller can
// mark it REJECTED before retrying the normal path with cmd cleared.
func (e *Engine) Decide(ctx context.Context, a *agent.Agent, obs observation.Observation, cmd *command.Command, funds Funds, wheel WheelState, loopMode agent.LoopMode, goalStack []string, humanInstructions []string) (rec domaindecision.Record, rejected *command.Command) {
	autonomyBefore := e.Memory.AutonomyRate(a.ID)

	if cmd != nil && cmd.Mode.Forced() {
		translated, err := TranslateForced(cmd, obs)
		if err == nil {
			rec = domaindecision.Record{
				AgentID: a.ID, Tick: obs.Tick,
				ChosenAction: translated, ExecutedAction: translated,
				ChosenReasoning: translated.Reasoning,
				AutonomyBefore: autonomyBefore, AutonomyAfter: autonomyBefore,
				CommandID: cmd.ID, CommandMode: cmd.Mode,
			}
			e.Memory.RecordDecision(a.ID, rec)
			return rec, nil
		}
		rejected = cmd
		rejected.ReasonCode = reasonFromCode(corerr.CodeOf(err))
		cmd = nil
	}

	var chosen action.Action
	if loopMode == agent.LoopModeDegenLoop {
		nudge := NudgeNone
		if cmd != nil {
			if n, ok := nudgeKinds[cmd.Intent]; ok {
				nudge = n
			}
		}
		chosen = Loop(obs, DegenFunds(funds), wheel, nudge)
	} else {
		var suggested *command.Command
		if cmd != nil && cmd.Mode == command.Suggest {
			suggested = cmd
		}
		prompt := BuildSystemPrompt(a, obs, goalStack, suggested, humanInstructions)
		chosen = e.Model.Decide(ctx, a, obs, prompt)
	}

	executed, notes := overlay.Apply(a.ID, obs, chosen, overlay.Funds(funds), goalStack, overlay.Deps{
		TradedRecently: func(id string) bool { return e.Tracker.TradedRecently(id, obs.Tick) },
		BudgetOpen:     func(id string) bool { return e.Memory.OverlayBudgetOpen(id, economy.OverlayBudgetRate) },
	})

	rec = domaindecision.Record{
		AgentID: a.ID, Tick: obs.Tick,
		ChosenAction: chosen, ExecutedAction: executed,
		ChosenReasoning: chosen.Reasoning,
		Notes:           notes,
		AutonomyBefore:  autonomyBefore,
	}
	if cmd != nil {
		rec.CommandID = cmd.ID
		rec.CommandMode = cmd.Mode
	}

	e.Memory.RecordDecision(a.ID, rec)
	rec.AutonomyAfter = e.Memory.AutonomyRate(a.ID)
	return rec, rejected
}
