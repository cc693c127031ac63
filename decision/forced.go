package decision

import (
	"fmt"

	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/command"
	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/internal/corerr"
)

// TranslateForced converts a STRONG/OVERRIDE command's intent+params into a
// concrete Action, per spec §4.3(1). Failure returns a *corerr.Error whose
// Code is one of INVALID_INTENT, TARGET_UNAVAILABLE, CONSTRAINT_VIOLATION —
// the caller marks the command REJECTED with that code and falls through
// to the normal decision path with the command cleared.
func TranslateForced(cmd *command.Command, obs observation.Observation) (action.Action, error) {
	a := action.Action{Reasoning: "forced by command " + cmd.ID}

	switch action.Type(cmd.Intent) {
	case action.ClaimPlot:
		idx, ok := intParam(cmd.Params, "plotIndex")
		if !ok {
			return action.Action{}, corerr.New(corerr.CodeInvalidIntent, "claim_plot requires plotIndex")
		}
		if !plotIndexAvailable(obs.AvailablePlots, idx) {
			return action.Action{}, corerr.New(corerr.CodeTargetUnavailable, fmt.Sprintf("plot index %d is not claimable", idx))
		}
		a.Type = action.ClaimPlot
		a.PlotIndex = idx
		return a, nil

	case action.StartBuild:
		bt, _ := strParam(cmd.Params, "buildingType")
		if bt == "" {
			return action.Action{}, corerr.New(corerr.CodeInvalidIntent, "start_build requires buildingType")
		}
		a.Type = action.StartBuild
		a.BuildingType = bt
		a.PlotID, _ = strParam(cmd.Params, "plotId")
		if idx, ok := intParam(cmd.Params, "plotIndex"); ok {
			a.PlotIndex = idx
		}
		return a, nil

	case action.DoWork:
		a.Type = action.DoWork
		a.PlotID, _ = strParam(cmd.Params, "plotId")
		if idx, ok := intParam(cmd.Params, "plotIndex"); ok {
			a.PlotIndex = idx
		}
		if a.PlotID == "" && !anyOwnedUnderConstruction(obs) {
			return action.Action{}, corerr.New(corerr.CodeConstraintViolation, "no active construction to work on")
		}
		return a, nil

	case action.CompleteBuild:
		a.Type = action.CompleteBuild
		a.PlotID, _ = strParam(cmd.Params, "plotId")
		return a, nil

	case action.BuyArena, action.SellArena:
		amt, ok := intParam(cmd.Params, "amountIn")
		if !ok || amt <= 0 {
			return action.Action{}, corerr.New(corerr.CodeInvalidIntent, "trade requires positive amountIn")
		}
		a.Type = action.Type(cmd.Intent)
		a.AmountIn = amt
		if min, ok := intParam(cmd.Params, "minAmountOut"); ok {
			a.MinAmountOut = min
		}
		return a, nil

	case action.PlayArena:
		a.Type = action.PlayArena
		a.GameType, _ = strParam(cmd.Params, "gameType")
		if a.GameType == "" {
			a.GameType = "POKER"
		}
		if w, ok := intParam(cmd.Params, "wager"); ok {
			a.Wager = w
		} else {
			a.Wager = 25
		}
		return a, nil

	case action.TransferArena:
		target, _ := strParam(cmd.Params, "targetAgentName")
		amt, ok := intParam(cmd.Params, "amount")
		if target == "" || !ok || amt <= 0 {
			return action.Action{}, corerr.New(corerr.CodeInvalidIntent, "transfer_arena requires targetAgentName and positive amount")
		}
		a.Type = action.TransferArena
		a.TargetAgentName = target
		a.Amount = amt
		return a, nil

	case action.BuySkill:
		skill, _ := strParam(cmd.Params, "skill")
		if skill == "" {
			return action.Action{}, corerr.New(corerr.CodeInvalidIntent, "buy_skill requires skill")
		}
		a.Type = action.BuySkill
		a.Skill = action.Skill(skill)
		a.Question, _ = strParam(cmd.Params, "question")
		a.WhyNow, _ = strParam(cmd.Params, "whyNow")
		a.ExpectedNextAction, _ = strParam(cmd.Params, "expectedNextAction")
		a.IfThen, _ = strParam(cmd.Params, "ifThen")
		return a, nil

	case action.Rest:
		a.Type = action.Rest
		return a, nil

	default:
		return action.Action{}, corerr.New(corerr.CodeInvalidIntent, fmt.Sprintf("unknown command intent %q", cmd.Intent))
	}
}

func intParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func strParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func plotIndexAvailable(plots []observation.Plot, idx int) bool {
	for _, p := range plots {
		if p.Index == idx {
			return true
		}
	}
	return false
}

func anyOwnedUnderConstruction(obs observation.Observation) bool {
	for _, p := range obs.OwnedPlots {
		if p.Status == observation.PlotUnderConstruction {
			return true
		}
	}
	return false
}
