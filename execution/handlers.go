package execution

import (
	"context"
	"fmt"
	"strings"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/decision"
	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/economy"
	"github.com/townforge/agentcore/internal/corerr"
)

func fail(act action.Action, code corerr.Code, msg string) Result {
	return Result{ActualAction: act, Success: false, Err: corerr.New(code, msg)}
}

func redirectTo(reason string, replacement action.Action) action.Action {
	replacement.Reasoning = "[REDIRECT] " + reason
	return replacement
}

func worldLevelAndMultiplier(obs observation.Observation) (level int, costMult float64) {
	level = 1
	if obs.Town != nil {
		level = obs.Town.Level
	}
	costMult = obs.WorldStats.CostMultiplier
	if costMult <= 0 {
		costMult = 1
	}
	return
}

func (d *Dispatcher) claimPlot(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, act action.Action, strict bool) Result {
	level, costMult := worldLevelAndMultiplier(obs)
	bootstrap := len(obs.OwnedPlots) == 0
	cost := economy.ClaimCost(len(obs.AvailablePlots), level, costMult, bootstrap)

	if a.Bankroll < cost {
		if strict {
			return fail(act, corerr.CodeInsufficientArena, fmt.Sprintf("need %d $ARENA to claim, have %d", cost, a.Bankroll))
		}
		if a.ReserveBalance >= 10 {
			return d.trade(ctx, a, wheel, redirectTo("insufficient $ARENA to claim", action.Action{Type: action.BuyArena, AmountIn: a.ReserveBalance, Why: "funding a plot claim", NextAction: "claim_plot"}), collaborator.SwapBuyArena, false, obs.Tick)
		}
		return d.rest(ctx, a, obs, wheel, false, obs.Tick)
	}

	_, err := d.Town.ClaimPlot(ctx, a.ID, obs.Town.ID, act.PlotIndex)
	if err != nil {
		if strict {
			return fail(act, corerr.CodeTargetUnavailable, err.Error())
		}
		return Result{ActualAction: act, Success: false, Err: err}
	}

	a.Bankroll -= cost
	a.LastTargetPlot = act.PlotIndex
	d.Tracker.AdvanceStreak(a.ID)
	return Result{ActualAction: act, Success: true, Narrative: "claimed a new plot", Cost: cost}
}

func (d *Dispatcher) startBuild(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, act action.Action, strict bool) Result {
	target, ok := resolveBuildTarget(obs, act)
	if !ok {
		if strict {
			return fail(act, corerr.CodeNoClaimedPlot, "no plot available to start a build on")
		}
		return d.rest(ctx, a, obs, wheel, false, obs.Tick)
	}
	if target.Status == observation.PlotUnderConstruction {
		if strict {
			return fail(act, corerr.CodeTargetUnavailable, "plot already under construction")
		}
		return d.doWork(ctx, a, obs, wheel, redirectTo("plot already under construction", action.Action{Type: action.DoWork, PlotID: target.ID, PlotIndex: target.Index}), strict)
	}

	level, costMult := worldLevelAndMultiplier(obs)
	bootstrap := len(obs.OwnedPlots) == 0
	cost := economy.BuildCost(target.Zone, level, costMult, bootstrap)

	if a.Bankroll < cost {
		if strict {
			return fail(act, corerr.CodeInsufficientArena, fmt.Sprintf("need %d $ARENA to start build, have %d", cost, a.Bankroll))
		}
		if a.ReserveBalance >= 10 {
			return d.trade(ctx, a, wheel, redirectTo("insufficient $ARENA to build", action.Action{Type: action.BuyArena, AmountIn: a.ReserveBalance, Why: "funding a build", NextAction: "start_build"}), collaborator.SwapBuyArena, false, obs.Tick)
		}
		return d.rest(ctx, a, obs, wheel, false, obs.Tick)
	}

	buildingType := act.BuildingType
	if buildingType == "" {
		buildingType = string(target.Zone)
	}
	if err := d.Town.StartBuild(ctx, a.ID, target.ID, buildingType); err != nil {
		if strict {
			return fail(act, corerr.CodeExecutionFailed, err.Error())
		}
		return Result{ActualAction: act, Success: false, Err: err}
	}

	a.Bankroll -= cost
	d.Tracker.AdvanceStreak(a.ID)
	return Result{ActualAction: act, Success: true, Narrative: "started a new build", Cost: cost}
}

func resolveBuildTarget(obs observation.Observation, act action.Action) (observation.Plot, bool) {
	for _, p := range obs.OwnedPlots {
		if act.PlotID != "" && p.ID == act.PlotID {
			return p, true
		}
		if act.PlotID == "" && act.PlotIndex != 0 && p.Index == act.PlotIndex {
			return p, true
		}
	}
	for _, p := range obs.OwnedPlots {
		if p.Status == observation.PlotClaimed {
			return p, true
		}
	}
	if len(obs.AvailablePlots) > 0 {
		return obs.AvailablePlots[0], true
	}
	return observation.Plot{}, false
}

func (d *Dispatcher) doWork(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, act action.Action, strict bool) Result {
	plot, ok := findOwnedUnderConstruction(obs, act)
	if !ok {
		if strict {
			return fail(act, corerr.CodeNoActiveBuild, "no under-construction plot to work on")
		}
		return d.startBuild(ctx, a, obs, wheel, redirectTo("no active build, starting one", action.Action{Type: action.StartBuild}), false)
	}

	apiCallsUsed, err := d.Town.SubmitWork(ctx, a.ID, plot.ID, "design step")
	if err != nil {
		if strict {
			return fail(act, corerr.CodeExecutionFailed, err.Error())
		}
		return Result{ActualAction: act, Success: false, Err: err}
	}

	minCalls := plot.Zone.MinWorkSteps()
	level, costMult := worldLevelAndMultiplier(obs)
	buildCost := economy.BuildCost(plot.Zone, level, costMult, false)
	wage, err := d.Tracker.WorkWage(ctx, d.Pool, buildCost, minCalls)
	if err != nil {
		wage = 0
	}
	a.Bankroll += wage
	d.Tracker.AdvanceStreak(a.ID)

	return Result{
		ActualAction: action.Action{Type: action.DoWork, PlotID: plot.ID, PlotIndex: plot.Index},
		Success:      true,
		Narrative:    fmt.Sprintf("submitted work step %d/%d", apiCallsUsed, minCalls),
		Cost:         -wage,
	}
}

func findOwnedUnderConstruction(obs observation.Observation, act action.Action) (observation.Plot, bool) {
	for _, p := range obs.OwnedPlots {
		if p.Status != observation.PlotUnderConstruction {
			continue
		}
		if act.PlotID != "" && p.ID == act.PlotID {
			return p, true
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
	return bestPlot, best >= 0
}

func (d *Dispatcher) completeBuild(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, act action.Action, strict bool) Result {
	plot, ok := findOwnedUnderConstruction(obs, act)
	if !ok {
		if strict {
			return fail(act, corerr.CodeNoActiveBuild, "no under-construction plot to complete")
		}
		return d.rest(ctx, a, obs, wheel, false, obs.Tick)
	}
	minCalls := plot.Zone.MinWorkSteps()
	if plot.ApiCallsUsed < minCalls {
		if strict {
			return fail(act, corerr.CodeNotReady, fmt.Sprintf("build has %d/%d work steps", plot.ApiCallsUsed, minCalls))
		}
		return d.doWork(ctx, a, obs, wheel, redirectTo("build not ready, keep working", action.Action{Type: action.DoWork, PlotID: plot.ID, PlotIndex: plot.Index}), strict)
	}

	if err := d.Town.CompleteBuild(ctx, a.ID, plot.ID); err != nil {
		if strict {
			return fail(act, corerr.CodeExecutionFailed, err.Error())
		}
		return Result{ActualAction: act, Success: false, Err: err}
	}

	level, costMult := worldLevelAndMultiplier(obs)
	buildCost := economy.BuildCost(plot.Zone, level, costMult, false)
	bonus, err := d.Tracker.CompletionBonus(ctx, d.Pool, buildCost)
	if err != nil {
		bonus = 0
	}
	a.Bankroll += bonus
	d.Tracker.AdvanceStreak(a.ID)

	d.selectBuildingVisual(ctx, a, obs, plot)
	d.judgeAndAdjustYield(ctx, obs, plot)
	d.claimConstructionBounty(ctx, plot)

	return Result{
		ActualAction: action.Action{Type: action.CompleteBuild, PlotID: plot.ID, PlotIndex: plot.Index},
		Success:      true,
		Narrative:    "completed a build",
		Cost:         -bonus,
	}
}

// selectBuildingVisual asks the optional visual collaborator for a cosmetic
// sprite/emoji and logs it against the town. Best-effort: a missing
// collaborator or a failed call never fails the build that already
// completed.
func (d *Dispatcher) selectBuildingVisual(ctx context.Context, a *agent.Agent, obs observation.Observation, plot observation.Plot) {
	if d.Visual == nil || obs.Town == nil {
		return
	}
	visual, err := d.Visual.SelectVisual(ctx, plot.BuildingType, plot.Zone)
	if err != nil || visual == "" {
		return
	}
	_ = d.Town.LogEvent(ctx, obs.Town.ID, "BUILDING_VISUAL", visual, plot.ID, a.ID, nil)
}

// judgeAndAdjustYield asks the language model to rate the finished
// building's quality 1-10 and nudges the town's yield by ±1..±3
// accordingly, when the TownService collaborator supports it. Best-effort:
// any failure along the way leaves yield untouched.
func (d *Dispatcher) judgeAndAdjustYield(ctx context.Context, obs observation.Observation, plot observation.Plot) {
	if d.LM == nil || obs.Town == nil {
		return
	}
	adjuster, ok := d.Town.(collaborator.YieldAdjuster)
	if !ok {
		return
	}
	score := d.judgeBuildQuality(ctx, plot)
	if score == 0 {
		return
	}
	_ = adjuster.AdjustYield(ctx, obs.Town.ID, yieldDeltaFromScore(score))
}

// judgeBuildQuality calls the language-model gateway once to rate a
// finished building 1-10. It returns 0 (no-op) on any failure or
// unparsable response.
func (d *Dispatcher) judgeBuildQuality(ctx context.Context, plot observation.Plot) int {
	spec, err := d.LM.GetModelSpec(ctx, "")
	if err != nil {
		return 0
	}
	resp, err := d.LM.CallModel(ctx, spec, []collaborator.ChatMessage{
		{Role: "system", Content: "Rate this completed building's design quality from 1 to 10. Respond with only the integer."},
		{Role: "user", Content: fmt.Sprintf("zone=%s buildingType=%s", plot.Zone, plot.BuildingType)},
	}, 0.2, true)
	if err != nil {
		return 0
	}
	return parseJudgeScore(resp.Content)
}

// parseJudgeScore extracts the first run of digits from a judge response,
// tolerating surrounding prose. Returns 0 when no digit run in [1,10]
// survives.
func parseJudgeScore(content string) int {
	content = strings.TrimSpace(content)
	n, found := 0, false
	for _, r := range content {
		if r < '0' || r > '9' {
			if found {
				break
			}
			continue
		}
		found = true
		n = n*10 + int(r-'0')
	}
	if n < 1 || n > 10 {
		return 0
	}
	return n
}

// yieldDeltaFromScore buckets a 1-10 judge score into a ±1..±3 town-yield
// adjustment; a middling score of 5 yields 0 (no change).
func yieldDeltaFromScore(score int) int {
	switch {
	case score >= 9:
		return 3
	case score >= 7:
		return 2
	case score >= 6:
		return 1
	case score >= 5:
		return 0
	case score >= 3:
		return -1
	case score >= 2:
		return -2
	default:
		return -3
	}
}

// claimConstructionBounty claims any bounty active on plot when the
// TownService collaborator tracks one. Best-effort: no bounty support or a
// failed claim is silently skipped.
func (d *Dispatcher) claimConstructionBounty(ctx context.Context, plot observation.Plot) {
	bounty, ok := d.Town.(collaborator.ConstructionBounty)
	if !ok {
		return
	}
	_, _ = bounty.ClaimBounty(ctx, plot.ID)
}

func (d *Dispatcher) trade(ctx context.Context, a *agent.Agent, wheel decision.WheelState, act action.Action, side collaborator.SwapSide, strict bool, tick int64) Result {
	amountIn := act.AmountIn
	if side == collaborator.SwapBuyArena {
		if amountIn > a.ReserveBalance {
			amountIn = a.ReserveBalance
		}
	} else if amountIn > a.Bankroll {
		amountIn = a.Bankroll
	}
	if amountIn <= 0 {
		if strict {
			return fail(act, corerr.CodeInvalidAmount, "trade amount must be positive")
		}
		return d.rest(ctx, a, observation.Observation{Tick: tick}, wheel, false, tick)
	}

	swap, err := d.AMM.Swap(ctx, a.ID, side, amountIn, collaborator.SwapOptions{MinAmountOut: act.MinAmountOut})
	if err != nil {
		if strict {
			return fail(act, corerr.CodeAMMSlippage, err.Error())
		}
		return Result{ActualAction: redirectTo("swap rejected by AMM", action.Action{Type: action.Rest}), Success: false, Err: err}
	}

	if side == collaborator.SwapBuyArena {
		a.ReserveBalance -= swap.AmountIn
		a.Bankroll += swap.AmountOut
	} else {
		a.Bankroll -= swap.AmountIn
		a.ReserveBalance += swap.AmountOut
	}
	a.LastTradeTick = tick
	d.Tracker.RecordTrade(a.ID, tick)
	d.Tracker.AdvanceStreak(a.ID)

	return Result{ActualAction: act, Success: true, Narrative: "executed a swap", Cost: swap.FeeAmount}
}

func (d *Dispatcher) playArena(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, act action.Action, strict bool) Result {
	if a.IsInMatch {
		if strict {
			return fail(act, corerr.CodeNotReady, "already in a match")
		}
		return d.rest(ctx, a, obs, wheel, false, obs.Tick)
	}
	if a.Bankroll < 10 {
		if strict {
			return fail(act, corerr.CodeInsufficientArena, "bankroll below minimum wager")
		}
		if a.ReserveBalance > 0 {
			return d.trade(ctx, a, wheel, redirectTo("insufficient $ARENA to wager", action.Action{Type: action.BuyArena, AmountIn: a.ReserveBalance, Why: "funding a wager", NextAction: "play_arena"}), collaborator.SwapBuyArena, false, obs.Tick)
		}
		return d.rest(ctx, a, obs, wheel, false, obs.Tick)
	}

	opponent, ok := pickOpponent(obs, a.ID)
	if !ok {
		if strict {
			return fail(act, corerr.CodeNoOpponents, "no eligible opponents")
		}
		return d.rest(ctx, a, obs, wheel, false, obs.Tick)
	}

	wager := act.Wager
	if wager <= 0 || wager > a.Bankroll {
		wager = a.Bankroll
	}
	match, err := d.Arena.CreateMatch(ctx, collaborator.CreateMatchRequest{
		AgentID: a.ID, OpponentID: opponent.ID, GameType: act.GameType, WagerAmount: wager, SkipPredictionMarket: true,
	})
	if err != nil {
		if strict {
			return fail(act, corerr.CodeMatchCreateFailed, err.Error())
		}
		return Result{ActualAction: redirectTo("match creation failed", action.Action{Type: action.Rest}), Success: false, Err: err}
	}

	a.IsInMatch = true
	a.CurrentMatchID = match.ID
	return d.runTurboFight(ctx, a, match, strict)
}

func pickOpponent(obs observation.Observation, selfID string) (observation.PublicAgent, bool) {
	var best observation.PublicAgent
	bestScore := -1 << 31
	found := false
	for _, pa := range obs.OtherAgents {
		if pa.ID == selfID || pa.IsInMatch || pa.Health <= 0 || pa.Bankroll < 10 {
			continue
		}
		score := rivalBonus(obs, pa.ID) + eloProximity(obs, pa.Elo) + pa.Bankroll
		if score > bestScore {
			bestScore = score
			best = pa
			found = true
		}
	}
	return best, found
}

const rivalBonusWeight = 120

func rivalBonus(obs observation.Observation, candidateID string) int {
	for _, r := range obs.Relationships {
		if r.AgentID == candidateID && r.Kind == "rival" {
			return rivalBonusWeight
		}
	}
	return 0
}

func eloProximity(obs observation.Observation, candidateElo int) int {
	return -abs(candidateElo - 1200)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

const turboFightActionCap = 14

// turboFightPriority ranks the moves the dispatcher tries each round,
// falling back down the list until the match engine accepts one; the
// first round tries all_in ahead of this list.
var turboFightPriority = []string{"call", "check", "all_in", "raise", "fold"}

func (d *Dispatcher) runTurboFight(ctx context.Context, a *agent.Agent, match *collaborator.MatchState, strict bool) Result {
	for i := 0; i < turboFightActionCap; i++ {
		state, err := d.Arena.GetMatchState(ctx, match.ID)
		if err != nil || state == nil || state.Phase == "FINISHED" {
			break
		}
		priority := turboFightPriority
		if i == 0 {
			priority = append([]string{"all_in"}, turboFightPriority...)
		}
		var moveErr error
		for _, move := range priority {
			if moveErr = d.Arena.SubmitMove(ctx, match.ID, a.ID, move); moveErr == nil {
				break
			}
		}
		if moveErr != nil {
			break
		}
	}

	a.IsInMatch = false
	a.CurrentMatchID = ""

	state, err := d.Arena.GetMatchState(ctx, match.ID)
	if err != nil {
		if timeoutErr := d.Arena.CancelMatch(ctx, match.ID, a.ID); timeoutErr == nil {
			if strict {
				return fail(action.Action{Type: action.PlayArena}, corerr.CodeMatchTimeout, "match timed out")
			}
			return Result{ActualAction: action.Action{Type: action.PlayArena}, Success: false, Err: corerr.New(corerr.CodeMatchTimeout, "match timed out, refunded")}
		}
	}
	_ = state
	return Result{ActualAction: action.Action{Type: action.PlayArena, GameType: match.GameType, Wager: match.Wager}, Success: true, Narrative: "fought a match", Cost: match.Wager}
}

func (d *Dispatcher) transferArena(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, act action.Action, strict bool) Result {
	target, ok := findOtherAgentByName(obs, act.TargetAgentName)
	if !ok {
		if strict {
			return fail(act, corerr.CodeTargetUnavailable, "target agent not found")
		}
		return d.rest(ctx, a, obs, wheel, false, obs.Tick)
	}
	if act.Amount <= 0 || act.Amount > a.Bankroll {
		if strict {
			return fail(act, corerr.CodeInvalidAmount, "invalid transfer amount")
		}
		return d.rest(ctx, a, obs, wheel, false, obs.Tick)
	}
	if err := d.Town.TransferArena(ctx, a.ID, target.ID, act.Amount); err != nil {
		if strict {
			return fail(act, corerr.CodeExecutionFailed, err.Error())
		}
		return Result{ActualAction: act, Success: false, Err: err}
	}
	a.Bankroll -= act.Amount
	return Result{ActualAction: act, Success: true, Narrative: "transferred $ARENA", Cost: act.Amount}
}

func findOtherAgentByName(obs observation.Observation, name string) (observation.PublicAgent, bool) {
	for _, pa := range obs.OtherAgents {
		if lowerEqual(pa.Name, name) {
			return pa, true
		}
	}
	return observation.PublicAgent{}, false
}

func lowerEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

var validSkills = map[action.Skill]bool{
	action.SkillMarketDepth:    true,
	action.SkillBlueprintIndex: true,
	action.SkillScoutReport:    true,
}

func (d *Dispatcher) buySkill(ctx context.Context, a *agent.Agent, act action.Action, strict bool) Result {
	if !validSkills[act.Skill] {
		if strict {
			return fail(act, corerr.CodeInvalidIntent, "unknown skill")
		}
		return Result{ActualAction: redirectTo("unknown skill", action.Action{Type: action.Rest}), Success: false}
	}

	res, err := d.Oracle.BuySkill(ctx, collaborator.BuySkillRequest{
		AgentID: a.ID, Skill: string(act.Skill), Question: act.Question,
		WhyNow: act.WhyNow, ExpectedNextAction: act.ExpectedNextAction, IfThen: act.IfThen,
	})
	if err != nil {
		if strict {
			return fail(act, corerr.CodeExecutionFailed, err.Error())
		}
		return Result{ActualAction: act, Success: false, Err: err}
	}

	a.Bankroll -= res.PriceArena
	return Result{ActualAction: act, Success: true, Narrative: res.PublicSummary, Cost: res.PriceArena}
}

// rest redirects to a more productive action whenever one is available:
// first a live wheel-of-fate window (ANNOUNCING or FIGHTING — wheel.Active
// covers both), then an owned plot needing attention. The wheel branch
// pre-checks playArena's own early-exit preconditions (not already in a
// match, bankroll above the minimum wager, an eligible opponent) before
// delegating to it, so playArena can never loop back into rest from here.
func (d *Dispatcher) rest(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, strict bool, tick int64) Result {
	if !strict && wheel.Active && !a.IsInMatch && a.Bankroll >= 10 {
		if _, ok := pickOpponent(obs, a.ID); ok {
			gameType := wheel.GameType
			if gameType == "" {
				gameType = "POKER"
			}
			wager := wheel.Wager
			if wager <= 0 {
				wager = 25
			}
			return d.playArena(ctx, a, obs, wheel, redirectTo("wheel of fate is live", action.Action{Type: action.PlayArena, GameType: gameType, Wager: wager}), false)
		}
	}
	if !strict {
		for _, p := range obs.OwnedPlots {
			switch p.Status {
			case observation.PlotUnderConstruction:
				return d.doWork(ctx, a, obs, wheel, redirectTo("has active construction", action.Action{Type: action.DoWork, PlotID: p.ID, PlotIndex: p.Index}), false)
			case observation.PlotClaimed:
				return d.startBuild(ctx, a, obs, wheel, redirectTo("has a claimed plot", action.Action{Type: action.StartBuild, PlotID: p.ID, PlotIndex: p.Index}), false)
			}
		}
	}
	d.Tracker.ResetStreak(a.ID)
	return Result{ActualAction: action.Action{Type: action.Rest}, Success: true, Narrative: "resting"}
}

func (d *Dispatcher) mine(ctx context.Context, a *agent.Agent, obs observation.Observation, wheel decision.WheelState, strict bool, tick int64) Result {
	if plot, ok := findOwnedUnderConstruction(obs, action.Action{}); ok {
		return d.doWork(ctx, a, obs, wheel, redirectTo("mine is legacy, routing to do_work", action.Action{Type: action.DoWork, PlotID: plot.ID, PlotIndex: plot.Index}), strict)
	}
	return d.rest(ctx, a, obs, wheel, strict, tick)
}
