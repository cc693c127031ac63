package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/internal/corerr"
)

func TestPlanDeterministicAction_Rest(t *testing.T) {
	res := PlanDeterministicAction("a1", KindRest, observation.Observation{}, AgentFunds{}, WheelState{})
	assert.True(t, res.OK)
	assert.Equal(t, "rest", res.Intent)
}

func TestPlanDeterministicAction_WorkBlockedWithoutConstruction(t *testing.T) {
	obs := observation.Observation{OwnedPlots: nil}
	res := PlanDeterministicAction("a1", KindWork, obs, AgentFunds{}, WheelState{})
	require.False(t, res.OK)
	assert.Equal(t, corerr.CodeConstraintViolation, res.ReasonCode)
	assert.Contains(t, res.Reason, "No active construction")
}

func TestPlanDeterministicAction_BuildMapsToDoWorkOnExistingUCPlot(t *testing.T) {
	obs := observation.Observation{
		OwnedPlots: []observation.Plot{
			{ID: "plot-0", Index: 0, Status: observation.PlotUnderConstruction, ApiCallsUsed: 2},
		},
	}
	res := PlanDeterministicAction("a1", KindBuild, obs, AgentFunds{}, WheelState{})
	require.True(t, res.OK)
	assert.Equal(t, "do_work", res.Intent)
	assert.Equal(t, "plot-0", res.Params["plotId"])
	assert.Equal(t, 0, res.Params["plotIndex"])
}

func TestPlanDeterministicAction_BuildBootstrapInsufficientArena(t *testing.T) {
	obs := observation.Observation{
		Town:           &observation.Town{Level: 1},
		AvailablePlots: []observation.Plot{{ID: "plot-9", Index: 9}},
		WorldStats:     observation.WorldStats{CostMultiplier: 1},
	}
	funds := AgentFunds{Bankroll: 1, ReserveBalance: 0}
	res := PlanDeterministicAction("a1", KindBuild, obs, funds, WheelState{})
	require.False(t, res.OK)
	assert.Equal(t, corerr.CodeInsufficientArena, res.ReasonCode)
	assert.True(t, strings.HasPrefix(res.Reason, "Need about"))
}

func TestPlanDeterministicAction_BuildBootstrapTargetUnavailable(t *testing.T) {
	obs := observation.Observation{Town: &observation.Town{Level: 1}}
	res := PlanDeterministicAction("a1", KindBuild, obs, AgentFunds{Bankroll: 1000}, WheelState{})
	require.False(t, res.OK)
	assert.Equal(t, corerr.CodeTargetUnavailable, res.ReasonCode)
}

func TestPlanDeterministicAction_TradeToBuyArena(t *testing.T) {
	funds := AgentFunds{ReserveBalance: 50, Bankroll: 100}
	res := PlanDeterministicAction("a1", KindTrade, observation.Observation{}, funds, WheelState{})
	require.True(t, res.OK)
	assert.Equal(t, "buy_arena", res.Intent)
	assert.Equal(t, 50, res.Params["amountIn"])
	assert.Equal(t, "play_arena", res.Params["nextAction"])
}

func TestPlanDeterministicAction_TradeToSellArena(t *testing.T) {
	funds := AgentFunds{ReserveBalance: 5, Bankroll: 210}
	res := PlanDeterministicAction("a1", KindTrade, observation.Observation{}, funds, WheelState{})
	require.True(t, res.OK)
	assert.Equal(t, "sell_arena", res.Intent)
	assert.Equal(t, 80, res.Params["amountIn"])
	assert.Equal(t, "start_build", res.Params["nextAction"])
}

func TestPlanDeterministicAction_TradeConstraintViolation(t *testing.T) {
	funds := AgentFunds{ReserveBalance: 1, Bankroll: 10}
	res := PlanDeterministicAction("a1", KindTrade, observation.Observation{}, funds, WheelState{})
	require.False(t, res.OK)
	assert.Equal(t, corerr.CodeConstraintViolation, res.ReasonCode)
}

func TestPlanDeterministicAction_FightDefaultsWhenNoWheel(t *testing.T) {
	res := PlanDeterministicAction("a1", KindFight, observation.Observation{}, AgentFunds{}, WheelState{})
	require.True(t, res.OK)
	assert.Equal(t, "play_arena", res.Intent)
	assert.Equal(t, "POKER", res.Params["gameType"])
	assert.Equal(t, 25, res.Params["wager"])
}

func TestPlanDeterministicAction_FightUsesActiveWheel(t *testing.T) {
	wheel := WheelState{Active: true, GameType: "BLACKJACK", Wager: 75}
	res := PlanDeterministicAction("a1", KindFight, observation.Observation{}, AgentFunds{}, wheel)
	require.True(t, res.OK)
	assert.Equal(t, "BLACKJACK", res.Params["gameType"])
	assert.Equal(t, 75, res.Params["wager"])
}

// PlanDeterministicAction must be pure: identical inputs always produce
// identical outputs, with no observable side effects.
func TestPlanDeterministicAction_Pure(t *testing.T) {
	obs := observation.Observation{
		OwnedPlots: []observation.Plot{
			{ID: "plot-0", Index: 0, Status: observation.PlotUnderConstruction, ApiCallsUsed: 2},
		},
	}
	funds := AgentFunds{Bankroll: 100, ReserveBalance: 10}
	first := PlanDeterministicAction("a1", KindBuild, obs, funds, WheelState{})
	second := PlanDeterministicAction("a1", KindBuild, obs, funds, WheelState{})
	assert.Equal(t, first, second)
}
