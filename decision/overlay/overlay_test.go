package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/observation"
)

func openBudget(string) bool { return true }
func closedBudget(string) bool { return false }
func notRecent(string) bool  { return false }

func TestApply_TradeCooldownRewritesToRest(t *testing.T) {
	chosen := action.Action{Type: action.BuyArena, AmountIn: 10, Why: "x", NextAction: "y"}
	result, notes := Apply("a1", observation.Observation{}, chosen, Funds{}, nil, Deps{
		TradedRecently: func(string) bool { return true },
		BudgetOpen:     openBudget,
	})
	assert.Equal(t, action.Rest, result.Type)
	assert.Equal(t, "TRADE_COOLDOWN", notes[0].Code)
	assert.True(t, notes[0].Applied)
}

func TestApply_TradeCooldownSkippedWhenBudgetClosed(t *testing.T) {
	chosen := action.Action{Type: action.BuyArena, AmountIn: 10, Why: "x", NextAction: "y"}
	result, notes := Apply("a1", observation.Observation{}, chosen, Funds{}, nil, Deps{
		TradedRecently: func(string) bool { return true },
		BudgetOpen:     closedBudget,
	})
	assert.Equal(t, action.BuyArena, result.Type)
	assert.False(t, notes[0].Applied)
}

func TestApply_InitialFootholdClaimsFirstAvailablePlot(t *testing.T) {
	obs := observation.Observation{AvailablePlots: []observation.Plot{{ID: "p0", Index: 3}}}
	result, notes := Apply("a1", obs, action.Action{Type: action.Rest}, Funds{}, nil, Deps{
		TradedRecently: notRecent,
		BudgetOpen:     openBudget,
	})
	assert.Equal(t, action.ClaimPlot, result.Type)
	assert.Equal(t, 3, result.PlotIndex)
	assert.Equal(t, "INITIAL_FOOTHOLD", notes[0].Code)
}

func TestApply_BuildPriorityPrefersCompleteOverContinue(t *testing.T) {
	obs := observation.Observation{OwnedPlots: []observation.Plot{
		{ID: "ready", Zone: observation.ZoneResidential, Status: observation.PlotUnderConstruction, ApiCallsUsed: 3},
	}}
	result, notes := Apply("a1", obs, action.Action{Type: action.Rest}, Funds{}, nil, Deps{
		TradedRecently: notRecent,
		BudgetOpen:     openBudget,
	})
	assert.Equal(t, action.CompleteBuild, result.Type)
	found := false
	for _, n := range notes {
		if n.Code == "COMPLETE_READY_BUILD" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestApply_UnderfundedWarningDoesNotRewrite(t *testing.T) {
	chosen := action.Action{Type: action.PlayArena, Wager: 100}
	result, notes := Apply("a1", observation.Observation{}, chosen, Funds{Bankroll: 10, ReserveBalance: 5}, nil, Deps{
		TradedRecently: notRecent,
		BudgetOpen:     openBudget,
	})
	assert.Equal(t, action.PlayArena, result.Type)
	last := notes[len(notes)-1]
	assert.Equal(t, "UNDERFUNDED_ACTION", last.Code)
}
