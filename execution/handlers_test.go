package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/decision"
	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/agent"
	domainEconomy "github.com/townforge/agentcore/domain/economy"
	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/economy"
)

type fakeTown struct {
	claimErr error
}

func (f *fakeTown) GetActiveTown(ctx context.Context) (*observation.Town, error) { return nil, nil }
func (f *fakeTown) CreateTown(ctx context.Context, name string, level int) (*observation.Town, error) {
	return nil, nil
}
func (f *fakeTown) GetAgentPlots(ctx context.Context, agentID string) ([]observation.Plot, error) {
	return nil, nil
}
func (f *fakeTown) GetAvailablePlots(ctx context.Context, townID string) ([]observation.Plot, error) {
	return nil, nil
}
func (f *fakeTown) GetRecentEvents(ctx context.Context, townID string, n int) ([]observation.Event, error) {
	return nil, nil
}
func (f *fakeTown) GetWorldStats(ctx context.Context) (observation.WorldStats, error) {
	return observation.WorldStats{CostMultiplier: 1}, nil
}
func (f *fakeTown) ClaimPlot(ctx context.Context, agentID, townID string, plotIndex int) (*observation.Plot, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return &observation.Plot{Index: plotIndex}, nil
}
func (f *fakeTown) StartBuild(ctx context.Context, agentID, plotID, buildingType string) error {
	return nil
}
func (f *fakeTown) SubmitWork(ctx context.Context, agentID, plotID, designStep string) (int, error) {
	return 1, nil
}
func (f *fakeTown) SubmitMiningWork(ctx context.Context, agentID, plotID string) error { return nil }
func (f *fakeTown) CompleteBuild(ctx context.Context, agentID, plotID string) error    { return nil }
func (f *fakeTown) TransferArena(ctx context.Context, fromAgentID, toAgentID string, amount int) error {
	return nil
}
func (f *fakeTown) DistributeYield(ctx context.Context, townID string) error { return nil }
func (f *fakeTown) LogEvent(ctx context.Context, townID, kind, title, description, agentID string, metadata map[string]any) error {
	return nil
}

type fakeAMM struct{}

func (f *fakeAMM) GetPoolSummary(ctx context.Context) (observation.PoolSummary, error) {
	return observation.PoolSummary{}, nil
}
func (f *fakeAMM) Swap(ctx context.Context, agentID string, side collaborator.SwapSide, amountIn int, opts collaborator.SwapOptions) (collaborator.Swap, error) {
	return collaborator.Swap{ID: "s1", Side: side, AmountIn: amountIn, AmountOut: amountIn, FeeAmount: 1}, nil
}

type fakeArena struct{}

func (f *fakeArena) CreateMatch(ctx context.Context, req collaborator.CreateMatchRequest) (*collaborator.MatchState, error) {
	return &collaborator.MatchState{ID: "m1", GameType: req.GameType, Wager: req.WagerAmount, Phase: "FINISHED"}, nil
}
func (f *fakeArena) GetMatchState(ctx context.Context, matchID string) (*collaborator.MatchState, error) {
	return &collaborator.MatchState{ID: matchID, Phase: "FINISHED"}, nil
}
func (f *fakeArena) SubmitMove(ctx context.Context, matchID, agentID, actionName string) error {
	return nil
}
func (f *fakeArena) CancelMatch(ctx context.Context, matchID, agentID string) error { return nil }

type fakeOracle struct{}

func (f *fakeOracle) BuySkill(ctx context.Context, req collaborator.BuySkillRequest) (collaborator.BuySkillResult, error) {
	return collaborator.BuySkillResult{PriceArena: 5, PublicSummary: "ok"}, nil
}
func (f *fakeOracle) EstimateSkillPriceArena(ctx context.Context, skill string, spotPrice float64) (int, error) {
	return 5, nil
}
func (f *fakeOracle) RecentOutputs(ctx context.Context, agentID string, limit int) ([]observation.SkillOutput, error) {
	return nil, nil
}

type fakeLM struct{}

func (f *fakeLM) GetModelSpec(ctx context.Context, modelID string) (collaborator.ModelSpec, error) {
	return collaborator.ModelSpec{}, nil
}
func (f *fakeLM) CallModel(ctx context.Context, spec collaborator.ModelSpec, messages []collaborator.ChatMessage, temperature float64, forceNoJSONMode bool) (collaborator.ModelResponse, error) {
	return collaborator.ModelResponse{}, nil
}
func (f *fakeLM) CalculateCost(ctx context.Context, spec collaborator.ModelSpec, in, out int, latency time.Duration) (collaborator.ModelCost, error) {
	return collaborator.ModelCost{}, nil
}

type fakePool struct {
	pool domainEconomy.Pool
}

func (f *fakePool) GetPool(ctx context.Context) (domainEconomy.Pool, error) { return f.pool, nil }
func (f *fakePool) TryApplyDelta(ctx context.Context, delta int) (domainEconomy.Pool, bool, error) {
	newBalance := f.pool.ArenaBalance + delta
	if delta < 0 && newBalance < domainEconomy.SolvencyPoolFloor {
		return f.pool, false, nil
	}
	f.pool.ArenaBalance = newBalance
	return f.pool, true, nil
}

func newTestDispatcher(town *fakeTown) (*Dispatcher, *fakePool) {
	pool := &fakePool{pool: domainEconomy.DefaultPool("pool1", 10000, 10000, 100)}
	d := New(town, &fakeAMM{}, &fakeArena{}, &fakeOracle{}, &fakeLM{}, pool, nil, economy.NewTracker())
	return d, pool
}

func TestExecute_ClaimPlotSuccess(t *testing.T) {
	d, _ := newTestDispatcher(&fakeTown{})
	a := &agent.Agent{ID: "a1", Bankroll: 1000, Health: 100}
	obs := observation.Observation{
		Tick: 1, Town: &observation.Town{ID: "t1", Level: 1},
		AvailablePlots: []observation.Plot{{Index: 4}},
	}
	res := d.Execute(context.Background(), a, obs, decision.WheelState{}, action.Action{Type: action.ClaimPlot, PlotIndex: 4}, false, 1)
	require.True(t, res.Success)
	assert.Equal(t, action.ClaimPlot, res.ActualAction.Type)
	assert.Less(t, a.Bankroll, 1000)
}

func TestExecute_ClaimPlotRedirectsToBuyArenaWhenUnderfunded(t *testing.T) {
	d, _ := newTestDispatcher(&fakeTown{})
	a := &agent.Agent{ID: "a1", Bankroll: 0, ReserveBalance: 50, Health: 100}
	obs := observation.Observation{
		Tick: 1, Town: &observation.Town{ID: "t1", Level: 1},
		AvailablePlots: []observation.Plot{{Index: 4}},
	}
	res := d.Execute(context.Background(), a, obs, decision.WheelState{}, action.Action{Type: action.ClaimPlot, PlotIndex: 4}, false, 1)
	require.True(t, res.Success)
	assert.Equal(t, action.BuyArena, res.ActualAction.Type)
}

func TestExecute_DoWorkPaysWage(t *testing.T) {
	d, _ := newTestDispatcher(&fakeTown{})
	a := &agent.Agent{ID: "a1", Bankroll: 100, Health: 100}
	obs := observation.Observation{
		Tick: 1, Town: &observation.Town{ID: "t1", Level: 1},
		OwnedPlots: []observation.Plot{{ID: "p1", Zone: observation.ZoneResidential, Status: observation.PlotUnderConstruction, ApiCallsUsed: 0}},
	}
	res := d.Execute(context.Background(), a, obs, decision.WheelState{}, action.Action{Type: action.DoWork, PlotID: "p1"}, false, 1)
	require.True(t, res.Success)
	assert.Greater(t, a.Bankroll, 100)
}

func TestExecute_RestRedirectsToDoWorkWhenConstructionActive(t *testing.T) {
	d, _ := newTestDispatcher(&fakeTown{})
	a := &agent.Agent{ID: "a1", Bankroll: 100, Health: 100}
	obs := observation.Observation{
		Tick: 1, Town: &observation.Town{ID: "t1", Level: 1},
		OwnedPlots: []observation.Plot{{ID: "p1", Zone: observation.ZoneResidential, Status: observation.PlotUnderConstruction, ApiCallsUsed: 0}},
	}
	res := d.Execute(context.Background(), a, obs, decision.WheelState{}, action.Action{Type: action.Rest}, false, 1)
	require.True(t, res.Success)
	assert.Equal(t, action.DoWork, res.ActualAction.Type)
}

func TestExecute_StrictIncapacitatedRejected(t *testing.T) {
	d, _ := newTestDispatcher(&fakeTown{})
	a := &agent.Agent{ID: "a1", Health: 0}
	obs := observation.Observation{Tick: 1, Town: &observation.Town{ID: "t1"}}
	res := d.Execute(context.Background(), a, obs, decision.WheelState{}, action.Action{Type: action.ClaimPlot, PlotIndex: 0}, true, 1)
	require.False(t, res.Success)
	require.Error(t, res.Err)
}

func TestExecute_RestRedirectsToPlayArenaWhenWheelActive(t *testing.T) {
	d, _ := newTestDispatcher(&fakeTown{})
	a := &agent.Agent{ID: "a1", Bankroll: 100, Health: 100}
	obs := observation.Observation{
		Tick: 1, Town: &observation.Town{ID: "t1", Level: 1},
		OtherAgents: []observation.PublicAgent{{ID: "a2", Bankroll: 100, Elo: 1000, Health: 100}},
	}
	res := d.Execute(context.Background(), a, obs, decision.WheelState{Active: true}, action.Action{Type: action.Rest}, false, 1)
	require.True(t, res.Success)
	assert.Equal(t, action.PlayArena, res.ActualAction.Type)
}
