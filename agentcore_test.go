package agentcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/command"
	domaindecision "github.com/townforge/agentcore/domain/decision"
	domainEconomy "github.com/townforge/agentcore/domain/economy"
	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/internal/config"
	"github.com/townforge/agentcore/planner"
)

type fakeAgents struct{ agents []*agent.Agent }

func (f *fakeAgents) ListActive(ctx context.Context) ([]*agent.Agent, error) { return f.agents, nil }
func (f *fakeAgents) Save(ctx context.Context, a *agent.Agent) error         { return nil }

type fakeTown struct{ town *observation.Town }

func (f *fakeTown) GetActiveTown(ctx context.Context) (*observation.Town, error) { return f.town, nil }
func (f *fakeTown) CreateTown(ctx context.Context, name string, level int) (*observation.Town, error) {
	f.town = &observation.Town{ID: "t1", Name: name, Level: level, Status: "BUILDING"}
	return f.town, nil
}
func (f *fakeTown) GetAgentPlots(ctx context.Context, agentID string) ([]observation.Plot, error) {
	return nil, nil
}
func (f *fakeTown) GetAvailablePlots(ctx context.Context, townID string) ([]observation.Plot, error) {
	return []observation.Plot{{Index: 1}}, nil
}
func (f *fakeTown) GetRecentEvents(ctx context.Context, townID string, n int) ([]observation.Event, error) {
	return nil, nil
}
func (f *fakeTown) GetWorldStats(ctx context.Context) (observation.WorldStats, error) {
	return observation.WorldStats{UpkeepMultiplier: 1, CostMultiplier: 1}, nil
}
func (f *fakeTown) ClaimPlot(ctx context.Context, agentID, townID string, plotIndex int) (*observation.Plot, error) {
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

type fakePool struct{ pool domainEconomy.Pool }

func (f *fakePool) GetPool(ctx context.Context) (domainEconomy.Pool, error) { return f.pool, nil }
func (f *fakePool) TryApplyDelta(ctx context.Context, delta int) (domainEconomy.Pool, bool, error) {
	newBalance := f.pool.ArenaBalance + delta
	if delta < 0 && newBalance < domainEconomy.SolvencyPoolFloor {
		return f.pool, false, nil
	}
	f.pool.ArenaBalance = newBalance
	return f.pool, true, nil
}

type fakeQueue struct{}

func (f *fakeQueue) NextQueued(ctx context.Context, agentID string) (*command.Command, error) {
	return nil, nil
}
func (f *fakeQueue) Transition(ctx context.Context, commandID string, status command.Status, reason command.ReasonCode) error {
	return nil
}
func (f *fakeQueue) EmitReceipt(ctx context.Context, receipt command.Receipt) error { return nil }

type fakeAMM struct{}

func (f *fakeAMM) GetPoolSummary(ctx context.Context) (observation.PoolSummary, error) {
	return observation.PoolSummary{}, nil
}
func (f *fakeAMM) Swap(ctx context.Context, agentID string, side collaborator.SwapSide, amountIn int, opts collaborator.SwapOptions) (collaborator.Swap, error) {
	return collaborator.Swap{AmountIn: amountIn, AmountOut: amountIn}, nil
}

type fakeArena struct{}

func (f *fakeArena) CreateMatch(ctx context.Context, req collaborator.CreateMatchRequest) (*collaborator.MatchState, error) {
	return &collaborator.MatchState{ID: "m1", Phase: "FINISHED"}, nil
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
	return collaborator.BuySkillResult{}, nil
}
func (f *fakeOracle) EstimateSkillPriceArena(ctx context.Context, skill string, spotPrice float64) (int, error) {
	return 0, nil
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

func newTestCollaborators() Collaborators {
	return Collaborators{
		Agents: &fakeAgents{agents: []*agent.Agent{{ID: "a1", Archetype: agent.Degen, LoopMode: agent.LoopModeDegenLoop, Health: 100}}},
		Town:   &fakeTown{},
		Pool:   &fakePool{pool: domainEconomy.DefaultPool("pool1", 10000, 10000, 100)},
		Queue:  &fakeQueue{},
		AMM:    &fakeAMM{},
		Arena:  &fakeArena{},
		Oracle: &fakeOracle{},
		LM:     &fakeLM{},
	}
}

func TestNew_WiresEveryComponent(t *testing.T) {
	core, err := New(newTestCollaborators())
	require.NoError(t, err)
	assert.NotNil(t, core.Memory)
	assert.NotNil(t, core.Economy)
	assert.NotNil(t, core.Observer)
	assert.NotNil(t, core.Control)
	assert.NotNil(t, core.Decision)
	assert.NotNil(t, core.Execution)
	assert.NotNil(t, core.Scheduler)
}

func TestStartStop_RunsAtLeastOneTick(t *testing.T) {
	var ticks int
	cfg := config.FromEnv()
	cfg.TickIntervalMS = 20

	core, err := New(newTestCollaborators(),
		WithConfig(cfg),
		WithOnTickResult(func(r domaindecision.Result) { ticks++ }),
	)
	require.NoError(t, err)
	require.NoError(t, core.Start(context.Background()))
	time.Sleep(120 * time.Millisecond)
	core.Stop()

	assert.GreaterOrEqual(t, ticks, 1)
}

func TestPlanOperatorCommand_BuildsQueuedCommand(t *testing.T) {
	obs := observation.Observation{
		Tick: 1, Town: &observation.Town{ID: "t1", Level: 1},
		AvailablePlots: []observation.Plot{{Index: 3}},
	}
	cmd, err := PlanOperatorCommand("a1", planner.KindBuild, obs, planner.AgentFunds{Bankroll: 1000}, planner.WheelState{}, command.Strong, time.Minute, nil)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, command.Queued, cmd.Status)
	assert.Equal(t, "claim_plot", cmd.Intent)
	assert.NotEmpty(t, cmd.ID)
}

func TestPlanOperatorCommand_RejectsWhenNoTarget(t *testing.T) {
	obs := observation.Observation{Tick: 1, Town: &observation.Town{ID: "t1", Level: 1}}
	_, err := PlanOperatorCommand("a1", planner.KindBuild, obs, planner.AgentFunds{}, planner.WheelState{}, command.Strong, time.Minute, nil)
	require.Error(t, err)
}

func TestCore_LoopModeOverrideAndReset(t *testing.T) {
	core, err := New(newTestCollaborators())
	require.NoError(t, err)

	assert.Equal(t, agent.LoopModeDefault, core.GetLoopMode("a1", agent.LoopModeDefault))

	core.SetLoopMode("a1", agent.LoopModeDegenLoop)
	assert.Equal(t, agent.LoopModeDegenLoop, core.GetLoopMode("a1", agent.LoopModeDefault))

	core.SetLoopMode("a1", agent.LoopModeDefault)
	assert.Equal(t, agent.LoopModeDefault, core.GetLoopMode("a1", agent.LoopModeDefault))
}

func TestCore_QueueInstructionDrainsOnce(t *testing.T) {
	core, err := New(newTestCollaborators())
	require.NoError(t, err)

	core.QueueInstruction("a1", "focus on trading")
	assert.Equal(t, []string{"focus on trading"}, core.Memory.DrainInstructions("a1"))
	assert.Empty(t, core.Memory.DrainInstructions("a1"))
}
