package observation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/observation"
)

type fakeTown struct {
	town   *observation.Town
	plots  []observation.Plot
	avail  []observation.Plot
	events []observation.Event
	stats  observation.WorldStats
}

func (f *fakeTown) GetActiveTown(ctx context.Context) (*observation.Town, error) { return f.town, nil }
func (f *fakeTown) CreateTown(ctx context.Context, name string, level int) (*observation.Town, error) {
	return nil, nil
}
func (f *fakeTown) GetAgentPlots(ctx context.Context, agentID string) ([]observation.Plot, error) {
	return f.plots, nil
}
func (f *fakeTown) GetAvailablePlots(ctx context.Context, townID string) ([]observation.Plot, error) {
	return f.avail, nil
}
func (f *fakeTown) GetRecentEvents(ctx context.Context, townID string, n int) ([]observation.Event, error) {
	return f.events, nil
}
func (f *fakeTown) GetWorldStats(ctx context.Context) (observation.WorldStats, error) {
	return f.stats, nil
}
func (f *fakeTown) ClaimPlot(ctx context.Context, agentID, townID string, plotIndex int) (*observation.Plot, error) {
	return nil, nil
}
func (f *fakeTown) StartBuild(ctx context.Context, agentID, plotID, buildingType string) error {
	return nil
}
func (f *fakeTown) SubmitWork(ctx context.Context, agentID, plotID, designStep string) (int, error) {
	return 0, nil
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

type fakeAgentDirectory struct {
	roster []*agent.Agent
}

func (f *fakeAgentDirectory) ListActive(ctx context.Context) ([]*agent.Agent, error) {
	return f.roster, nil
}
func (f *fakeAgentDirectory) Save(ctx context.Context, a *agent.Agent) error { return nil }

type fakeOracle struct {
	outputs []observation.SkillOutput
}

func (f *fakeOracle) BuySkill(ctx context.Context, req collaborator.BuySkillRequest) (collaborator.BuySkillResult, error) {
	return collaborator.BuySkillResult{}, nil
}
func (f *fakeOracle) EstimateSkillPriceArena(ctx context.Context, skill string, spotPrice float64) (int, error) {
	return 0, nil
}
func (f *fakeOracle) RecentOutputs(ctx context.Context, agentID string, limit int) ([]observation.SkillOutput, error) {
	return f.outputs, nil
}

func TestObserve_PopulatesOtherAgentsAndRecentSkills(t *testing.T) {
	town := &fakeTown{town: &observation.Town{ID: "t1"}}
	agents := &fakeAgentDirectory{roster: []*agent.Agent{
		{ID: "a1", Name: "self"},
		{ID: "a2", Name: "rival", Bankroll: 50, Elo: 1300, Health: 80},
	}}
	oracle := &fakeOracle{outputs: []observation.SkillOutput{{Skill: "MARKET_DEPTH", Summary: "thin book"}}}
	b := NewBuilder(town, nil, nil, nil, agents, oracle)

	obs, err := b.Observe(context.Background(), &agent.Agent{ID: "a1"}, 1)
	require.NoError(t, err)
	require.Len(t, obs.OtherAgents, 1)
	assert.Equal(t, "a2", obs.OtherAgents[0].ID)
	require.Len(t, obs.RecentSkills, 1)
	assert.Equal(t, "MARKET_DEPTH", obs.RecentSkills[0].Skill)
}

func TestObserve_NoActiveTownIsDegenerate(t *testing.T) {
	b := NewBuilder(&fakeTown{}, nil, nil, nil, nil, nil)
	obs, err := b.Observe(context.Background(), &agent.Agent{ID: "a1", Bankroll: 5}, 1)
	require.NoError(t, err)
	assert.False(t, obs.HasActiveTown())
	assert.Empty(t, obs.OwnedPlots)
	assert.Equal(t, 5, obs.Balances.Bankroll)
}

func TestObserve_FiltersPrivateEvents(t *testing.T) {
	town := &fakeTown{
		town: &observation.Town{ID: "t1"},
		events: []observation.Event{
			{ID: "e1", Type: "BUILD_COMPLETE"},
			{ID: "e2", Type: observation.EventKindAgentChat},
			{ID: "e3", Type: observation.EventKindSkillPaid},
		},
	}
	b := NewBuilder(town, nil, nil, nil, nil, nil)
	obs, err := b.Observe(context.Background(), &agent.Agent{ID: "a1"}, 1)
	require.NoError(t, err)
	require.Len(t, obs.RecentEvents, 1)
	assert.Equal(t, "e1", obs.RecentEvents[0].ID)
}
