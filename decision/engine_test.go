package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/command"
	"github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/economy"
	"github.com/townforge/agentcore/memory"
)

type fakeLM struct {
	response string
}

func (f *fakeLM) GetModelSpec(ctx context.Context, modelID string) (collaborator.ModelSpec, error) {
	return collaborator.ModelSpec{ModelID: modelID}, nil
}
func (f *fakeLM) CallModel(ctx context.Context, spec collaborator.ModelSpec, messages []collaborator.ChatMessage, temperature float64, forceNoJSONMode bool) (collaborator.ModelResponse, error) {
	return collaborator.ModelResponse{Content: f.response}, nil
}
func (f *fakeLM) CalculateCost(ctx context.Context, spec collaborator.ModelSpec, in, out int, latency time.Duration) (collaborator.ModelCost, error) {
	return collaborator.ModelCost{}, nil
}

func newTestEngine(response string) *Engine {
	lm := &fakeLM{response: response}
	me := NewModelEngine(lm, NewModelLimiter(1000))
	return NewEngine(me, memory.New(), economy.NewTracker())
}

func TestEngine_ForcedCommandTranslatesAndBypassesModel(t *testing.T) {
	e := newTestEngine(`{"type":"rest"}`)
	cmd := &command.Command{ID: "c1", Mode: command.Strong, Intent: "claim_plot", Params: map[string]any{"plotIndex": 2}}
	obs := observation.Observation{AvailablePlots: []observation.Plot{{Index: 2}}}

	rec, rejected := e.Decide(context.Background(), &agent.Agent{ID: "a1"}, obs, cmd, Funds{}, WheelState{}, agent.LoopModeDefault, nil, nil)
	require.Nil(t, rejected)
	assert.Equal(t, "claim_plot", string(rec.ExecutedAction.Type))
	assert.Equal(t, "c1", rec.CommandID)
}

func TestEngine_ForcedCommandFailureFallsThrough(t *testing.T) {
	e := newTestEngine(`{"type":"rest","reasoning":"nothing to do"}`)
	cmd := &command.Command{ID: "c1", Mode: command.Strong, Intent: "claim_plot", Params: map[string]any{"plotIndex": 9}}
	obs := observation.Observation{} // plot 9 not available

	rec, rejected := e.Decide(context.Background(), &agent.Agent{ID: "a1"}, obs, cmd, Funds{}, WheelState{}, agent.LoopModeDefault, nil, nil)
	require.NotNil(t, rejected)
	assert.Equal(t, "c1", rejected.ID)
	assert.Equal(t, command.ReasonTargetUnavailable, rejected.ReasonCode)
	assert.Equal(t, "rest", string(rec.ExecutedAction.Type))
}

func TestEngine_DegenLoopBypassesModel(t *testing.T) {
	e := newTestEngine(`{"type":"buy_arena"}`) // would panic/fail if model were actually called and parsed wrongly
	a := &agent.Agent{ID: "a1"}
	rec, rejected := e.Decide(context.Background(), a, observation.Observation{}, nil, Funds{}, WheelState{}, agent.LoopModeDegenLoop, nil, nil)
	require.Nil(t, rejected)
	assert.Equal(t, "rest", string(rec.ExecutedAction.Type))
}

func TestEngine_ModelRestOnUnparsableResponse(t *testing.T) {
	e := newTestEngine(`not json at all`)
	a := &agent.Agent{ID: "a1"}
	rec, rejected := e.Decide(context.Background(), a, observation.Observation{}, nil, Funds{}, WheelState{}, agent.LoopModeDefault, nil, nil)
	require.Nil(t, rejected)
	assert.Equal(t, "rest", string(rec.ExecutedAction.Type))
}
