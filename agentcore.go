// Package agentcore is the embedding point for a host process: it wires
// the tick scheduler, decide-execute pipeline, control plane, economy
// tracker, and memory store against the host-supplied collaborators
// (spec §1, "library embedded in a larger host process", no transport
// surface of its own). Grounded on the host platform's internal/app
// package, which plays the same role for its own domain services:
// an Option-configurable constructor returning one struct that exposes
// every wired component and a lifecycle (Start/Stop).
package agentcore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/controlplane"
	"github.com/townforge/agentcore/decision"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/command"
	domainobservation "github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/economy"
	"github.com/townforge/agentcore/execution"
	"github.com/townforge/agentcore/internal/config"
	"github.com/townforge/agentcore/internal/corerr"
	"github.com/townforge/agentcore/internal/obslog"
	"github.com/townforge/agentcore/memory"
	"github.com/townforge/agentcore/observation"
	"github.com/townforge/agentcore/planner"
	"github.com/townforge/agentcore/scheduler"
)

// Collaborators are the host-supplied boundaries agentcore never
// implements itself. Town, Pool, and Agents are required; the rest are
// optional and degrade gracefully when nil (spec §3/§9 Non-goals).
type Collaborators struct {
	Agents collaborator.AgentDirectory
	Town   collaborator.TownService
	Pool   collaborator.EconomyPoolStore
	Queue  collaborator.CommandQueue

	AMM    collaborator.AMM
	Arena  collaborator.Arena
	Oracle collaborator.SkillOracle
	LM     collaborator.LanguageModel
	Visual collaborator.BuildingVisual

	World  collaborator.WorldEvents
	Social collaborator.Social
	Goals  collaborator.Goals
}

// Option customises a Core's construction.
type Option func(*options)

type options struct {
	config       config.Config
	onTickResult scheduler.OnTickResult
}

// WithConfig overrides the default environment-loaded Config.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithOnTickResult registers a callback invoked once per agent per tick
// with the reified decision outcome (telemetry, dashboards, audit export
// — all host concerns per spec §9 Non-goals).
func WithOnTickResult(fn scheduler.OnTickResult) Option {
	return func(o *options) { o.onTickResult = fn }
}

// Core ties the decision pipeline together and manages the scheduler's
// lifecycle. One Core is shared by the whole host process.
type Core struct {
	Config config.Config

	Log       *obslog.Logger
	Memory    *memory.Store
	Economy   *economy.Tracker
	Observer  *observation.Builder
	Control   *controlplane.Controller
	Decision  *decision.Engine
	Execution *execution.Dispatcher
	Scheduler *scheduler.Scheduler
}

// New builds a fully wired Core from collabs, loading Config from the
// environment unless WithConfig overrides it.
func New(collabs Collaborators, opts ...Option) (*Core, error) {
	o := options{config: config.FromEnv()}
	for _, apply := range opts {
		apply(&o)
	}

	log := obslog.New("agentcore", o.config.LogLevel, o.config.LogFormat)

	mem := memory.New()
	tracker := economy.NewTracker()
	observer := observation.NewBuilder(collabs.Town, collabs.AMM, collabs.Social, collabs.Goals, collabs.Agents, collabs.Oracle)
	control := controlplane.New(collabs.Queue)

	limiter := decision.NewModelLimiter(o.config.ModelRatePerSec)
	modelEngine := decision.NewModelEngine(collabs.LM, limiter)
	decisionEngine := decision.NewEngine(modelEngine, mem, tracker)

	dispatcher := execution.New(collabs.Town, collabs.AMM, collabs.Arena, collabs.Oracle, collabs.LM, collabs.Pool, collabs.Visual, tracker)

	sched := scheduler.New(scheduler.Config{
		Agents: collabs.Agents,
		Town:   collabs.Town,
		World:  collabs.World,
		Goals:  collabs.Goals,
		Pool:   collabs.Pool,

		Observer:  observer,
		Control:   control,
		Decision:  decisionEngine,
		Execution: dispatcher,
		Economy:   tracker,
		Memory:    mem,
		Log:       log,

		OnTickResult: o.onTickResult,
	})

	return &Core{
		Config:    o.config,
		Log:       log,
		Memory:    mem,
		Economy:   tracker,
		Observer:  observer,
		Control:   control,
		Decision:  decisionEngine,
		Execution: dispatcher,
		Scheduler: sched,
	}, nil
}

// Start begins the tick scheduler at Config.TickIntervalMS.
func (c *Core) Start(ctx context.Context) error {
	return c.Scheduler.Start(ctx, c.Config.TickIntervalMS)
}

// Stop halts the tick scheduler, waiting for any in-flight tick to drain.
func (c *Core) Stop() {
	c.Scheduler.Stop()
}

// SetLoopMode overrides agentID's loop mode for this process's lifetime.
// Setting agent.LoopModeDefault clears the override, falling back to the
// agent's own persisted LoopMode field (spec §8).
func (c *Core) SetLoopMode(agentID string, mode agent.LoopMode) {
	c.Memory.SetLoopMode(agentID, mode)
}

// GetLoopMode returns agentID's effective loop mode: the process-scoped
// override if one is set, otherwise persisted.
func (c *Core) GetLoopMode(agentID string, persisted agent.LoopMode) agent.LoopMode {
	return c.Memory.GetLoopMode(agentID, persisted)
}

// QueueInstruction enqueues a human-operator instruction for agentID; it is
// drained into the agent's next decision prompt and then forgotten (spec
// §8 instruction queue).
func (c *Core) QueueInstruction(agentID, text string) {
	c.Memory.QueueInstruction(agentID, text)
}

// PlanOperatorCommand is the operator-facing entry point for spec §4.6:
// it turns a coarse intent ("build", "work", "fight", "trade", "rest")
// plus the agent's current observation and funds into a concrete Command
// ready for the host to enqueue via its CommandQueue, without the
// operator needing to see full world state. A rejected plan is returned
// as an error carrying the planner's corerr.Code.
func PlanOperatorCommand(agentID string, kind planner.Kind, obs domainobservation.Observation, funds planner.AgentFunds, wheel planner.WheelState, mode command.Mode, ttl time.Duration, audit *command.AuditMeta) (*command.Command, error) {
	result := planner.PlanDeterministicAction(agentID, kind, obs, funds, wheel)
	if !result.OK {
		return nil, corerr.New(result.ReasonCode, result.Reason)
	}

	now := time.Now()
	return &command.Command{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Mode:      mode,
		Intent:    result.Intent,
		Params:    result.Params,
		AuditMeta: audit,
		Status:    command.Queued,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
