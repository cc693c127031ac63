// Package scheduler drives the periodic tick loop from spec §4.1: world-event
// pulse, active-town bootstrap, per-agent upkeep/solvency-rescue/repayment,
// five-tick yield distribution, and the parallel per-agent decide-execute
// fan-out. Grounded on the host platform's automation service's
// ticker-plus-stopCh worker loop, generalized to a single robfig/cron
// schedule (per the expanded domain-stack wiring) instead of a raw
// time.Ticker, so the next tick time is computable deterministically rather
// than drifting across Stop/Start cycles.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/controlplane"
	"github.com/townforge/agentcore/decision"
	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/command"
	domaindecision "github.com/townforge/agentcore/domain/decision"
	domainobservation "github.com/townforge/agentcore/domain/observation"
	"github.com/townforge/agentcore/economy"
	"github.com/townforge/agentcore/execution"
	"github.com/townforge/agentcore/internal/obslog"
	"github.com/townforge/agentcore/memory"
	"github.com/townforge/agentcore/observation"
)

// yieldEveryNTicks is how often (in ticks) a COMPLETE town's yield is
// distributed (spec §4.1 step 4).
const yieldEveryNTicks = 5

// OnTickResult is invoked once per agent per tick with the reified outcome.
// A panic inside it is recovered and logged; it never escapes the
// scheduler's fan-out.
type OnTickResult func(domaindecision.Result)

// Config wires a Scheduler's collaborators and internal components.
type Config struct {
	Agents collaborator.AgentDirectory
	Town   collaborator.TownService
	World  collaborator.WorldEvents // optional
	Goals  collaborator.Goals       // optional
	Pool   collaborator.EconomyPoolStore

	Observer  *observation.Builder
	Control   *controlplane.Controller
	Decision  *decision.Engine
	Execution *execution.Dispatcher
	Economy   *economy.Tracker
	Memory    *memory.Store
	Log       *obslog.Logger

	OnTickResult OnTickResult
}

// Scheduler is the tick driver described in spec §4.1. One Scheduler is
// shared by the whole host process.
type Scheduler struct {
	agents collaborator.AgentDirectory
	town   collaborator.TownService
	world  collaborator.WorldEvents
	goals  collaborator.Goals
	pool   collaborator.EconomyPoolStore

	observer       *observation.Builder
	control        *controlplane.Controller
	decision       *decision.Engine
	execution      *execution.Dispatcher
	economyTracker *economy.Tracker
	memoryStore    *memory.Store
	log            *obslog.Logger

	onTickResult OnTickResult

	currentTick  atomic.Int64
	tickInFlight atomic.Bool

	schedule cron.Schedule
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New wires a Scheduler from cfg.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		agents: cfg.Agents,
		town:   cfg.Town,
		world:  cfg.World,
		goals:  cfg.Goals,
		pool:   cfg.Pool,

		observer:       cfg.Observer,
		control:        cfg.Control,
		decision:       cfg.Decision,
		execution:      cfg.Execution,
		economyTracker: cfg.Economy,
		memoryStore:    cfg.Memory,
		log:            cfg.Log,

		onTickResult: cfg.OnTickResult,
	}
}

// Start installs a periodic timer at intervalMs and begins ticking in the
// background. Stop cancels it.
func (s *Scheduler) Start(ctx context.Context, intervalMs int) error {
	spec := fmt.Sprintf("@every %dms", intervalMs)
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("scheduler: invalid interval %dms: %w", intervalMs, err)
	}
	s.schedule = schedule
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop cancels the periodic timer and waits for the run loop to exit,
// including any timer-driven Tick it is executing. A Tick called directly
// by the caller is not waited for.
func (s *Scheduler) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	next := s.schedule.Next(time.Now())
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-timer.C:
			s.Tick(ctx)
			next = s.schedule.Next(time.Now())
			timer.Reset(time.Until(next))
		}
	}
}

// Tick runs one full scheduler pass. A timer firing while a previous Tick is
// still running is silently dropped by the tickInFlight guard, matching
// spec §4.1's single-threaded re-entrancy flag.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.tickInFlight.CompareAndSwap(false, true) {
		return
	}
	defer s.tickInFlight.Store(false)

	tick := s.currentTick.Add(1)
	log := s.log.WithTick(tick)

	s.pulseWorldEvent(ctx, tick)
	town := s.ensureActiveTown(ctx)

	agents, err := s.agents.ListActive(ctx)
	if err != nil {
		log.WithError(err).Error("failed to list active agents")
		return
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].LastActiveAt.Before(agents[j].LastActiveAt)
	})

	upkeepMultiplier := 1.0
	if stats, err := s.town.GetWorldStats(ctx); err == nil && stats.UpkeepMultiplier > 0 {
		upkeepMultiplier = stats.UpkeepMultiplier
	}
	for _, a := range agents {
		s.applyUpkeepAndRescue(ctx, a, tick, upkeepMultiplier)
	}

	if town != nil && town.Status == "COMPLETE" && tick%yieldEveryNTicks == 0 {
		if err := s.town.DistributeYield(ctx, town.ID); err != nil {
			log.WithError(err).Warn("yield distribution failed")
		}
	}

	var wg sync.WaitGroup
	for _, a := range agents {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := s.processAgentTick(ctx, a, tick)
			a.LastActiveAt = time.Now()
			if err := s.agents.Save(ctx, a); err != nil {
				log.WithField("agent_id", a.ID).WithError(err).Warn("failed to persist agent state")
			}
			s.emit(result)
		}()
	}
	wg.Wait()
}

// pulseWorldEvent fires the world-event collaborator and, if it produces a
// new event, logs it against the active town. The source spec calls for
// logging to "every town in {BUILDING, COMPLETE}"; this architecture never
// holds more than one active town at a time, so the active town stands in
// for that set (recorded as an open-question resolution).
func (s *Scheduler) pulseWorldEvent(ctx context.Context, tick int64) {
	if s.world == nil {
		return
	}
	event, err := s.world.Pulse(ctx, tick)
	if err != nil {
		s.log.WithTick(tick).WithError(err).Warn("world-event pulse failed")
		return
	}
	if event == nil {
		return
	}
	town, err := s.town.GetActiveTown(ctx)
	if err != nil || town == nil {
		return
	}
	if town.Status != "BUILDING" && town.Status != "COMPLETE" {
		return
	}
	if err := s.town.LogEvent(ctx, town.ID, event.Type, event.Title, event.Description, event.AgentID, event.Metadata); err != nil {
		s.log.WithTick(tick).WithError(err).Warn("failed to log world event")
	}
}

// ensureActiveTown guarantees at least one active town exists, creating
// "Town N" at level completedTowns+1 otherwise (spec §4.1 step 2).
func (s *Scheduler) ensureActiveTown(ctx context.Context) *domainobservation.Town {
	town, err := s.town.GetActiveTown(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch active town")
		return nil
	}
	if town != nil {
		return town
	}

	level := 1
	if counter, ok := s.town.(collaborator.CompletedTownsCount); ok {
		if n, err := counter.CompletedTownsCount(ctx); err == nil {
			level = n + 1
		}
	}
	name := fmt.Sprintf("Town %d", level)
	created, err := s.town.CreateTown(ctx, name, level)
	if err != nil {
		s.log.WithError(err).Error("failed to create active town")
		return nil
	}
	s.log.WithField("town", name).Info("created new active town")
	return created
}

// applyUpkeepAndRescue runs the per-agent solvency-rescue/upkeep/repayment
// sequence from spec §4.1 step 3, in oldest-lastActiveAt-first order.
func (s *Scheduler) applyUpkeepAndRescue(ctx context.Context, a *agent.Agent, tick int64, upkeepMultiplier float64) {
	entry := s.log.WithAgent(tick, a.ID)

	if granted, err := s.economyTracker.MaybeRescue(ctx, s.pool, a, tick); err != nil {
		entry.WithError(err).Warn("solvency rescue check failed")
	} else if granted > 0 {
		entry.WithField("grant", granted).Info("solvency rescue granted")
	}

	if cost, grace := s.economyTracker.Upkeep(a, upkeepMultiplier); grace {
		entry.WithField("upkeep", cost).Info("upkeep grace tick granted")
	}

	if repaid, err := s.economyTracker.RepayRescueDebt(ctx, s.pool, a); err != nil {
		entry.WithError(err).Warn("rescue-debt repayment failed")
	} else if repaid > 0 {
		entry.WithField("repaid", repaid).Info("rescue debt repaid")
	}
}

// processAgentTick runs the full observe/decide/execute/finalize pipeline
// for one agent. Any panic is recovered and reified into a failed rest
// TickResult so one agent's bug never aborts the tick (spec §4.1 failure
// semantics).
func (s *Scheduler) processAgentTick(ctx context.Context, a *agent.Agent, tick int64) (result domaindecision.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = domaindecision.Result{
				Tick:      tick,
				AgentID:   a.ID,
				Action:    action.Action{Type: action.Rest},
				Success:   false,
				Narrative: "agent tick failed",
				Error:     fmt.Sprintf("%v", r),
			}
		}
	}()

	obs, err := s.observer.Observe(ctx, a, tick)
	if err != nil {
		s.log.WithAgent(tick, a.ID).WithError(err).Warn("observation gather incomplete")
	}

	cmd, err := s.control.AcceptNext(ctx, a.ID)
	if err != nil {
		s.log.WithAgent(tick, a.ID).WithError(err).Warn("failed to accept queued command")
	}

	var goalStack []string
	if s.goals != nil {
		goalStack, _ = s.goals.GetGoalStack(ctx, a.ID)
	}

	funds := decision.Funds{Bankroll: a.Bankroll, ReserveBalance: a.ReserveBalance}
	wheel := wheelStateFromObservation(obs)
	loopMode := s.memoryStore.GetLoopMode(a.ID, a.LoopMode)
	humanInstructions := s.memoryStore.DrainInstructions(a.ID)

	var receipt *command.Receipt
	rec, rejected := s.decision.Decide(ctx, a, obs, cmd, funds, wheel, loopMode, goalStack, humanInstructions)
	if rejected != nil {
		if err := s.control.Reject(ctx, rejected, rejected.ReasonCode); err != nil {
			s.log.WithAgent(tick, a.ID).WithError(err).Warn("failed to reject forced command")
		} else if s.control.Queue != nil {
			r := command.NewReceipt(rejected, tick, false, "")
			receipt = &r
			if err := s.control.Queue.EmitReceipt(ctx, r); err != nil {
				s.log.WithAgent(tick, a.ID).WithError(err).Warn("failed to emit rejection receipt")
			}
		}
	}

	strict := cmd != nil && rejected == nil && cmd.Mode.Forced()
	execResult := s.execution.Execute(ctx, a, obs, wheel, rec.ExecutedAction, strict, tick)

	a.LastActionType = string(execResult.ActualAction.Type)
	a.LastReasoning = rec.ChosenReasoning
	a.LastNarrative = execResult.Narrative
	a.LastTargetPlot = execResult.ActualAction.PlotIndex
	a.LastTickAt = time.Now()
	memory.AppendJournal(a, execResult.Narrative)

	if cmd != nil && rejected == nil {
		receipt, err = s.control.Finalize(ctx, cmd, tick, execResult.Success, string(execResult.ActualAction.Type))
		if err != nil {
			s.log.WithAgent(tick, a.ID).WithError(err).Warn("failed to finalize command receipt")
		}
	}

	errMsg := ""
	if execResult.Err != nil {
		errMsg = execResult.Err.Error()
	}
	s.log.LogTickResult(tick, a.ID, string(execResult.ActualAction.Type), execResult.Success, execResult.Err)

	return domaindecision.Result{
		Tick:           tick,
		AgentID:        a.ID,
		Action:         execResult.ActualAction,
		Success:        execResult.Success,
		Narrative:      execResult.Narrative,
		Cost:           execResult.Cost,
		Error:          errMsg,
		CommandReceipt: receipt,
	}
}

// emit invokes onTickResult, recovering and logging any panic so a bad host
// callback never escapes the fan-out.
func (s *Scheduler) emit(result domaindecision.Result) {
	if s.onTickResult == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.WithTick(result.Tick).WithField("panic", r).Error("onTickResult callback panicked")
		}
	}()
	s.onTickResult(result)
}

// wheelStateFromObservation derives the degen-loop's wheel-of-fate window
// from the observation's world-stats event name. The source system's wheel
// phase/game-type/wager are not modeled as Observation fields (they arrive
// only through the forced-command/nudge path in this boundary), so this
// recognizes an active window by name and defers game type/wager to the
// degen-loop's own defaults.
func wheelStateFromObservation(obs domainobservation.Observation) decision.WheelState {
	name := strings.ToUpper(obs.WorldStats.ActiveWorldEventName)
	if !strings.Contains(name, "WHEEL") {
		return decision.WheelState{}
	}
	return decision.WheelState{
		Active:   true,
		Fighting: strings.Contains(name, "FIGHT"),
	}
}
