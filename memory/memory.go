// Package memory implements the scratchpad journal and decision-history
// bookkeeping described in spec §2 ("Memory & Logging") and used by the
// policy overlay's autonomy-rate calculation (spec §4.3). Each agent's
// recent-decision history is a fixed-size ring buffer; the set of tracked
// agents is bounded with an LRU cache (github.com/hashicorp/golang-lru/v2),
// since every agent's history is independent and the total agent
// population is unbounded.
package memory

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/decision"
)

const (
	// decisionHistorySize matches economy.OverlayWindowSize's window:
	// the overlay only ever needs the trailing 24 decisions to compute
	// its override rate.
	decisionHistorySize = 24
)

// Store holds bounded per-agent decision history used to compute the
// policy overlay's autonomy rate, plus the journal-append helper and the
// process-scoped loop-mode override and instruction-queue maps (spec: both
// tolerate forgetting on restart, unlike the host-persisted Agent fields).
type Store struct {
	history *lru.Cache[string, *ring]

	mu           sync.Mutex
	loopModes    map[string]agent.LoopMode
	instructions map[string][]string
}

// New builds an empty Store.
func New() *Store {
	c, _ := lru.New[string, *ring](4096) // bounded by active-agent population, not by entries
	return &Store{
		history:      c,
		loopModes:    make(map[string]agent.LoopMode),
		instructions: make(map[string][]string),
	}
}

// ring is a fixed-capacity circular buffer of "was this decision
// overridden by the policy overlay" booleans for one agent.
type ring struct {
	overridden [decisionHistorySize]bool
	count      int
	next       int
}

func (r *ring) push(overridden bool) {
	r.overridden[r.next] = overridden
	r.next = (r.next + 1) % decisionHistorySize
	if r.count < decisionHistorySize {
		r.count++
	}
}

func (r *ring) rate() float64 {
	if r.count == 0 {
		return 0
	}
	n := 0
	for i := 0; i < r.count; i++ {
		if r.overridden[i] {
			n++
		}
	}
	return float64(n) / float64(r.count)
}

// AutonomyRate returns the fraction of the trailing window of decisions
// for agentID that the policy overlay overrode.
func (s *Store) AutonomyRate(agentID string) float64 {
	r, ok := s.history.Get(agentID)
	if !ok {
		return 0
	}
	return r.rate()
}

// RecordDecision appends the decision's override outcome to agentID's
// trailing window, used by the next tick's overlay-budget check.
func (s *Store) RecordDecision(agentID string, rec decision.Record) {
	r, ok := s.history.Get(agentID)
	if !ok {
		r = &ring{}
	}
	r.push(rec.Overridden())
	s.history.Add(agentID, r)
}

// OverlayBudgetOpen reports whether agentID's soft-policy budget is open
// (trailing override rate below the configured threshold), per spec
// §4.3.
func (s *Store) OverlayBudgetOpen(agentID string, budgetRate float64) bool {
	return s.AutonomyRate(agentID) < budgetRate
}

// SetLoopMode overrides agentID's effective loop mode for this process's
// lifetime. Setting agent.LoopModeDefault removes the override entirely
// ("resetting to DEFAULT removes mapping"), falling back to the agent's own
// host-persisted LoopMode on the next GetLoopMode call.
func (s *Store) SetLoopMode(agentID string, mode agent.LoopMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == agent.LoopModeDefault {
		delete(s.loopModes, agentID)
		return
	}
	s.loopModes[agentID] = mode
}

// GetLoopMode returns agentID's effective loop mode: the process-scoped
// override if one is set, otherwise persisted (the agent's own LoopMode
// field).
func (s *Store) GetLoopMode(agentID string, persisted agent.LoopMode) agent.LoopMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode, ok := s.loopModes[agentID]; ok {
		return mode
	}
	return persisted
}

// QueueInstruction appends a human-issued instruction to agentID's queue,
// consumed whole by the next tick's DrainInstructions call.
func (s *Store) QueueInstruction(agentID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructions[agentID] = append(s.instructions[agentID], text)
}

// DrainInstructions returns and clears agentID's queued instructions.
func (s *Store) DrainInstructions(agentID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	instr := s.instructions[agentID]
	delete(s.instructions, agentID)
	return instr
}

// AppendJournal appends one entry to a's bounded scratchpad journal.
// Thin wrapper kept here (rather than only on agent.Agent) so callers
// that only import memory can journal without reaching into domain/agent
// directly.
func AppendJournal(a *agent.Agent, entry string) {
	a.AppendJournal(entry)
}
