// Package agent holds the persistent identity and state the core mutates
// for each AI-controlled participant.
package agent

import "time"

// Archetype is the personality tag used to seed prompts and temperature.
type Archetype string

const (
	Shark      Archetype = "SHARK"
	Rock       Archetype = "ROCK"
	Chameleon  Archetype = "CHAMELEON"
	Degen      Archetype = "DEGEN"
	Grinder    Archetype = "GRINDER"
)

// Temperature returns the model sampling temperature associated with the
// archetype. SHARK and DEGEN run hot (more aggressive, less predictable);
// ROCK runs cold (conservative, repeatable).
func (a Archetype) Temperature() float64 {
	switch a {
	case Shark:
		return 0.9
	case Degen:
		return 1.0
	case Chameleon:
		return 0.7
	case Grinder:
		return 0.5
	case Rock:
		return 0.3
	default:
		return 0.6
	}
}

// LoopMode selects whether an agent is driven by the language model or by
// the deterministic degen-loop policy.
type LoopMode string

const (
	LoopModeDefault   LoopMode = "DEFAULT"
	LoopModeDegenLoop LoopMode = "DEGEN_LOOP"
)

// Agent is the identity and persistent state the core reads and mutates
// each tick. Everything not listed here is owned and persisted elsewhere.
type Agent struct {
	ID              string
	Name            string
	Archetype       Archetype
	ModelID         string
	Bankroll        int // integer $ARENA, invariant >= 0
	ReserveBalance  int // integer stable units, invariant >= 0
	Health          int // invariant in [0, 100]
	Elo             int
	IsActive        bool
	IsInMatch       bool
	CurrentMatchID  string
	Scratchpad      []string // bounded, last 20 entries
	LastActionType  string
	LastReasoning   string
	LastNarrative   string
	LastTargetPlot  int
	LastTickAt      time.Time
	LastActiveAt    time.Time
	SystemPrompt    string
	LoopMode        LoopMode
	LastTradeTick   int64
}

const maxScratchpadEntries = 20

// AppendJournal appends a scratchpad entry, trimming to the last 20 so the
// journal never grows unbounded across a long-lived agent's lifetime.
func (a *Agent) AppendJournal(entry string) {
	a.Scratchpad = append(a.Scratchpad, entry)
	if len(a.Scratchpad) > maxScratchpadEntries {
		a.Scratchpad = a.Scratchpad[len(a.Scratchpad)-maxScratchpadEntries:]
	}
}

// Incapacitated reports whether the agent's health has hit zero. An
// incapacitated agent may only rest.
func (a *Agent) Incapacitated() bool {
	return a.Health <= 0
}

// Valid reports whether the agent satisfies the core's persistent
// invariants: non-negative bankroll and reserve, and health in [0, 100].
func (a *Agent) Valid() bool {
	return a.Bankroll >= 0 && a.ReserveBalance >= 0 && a.Health >= 0 && a.Health <= 100
}

// ClampHealth clamps health into [0, 100] after a delta is applied.
func ClampHealth(h int) int {
	if h < 0 {
		return 0
	}
	if h > 100 {
		return 100
	}
	return h
}
