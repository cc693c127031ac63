// Package decision holds the diagnostic and outcome records produced by
// the decide-execute pipeline: policy notes, the full decision trail, and
// the per-tick result delivered to the host process.
package decision

import (
	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/command"
)

// Tier ranks how serious a policy overlay's correction is.
type Tier string

const (
	TierHardSafety      Tier = "hard_safety"
	TierEconomicWarning Tier = "economic_warning"
	TierStrategyNudge   Tier = "strategy_nudge"
)

// Note is a diagnostic record of one policy overlay's evaluation, carried
// into the emitted event whether or not it actually rewrote the action.
type Note struct {
	Tier    Tier
	Code    string
	Message string
	Applied bool
}

// Record is the full decision trail for one agent's tick: chosen vs.
// executed action, both reasonings, overlay notes, autonomy rate before
// and after, and command metadata.
type Record struct {
	AgentID          string
	Tick             int64
	ChosenAction     action.Action
	ExecutedAction   action.Action
	ChosenReasoning  string
	Calculations     string
	Notes            []Note
	AutonomyBefore   float64
	AutonomyAfter    float64
	GoalStackBefore  []string
	GoalStackAfter   []string
	EconomyDelta     int
	CommandID        string
	CommandMode      command.Mode
}

// Overridden reports whether the policy overlay rewrote the model/degen
// decision into a different action type.
func (r Record) Overridden() bool {
	return r.ChosenAction.Type != r.ExecutedAction.Type
}

// Result is the outcome of one agent's tick, delivered to the host
// process's onTickResult callback.
type Result struct {
	Tick              int64
	AgentID           string
	Action            action.Action // the action actually executed
	Success           bool
	Narrative         string
	Cost              int
	Error             string
	InstructionSenders []string
	HumanReply        string
	CommandReceipt    *command.Receipt
}
