// Package command models owner/operator directives that can force, steer,
// or merely suggest an agent's next action.
package command

import "time"

// Status is the command's lifecycle state.
type Status string

const (
	Queued    Status = "QUEUED"
	Accepted  Status = "ACCEPTED"
	Executed  Status = "EXECUTED"
	Rejected  Status = "REJECTED"
	Expired   Status = "EXPIRED"
	Cancelled Status = "CANCELLED"
)

// Mode determines whether the decision engine is bypassed (STRONG/OVERRIDE)
// or merely informed (SUGGEST).
type Mode string

const (
	Suggest  Mode = "SUGGEST"
	Strong   Mode = "STRONG"
	Override Mode = "OVERRIDE"
)

// Forced reports whether the mode bypasses the decision engine entirely.
func (m Mode) Forced() bool {
	return m == Strong || m == Override
}

// ReasonCode enumerates why a command was rejected.
type ReasonCode string

const (
	ReasonInvalidIntent        ReasonCode = "INVALID_INTENT"
	ReasonTargetUnavailable    ReasonCode = "TARGET_UNAVAILABLE"
	ReasonConstraintViolation  ReasonCode = "CONSTRAINT_VIOLATION"
	ReasonAgentIncapacitated   ReasonCode = "AGENT_INCAPACITATED"
	ReasonExecutionFailed      ReasonCode = "EXECUTION_FAILED"
	ReasonExecutionError       ReasonCode = "EXECUTION_ERROR"
)

// Compliance describes how closely an EXECUTED command matched its
// declared expectation.
type Compliance string

const (
	ComplianceFull    Compliance = "FULL"
	CompliancePartial Compliance = "PARTIAL"
)

// AuditMeta is opaque operator bookkeeping carried through to the receipt.
type AuditMeta struct {
	ChatID   string
	IssuedBy string
}

// Command is one owner/operator directive targeting a single agent.
type Command struct {
	ID                 string
	AgentID            string
	Mode               Mode
	Intent             string
	Params             map[string]any
	ExpectedActionType string
	Constraints        map[string]any
	AuditMeta          *AuditMeta
	Status             Status
	ReasonCode         ReasonCode
	CreatedAt          time.Time
	ExpiresAt          time.Time
}

// Receipt is the compliance record emitted after a forced or suggested
// command's tick has run.
type Receipt struct {
	CommandID    string
	AgentID      string
	Status       Status
	ReasonCode   ReasonCode
	Compliance   Compliance
	NotifyChatID string
	IssuedAtTick int64
}

// NewReceipt builds the receipt for a command that reached execution,
// classifying EXECUTED/REJECTED and FULL/PARTIAL compliance per §4.5:
// status is EXECUTED iff the action succeeded and, for strict modes, the
// executed type matches what was expected.
func NewReceipt(cmd *Command, tick int64, success bool, executedType string) Receipt {
	r := Receipt{
		CommandID:    cmd.ID,
		AgentID:      cmd.AgentID,
		IssuedAtTick: tick,
	}
	if cmd.AuditMeta != nil {
		r.NotifyChatID = cmd.AuditMeta.ChatID
	}

	typesMatch := executedType == cmd.ExpectedActionType
	strict := cmd.Mode.Forced()

	executed := success && (!strict || typesMatch)
	if executed {
		r.Status = Executed
		if typesMatch {
			r.Compliance = ComplianceFull
		} else {
			r.Compliance = CompliancePartial
		}
		return r
	}

	r.Status = Rejected
	if cmd.ReasonCode != "" {
		r.ReasonCode = cmd.ReasonCode
	} else {
		r.ReasonCode = ReasonExecutionFailed
	}
	return r
}
