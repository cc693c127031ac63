// Package controlplane implements command acceptance and receipt
// emission (spec §4.5): at most one ACCEPTED command per agent per tick,
// STRONG/OVERRIDE commands bypass the decision engine, SUGGEST commands
// are advisory, and every terminal command emits a compliance receipt
// before the next tick can accept another for that agent.
package controlplane

import (
	"context"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/domain/command"
)

// Controller mediates the command queue collaborator.
type Controller struct {
	Queue collaborator.CommandQueue
}

// New wires a Controller.
func New(queue collaborator.CommandQueue) *Controller {
	return &Controller{Queue: queue}
}

// AcceptNext fetches agentID's next QUEUED command, if any, and
// transitions it to ACCEPTED. Returns nil, nil when there is nothing
// queued.
func (c *Controller) AcceptNext(ctx context.Context, agentID string) (*command.Command, error) {
	if c.Queue == nil {
		return nil, nil
	}
	cmd, err := c.Queue.NextQueued(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, nil
	}
	if err := c.Queue.Transition(ctx, cmd.ID, command.Accepted, ""); err != nil {
		return nil, err
	}
	cmd.Status = command.Accepted
	return cmd, nil
}

// Reject transitions cmd to REJECTED with reason, used when forced
// command translation fails (spec §4.3(1)) before falling through to
// the normal decision path.
func (c *Controller) Reject(ctx context.Context, cmd *command.Command, reason command.ReasonCode) error {
	if c.Queue == nil || cmd == nil {
		return nil
	}
	cmd.Status = command.Rejected
	cmd.ReasonCode = reason
	return c.Queue.Transition(ctx, cmd.ID, command.Rejected, reason)
}

// Finalize classifies and persists the terminal receipt for cmd once its
// tick's execution has completed, per command.NewReceipt's rules, and
// transitions the command to the receipt's terminal status.
func (c *Controller) Finalize(ctx context.Context, cmd *command.Command, tick int64, success bool, executedType string) (*command.Receipt, error) {
	if cmd == nil {
		return nil, nil
	}
	receipt := command.NewReceipt(cmd, tick, success, executedType)
	if c.Queue == nil {
		return &receipt, nil
	}
	if err := c.Queue.Transition(ctx, cmd.ID, receipt.Status, receipt.ReasonCode); err != nil {
		return &receipt, err
	}
	if err := c.Queue.EmitReceipt(ctx, receipt); err != nil {
		return &receipt, err
	}
	return &receipt, nil
}
