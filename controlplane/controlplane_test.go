package controlplane

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townforge/agentcore/domain/command"
)

type fakeQueue struct {
	next         *command.Command
	transitions  []command.Status
	receipts     []command.Receipt
}

func (f *fakeQueue) NextQueued(ctx context.Context, agentID string) (*command.Command, error) {
	return f.next, nil
}
func (f *fakeQueue) Transition(ctx context.Context, commandID string, status command.Status, reason command.ReasonCode) error {
	f.transitions = append(f.transitions, status)
	return nil
}
func (f *fakeQueue) EmitReceipt(ctx context.Context, receipt command.Receipt) error {
	f.receipts = append(f.receipts, receipt)
	return nil
}

func TestAcceptNext_TransitionsToAccepted(t *testing.T) {
	q := &fakeQueue{next: &command.Command{ID: "c1", Status: command.Queued}}
	c := New(q)
	cmd, err := c.AcceptNext(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, command.Accepted, cmd.Status)
	assert.Equal(t, []command.Status{command.Accepted}, q.transitions)
}

func TestAcceptNext_NilWhenNothingQueued(t *testing.T) {
	q := &fakeQueue{}
	c := New(q)
	cmd, err := c.AcceptNext(context.Background(), "a1")
	require.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestFinalize_ForcedSuccessFullCompliance(t *testing.T) {
	q := &fakeQueue{}
	c := New(q)
	cmd := &command.Command{ID: "c1", Mode: command.Strong, ExpectedActionType: "claim_plot", AuditMeta: &command.AuditMeta{ChatID: "chat1"}}
	receipt, err := c.Finalize(context.Background(), cmd, 5, true, "claim_plot")
	require.NoError(t, err)
	assert.Equal(t, command.Executed, receipt.Status)
	assert.Equal(t, command.ComplianceFull, receipt.Compliance)
	assert.Equal(t, "chat1", receipt.NotifyChatID)
	require.Len(t, q.receipts, 1)
}

func TestFinalize_ForcedTypeMismatchRejected(t *testing.T) {
	q := &fakeQueue{}
	c := New(q)
	cmd := &command.Command{ID: "c1", Mode: command.Override, ExpectedActionType: "claim_plot"}
	receipt, err := c.Finalize(context.Background(), cmd, 5, true, "rest")
	require.NoError(t, err)
	assert.Equal(t, command.Rejected, receipt.Status)
}

func TestReject_SetsReasonAndTransitions(t *testing.T) {
	q := &fakeQueue{}
	c := New(q)
	cmd := &command.Command{ID: "c1"}
	err := c.Reject(context.Background(), cmd, command.ReasonTargetUnavailable)
	require.NoError(t, err)
	assert.Equal(t, command.Rejected, cmd.Status)
	assert.Equal(t, command.ReasonTargetUnavailable, cmd.ReasonCode)
	assert.Equal(t, []command.Status{command.Rejected}, q.transitions)
}
