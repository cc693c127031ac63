// Package economy implements the economy hooks from spec §4.7: upkeep,
// solvency rescue, rescue-debt repayment, work wage, completion bonus,
// fumble tax, and non-rest streak retention. The process-scoped counters
// (rescue debt/window, streaks, trade cooldown) live here behind a
// mutex, grounded on the host platform's internal/gasbank.Manager
// pattern of guarding every balance mutation with a single lock and
// re-reading the persisted row before mutating it.
package economy

import (
	"context"
	"math"
	"sync"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/economy"
)

// Tracker holds the process-wide, in-memory economy state: everything
// that is lost (harmlessly) on restart. One Tracker is shared by the
// whole scheduler.
type Tracker struct {
	mu            sync.RWMutex
	rescueDebt    map[string]economy.RescueDebt
	rescueWindow  map[string]economy.RescueWindow
	streaks       map[string]economy.NonRestStreak
	tradeCooldown map[string]int64
}

// NewTracker builds an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		rescueDebt:    make(map[string]economy.RescueDebt),
		rescueWindow:  make(map[string]economy.RescueWindow),
		streaks:       make(map[string]economy.NonRestStreak),
		tradeCooldown: make(map[string]int64),
	}
}

// Upkeep deducts the per-tick upkeep (spec §4.1.3.b) from bankroll. If
// bankroll can't cover it but the agent has reserve, one grace tick is
// granted (no deduction, but a log-worthy event is signalled via the
// granted bool); otherwise health is reduced (2 if fully broke meaning
// bankroll and reserve are both zero, 4 otherwise).
func (t *Tracker) Upkeep(a *agent.Agent, worldUpkeepMultiplier float64) (cost int, graceGranted bool) {
	cost = int(math.Max(1, math.Round(1*worldUpkeepMultiplier)))

	if a.Bankroll >= cost {
		a.Bankroll -= cost
		return cost, false
	}

	if a.ReserveBalance > 0 {
		return cost, true
	}

	if a.Bankroll == 0 && a.ReserveBalance == 0 {
		a.Health = agent.ClampHealth(a.Health - 2)
	} else {
		a.Health = agent.ClampHealth(a.Health - 4)
	}
	return cost, false
}

// MaybeRescue evaluates and, if eligible, issues a solvency rescue for
// the agent, atomically withdrawing from the pool via store and
// crediting the agent's bankroll/health. Returns the amount granted (0
// if not eligible or the pool declined).
func (t *Tracker) MaybeRescue(ctx context.Context, store collaborator.EconomyPoolStore, a *agent.Agent, tick int64) (int, error) {
	t.mu.Lock()
	debt := t.rescueDebt[a.ID]
	window := t.rescueWindow[a.ID]
	window.Roll(tick)

	if !economy.EligibleForRescue(a.Health, a.Bankroll, a.ReserveBalance, tick, debt, window) {
		t.rescueWindow[a.ID] = window
		t.mu.Unlock()
		return 0, nil
	}
	t.mu.Unlock()

	pool, err := store.GetPool(ctx)
	if err != nil {
		return 0, err
	}
	grant := economy.SolvencyRescueArena
	if room := pool.MaxSafeDebit(); room < grant {
		grant = room
	}
	if grant <= 0 {
		return 0, nil
	}

	if _, ok, err := store.TryApplyDelta(ctx, -grant); err != nil {
		return 0, err
	} else if !ok {
		return 0, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	a.Bankroll += grant
	a.Health = agent.ClampHealth(a.Health + economy.SolvencyRescueHealthBump)

	debt.Debt += grant
	debt.LastRescueTick = tick
	t.rescueDebt[a.ID] = debt

	window.RescuesIssued++
	t.rescueWindow[a.ID] = window

	return grant, nil
}

// RepayRescueDebt repays a portion of the agent's outstanding rescue
// debt back to the pool, per spec §4.7. Returns the amount repaid.
func (t *Tracker) RepayRescueDebt(ctx context.Context, store collaborator.EconomyPoolStore, a *agent.Agent) (int, error) {
	t.mu.Lock()
	debt := t.rescueDebt[a.ID]
	if debt.Debt <= 0 {
		t.mu.Unlock()
		return 0, nil
	}
	due := economy.RepaymentDue(a.Bankroll, debt.Debt)
	t.mu.Unlock()

	if due <= 0 {
		return 0, nil
	}
	if a.Bankroll < due {
		due = a.Bankroll
	}
	if due <= 0 {
		return 0, nil
	}

	if _, _, err := store.TryApplyDelta(ctx, due); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	a.Bankroll -= due
	debt = t.rescueDebt[a.ID]
	debt.Debt -= due
	if debt.Debt < 0 {
		debt.Debt = 0
	}
	t.rescueDebt[a.ID] = debt
	return due, nil
}

// WorkWage computes the per-submission wage for a zone's min-call count
// and build cost (spec §4.4 do_work): clamp(3..6,
// ceil(max(8, buildCost)/(minCalls*2))), then pays it from the pool iff
// doing so would not breach the floor.
func (t *Tracker) WorkWage(ctx context.Context, store collaborator.EconomyPoolStore, buildCost, minCalls int) (int, error) {
	base := buildCost
	if base < 8 {
		base = 8
	}
	denom := minCalls * 2
	if denom <= 0 {
		denom = 1
	}
	wage := int(math.Ceil(float64(base) / float64(denom)))
	if wage < economy.WorkWageMin {
		wage = economy.WorkWageMin
	}
	if wage > economy.WorkWageMax {
		wage = economy.WorkWageMax
	}

	pool, err := store.GetPool(ctx)
	if err != nil {
		return 0, err
	}
	if newBal, ok := pool.TryDebit(wage); !ok {
		_ = newBal
		return 0, nil
	}
	if _, ok, err := store.TryApplyDelta(ctx, -wage); err != nil {
		return 0, err
	} else if !ok {
		return 0, nil
	}
	return wage, nil
}

// CompletionBonus computes and pays the build-completion bonus (spec
// §4.4 complete_build): clamp(6..24, round(0.45 * max(10, buildCost))),
// floor-respecting.
func (t *Tracker) CompletionBonus(ctx context.Context, store collaborator.EconomyPoolStore, buildCost int) (int, error) {
	base := buildCost
	if base < 10 {
		base = 10
	}
	bonus := int(math.Round(0.45 * float64(base)))
	if bonus < economy.CompletionBonusMin {
		bonus = economy.CompletionBonusMin
	}
	if bonus > economy.CompletionBonusMax {
		bonus = economy.CompletionBonusMax
	}

	if _, ok, err := store.TryApplyDelta(ctx, -bonus); err != nil {
		return 0, err
	} else if !ok {
		return 0, nil
	}
	return bonus, nil
}

// FumbleTax applies the 1 $ARENA penalty on a caught execution
// exception, recycling it into the pool, but only when the agent can
// afford to stay at or above a bankroll of 4 afterward.
func (t *Tracker) FumbleTax(ctx context.Context, store collaborator.EconomyPoolStore, a *agent.Agent) (int, error) {
	if a.Bankroll-economy.FumbleTax < economy.FumbleTaxMinBankroll {
		return 0, nil
	}
	a.Bankroll -= economy.FumbleTax
	if _, _, err := store.TryApplyDelta(ctx, economy.FumbleTax); err != nil {
		// Tax already deducted from the agent; the pool credit failing is
		// a lost-coin situation, not reversed, matching the "pool math
		// must tolerate restart" tolerance for process-local bookkeeping.
		return economy.FumbleTax, err
	}
	return economy.FumbleTax, nil
}

// AdvanceStreak records one non-rest action for agentID and returns the
// milestone reward due (0 if none).
func (t *Tracker) AdvanceStreak(agentID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.streaks[agentID]
	reward := s.Advance()
	t.streaks[agentID] = s
	return reward
}

// ResetStreak clears agentID's streak (any rest action).
func (t *Tracker) ResetStreak(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.streaks[agentID]
	s.Reset()
	t.streaks[agentID] = s
}

// Streak returns a copy of agentID's current streak state.
func (t *Tracker) Streak(agentID string) economy.NonRestStreak {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.streaks[agentID]
}

// RecordTrade marks agentID as having traded on tick.
func (t *Tracker) RecordTrade(agentID string, tick int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tradeCooldown[agentID] = tick
}

// TradedRecently reports whether agentID traded within
// economy.TradeCooldownTicks of tick.
func (t *Tracker) TradedRecently(agentID string, tick int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	last, ok := t.tradeCooldown[agentID]
	if !ok {
		return false
	}
	return tick-last < economy.TradeCooldownTicks
}

// RescueDebtOf returns a copy of agentID's current rescue debt.
func (t *Tracker) RescueDebtOf(agentID string) economy.RescueDebt {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rescueDebt[agentID]
}
