package economy

import "fmt"

// Pool is the persisted shape of the shared economy pool row. The core
// never keeps a long-lived handle to it — every hook re-reads the row via
// the collaborator.EconomyPoolStore interface inside its own transaction and
// operates on a fresh Pool value, per the no-long-lived-foreign-state
// design note.
type Pool struct {
	ID             string
	ReserveBalance int
	ArenaBalance   int
	FeeBps         int
}

// DefaultPool builds the pool's initial row from the documented
// environment defaults, clamped to their documented minimums/ranges.
func DefaultPool(id string, initReserve, initArena, feeBps int) Pool {
	if initReserve < 1000 {
		initReserve = 1000
	}
	if initArena < 0 {
		initArena = 0
	}
	if feeBps < 0 {
		feeBps = 0
	}
	if feeBps > 1000 {
		feeBps = 1000
	}
	return Pool{ID: id, ReserveBalance: initReserve, ArenaBalance: initArena, FeeBps: feeBps}
}

// ErrPoolFloorBreach is returned by TryDebit when a debit would push the
// pool's $ARENA balance below SolvencyPoolFloor.
var ErrPoolFloorBreach = fmt.Errorf("economy pool: debit would breach solvency floor of %d", SolvencyPoolFloor)

// TryDebit computes the post-debit balance for delta (already an
// in-transaction-fresh read) and reports whether it is safe, i.e. stays
// at or above SolvencyPoolFloor. It performs no I/O; callers must apply
// the check-then-update inside their own database transaction so two
// concurrently debiting agents can't both pass the check against a stale
// balance.
func (p Pool) TryDebit(delta int) (newBalance int, ok bool) {
	newBalance = p.ArenaBalance - delta
	return newBalance, newBalance >= SolvencyPoolFloor
}

// MaxSafeDebit returns the largest amount that can be withdrawn from the
// pool right now without breaching the floor (never negative).
func (p Pool) MaxSafeDebit() int {
	room := p.ArenaBalance - SolvencyPoolFloor
	if room < 0 {
		return 0
	}
	return room
}

// Credit returns the pool's balance after crediting amount; credits never
// threaten the floor.
func (p Pool) Credit(amount int) int {
	return p.ArenaBalance + amount
}
