package enrich

import "sync"

// Ledger tracks cumulative enrichment spend for one run against a ceiling.
//
// Shared by all workers in a run; Reserve is the only gate through which
// cost is spent, so the ceiling can never be exceeded by concurrent
// waterfalls racing each other.
type Ledger struct {
	mu      sync.Mutex
	ceiling float64 // <= 0 means unlimited
	spent   float64
}

// NewLedger creates a ledger with the given ceiling.
// A ceiling of zero or less disables the budget check.
func NewLedger(ceiling float64) *Ledger {
	return &Ledger{ceiling: ceiling}
}

// Reserve charges cost against the ceiling. Returns false - and charges
// nothing - when the reservation would push cumulative spend past the
// ceiling.
func (l *Ledger) Reserve(cost float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ceiling > 0 && l.spent+cost > l.ceiling {
		return false
	}
	l.spent += cost
	return true
}

// Spent returns cumulative spend so far.
func (l *Ledger) Spent() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spent
}

// Ceiling returns the configured ceiling (<= 0 when unlimited).
func (l *Ledger) Ceiling() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ceiling
}
