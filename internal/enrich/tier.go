package enrich

import (
	"context"

	"github.com/roach88/steward/internal/entity"
)

// Tier is one external lookup provider in the waterfall.
//
// Implementations perform the actual network call; the waterfall supplies a
// deadline-bounded context and never calls a tier without having reserved
// its cost first.
type Tier interface {
	// Name identifies the tier in logs and reports.
	Name() string

	// Cost is the price of one lookup attempt, in the run's cost unit.
	// Charged per attempt, hit or miss.
	Cost() float64

	// Lookup attempts to enrich the record. found=false with nil err is a
	// clean miss; any error (including context deadline) is a tier failure.
	Lookup(ctx context.Context, rec entity.Record) (found bool, fields map[string]string, err error)
}
