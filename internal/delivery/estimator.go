// Package delivery memoizes the expensive delivery-date computation for a
// (subject, stage) pair and collapses concurrent requests for the same pair
// into a single underlying call.
package delivery

import (
	"context"
	"time"
)

// Estimate is the derived value the surrounding workflow renders after a
// configuration change.
type Estimate struct {
	ShipDate     time.Time
	DeliveryDate time.Time
	BusinessDays int
}

// EstimateFunc is the injected computation, typically a network call into the
// scheduling service. It may enforce its own timeout; a timeout surfaces
// through the ordinary failure path.
type EstimateFunc func(ctx context.Context, subjectID, stageID int64) (Estimate, error)

// Estimator produces delivery estimates.
type Estimator interface {
	Get(ctx context.Context, subjectID, stageID int64) (Estimate, error)
}
