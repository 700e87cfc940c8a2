package ports

import (
	"context"

	"gotrial/domain/cohort"
)

// CohortResolverPort supplies the participant table an analysis runs
// against. Front ends resolve through this port so the explorer works the
// same over a freshly generated cohort, an imported file, or the demo set.
type CohortResolverPort interface {
	// Resolve returns the active table, or ErrNotFound when none is loaded
	Resolve(ctx context.Context) (*cohort.Table, error)
}
