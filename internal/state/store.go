// Package state persists analysis runs in SQLite so that earlier inventories
// and groupings can be listed and compared.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/querymap/pkg/inventory"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted analysis of a query log.
type Run struct {
	ID             string            `json:"id"`
	Source         string            `json:"source"`
	Threshold      float64           `json:"threshold"`
	Records        int               `json:"records"`
	FallbackRecs   int               `json:"fallback_records"`
	UnresolvedRefs int               `json:"unresolved_refs"`
	TableCount     int               `json:"table_count"`
	GroupCount     int               `json:"group_count"`
	CreatedAt      time.Time         `json:"created_at"`
	Inventory      []inventory.Table `json:"inventory,omitempty"`
	Groups         []inventory.Group `json:"groups,omitempty"`
}

// Store persists runs.
type Store interface {
	// SaveRun stores run with its inventory and groups. A missing ID or
	// creation time is filled in.
	SaveRun(ctx context.Context, run *Run) error
	// ListRuns returns run summaries, newest first, without inventories.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// GetRun returns a run with its inventory and groups.
	GetRun(ctx context.Context, id string) (*Run, error)
	Close() error
}
