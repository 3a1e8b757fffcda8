package experiment

import "context"

// Driver persists the full experiment state of a store. Saves are
// write-through snapshots of the entire map, which keeps drivers simple
// at the cost of O(total state) per mutation; acceptable at the scale
// this engine targets.
type Driver interface {
	// Load returns all persisted experiments keyed by name. A missing
	// backing store is not an error: drivers return an empty map.
	Load(ctx context.Context) (map[string]*Experiment, error)

	// Save replaces the persisted state with the given snapshot.
	// Implementations must replace atomically so concurrent readers
	// never observe a partially written state.
	Save(ctx context.Context, experiments map[string]*Experiment) error

	// Close releases driver resources.
	Close() error
}
