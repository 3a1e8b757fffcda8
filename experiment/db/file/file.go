// Package file implements JSON file persistence for the experiment
// store. The whole experiment map is written on every save, using a
// temp-file-plus-rename so readers never observe a partial file.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/synthscribe/synthscribe/experiment"
)

const stateFileName = "experiments.json"

// Driver persists experiments to a single JSON file under dir.
type Driver struct {
	path string
}

// NewDriver creates the storage directory if needed and returns a
// driver writing to <dir>/experiments.json.
func NewDriver(dir string) (*Driver, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create storage directory %s", dir)
	}
	return &Driver{path: filepath.Join(dir, stateFileName)}, nil
}

// Load reads the state file. A missing file means no prior state.
func (d *Driver) Load(_ context.Context) (map[string]*experiment.Experiment, error) {
	raw, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return map[string]*experiment.Experiment{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", d.path)
	}

	experiments := map[string]*experiment.Experiment{}
	if err := json.Unmarshal(raw, &experiments); err != nil {
		return nil, errors.Wrapf(err, "malformed experiment state in %s", d.path)
	}
	return experiments, nil
}

// Save atomically replaces the state file with the given snapshot.
func (d *Driver) Save(_ context.Context, experiments map[string]*experiment.Experiment) error {
	raw, err := json.MarshalIndent(experiments, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal experiments")
	}

	// Write to a temp file in the same directory so the rename stays on
	// one filesystem and is atomic.
	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, stateFileName+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return errors.Wrapf(err, "failed to replace %s", d.path)
	}
	return nil
}

// Close is a no-op; the driver holds no open resources between saves.
func (d *Driver) Close() error {
	return nil
}
