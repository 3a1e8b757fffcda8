// Package sqlite implements SQLite persistence for the experiment
// store: one row per experiment, keyed by name, with the experiment
// serialized as a JSON document. This avoids rewriting one large file
// per mutation while keeping the driver schema-free.
//
// SQLite support is best-effort and aimed at single-process use; the
// store serializes writers itself, so the busy timeout only matters
// when external tools poke at the database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/synthscribe/synthscribe/experiment"
)

const schema = `
CREATE TABLE IF NOT EXISTS experiment (
	name TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
`

// Driver persists experiments to a SQLite database.
type Driver struct {
	db *sql.DB
}

// NewDriver opens (and if needed creates) the database at dsn and
// ensures the experiment table exists. WAL journal mode is set to avoid
// locking trouble with concurrent readers.
func NewDriver(dsn string) (*Driver, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}
	db, err := sql.Open("sqlite", dsn+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", dsn)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create experiment table")
	}
	return &Driver{db: db}, nil
}

// Load reads every persisted experiment. A row whose payload fails to
// decode poisons the whole load; the store treats that as no prior
// state, which matches the file driver's behavior.
func (d *Driver) Load(ctx context.Context) (map[string]*experiment.Experiment, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT name, data FROM experiment")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query experiments")
	}
	defer rows.Close()

	experiments := map[string]*experiment.Experiment{}
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, errors.Wrap(err, "failed to scan experiment row")
		}
		exp := &experiment.Experiment{}
		if err := json.Unmarshal([]byte(data), exp); err != nil {
			return nil, errors.Wrapf(err, "malformed experiment payload for %q", name)
		}
		experiments[name] = exp
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate experiment rows")
	}
	return experiments, nil
}

// Save replaces the persisted state with the snapshot in a single
// transaction, so readers see either the old or the new state.
func (d *Driver) Save(ctx context.Context, experiments map[string]*experiment.Experiment) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM experiment"); err != nil {
		return errors.Wrap(err, "failed to clear experiments")
	}
	for name, exp := range experiments {
		raw, err := json.Marshal(exp)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal experiment %q", name)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO experiment (name, data) VALUES (?, ?)",
			name, string(raw),
		); err != nil {
			return errors.Wrapf(err, "failed to insert experiment %q", name)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit experiments")
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}
