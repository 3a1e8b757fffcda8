package experiment

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors for strict lookups and validation failures.
var (
	ErrExperimentNotFound  = errors.New("experiment not found")
	ErrVariantNotFound     = errors.New("variant not found")
	ErrDuplicateExperiment = errors.New("experiment already exists")
	ErrDuplicateVariant    = errors.New("duplicate variant name")
	ErrNoVariants          = errors.New("experiment needs at least one variant")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Recorder receives experiment events as they are recorded. It exists so
// a metrics exporter can be injected without the engine depending on one.
type Recorder interface {
	ObserveImpression(experiment, variant string)
	ObserveSuccess(experiment, variant string)
	ObserveFeedback(experiment, variant string, score float64)
}

// SkipReason explains why an assignment request returned no variant.
type SkipReason string

const (
	// SkipNotFound means no experiment with that name exists.
	SkipNotFound SkipReason = "not_found"
	// SkipNotActive means the experiment exists but is not assigning.
	SkipNotActive SkipReason = "not_active"
)

// Assignment is the tagged result of an assignment request, letting
// callers distinguish "no experiment" from "assignment disabled"
// instead of inspecting an empty string.
type Assignment struct {
	Experiment string
	Subject    string
	Variant    string
	Config     map[string]any
	Assigned   bool
	Reason     SkipReason
}

// Store owns the in-memory experiment map, deterministic assignment,
// all mutation entry points, and durable persistence through a Driver.
//
// A single mutex serializes every read-modify-persist sequence so
// concurrent callers cannot lose updates; calls against different
// experiments still contend on it, a documented scaling limit of the
// write-through design. Mutations are applied to a clone and committed
// to the map only after the driver save succeeds, keeping memory and
// disk consistent when persistence fails.
type Store struct {
	mu          sync.Mutex
	driver      Driver
	recorder    Recorder
	experiments map[string]*Experiment
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder attaches an event recorder (e.g. a Prometheus exporter).
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// NewStore constructs a store backed by the given driver and loads any
// persisted state. Malformed persisted state is logged and treated as
// "no prior state": the store starts empty rather than failing to
// construct, trading data-loss risk for availability.
func NewStore(ctx context.Context, driver Driver, opts ...Option) (*Store, error) {
	s := &Store{
		driver:      driver,
		experiments: make(map[string]*Experiment),
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := driver.Load(ctx)
	if err != nil {
		slog.Warn("discarding unreadable experiment state, starting empty",
			"error", err)
		return s, nil
	}
	for name, exp := range loaded {
		if !exp.Status.Valid() {
			slog.Warn("skipping experiment with unknown status",
				"experiment", name, "status", exp.Status)
			continue
		}
		if len(exp.Variants) == 0 {
			slog.Warn("skipping experiment with no variants",
				"experiment", name)
			continue
		}
		// Documents written before these fields existed carry zeros;
		// fall back to the creation-time defaults.
		if exp.MinSampleSize <= 0 {
			exp.MinSampleSize = DefaultMinSampleSize
		}
		if exp.ConfidenceLevel <= 0 || exp.ConfidenceLevel >= 1 {
			exp.ConfidenceLevel = DefaultConfidenceLevel
		}
		s.experiments[name] = exp
	}
	slog.Info("experiment store loaded", "experiments", len(s.experiments))
	return s, nil
}

// Close flushes nothing (saves are write-through) and closes the driver.
func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateExperiment registers a new active experiment and persists it.
// Duplicate names are rejected rather than silently overwritten so a
// running experiment's accumulated metrics cannot be wiped by a re-run
// setup script.
func (s *Store) CreateExperiment(ctx context.Context, name, description string, specs []VariantSpec) (*Experiment, error) {
	if name == "" {
		return nil, errors.New("experiment name is required")
	}
	if len(specs) == 0 {
		return nil, ErrNoVariants
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, errors.New("variant name is required")
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, pkgerrors.Wrapf(ErrDuplicateVariant, "variant %q", spec.Name)
		}
		seen[spec.Name] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.experiments[name]; exists {
		return nil, pkgerrors.Wrapf(ErrDuplicateExperiment, "experiment %q", name)
	}

	exp := newExperiment(name, description, specs, time.Now().UTC())
	s.experiments[name] = exp
	if err := s.persistLocked(ctx); err != nil {
		delete(s.experiments, name)
		return nil, err
	}

	slog.Info("experiment created",
		"experiment", name,
		"variants", len(exp.Variants))
	return exp.clone(), nil
}

// Assign resolves the variant for a (experiment, subject) pair, records
// an impression on it, and persists. The same pair always maps to the
// same variant as long as the experiment's variant list is unchanged.
func (s *Store) Assign(ctx context.Context, experimentName, subjectID string) (Assignment, error) {
	result := Assignment{Experiment: experimentName, Subject: subjectID}

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[experimentName]
	if !ok || len(exp.Variants) == 0 {
		result.Reason = SkipNotFound
		return result, nil
	}
	if exp.Status != StatusActive {
		result.Reason = SkipNotActive
		return result, nil
	}

	idx := assignmentIndex(experimentName, subjectID, len(exp.Variants))

	next := exp.clone()
	variant := next.Variants[idx]
	variant.RecordImpression()
	next.UpdatedAt = time.Now().UTC()

	s.experiments[experimentName] = next
	if err := s.persistLocked(ctx); err != nil {
		s.experiments[experimentName] = exp
		return result, err
	}

	if s.recorder != nil {
		s.recorder.ObserveImpression(experimentName, variant.Name)
	}
	slog.Debug("variant assigned",
		"experiment", experimentName,
		"subject", subjectID,
		"variant", variant.Name)

	result.Variant = variant.Name
	result.Config = variant.Config
	result.Assigned = true
	return result, nil
}

// GetUserVariant is the soft convenience wrapper around Assign: it
// coerces the tagged result to a variant name, empty when no assignment
// was made. The error covers persistence failures only.
func (s *Store) GetUserVariant(ctx context.Context, experimentName, subjectID string) (string, error) {
	a, err := s.Assign(ctx, experimentName, subjectID)
	if err != nil {
		return "", err
	}
	return a.Variant, nil
}

// PeekVariant returns the variant the subject maps to without recording
// an impression, for callers that need the assignment after the fact,
// like feedback handlers. Empty when the experiment is missing.
func (s *Store) PeekVariant(ctx context.Context, experimentName, subjectID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[experimentName]
	if !ok || len(exp.Variants) == 0 {
		return ""
	}
	idx := assignmentIndex(experimentName, subjectID, len(exp.Variants))
	return exp.Variants[idx].Name
}

// assignmentIndex hashes "{experiment}:{subject}" with MD5 and reduces
// the leading 64 bits of the digest modulo the variant count. MD5 is a
// distribution function here, not a security boundary; what matters is
// that the digest is stable across processes and well mixed.
func assignmentIndex(experimentName, subjectID string, variants int) int {
	sum := md5.Sum([]byte(experimentName + ":" + subjectID))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(variants))
}

// RecordSuccess records a successful outcome for a variant. Missing
// experiments or variants are a silent no-op so bad identifiers never
// break a caller's flow; use GetExperiment first when strictness is
// needed. A success that would exceed the variant's impression count is
// dropped.
func (s *Store) RecordSuccess(ctx context.Context, experimentName, variantName string) error {
	recorded := false
	err := s.mutate(ctx, experimentName, func(exp *Experiment) error {
		variant := exp.Variant(variantName)
		if variant == nil {
			return ErrVariantNotFound
		}
		if !variant.RecordSuccess() {
			slog.Debug("dropping success without matching impression",
				"experiment", experimentName,
				"variant", variantName)
			return errSkipPersist
		}
		recorded = true
		return nil
	})
	if err == nil && recorded && s.recorder != nil {
		s.recorder.ObserveSuccess(experimentName, variantName)
	}
	return softenNotFound(err, "success", experimentName, variantName)
}

// RecordFeedback records a feedback score for a variant. Same silent
// no-op contract as RecordSuccess. Scores are not bounds-checked; the
// caller-level contract is 0-5.
func (s *Store) RecordFeedback(ctx context.Context, experimentName, variantName string, score float64) error {
	err := s.mutate(ctx, experimentName, func(exp *Experiment) error {
		variant := exp.Variant(variantName)
		if variant == nil {
			return ErrVariantNotFound
		}
		variant.RecordFeedback(score)
		return nil
	})
	if err == nil && s.recorder != nil {
		s.recorder.ObserveFeedback(experimentName, variantName, score)
	}
	return softenNotFound(err, "feedback", experimentName, variantName)
}

// CompleteExperiment marks an experiment completed. Idempotent; a
// missing experiment is a silent no-op.
func (s *Store) CompleteExperiment(ctx context.Context, experimentName string) error {
	err := s.transition(ctx, experimentName, StatusCompleted)
	return softenNotFound(err, "complete", experimentName, "")
}

// PauseExperiment disables assignment for an active experiment.
func (s *Store) PauseExperiment(ctx context.Context, experimentName string) error {
	return s.transition(ctx, experimentName, StatusPaused)
}

// ResumeExperiment re-enables assignment for a paused experiment.
func (s *Store) ResumeExperiment(ctx context.Context, experimentName string) error {
	return s.transition(ctx, experimentName, StatusActive)
}

// ArchiveExperiment retires an experiment from any state.
func (s *Store) ArchiveExperiment(ctx context.Context, experimentName string) error {
	return s.transition(ctx, experimentName, StatusArchived)
}

func (s *Store) transition(ctx context.Context, experimentName string, target Status) error {
	return s.mutate(ctx, experimentName, func(exp *Experiment) error {
		if !exp.Status.CanTransitionTo(target) {
			return pkgerrors.Wrapf(ErrInvalidTransition, "%s -> %s", exp.Status, target)
		}
		if exp.Status == target {
			return errSkipPersist
		}
		slog.Info("experiment status changed",
			"experiment", experimentName,
			"from", exp.Status,
			"to", target)
		exp.Status = target
		return nil
	})
}

// GetExperiment returns a deep copy of an experiment, or
// ErrExperimentNotFound. This is the strict counterpart to the soft
// mutation contract.
func (s *Store) GetExperiment(ctx context.Context, experimentName string) (*Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[experimentName]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrExperimentNotFound, "experiment %q", experimentName)
	}
	return exp.clone(), nil
}

// ListExperiments returns deep copies of all experiments ordered by
// creation time.
func (s *Store) ListExperiments(ctx context.Context) ([]*Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	experiments := make([]*Experiment, 0, len(s.experiments))
	for _, exp := range s.experiments {
		experiments = append(experiments, exp.clone())
	}
	sort.Slice(experiments, func(i, j int) bool {
		return experiments[i].CreatedAt.Before(experiments[j].CreatedAt)
	})
	return experiments, nil
}

// Results builds a point-in-time report for an experiment, including
// the significance verdict. ok is false when the experiment is absent.
func (s *Store) Results(ctx context.Context, experimentName string) (*Report, bool) {
	exp, err := s.GetExperiment(ctx, experimentName)
	if err != nil {
		return nil, false
	}
	return buildReport(exp), true
}

// errSkipPersist aborts a mutation without treating it as a failure:
// nothing changed, so nothing needs saving.
var errSkipPersist = errors.New("skip persist")

// mutate applies fn to a clone of the named experiment, persists the
// updated map, and commits the clone only if the save succeeded.
func (s *Store) mutate(ctx context.Context, experimentName string, fn func(*Experiment) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[experimentName]
	if !ok {
		return pkgerrors.Wrapf(ErrExperimentNotFound, "experiment %q", experimentName)
	}

	next := exp.clone()
	if err := fn(next); err != nil {
		if errors.Is(err, errSkipPersist) {
			return nil
		}
		return err
	}
	next.UpdatedAt = time.Now().UTC()

	s.experiments[experimentName] = next
	if err := s.persistLocked(ctx); err != nil {
		s.experiments[experimentName] = exp
		return err
	}
	return nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	if err := s.driver.Save(ctx, s.experiments); err != nil {
		return pkgerrors.Wrap(err, "failed to persist experiments")
	}
	return nil
}

// softenNotFound downgrades the not-found sentinels to a logged no-op
// so bad identifiers never break a caller's flow, while leaving real
// errors (I/O, invalid transition) intact.
func softenNotFound(err error, op, experimentName, variantName string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrExperimentNotFound) || errors.Is(err, ErrVariantNotFound) {
		slog.Debug("ignoring event for unknown target",
			"op", op,
			"experiment", experimentName,
			"variant", variantName)
		return nil
	}
	return err
}
