package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthscribe/synthscribe/experiment"
)

func TestDriver_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	driver, err := NewDriver(dir)
	require.NoError(t, err)

	store, err := experiment.NewStore(ctx, driver)
	require.NoError(t, err)

	_, err = store.CreateExperiment(ctx, "prompt_opt", "prompt strategies", []experiment.VariantSpec{
		{Name: "zero_shot", Config: map[string]any{"template": "You are SynthScribe."}},
		{Name: "few_shot", Config: map[string]any{"template": "Examples: ..."}},
	})
	require.NoError(t, err)

	var assigned string
	for i := 0; i < 10; i++ {
		a, err := store.Assign(ctx, "prompt_opt", "user_7")
		require.NoError(t, err)
		assigned = a.Variant
	}
	require.NoError(t, store.RecordSuccess(ctx, "prompt_opt", assigned))
	require.NoError(t, store.RecordFeedback(ctx, "prompt_opt", assigned, 4.0))
	require.NoError(t, store.CompleteExperiment(ctx, "prompt_opt"))
	require.NoError(t, store.Close())

	// A fresh store instance over the same directory must observe
	// identical metrics and status.
	reopened, err := NewDriver(dir)
	require.NoError(t, err)
	fresh, err := experiment.NewStore(ctx, reopened)
	require.NoError(t, err)

	exp, err := fresh.GetExperiment(ctx, "prompt_opt")
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusCompleted, exp.Status)

	v := exp.Variant(assigned)
	require.NotNil(t, v)
	assert.EqualValues(t, 10, v.Metrics.Impressions)
	assert.EqualValues(t, 1, v.Metrics.Successes)
	assert.Equal(t, 0.1, v.Metrics.ConversionRate)
	assert.Equal(t, 4.0, v.Metrics.AvgFeedbackScore)
	assert.Equal(t, "You are SynthScribe.", exp.Variant("zero_shot").Config["template"])
}

func TestDriver_MissingFile(t *testing.T) {
	driver, err := NewDriver(t.TempDir())
	require.NoError(t, err)

	experiments, err := driver.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, experiments)
}

func TestDriver_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "experiments.json"), []byte("{not json"), 0o644))

	driver, err := NewDriver(dir)
	require.NoError(t, err)

	_, err = driver.Load(context.Background())
	assert.Error(t, err)

	// The store must treat a malformed file as no prior state instead
	// of refusing to construct.
	ctx := context.Background()
	store, err := experiment.NewStore(ctx, driver)
	require.NoError(t, err)
	experiments, err := store.ListExperiments(ctx)
	require.NoError(t, err)
	assert.Empty(t, experiments)
}

func TestDriver_NoPartialStateFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	driver, err := NewDriver(dir)
	require.NoError(t, err)
	require.NoError(t, driver.Save(ctx, map[string]*experiment.Experiment{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not survive a save")
	assert.Equal(t, "experiments.json", entries[0].Name())
}
