package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/synthscribe/synthscribe/ai/llm"
	"github.com/synthscribe/synthscribe/ai/metrics"
	"github.com/synthscribe/synthscribe/ai/suggest"
	"github.com/synthscribe/synthscribe/experiment"
	"github.com/synthscribe/synthscribe/internal/profile"
	"github.com/synthscribe/synthscribe/store"
)

// defaultExperiment is the prompt experiment consulted when A/B testing
// is enabled.
const defaultExperiment = "prompt_optimization_v1"

// historyContextSessions bounds how many recent sessions feed the persona
// prompt's user context.
const historyContextSessions = 5

func newSuggestCmd() *cobra.Command {
	var (
		userID  string
		expName string
	)
	cmd := &cobra.Command{
		Use:   "suggest DESCRIPTION...",
		Short: "Get music suggestions for a mood or task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args, " ")

			p, err := loadProfile()
			if err != nil {
				return err
			}
			exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
			svc, err := newLLMService(p, llm.WithRecorder(exporter))
			if err != nil {
				return err
			}

			opts := []suggest.Option{suggest.WithMetrics(exporter)}
			if p.CacheEnabled {
				opts = append(opts, suggest.WithCache(p.CacheSize, time.Duration(p.CacheTTL)*time.Second))
			}

			var expStore *experiment.Store
			if p.ABTestingEnabled {
				expStore, err = openStore(cmd, p, experiment.WithRecorder(exporter))
				if err != nil {
					return err
				}
				defer expStore.Close()
				opts = append(opts, suggest.WithExperiment(expStore, expName))
			}

			prefs := store.NewUserProfile(p.PreferencesPath())
			suggester := suggest.New(svc, opts...)

			res, err := suggester.Suggest(cmd.Context(), userID, description, prefs.GenreCounts(historyContextSessions))
			if err != nil {
				return err
			}

			fmt.Printf("Suggestions for %q:\n\n", description)
			for i, s := range res.Suggestions {
				fmt.Printf("%d. %s", i+1, s)
			}
			if res.FromCache {
				fmt.Println("(served from cache)")
			}

			return prefs.AddToHistory(description, res.Suggestions)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "user identifier for assignment and preferences")
	cmd.Flags().StringVar(&expName, "experiment", defaultExperiment, "prompt experiment to consult")
	return cmd
}

func newFavoriteCmd() *cobra.Command {
	var (
		userID  string
		expName string
		index   int
	)
	cmd := &cobra.Command{
		Use:   "favorite",
		Short: "Save a suggestion from the latest session to favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			prefs := store.NewUserProfile(p.PreferencesPath())

			s, err := latestSuggestion(prefs, index)
			if err != nil {
				return err
			}
			added, err := prefs.AddToFavorites(s)
			if err != nil {
				return err
			}
			if !added {
				fmt.Printf("%q is already in favorites.\n", s.Genre)
				return nil
			}
			fmt.Printf("Added %q to favorites.\n", s.Genre)

			// A saved favorite is the conversion signal for the prompt
			// experiment.
			return recordOutcome(cmd, p, expName, userID, func(es *experiment.Store, variant string) error {
				return es.RecordSuccess(cmd.Context(), expName, variant)
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "user identifier")
	cmd.Flags().StringVar(&expName, "experiment", defaultExperiment, "prompt experiment to credit")
	cmd.Flags().IntVarP(&index, "index", "i", 0, "suggestion index within the latest session")
	return cmd
}

func newFeedbackCmd() *cobra.Command {
	var (
		userID  string
		expName string
		index   int
		score   float64
	)
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Rate a suggestion from the latest session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if score < 1 || score > 5 {
				return fmt.Errorf("score %.1f out of range [1, 5]", score)
			}
			p, err := loadProfile()
			if err != nil {
				return err
			}
			prefs := store.NewUserProfile(p.PreferencesPath())

			history := prefs.History()
			if len(history) == 0 {
				return fmt.Errorf("no suggestion history, run suggest first")
			}
			if _, err := latestSuggestion(prefs, index); err != nil {
				return err
			}
			if err := prefs.AddFeedback(history[0].Mood, index, score); err != nil {
				return err
			}
			fmt.Printf("Feedback recorded for suggestion %d.\n", index+1)

			return recordOutcome(cmd, p, expName, userID, func(es *experiment.Store, variant string) error {
				return es.RecordFeedback(cmd.Context(), expName, variant, score)
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "user identifier")
	cmd.Flags().StringVar(&expName, "experiment", defaultExperiment, "prompt experiment to credit")
	cmd.Flags().IntVarP(&index, "index", "i", 0, "suggestion index within the latest session")
	cmd.Flags().Float64VarP(&score, "score", "s", 5, "rating from 1 to 5")
	return cmd
}

func latestSuggestion(prefs *store.UserProfile, index int) (suggest.MusicSuggestion, error) {
	history := prefs.History()
	if len(history) == 0 {
		return suggest.MusicSuggestion{}, fmt.Errorf("no suggestion history, run suggest first")
	}
	latest := history[0]
	if index < 0 || index >= len(latest.Suggestions) {
		return suggest.MusicSuggestion{}, fmt.Errorf("index %d out of range, latest session has %d suggestions", index, len(latest.Suggestions))
	}
	return latest.Suggestions[index], nil
}

// recordOutcome resolves the user's assigned variant and applies fn to it.
// A disabled A/B flag or an unassigned user is a no-op.
func recordOutcome(cmd *cobra.Command, p *profile.Profile, expName, userID string, fn func(*experiment.Store, string) error) error {
	if !p.ABTestingEnabled {
		return nil
	}
	es, err := openStore(cmd, p)
	if err != nil {
		return err
	}
	defer es.Close()

	variant := es.PeekVariant(cmd.Context(), expName, userID)
	if variant == "" {
		return nil
	}
	return fn(es, variant)
}
