package main

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/synthscribe/synthscribe/ai/metrics"
	"github.com/synthscribe/synthscribe/ai/suggest"
	"github.com/synthscribe/synthscribe/experiment"
)

func newSimulateCmd() *cobra.Command {
	var (
		users       int
		workers     int
		successRate float64
		seed        int64
		metricsPort int
	)
	cmd := &cobra.Command{
		Use:   "simulate [EXPERIMENT]",
		Short: "Drive synthetic traffic through an experiment",
		Long: `Drive synthetic traffic through an experiment: each simulated user is
assigned a variant, converts with the given probability, and converted
users leave a feedback score between 3 and 5. The experiment is created
with the built-in prompt variants when it does not exist yet, and is
completed automatically when the result reaches significance.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expName := defaultExperiment
			if len(args) == 1 {
				expName = args[0]
			}

			p, err := loadProfile()
			if err != nil {
				return err
			}

			exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
			store, err := openStore(cmd, p, experiment.WithRecorder(exporter))
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.GetExperiment(cmd.Context(), expName); err != nil {
				if !errors.Is(err, experiment.ErrExperimentNotFound) {
					return err
				}
				if _, err := store.CreateExperiment(cmd.Context(), expName, "prompt strategies", suggest.PromptVariants()); err != nil {
					return err
				}
				fmt.Printf("Created experiment %q\n", expName)
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(workers)
			for i := 0; i < users; i++ {
				i := i
				g.Go(func() error {
					rng := rand.New(rand.NewSource(seed + int64(i)))
					subject := uuid.NewString()

					a, err := store.Assign(ctx, expName, subject)
					if err != nil {
						return err
					}
					if !a.Assigned {
						return fmt.Errorf("no assignment for %s: %s", subject, a.Reason)
					}
					if rng.Float64() < successRate {
						if err := store.RecordSuccess(ctx, expName, a.Variant); err != nil {
							return err
						}
						score := 3 + rng.Float64()*2
						if err := store.RecordFeedback(ctx, expName, a.Variant, score); err != nil {
							return err
						}
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Printf("Simulated %d users against %q\n\n", users, expName)

			report, ok := store.Results(cmd.Context(), expName)
			if !ok {
				return fmt.Errorf("experiment %q disappeared during simulation", expName)
			}
			printReport(report)

			if report.Significance.IsSignificant {
				if err := store.CompleteExperiment(cmd.Context(), expName); err != nil {
					return err
				}
				fmt.Println("\nExperiment completed!")
			}

			if metricsPort > 0 {
				updateActiveGauge(cmd, store, exporter)
				return serveMetrics(exporter, metricsPort)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&users, "users", 200, "number of simulated users")
	cmd.Flags().IntVar(&workers, "workers", 8, "number of concurrent workers")
	cmd.Flags().Float64Var(&successRate, "success-rate", 0.6, "probability a simulated user converts")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port after the run")
	return cmd
}

func updateActiveGauge(cmd *cobra.Command, store *experiment.Store, exporter *metrics.PrometheusExporter) {
	exps, err := store.ListExperiments(cmd.Context())
	if err != nil {
		return
	}
	active := 0
	for _, exp := range exps {
		if exp.Status == experiment.StatusActive {
			active++
		}
	}
	exporter.SetActiveExperiments(active)
}

// serveMetrics exposes the exporter until SIGINT or SIGTERM.
func serveMetrics(exporter *metrics.PrometheusExporter, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, terminationSignals...)
	go func() {
		<-c
		srv.Close()
	}()

	fmt.Printf("Serving metrics on http://localhost:%d/metrics (Ctrl-C to stop)\n", port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
