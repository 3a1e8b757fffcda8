package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synthscribe/synthscribe/ai/suggest"
	"github.com/synthscribe/synthscribe/experiment"
)

func newExperimentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experiment",
		Aliases: []string{"exp"},
		Short:   "Manage A/B test experiments",
	}
	cmd.AddCommand(
		newExperimentCreateCmd(),
		newExperimentListCmd(),
		newExperimentResultsCmd(),
		newExperimentTransitionCmd("pause", "Pause an active experiment"),
		newExperimentTransitionCmd("resume", "Resume a paused experiment"),
		newExperimentTransitionCmd("complete", "Complete an experiment"),
		newExperimentTransitionCmd("archive", "Archive an experiment"),
	)
	return cmd
}

func newExperimentCreateCmd() *cobra.Command {
	var (
		description string
		variants    []string
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an experiment",
		Long: `Create an experiment. Variants are given as repeated --variant flags in
"name=description" form; with no --variant flags the built-in prompt
strategy variants are used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			store, err := openStore(cmd, p)
			if err != nil {
				return err
			}
			defer store.Close()

			specs := suggest.PromptVariants()
			if len(variants) > 0 {
				specs = make([]experiment.VariantSpec, 0, len(variants))
				for _, v := range variants {
					name, desc, _ := strings.Cut(v, "=")
					if name == "" {
						return fmt.Errorf("invalid variant %q, want name=description", v)
					}
					specs = append(specs, experiment.VariantSpec{Name: name, Description: desc})
				}
			}

			exp, err := store.CreateExperiment(cmd.Context(), args[0], description, specs)
			if err != nil {
				return err
			}
			fmt.Printf("Created experiment %q with %d variants\n", exp.Name, len(exp.Variants))
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "experiment description")
	cmd.Flags().StringArrayVar(&variants, "variant", nil, `variant as "name=description", repeatable`)
	return cmd
}

func newExperimentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			store, err := openStore(cmd, p)
			if err != nil {
				return err
			}
			defer store.Close()

			exps, err := store.ListExperiments(cmd.Context())
			if err != nil {
				return err
			}
			if len(exps) == 0 {
				fmt.Println("No experiments.")
				return nil
			}
			for _, exp := range exps {
				fmt.Printf("%-30s %-10s %d variants  created %s\n",
					exp.Name, exp.Status, len(exp.Variants), exp.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newExperimentResultsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "results NAME",
		Short: "Show experiment results and statistical significance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			store, err := openStore(cmd, p)
			if err != nil {
				return err
			}
			defer store.Close()

			report, ok := store.Results(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("experiment %q not found", args[0])
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON")
	return cmd
}

func printReport(r *experiment.Report) {
	fmt.Printf("Experiment: %s\n", r.Name)
	fmt.Printf("Status: %s\n", r.Status)

	fmt.Println("\nVariant Performance:")
	for _, v := range r.Variants {
		fmt.Printf("\n%s:\n", v.Name)
		fmt.Printf("  Impressions: %d\n", v.Metrics.Impressions)
		fmt.Printf("  Successes: %d\n", v.Metrics.Successes)
		fmt.Printf("  Conversion Rate: %.2f%%\n", v.Metrics.ConversionRate*100)
		fmt.Printf("  Avg Feedback: %.2f\n", v.Metrics.AvgFeedbackScore)
	}

	fmt.Println("\nStatistical Analysis:")
	fmt.Printf("  Significant: %v\n", r.Significance.IsSignificant)
	fmt.Printf("  P-value: %.4f\n", r.Significance.PValue)
	if r.Significance.Winner != "" {
		fmt.Printf("  Winner: %s\n", r.Significance.Winner)
	}
}

func newExperimentTransitionCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			store, err := openStore(cmd, p)
			if err != nil {
				return err
			}
			defer store.Close()

			name := args[0]
			switch verb {
			case "pause":
				err = store.PauseExperiment(cmd.Context(), name)
			case "resume":
				err = store.ResumeExperiment(cmd.Context(), name)
			case "complete":
				err = store.CompleteExperiment(cmd.Context(), name)
			case "archive":
				err = store.ArchiveExperiment(cmd.Context(), name)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Experiment %q %sd\n", name, verb)
			return nil
		},
	}
}

func newAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign EXPERIMENT SUBJECT",
		Short: "Resolve the variant for a subject and record an impression",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			store, err := openStore(cmd, p)
			if err != nil {
				return err
			}
			defer store.Close()

			a, err := store.Assign(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !a.Assigned {
				fmt.Printf("%s -> no assignment (%s)\n", args[1], a.Reason)
				return nil
			}
			fmt.Printf("%s -> %s\n", args[1], a.Variant)
			return nil
		},
	}
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record experiment outcomes",
	}

	success := &cobra.Command{
		Use:   "success EXPERIMENT VARIANT",
		Short: "Record a conversion for a variant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			store, err := openStore(cmd, p)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.RecordSuccess(cmd.Context(), args[0], args[1])
		},
	}

	feedback := &cobra.Command{
		Use:   "feedback EXPERIMENT VARIANT SCORE",
		Short: "Record a feedback score for a variant",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[2], err)
			}
			p, err := loadProfile()
			if err != nil {
				return err
			}
			store, err := openStore(cmd, p)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.RecordFeedback(cmd.Context(), args[0], args[1], score)
		},
	}

	cmd.AddCommand(success, feedback)
	return cmd
}
