package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/synthscribe/synthscribe/ai/llm"
	"github.com/synthscribe/synthscribe/experiment"
	"github.com/synthscribe/synthscribe/experiment/db/file"
	"github.com/synthscribe/synthscribe/experiment/db/sqlite"
	"github.com/synthscribe/synthscribe/internal/profile"
	"github.com/synthscribe/synthscribe/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "synthscribe",
	Short: `An LLM-powered music recommendation CLI with built-in prompt A/B testing.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env from the current directory (ignore error if file doesn't exist)
		_ = godotenv.Load()
		initLogger(viper.GetString("mode"))
		return nil
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "file")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the CLI, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "file", "experiment storage driver (file, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "sqlite data source name (aka. DSN)")

	for _, key := range []string{"mode", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("synthscribe")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(
		newExperimentCmd(),
		newAssignCmd(),
		newRecordCmd(),
		newSuggestCmd(),
		newFavoriteCmd(),
		newFeedbackCmd(),
		newHistoryCmd(),
		newFavoritesCmd(),
		newSimulateCmd(),
		newVersionCmd(),
	)
}

// initLogger routes slog through a text handler during development and a
// JSON handler in prod.
func initLogger(mode string) {
	var handler slog.Handler
	if mode == "prod" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

// loadProfile assembles the runtime profile from flags and environment.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.GetCurrentVersion(viper.GetString("mode")),
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// openStore builds the experiment store on the configured driver.
func openStore(cmd *cobra.Command, p *profile.Profile, opts ...experiment.Option) (*experiment.Store, error) {
	var (
		driver experiment.Driver
		err    error
	)
	switch p.Driver {
	case "sqlite":
		driver, err = sqlite.NewDriver(p.DSN)
	default:
		driver, err = file.NewDriver(p.ExperimentsDir())
	}
	if err != nil {
		return nil, err
	}
	return experiment.NewStore(cmd.Context(), driver, opts...)
}

// newLLMService builds the chat service the profile describes.
func newLLMService(p *profile.Profile, opts ...llm.Option) (llm.Service, error) {
	return llm.NewService(&llm.Config{
		Provider:    p.LLMProvider,
		Model:       p.LLMModel,
		APIKey:      p.LLMAPIKey,
		BaseURL:     p.LLMBaseURL,
		MaxTokens:   p.LLMMaxTokens,
		Temperature: float32(p.LLMTemperature),
		Timeout:     p.LLMTimeout,
	}, opts...)
}

func newVersionCmd() *cobra.Command {
	var minVersion string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "SynthScribe %s\n", version.GetCurrentVersion(viper.GetString("mode")))
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n  built:  %s\n", version.GitCommit, version.BuildTime)
			if minVersion != "" && !version.IsVersionGreaterOrEqualThan(version.Version, minVersion) {
				return fmt.Errorf("version %s is older than required %s", version.Version, minVersion)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&minVersion, "check", "", "fail unless the binary is at least this version")
	return cmd
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
