package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/martinemde/archivist/pipeline"
	"github.com/martinemde/archivist/preset"
	"github.com/martinemde/archivist/unifiedllm"
)

// app carries the settings shared by every subcommand.
type app struct {
	envFile     string
	presetsPath string
	logLevel    string
	timeout     time.Duration
	useGollm    bool

	logger *slog.Logger

	// newExecutor builds the job executor; tests replace it.
	newExecutor func(a *app) (unifiedllm.Executor, error)
}

func newApp() *app {
	return &app{newExecutor: defaultExecutor}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "archivist",
		Short:         "Transcribe and analyse scanned historical documents with LLMs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "file of API keys to load into the environment")
	flags.StringVar(&a.presetsPath, "presets", "", "YAML file of presets that extend the built-in catalog")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flags.DurationVar(&a.timeout, "timeout", unifiedllm.DefaultTimeout, "timeout of a single provider call")
	flags.BoolVar(&a.useGollm, "gollm", false, "send image-free OpenAI and Anthropic jobs through gollm")

	root.AddCommand(analyzeCmd(a), processCmd(a), presetsCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", a.logLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	if err := godotenv.Load(a.envFile); err != nil {
		if cmd.Flags().Changed("env-file") || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	return nil
}

func (a *app) catalog() (*preset.Catalog, error) {
	if a.presetsPath == "" {
		return preset.Builtin(), nil
	}
	return preset.Load(a.presetsPath)
}

func (a *app) runner(events *pipeline.EventEmitter) (*pipeline.Runner, error) {
	catalog, err := a.catalog()
	if err != nil {
		return nil, err
	}
	exec, err := a.newExecutor(a)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(exec, catalog, pipeline.WithLogger(a.logger), pipeline.WithEvents(events)), nil
}

func credentialsFromEnv() unifiedllm.Credentials {
	gemini := os.Getenv("GEMINI_API_KEY")
	if gemini == "" {
		gemini = os.Getenv("GOOGLE_API_KEY")
	}
	return unifiedllm.Credentials{
		OpenAI:    os.Getenv("OPENAI_API_KEY"),
		Gemini:    gemini,
		Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
	}
}

func defaultExecutor(a *app) (unifiedllm.Executor, error) {
	creds := credentialsFromEnv()
	a.logger.Debug("credentials loaded", "creds", creds)

	opts := []unifiedllm.RouterOption{unifiedllm.WithRouterLogger(a.logger)}
	if a.useGollm {
		for family, key := range map[unifiedllm.Family]string{
			unifiedllm.FamilyOpenAI:    creds.OpenAI,
			unifiedllm.FamilyAnthropic: creds.Anthropic,
		} {
			if key == "" {
				continue
			}
			client, err := unifiedllm.NewGollmClient(family, key)
			if err != nil {
				return nil, err
			}
			opts = append(opts, unifiedllm.WithTextClient(family, client))
		}
	}

	router := unifiedllm.NewRouter(creds, opts...)
	return unifiedllm.NewEngine(router,
		unifiedllm.WithLogger(a.logger),
		unifiedllm.WithDefaultTimeout(a.timeout),
	), nil
}
