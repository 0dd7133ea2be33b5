package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/c360studio/examforge/assemble"
	"github.com/c360studio/examforge/config"
	"github.com/c360studio/examforge/credential"
	"github.com/c360studio/examforge/llm"
	"github.com/c360studio/examforge/orchestrate"
	"github.com/c360studio/examforge/prompt"
	"github.com/c360studio/examforge/render"
	"github.com/c360studio/examforge/source"
	"github.com/spf13/cobra"
)

func newGenerateCommand() *cobra.Command {
	var (
		configPath string
		subject    string
		count      int
		target     int
		outputDir  string
		format     string
		model      string
		sourcesDir string
		debugDir   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate mock exams from reference documents",
		Long: `Generate drives the full pipeline: discover reference documents,
build the generation request, call the API with continuation and retry
handling, and render each completed exam.

Exams that fail are reported at the end; the command only fails when no
exam could be completed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			// Flags override config.
			if subject != "" {
				cfg.Generation.Subject = subject
			}
			if count > 0 {
				cfg.Generation.Count = count
			}
			if target > 0 {
				cfg.Generation.TargetQuestions = target
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}
			if format != "" {
				cfg.Output.Format = format
			}
			if model != "" {
				cfg.Model.Name = model
			}
			if sourcesDir != "" {
				cfg.Sources.Root = sourcesDir
			}
			if debugDir != "" {
				cfg.Generation.DebugDir = debugDir
			}

			if cfg.Generation.Subject == "" {
				return fmt.Errorf("a subject is required (--subject or generation.subject in config)")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runGenerate(ctx, cfg, slog.Default())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Exam subject")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of exam variants to generate")
	cmd.Flags().IntVarP(&target, "questions", "q", 0, "Target question count per exam")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory")
	cmd.Flags().StringVar(&format, "format", "", "Output format (html, markdown)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name")
	cmd.Flags().StringVar(&sourcesDir, "sources", "", "Reference document directory")
	cmd.Flags().StringVar(&debugDir, "debug-dir", "", "Save every raw model response here")

	return cmd
}

func runGenerate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	keys, err := credential.LoadKeys(cfg.Credentials.File)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	pool, err := credential.NewPool(keys, credential.PoolConfig{
		Policy:           credential.ParsePolicy(cfg.Credentials.Policy),
		FailureThreshold: cfg.Credentials.FailureThreshold,
		QuotaWindow:      cfg.Credentials.QuotaWindow,
		QuotaCeiling:     cfg.Credentials.QuotaCeiling,
	}, credential.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create credential pool: %w", err)
	}

	var clientOpts []llm.ClientOption
	clientOpts = append(clientOpts, llm.WithLogger(logger))
	if cfg.Model.Endpoint != "" {
		clientOpts = append(clientOpts, llm.WithBaseURL(cfg.Model.Endpoint))
	}
	client, err := llm.NewClient(cfg.Model.Provider, clientOpts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	renderer, err := render.Get(cfg.Output.Format)
	if err != nil {
		return err
	}

	asm := assemble.New(assemble.WithSchema(assemble.SchemaByName(cfg.Generation.Schema)))

	refs, err := loadReferences(cfg, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if cfg.Generation.DebugDir != "" {
		if err := os.MkdirAll(cfg.Generation.DebugDir, 0755); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
	}

	units := buildWorkUnits(cfg, refs)

	orch := orchestrate.New(pool, client, asm, renderer, orchestrate.Config{
		TargetQuestions:     cfg.Generation.TargetQuestions,
		MaxContinuations:    cfg.Generation.MaxContinuations,
		MaxTransportRetries: cfg.Retry.MaxTransportRetries,
		BackoffBase:         cfg.Retry.BackoffBase,
		BackoffMultiplier:   cfg.Retry.BackoffMultiplier,
		MaxBackoff:          cfg.Retry.MaxBackoff,
		QuotaCooldown:       cfg.Retry.QuotaCooldown,
		DebugDir:            cfg.Generation.DebugDir,
	}, logger)

	runner := orchestrate.NewRunner(orch, len(keys),
		orchestrate.WithConcurrency(cfg.Output.Concurrency),
		orchestrate.WithBatchPause(cfg.Output.BatchPause),
		orchestrate.WithRunnerLogger(logger),
	)

	summary, err := runner.Run(ctx, units)
	for _, res := range summary.Results {
		if res.Err != nil {
			logger.Error("Exam failed",
				"unit", res.UnitID,
				"requests", res.Requests,
				"error", res.Err)
		} else {
			logger.Info("Exam written",
				"unit", res.UnitID,
				"questions", res.Items,
				"output", res.OutputPath)
		}
	}
	if err != nil {
		if errors.Is(err, orchestrate.ErrAllUnitsFailed) {
			return fmt.Errorf("no exam could be completed: %w", err)
		}
		return err
	}

	if summary.Failed > 0 {
		logger.Warn("Batch finished with partial success",
			"succeeded", summary.Succeeded,
			"failed", summary.Failed)
	}
	return nil
}

// loadReferences discovers and ingests the reference documents feeding the
// generation request.
func loadReferences(cfg *config.Config, logger *slog.Logger) ([]*source.Document, error) {
	paths, err := source.Discover(cfg.Sources.Root, cfg.Sources.Patterns)
	if err != nil {
		return nil, fmt.Errorf("discover sources: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no reference documents found under %s", cfg.Sources.Root)
	}

	refs := source.IngestAll(paths, logger)
	if len(refs) == 0 {
		return nil, fmt.Errorf("no reference document could be ingested")
	}

	logger.Info("Reference documents loaded",
		"discovered", len(paths),
		"ingested", len(refs))
	return refs, nil
}

func buildWorkUnits(cfg *config.Config, refs []*source.Document) []orchestrate.WorkUnit {
	parts := prompt.Build(cfg.Generation.Subject, cfg.Generation.TargetQuestions, refs)

	ext := ".html"
	if cfg.Output.Format == "markdown" {
		ext = ".md"
	}

	units := make([]orchestrate.WorkUnit, cfg.Generation.Count)
	for i := range units {
		// Each unit appends continuation parts to its request; give every
		// unit its own slice so concurrent units never share a backing array.
		unitParts := make([]llm.Part, len(parts))
		copy(unitParts, parts)

		units[i] = orchestrate.WorkUnit{
			ID:         i + 1,
			OutputPath: filepath.Join(cfg.Output.Dir, fmt.Sprintf("exam-%02d%s", i+1, ext)),
			Request: llm.Request{
				Model: cfg.Model.Name,
				Parts: unitParts,
				Params: llm.Params{
					MaxOutputTokens: cfg.Model.MaxOutputTokens,
					Temperature:     cfg.Model.Temperature,
					ThinkingBudget:  cfg.Model.ThinkingBudget,
				},
			},
		}
	}
	return units
}
