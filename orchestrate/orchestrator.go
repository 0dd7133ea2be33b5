// Package orchestrate drives generation work units to completion: credential
// assignment and rotation, the continuation/retry state machine, response
// assembly, and batch execution with bounded concurrency.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/examforge/assemble"
	"github.com/c360studio/examforge/credential"
	"github.com/c360studio/examforge/llm"
	"github.com/c360studio/examforge/prompt"
)

// Generator is the transport dependency: one generation call with a
// caller-supplied API key.
type Generator interface {
	Generate(ctx context.Context, apiKey string, req llm.Request) (*llm.Response, error)
}

// Renderer is the artifact boundary: one validated document in, one file out.
type Renderer interface {
	Render(doc *assemble.Document, path string) error
}

// Config bounds the retry and continuation loops.
type Config struct {
	// TargetQuestions is the item count a document must reach.
	TargetQuestions int

	// MaxContinuations caps the continuation/parse-retry loop. The two
	// share one budget: both consume a follow-up request on the same
	// credential.
	MaxContinuations int

	// MaxTransportRetries caps transport-level retries, including quota
	// rotations.
	MaxTransportRetries int

	// BackoffBase is the initial backoff for transient transport errors.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration

	// QuotaCooldown is the fixed pause after a quota rotation. Quota
	// windows roll over on the provider's clock, so exponential growth
	// buys nothing there.
	QuotaCooldown time.Duration

	// DebugDir, when set, receives every raw response for offline
	// diagnosis.
	DebugDir string
}

// DefaultConfig returns the bounds used across the exam variants.
func DefaultConfig() Config {
	return Config{
		TargetQuestions:     150,
		MaxContinuations:    5,
		MaxTransportRetries: 3,
		BackoffBase:         2 * time.Second,
		BackoffMultiplier:   2.0,
		MaxBackoff:          30 * time.Second,
		QuotaCooldown:       15 * time.Second,
	}
}

// WorkUnit is one requested artifact.
type WorkUnit struct {
	// ID is the 1-based ordinal among the requested artifacts.
	ID int

	// OutputPath is where the rendered artifact lands.
	OutputPath string

	// Request is the initial payload. Continuation and clarification
	// instructions are appended to it as the loop progresses.
	Request llm.Request
}

// Result records one work unit's terminal state.
type Result struct {
	UnitID     int
	OutputPath string
	Items      int
	Requests   int
	Err        error
}

// Orchestrator drives one work unit at a time. It is safe for concurrent
// use across work units; all shared state lives in the credential pool.
type Orchestrator struct {
	pool     *credential.Pool
	gen      Generator
	asm      *assemble.Assembler
	renderer Renderer
	cfg      Config
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(pool *credential.Pool, gen Generator, asm *assemble.Assembler, renderer Renderer, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		pool:     pool,
		gen:      gen,
		asm:      asm,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run drives one work unit to a complete rendered artifact or a terminal
// failure.
func (o *Orchestrator) Run(ctx context.Context, unit WorkUnit) Result {
	res := Result{UnitID: unit.ID, OutputPath: unit.OutputPath}

	cred, err := o.pool.Assign(unit.ID)
	if err != nil {
		res.Err = fmt.Errorf("assign credential: %w", err)
		return res
	}

	// Proactive quota check: when the assigned key has no headroom for the
	// estimated cost, swap to one that does before spending a request.
	estimate := credential.EstimateTokens(unit.Request.TextLen(), unit.Request.BlobCount())
	if !o.pool.CanHandle(cred.Index, estimate) {
		if better, err := o.pool.BestCandidate(estimate); err == nil && better.Index != cred.Index {
			o.logger.Debug("Swapping credential for quota headroom",
				"unit", unit.ID,
				"from", cred.Index,
				"to", better.Index,
				"estimated_tokens", estimate)
			cred = better
		}
	}

	req := unit.Request
	var doc *assemble.Document
	continuations := 0
	transportRetries := 0

	for {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		resp, err := o.gen.Generate(ctx, cred.Key, req)
		res.Requests++
		if err != nil {
			cred, transportRetries, err = o.handleTransportError(ctx, unit, cred, transportRetries, err)
			if err != nil {
				res.Err = err
				return res
			}
			continue
		}

		o.saveDebug(unit.ID, res.Requests, resp.Text)
		o.pool.AddWindowUsage(cred.Index, resp.Usage.Total())

		part, err := o.asm.Assemble(resp.Text)
		if err != nil {
			continuations++
			o.logger.Warn("Response failed assembly",
				"unit", unit.ID,
				"attempt", continuations,
				"error", err)
			if continuations >= o.cfg.MaxContinuations {
				res.Err = fmt.Errorf("unit %d: retries exhausted: %w", unit.ID, err)
				return res
			}
			req.Parts = append(req.Parts, llm.TextPart(prompt.Clarification()))
			continue
		}

		doc = o.asm.Merge(doc, part)
		count := assemble.Count(doc)
		o.logger.Debug("Part assembled",
			"unit", unit.ID,
			"part_items", assemble.Count(part),
			"total_items", count,
			"target", o.cfg.TargetQuestions)

		if count >= o.cfg.TargetQuestions {
			o.pool.RecordSuccess(cred.Index)
			o.pool.IncrementUsage(cred.Index)

			if err := o.renderer.Render(doc, unit.OutputPath); err != nil {
				res.Err = fmt.Errorf("render unit %d: %w", unit.ID, err)
				return res
			}
			res.Items = count
			o.logger.Info("Work unit complete",
				"unit", unit.ID,
				"items", count,
				"requests", res.Requests,
				"output", unit.OutputPath)
			return res
		}

		continuations++
		if continuations >= o.cfg.MaxContinuations {
			res.Err = fmt.Errorf("unit %d: only %d of %d items after %d parts",
				unit.ID, count, o.cfg.TargetQuestions, continuations)
			return res
		}
		remaining := o.cfg.TargetQuestions - count
		req.Parts = append(req.Parts, llm.TextPart(prompt.Continuation(remaining, count+1)))
	}
}

// handleTransportError applies the error-kind policy: quota errors exclude
// the credential and rotate, transient errors back off, fatal errors end
// the unit. Returns the credential to use next and the updated retry count.
func (o *Orchestrator) handleTransportError(ctx context.Context, unit WorkUnit, cred credential.Credential, retries int, cause error) (credential.Credential, int, error) {
	switch {
	case llm.IsQuota(cause):
		o.pool.MarkFailed(cred.Index, cause)
		retries++
		if retries > o.cfg.MaxTransportRetries {
			return cred, retries, fmt.Errorf("unit %d: transport retries exhausted: %w", unit.ID, cause)
		}

		next, err := o.pool.Assign(unit.ID)
		if err != nil {
			return cred, retries, fmt.Errorf("unit %d: %w", unit.ID, err)
		}
		o.logger.Warn("Quota exhausted, rotating credential",
			"unit", unit.ID,
			"from", cred.Index,
			"to", next.Index)

		if err := o.wait(ctx, o.cfg.QuotaCooldown); err != nil {
			return cred, retries, err
		}
		return next, retries, nil

	case llm.IsFatal(cause):
		return cred, retries, fmt.Errorf("unit %d: %w", unit.ID, cause)

	default:
		retries++
		if retries > o.cfg.MaxTransportRetries {
			return cred, retries, fmt.Errorf("unit %d: transport retries exhausted: %w", unit.ID, cause)
		}
		backoff := o.backoff(retries)
		o.logger.Warn("Transport error, backing off",
			"unit", unit.ID,
			"attempt", retries,
			"backoff", backoff,
			"error", cause)
		if err := o.wait(ctx, backoff); err != nil {
			return cred, retries, err
		}
		return cred, retries, nil
	}
}

// backoff computes exponential backoff with jitter. Jitter prevents
// synchronized retries when several work units fail together.
func (o *Orchestrator) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= o.cfg.BackoffMultiplier
	}

	backoff := time.Duration(float64(o.cfg.BackoffBase) * multiplier)
	if backoff > o.cfg.MaxBackoff {
		backoff = o.cfg.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

func (o *Orchestrator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// saveDebug persists one raw response when a debug directory is configured.
func (o *Orchestrator) saveDebug(unitID, requestNum int, text string) {
	if o.cfg.DebugDir == "" {
		return
	}
	path := filepath.Join(o.cfg.DebugDir, fmt.Sprintf("unit%02d-request%02d.txt", unitID, requestNum))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		o.logger.Warn("Failed to save debug response", "path", path, "error", err)
	}
}

// IsCredentialExhaustion reports whether a result failed because no
// credential was usable.
func IsCredentialExhaustion(err error) bool {
	return errors.Is(err, credential.ErrAllExhausted)
}
