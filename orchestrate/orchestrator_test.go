package orchestrate_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/examforge/assemble"
	"github.com/c360studio/examforge/credential"
	"github.com/c360studio/examforge/llm"
	"github.com/c360studio/examforge/orchestrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// examJSON builds a valid response part with n questions starting at start.
func examJSON(start, n int) string {
	var qs []string
	for i := 0; i < n; i++ {
		qs = append(qs, fmt.Sprintf(`{"number": %d, "text": "q%d"}`, start+i, start+i))
	}
	return fmt.Sprintf(`{
		"title": "Mock Exam",
		"meta": {"subject": "Math"},
		"sections": [{"title": "Part A", "groups": [{"questions": [%s]}]}]
	}`, strings.Join(qs, ","))
}

type call struct {
	apiKey string
	req    llm.Request
}

// stubGen scripts transport responses by call order.
type stubGen struct {
	mu     sync.Mutex
	calls  []call
	script []func(apiKey string, req llm.Request) (*llm.Response, error)
}

func (s *stubGen) Generate(_ context.Context, apiKey string, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.calls)
	s.calls = append(s.calls, call{apiKey: apiKey, req: req})
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	return s.script[idx](apiKey, req)
}

func respond(text string) func(string, llm.Request) (*llm.Response, error) {
	return func(_ string, _ llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: text, Usage: llm.Usage{OutputTokens: 10}}, nil
	}
}

func fail(err error) func(string, llm.Request) (*llm.Response, error) {
	return func(_ string, _ llm.Request) (*llm.Response, error) {
		return nil, err
	}
}

// stubRenderer records artifact paths in render order.
type stubRenderer struct {
	mu    sync.Mutex
	paths []string
}

func (r *stubRenderer) Render(_ *assemble.Document, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return nil
}

func newPool(t *testing.T, keys int) *credential.Pool {
	t.Helper()
	var list []string
	for i := 0; i < keys; i++ {
		list = append(list, fmt.Sprintf("key-%d", i))
	}
	p, err := credential.NewPool(list, credential.DefaultPoolConfig())
	require.NoError(t, err)
	return p
}

func fastConfig(target int) orchestrate.Config {
	cfg := orchestrate.DefaultConfig()
	cfg.TargetQuestions = target
	cfg.BackoffBase = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	cfg.QuotaCooldown = 0
	return cfg
}

func unit(id int) orchestrate.WorkUnit {
	return orchestrate.WorkUnit{
		ID:         id,
		OutputPath: fmt.Sprintf("out-%d.html", id),
		Request: llm.Request{
			Model: "gemini-2.5-flash",
			Parts: []llm.Part{llm.TextPart("generate the exam")},
		},
	}
}

func TestRunCompleteInOneShot(t *testing.T) {
	pool := newPool(t, 2)
	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		respond(examJSON(1, 10)),
	}}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(10), nil)
	res := orch.Run(context.Background(), unit(1))

	require.NoError(t, res.Err)
	assert.Equal(t, 10, res.Items)
	assert.Equal(t, 1, res.Requests)
	require.Len(t, renderer.paths, 1)
	assert.Equal(t, "out-1.html", renderer.paths[0])

	snap := pool.Snapshot()
	assert.Equal(t, 1, snap[0].UsageCount)
	assert.Equal(t, 0, snap[0].FailureCount)
}

func TestRunRetriesMalformedOnSameCredential(t *testing.T) {
	pool := newPool(t, 2)
	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		respond("I cannot produce JSON today."),
		respond(examJSON(1, 10)),
	}}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(10), nil)
	res := orch.Run(context.Background(), unit(1))

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Requests)
	require.Len(t, gen.calls, 2)
	assert.Equal(t, gen.calls[0].apiKey, gen.calls[1].apiKey, "parse retry must stay on the same credential")

	// The second request carries the clarification instruction.
	last := gen.calls[1].req.Parts[len(gen.calls[1].req.Parts)-1]
	assert.Contains(t, last.Text, "not valid JSON")
}

func TestRunRotatesOnQuotaError(t *testing.T) {
	pool := newPool(t, 2)
	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		fail(llm.NewQuotaError(errors.New("quota exceeded"))),
		respond(examJSON(1, 10)),
	}}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(10), nil)
	res := orch.Run(context.Background(), unit(1))

	require.NoError(t, res.Err)
	require.Len(t, gen.calls, 2)
	assert.Equal(t, "key-0", gen.calls[0].apiKey)
	assert.Equal(t, "key-1", gen.calls[1].apiKey)

	// Credential 0 stays excluded for the rest of the run.
	snap := pool.Snapshot()
	assert.GreaterOrEqual(t, snap[0].FailureCount, 1)
	next, err := pool.Assign(1)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Index)
}

func TestRunContinuationAsksForExactRemainder(t *testing.T) {
	pool := newPool(t, 1)
	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		respond(examJSON(1, 90)),
		respond(examJSON(91, 60)),
	}}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(150), nil)
	res := orch.Run(context.Background(), unit(1))

	require.NoError(t, res.Err)
	assert.Equal(t, 150, res.Items)
	require.Len(t, gen.calls, 2)

	last := gen.calls[1].req.Parts[len(gen.calls[1].req.Parts)-1]
	assert.Contains(t, last.Text, "exactly 60 more questions")
	assert.Contains(t, last.Text, "question number 91")
}

func TestRunContinuationCeiling(t *testing.T) {
	pool := newPool(t, 1)
	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		respond(examJSON(1, 1)),
	}}
	renderer := &stubRenderer{}

	cfg := fastConfig(10)
	cfg.MaxContinuations = 3

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, cfg, nil)
	res := orch.Run(context.Background(), unit(1))

	require.Error(t, res.Err)
	assert.Empty(t, renderer.paths, "no artifact may be written on terminal failure")
	assert.Equal(t, 3, res.Requests)
}

func TestRunFatalErrorIsTerminal(t *testing.T) {
	pool := newPool(t, 2)
	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		fail(llm.NewFatalError(errors.New("invalid API key"))),
	}}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(10), nil)
	res := orch.Run(context.Background(), unit(1))

	require.Error(t, res.Err)
	assert.Equal(t, 1, res.Requests)
	assert.Empty(t, renderer.paths)
}

func TestRunTransportRetriesExhausted(t *testing.T) {
	pool := newPool(t, 1)
	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		fail(llm.NewTransientError(errors.New("connection reset"))),
	}}
	renderer := &stubRenderer{}

	cfg := fastConfig(10)
	cfg.MaxTransportRetries = 2

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, cfg, nil)
	res := orch.Run(context.Background(), unit(1))

	require.Error(t, res.Err)
	assert.Equal(t, 3, res.Requests, "initial attempt plus two retries")
}

func TestRunAllCredentialsExhausted(t *testing.T) {
	pool := newPool(t, 1)
	pool.MarkFailed(0, errors.New("quota"))

	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		respond(examJSON(1, 10)),
	}}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(10), nil)
	res := orch.Run(context.Background(), unit(1))

	require.Error(t, res.Err)
	assert.True(t, orchestrate.IsCredentialExhaustion(res.Err))
	assert.Zero(t, res.Requests)
	assert.Empty(t, renderer.paths)
}

func TestRunPrefersKeyWithQuotaHeadroom(t *testing.T) {
	cfg := credential.DefaultPoolConfig()
	cfg.QuotaCeiling = 1000
	cfg.QuotaWindow = time.Hour
	pool, err := credential.NewPool([]string{"key-0", "key-1"}, cfg)
	require.NoError(t, err)
	pool.AddWindowUsage(0, 999)

	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		respond(examJSON(1, 10)),
	}}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(10), nil)
	res := orch.Run(context.Background(), unit(1))

	require.NoError(t, res.Err)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, "key-1", gen.calls[0].apiKey, "round-robin would pick key-0; headroom check must swap")
}

func TestRunSavesDebugResponses(t *testing.T) {
	pool := newPool(t, 1)
	gen := &stubGen{script: []func(string, llm.Request) (*llm.Response, error){
		respond(examJSON(1, 10)),
	}}
	renderer := &stubRenderer{}

	cfg := fastConfig(10)
	cfg.DebugDir = t.TempDir()

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, cfg, nil)
	res := orch.Run(context.Background(), unit(3))
	require.NoError(t, res.Err)

	data, err := os.ReadFile(filepath.Join(cfg.DebugDir, "unit03-request01.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Mock Exam")
}
