// Package credential manages the pool of API keys used for generation
// requests: selection policies, failure isolation, usage accounting, and
// rolling quota windows.
package credential

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrAllExhausted is returned when every credential in the pool is excluded.
var ErrAllExhausted = errors.New("all credentials exhausted")

// Policy selects how the pool picks a credential for a work unit.
type Policy string

const (
	// PolicyRoundRobin starts at (workUnit-1) mod poolSize and advances
	// past excluded credentials.
	PolicyRoundRobin Policy = "round-robin"

	// PolicyLeastFailed picks the usable credential with the lowest
	// failure count, oldest failure first.
	PolicyLeastFailed Policy = "least-failed"
)

// ParsePolicy converts a config string to a Policy, defaulting to round-robin.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyLeastFailed {
		return PolicyLeastFailed
	}
	return PolicyRoundRobin
}

// Credential is one API key plus its tracked state. Values returned from the
// pool are copies; all mutable state lives inside the pool.
type Credential struct {
	// Key is the opaque secret string sent to the API.
	Key string

	// Index is the credential's ordinal position in the pool.
	Index int

	// UsageCount is the number of completed work units served.
	UsageCount int

	// FailureCount is the number of consecutive failures.
	FailureCount int

	// LastFailure is the time of the most recent failure.
	LastFailure time.Time

	// WindowTokens is the token usage recorded in the current quota window.
	WindowTokens int

	// WindowStart is when the current quota window opened.
	WindowStart time.Time
}

// PoolConfig configures pool behavior.
type PoolConfig struct {
	// Policy selects the assignment strategy.
	Policy Policy

	// FailureThreshold is the number of consecutive failures before a
	// credential is excluded from assignment under the least-failed
	// policy. The round-robin policy treats any failure as an exclusion
	// flag, so the threshold is effectively 1 there.
	FailureThreshold int

	// QuotaWindow is the rolling window for token budgeting.
	QuotaWindow time.Duration

	// QuotaCeiling is the per-credential token budget per window.
	// Zero disables quota-aware selection.
	QuotaCeiling int
}

// DefaultPoolConfig returns sensible defaults for credential tracking.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Policy:           PolicyRoundRobin,
		FailureThreshold: 3,
		QuotaWindow:      60 * time.Second,
		QuotaCeiling:     0,
	}
}

// Pool owns a set of credentials and their mutable state. All methods are
// safe for concurrent use.
type Pool struct {
	mu     sync.Mutex
	creds  []*Credential
	config PoolConfig
	logger *slog.Logger
	now    func() time.Time
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithClock overrides the time source, used by quota-window tests.
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) {
		p.now = now
	}
}

// NewPool creates a pool from a list of keys.
func NewPool(keys []string, cfg PoolConfig, opts ...PoolOption) (*Pool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("credential pool requires at least one key")
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultPoolConfig().FailureThreshold
	}
	if cfg.QuotaWindow <= 0 {
		cfg.QuotaWindow = DefaultPoolConfig().QuotaWindow
	}

	p := &Pool{
		config: cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for i, key := range keys {
		p.creds = append(p.creds, &Credential{Key: key, Index: i})
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Assign selects a credential for the given work unit according to the
// configured policy. Returns ErrAllExhausted when no credential is usable.
func (p *Pool) Assign(workUnit int) (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.config.Policy {
	case PolicyLeastFailed:
		return p.assignLeastFailed()
	default:
		return p.assignRoundRobin(workUnit)
	}
}

// assignRoundRobin starts at (workUnit-1) mod poolSize and advances past
// excluded credentials, wrapping at most once around the pool.
func (p *Pool) assignRoundRobin(workUnit int) (Credential, error) {
	size := len(p.creds)
	start := workUnit - 1
	if start < 0 {
		start = 0
	}
	start %= size

	for step := 0; step < size; step++ {
		cred := p.creds[(start+step)%size]
		if cred.FailureCount < p.threshold() {
			return *cred, nil
		}
	}
	return Credential{}, ErrAllExhausted
}

// threshold returns the failure count at which a credential is excluded.
// Round-robin treats a single failure as the exclusion flag; least-failed
// tolerates failures up to the configured threshold.
func (p *Pool) threshold() int {
	if p.config.Policy == PolicyRoundRobin {
		return 1
	}
	return p.config.FailureThreshold
}

// assignLeastFailed sorts usable credentials by (failure count, last failure
// time) and picks the first. If none are usable, failure state is reset once
// on the assumption that the quota window has rolled over.
func (p *Pool) assignLeastFailed() (Credential, error) {
	if cred, ok := p.pickLeastFailed(); ok {
		return cred, nil
	}

	p.logger.Warn("All credentials excluded, resetting failure state")
	for _, cred := range p.creds {
		cred.FailureCount = 0
	}

	if cred, ok := p.pickLeastFailed(); ok {
		return cred, nil
	}
	return Credential{}, ErrAllExhausted
}

func (p *Pool) pickLeastFailed() (Credential, bool) {
	usable := make([]*Credential, 0, len(p.creds))
	for _, cred := range p.creds {
		if cred.FailureCount < p.threshold() {
			usable = append(usable, cred)
		}
	}
	if len(usable) == 0 {
		return Credential{}, false
	}

	sort.SliceStable(usable, func(i, j int) bool {
		if usable[i].FailureCount != usable[j].FailureCount {
			return usable[i].FailureCount < usable[j].FailureCount
		}
		return usable[i].LastFailure.Before(usable[j].LastFailure)
	})
	return *usable[0], true
}

// MarkFailed records a failure against a credential. Once the failure count
// reaches the threshold the credential is excluded from assignment.
func (p *Pool) MarkFailed(index int, cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred, ok := p.at(index)
	if !ok {
		return
	}

	cred.FailureCount++
	cred.LastFailure = p.now()

	p.logger.Warn("Credential marked failed",
		"credential", index,
		"failure_count", cred.FailureCount,
		"excluded", cred.FailureCount >= p.threshold(),
		"error", cause)
}

// RecordSuccess resets the failure count for a credential. A single success
// forgives prior failures so transient errors cannot lock a key out
// permanently.
func (p *Pool) RecordSuccess(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cred, ok := p.at(index); ok {
		cred.FailureCount = 0
	}
}

// IncrementUsage bumps the usage counter for a credential. Reporting only.
func (p *Pool) IncrementUsage(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cred, ok := p.at(index); ok {
		cred.UsageCount++
	}
}

// Snapshot returns a copy of every credential's current state, in pool order.
func (p *Pool) Snapshot() []Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Credential, len(p.creds))
	for i, cred := range p.creds {
		out[i] = *cred
	}
	return out
}

func (p *Pool) at(index int) (*Credential, bool) {
	if index < 0 || index >= len(p.creds) {
		return nil, false
	}
	return p.creds[index], true
}
