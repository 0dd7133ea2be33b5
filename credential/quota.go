package credential

import "time"

// Quota-aware selection. The pool tracks per-credential token usage in a
// rolling window; callers can check headroom before choosing a key instead
// of discovering the quota reactively through a 429.

// CanHandle reports whether a credential has headroom for a request of the
// given estimated token cost in its current window. Always true when no
// ceiling is configured.
func (p *Pool) CanHandle(index int, estimatedTokens int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred, ok := p.at(index)
	if !ok {
		return false
	}
	return p.hasHeadroom(cred, estimatedTokens)
}

// BestCandidate returns the usable credential with headroom for the
// estimated cost, preferring pool order. When no credential has headroom it
// falls back to the one whose window resets soonest. Returns ErrAllExhausted
// when every credential is excluded by failures.
func (p *Pool) BestCandidate(estimatedTokens int) (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fallback *Credential
	for _, cred := range p.creds {
		if cred.FailureCount >= p.threshold() {
			continue
		}
		if p.hasHeadroom(cred, estimatedTokens) {
			return *cred, nil
		}
		if fallback == nil || cred.WindowStart.Before(fallback.WindowStart) {
			fallback = cred
		}
	}

	if fallback != nil {
		return *fallback, nil
	}
	return Credential{}, ErrAllExhausted
}

// AddWindowUsage records actual token consumption against a credential's
// current window.
func (p *Pool) AddWindowUsage(index int, tokens int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred, ok := p.at(index)
	if !ok {
		return
	}
	p.rollWindow(cred)
	cred.WindowTokens += tokens
}

// hasHeadroom rolls the window if expired and checks the ceiling.
// Caller must hold p.mu.
func (p *Pool) hasHeadroom(cred *Credential, estimatedTokens int) bool {
	if p.config.QuotaCeiling <= 0 {
		return true
	}
	p.rollWindow(cred)
	return cred.WindowTokens+estimatedTokens <= p.config.QuotaCeiling
}

// rollWindow resets the usage counter when the window has elapsed.
// Caller must hold p.mu.
func (p *Pool) rollWindow(cred *Credential) {
	now := p.now()
	if cred.WindowStart.IsZero() || now.Sub(cred.WindowStart) >= p.config.QuotaWindow {
		cred.WindowStart = now
		cred.WindowTokens = 0
	}
}

// EstimateTokens approximates the token cost of a request body. Text is
// counted at roughly four bytes per token; each binary attachment is charged
// a flat cost. The estimate only needs to be good enough for proactive key
// selection, the API's own accounting is authoritative.
func EstimateTokens(textBytes int, attachments int) int {
	const (
		bytesPerToken  = 4
		attachmentCost = 258
	)
	tokens := textBytes / bytesPerToken
	tokens += attachments * attachmentCost
	return tokens
}

// WindowResetAt returns when a credential's current quota window rolls over.
func (p *Pool) WindowResetAt(index int) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred, ok := p.at(index)
	if !ok || cred.WindowStart.IsZero() {
		return time.Time{}
	}
	return cred.WindowStart.Add(p.config.QuotaWindow)
}
