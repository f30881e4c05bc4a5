// Package intake drives the conversational intake: the consent gate, the
// turn-by-turn conversation state machine, and the timed match reveal.
package intake

import "sync"

// ConsentGate records the one-shot consent that must precede the intake
// conversation. Consent lasts for the lifetime of the process and is never
// persisted; a new run asks again.
type ConsentGate struct {
	mu      sync.Mutex
	granted bool
}

// HasConsented reports whether consent was granted this run.
func (g *ConsentGate) HasConsented() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

// GrantConsent records consent. Granting twice is harmless.
func (g *ConsentGate) GrantConsent() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = true
}
