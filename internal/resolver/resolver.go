// Package resolver implements the concurrent anti-poisoning resolver: it
// races one attempt per (domain, server) pair and applies a selection
// strategy to the UDP responses so that injected answers lose the race.
package resolver

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"fqdns-go/internal/outbound"
)

// attemptSlack is shaved off the per-attempt deadline so attempts finish
// before the enclosing round does. Callers must pass timeouts above it.
const attemptSlack = 100 * time.Millisecond

// Resolver fans queries out to upstream servers through an outbound socket
// factory. It is safe for concurrent use.
type Resolver struct {
	factory *outbound.Factory
}

// New returns a Resolver dialing through factory. A nil factory means plain
// sockets.
func New(factory *outbound.Factory) *Resolver {
	if factory == nil {
		factory = &outbound.Factory{}
	}
	return &Resolver{factory: factory}
}

type nameAnswers struct {
	domain  string
	answers []string
}

// Resolve queries every server for every domain and returns the first
// non-empty answers per domain. Unanswered domains are retried for up to
// retry rounds and are absent from the result when still unanswered.
func (r *Resolver) Resolve(ctx context.Context, recordType uint16, domains []string, transport string, servers []Endpoint, timeout time.Duration, strategy Strategy, wrongAnswers map[string]bool, retry int) map[string][]string {
	if retry < 1 {
		retry = 1
	}
	remaining := make(map[string]bool, len(domains))
	for _, domain := range domains {
		remaining[domain] = true
	}
	found := make(map[string][]string, len(domains))
	for round := 0; round < retry; round++ {
		for domain, answers := range r.resolveOnce(ctx, recordType, keys(remaining), transport, servers, timeout, strategy, wrongAnswers) {
			found[domain] = answers
			delete(remaining, domain)
		}
		if len(remaining) == 0 {
			return found
		}
		log.Warn().Strs("domains", keys(remaining)).Msg("did not finish resolving")
	}
	return found
}

// resolveOnce runs one round: one concurrent attempt per (domain, server)
// pair, a shared result channel, and a wall-clock deadline. The first
// non-empty arrival per domain wins; later arrivals are ignored. Cancelling
// the round stops still-running attempts from publishing.
func (r *Resolver) resolveOnce(ctx context.Context, recordType uint16, domains []string, transport string, servers []Endpoint, timeout time.Duration, strategy Strategy, wrongAnswers map[string]bool) map[string][]string {
	roundCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	results := make(chan nameAnswers, len(domains)*len(servers))
	for _, domain := range domains {
		for _, server := range servers {
			go r.resolveOne(roundCtx, recordType, domain, transport, server, timeout-attemptSlack, strategy, wrongAnswers, results)
		}
	}
	found := make(map[string][]string, len(domains))
	for len(found) < len(domains) {
		select {
		case result := <-results:
			if _, answered := found[result.domain]; !answered {
				found[result.domain] = result.answers
			}
		case <-roundCtx.Done():
			return found
		}
	}
	return found
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
