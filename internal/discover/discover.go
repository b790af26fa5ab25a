// Package discover probes an upstream with repeated UDP queries for
// known-blocked domains and learns forged answers by comparing against a
// TCP ground truth.
package discover

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"

	"fqdns-go/internal/resolver"
)

// defaultSeedDomains are names whose UDP answers are reliably injected.
var defaultSeedDomains = []string{
	"facebook.com", "youtube.com", "twitter.com", "plus.google.com", "drive.google.com",
}

// Config parameterizes a discovery run.
type Config struct {
	Server  resolver.Endpoint
	Timeout time.Duration
	// Repeat is how many concurrent UDP probes to issue per domain.
	Repeat int
	// OnlyNew drops answers already in the built-in forged set.
	OnlyNew bool
	// Domains overrides the default seed domains.
	Domains []string
}

// Discover returns the forged IPv4 answers learned from cfg.Server, sorted.
// For each seed domain the ground truth is fetched over TCP; a UDP response
// carrying a single answer that differs from the truth is forged. Without a
// ground truth, learning only activates once some response carried multiple
// answers (which the injector never forges).
func Discover(ctx context.Context, res *resolver.Resolver, cfg Config) []string {
	seeds := cfg.Domains
	if len(seeds) == 0 {
		seeds = defaultSeedDomains
	}
	repeat := cfg.Repeat
	if repeat < 1 {
		repeat = 1
	}

	wrongAnswers := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, domain := range seeds {
		rightAnswers, err := res.ResolveOverTCP(ctx, dns.TypeA, domain, cfg.Server, 2*cfg.Timeout)
		if err != nil {
			log.Warn().Err(err).Str("domain", domain).Msg("ground truth lookup failed")
		}
		var rightAnswer string
		if len(rightAnswers) > 0 {
			rightAnswer = rightAnswers[0]
		}
		for i := 0; i < repeat; i++ {
			wg.Add(1)
			go func(domain, rightAnswer string) {
				defer wg.Done()
				for _, answer := range discoverOne(ctx, res, domain, cfg.Server, cfg.Timeout, rightAnswer) {
					mu.Lock()
					wrongAnswers[answer] = true
					mu.Unlock()
				}
			}(domain, rightAnswer)
		}
	}
	wg.Wait()

	builtin := resolver.BuiltinWrongAnswers()
	learned := make([]string, 0, len(wrongAnswers))
	for answer := range wrongAnswers {
		if cfg.OnlyNew && builtin[answer] {
			continue
		}
		learned = append(learned, answer)
	}
	sort.Strings(learned)
	return learned
}

// discoverOne collects every UDP response to one query and returns the
// single answers that contradict rightAnswer.
func discoverOne(ctx context.Context, res *resolver.Resolver, domain string, server resolver.Endpoint, timeout time.Duration, rightAnswer string) []string {
	groups, err := res.ResolveOverUDP(ctx, dns.TypeA, domain, server, timeout, resolver.PickAll, nil)
	if err != nil {
		log.Debug().Err(err).Str("domain", domain).Msg("probe failed")
		return nil
	}
	containsRightAnswer := rightAnswer != ""
	for _, group := range groups {
		if len(group) > 1 {
			containsRightAnswer = true
		}
	}
	if !containsRightAnswer {
		return nil
	}
	var wrong []string
	for _, group := range groups {
		if len(group) == 1 && group[0] != rightAnswer {
			wrong = append(wrong, group[0])
		}
	}
	return wrong
}
