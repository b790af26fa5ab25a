package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fqdns-go/internal/discover"
	"fqdns-go/internal/domains"
	"fqdns-go/internal/outbound"
	"fqdns-go/internal/resolver"
	"fqdns-go/internal/server"
)

// stringSlice is a custom flag type for multiple string values
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	globals := flag.NewFlagSet("fqdns", flag.ExitOnError)
	outboundMark := globals.String("outbound-mark", "0", "fwmark set on every outbound socket, for example 0xcafe")
	outboundIP := globals.String("outbound-ip", "", "source ip address for every outbound socket")
	logFile := globals.String("log-file", "", "write logs to this file instead of stderr")
	logLevel := globals.String("log-level", "info", "Log level: debug/info/warn/error")
	globals.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: fqdns [global flags] resolve|discover|serve [flags]")
		globals.PrintDefaults()
	}
	globals.Parse(os.Args[1:])

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			log.Fatal().Err(err).Str("path", *logFile).Msg("Failed to open log file")
		}
		log.Logger = log.Output(f)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch *logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		log.Fatal().Str("level", *logLevel).Msg("Invalid log level")
	}

	factory := &outbound.Factory{}
	if *outboundMark != "" {
		mark, err := strconv.ParseUint(*outboundMark, 0, 32)
		if err != nil {
			log.Fatal().Str("mark", *outboundMark).Msg("Invalid outbound mark")
		}
		factory.Mark = uint32(mark)
	}
	if *outboundIP != "" {
		ip := net.ParseIP(*outboundIP)
		if ip == nil {
			log.Fatal().Str("ip", *outboundIP).Msg("Invalid outbound ip")
		}
		factory.LocalIP = ip
	}

	args := globals.Args()
	if len(args) == 0 {
		globals.Usage()
		os.Exit(2)
	}
	res := resolver.New(factory)
	switch args[0] {
	case "resolve":
		runResolve(args[1:], res)
	case "discover":
		runDiscover(args[1:], res)
	case "serve":
		runServe(args[1:], res, factory)
	default:
		log.Fatal().Str("command", args[0]).Msg("Unknown command")
	}
}

func runResolve(args []string, res *resolver.Resolver) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	var at stringSlice
	fs.Var(&at, "at", "dns server to query (can be specified multiple times)")
	strategyName := fs.String("strategy", "pick-right", "anti-poisoning strategy, for UDP only")
	var wrongAnswers stringSlice
	fs.Var(&wrongAnswers, "wrong-answer", "forged answer injected by the middlebox, for UDP only (can be specified multiple times)")
	timeout := fs.Float64("timeout", 1, "per query timeout in seconds")
	serverType := fs.String("server-type", "udp", "udp or tcp")
	recordType := fs.String("record-type", "A", "A or TXT")
	retry := fs.Int("retry", 1, "number of query rounds")

	names := parseWithPositionals(fs, args)
	if len(names) == 0 {
		log.Fatal().Msg("At least one domain is required")
	}

	servers := parseEndpointsOrDie(at)
	if len(servers) == 0 {
		servers = []resolver.Endpoint{{Host: "8.8.8.8", Port: 53}}
	}
	strategy, err := resolver.ParseStrategy(*strategyName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid strategy")
	}
	rtype, err := parseRecordType(*recordType)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid record type")
	}
	wrong := make(map[string]bool, len(wrongAnswers))
	for _, answer := range wrongAnswers {
		wrong[answer] = true
	}

	answers := res.Resolve(context.Background(), rtype, names, *serverType,
		servers, secondsToDuration(*timeout), strategy, wrong, *retry)
	emitJSON(answers)
}

func runDiscover(args []string, res *resolver.Resolver) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	at := fs.String("at", "8.8.8.8:53", "dns server to probe")
	timeout := fs.Float64("timeout", 1, "per query timeout in seconds")
	repeat := fs.Int("repeat", 30, "repeat query for each domain many times")
	onlyNew := fs.Bool("only-new", false, "only show forged answers missing from the built-in set")
	var seedDomains stringSlice
	fs.Var(&seedDomains, "domain", "black listed domain such as twitter.com (can be specified multiple times)")
	fs.Parse(args)

	endpoint, err := resolver.ParseEndpoint(*at)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid server")
	}
	learned := discover.Discover(context.Background(), res, discover.Config{
		Server:  endpoint,
		Timeout: secondsToDuration(*timeout),
		Repeat:  *repeat,
		OnlyNew: *onlyNew,
		Domains: seedDomains,
	})
	emitJSON(learned)
}

func runServe(args []string, res *resolver.Resolver, factory *outbound.Factory) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", "*:53", "local address to bind")
	var upstreams, chinaUpstreams, hostedDomains stringSlice
	fs.Var(&upstreams, "upstream", "upstream dns server for non china domains (can be specified multiple times)")
	fs.Var(&chinaUpstreams, "china-upstream", "upstream dns server for china domains (can be specified multiple times)")
	fs.Var(&hostedDomains, "hosted-domain", "domain a.com queried as a.com.<hosted-at> (can be specified multiple times)")
	hostedAt := fs.String("hosted-at", "fqrouter.com", "zone hosting the aliased domains")
	direct := fs.Bool("direct", false, "forward every request verbatim to the first upstream")
	enableChina := fs.Bool("enable-china-domain", false, "route china domains to the china upstreams")
	enableHosted := fs.Bool("enable-hosted-domain", false, "query hosted domains with the hosted-at suffix")
	fallbackTimeout := fs.Float64("fallback-timeout", 1, "fall back from udp to tcp after this many seconds")
	strategyName := fs.String("strategy", "pick-right", "anti-poisoning strategy, for UDP only")
	fs.Parse(args)

	listenEndpoint, err := resolver.ParseEndpoint(*listen)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid listen address")
	}
	strategy, err := resolver.ParseStrategy(*strategyName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid strategy")
	}
	cfg := server.Config{
		Listen:          listenEndpoint,
		Upstreams:       parseEndpointsOrDie(upstreams),
		HostedAt:        *hostedAt,
		Direct:          *direct,
		FallbackTimeout: secondsToDuration(*fallbackTimeout),
		Strategy:        strategy,
	}
	if len(cfg.Upstreams) == 0 {
		cfg.Upstreams = []resolver.Endpoint{{Host: "8.8.8.8", Port: 53}, {Host: "208.67.222.222", Port: 5353}}
	}
	if *enableChina {
		cfg.ChinaUpstreams = parseEndpointsOrDie(chinaUpstreams)
		if len(cfg.ChinaUpstreams) == 0 {
			cfg.ChinaUpstreams = []resolver.Endpoint{{Host: "114.114.114.114", Port: 53}, {Host: "114.114.115.115", Port: 53}}
		}
	}
	cfg.HostedDomains = map[string]bool{}
	if *enableHosted {
		if len(hostedDomains) > 0 {
			for _, domain := range hostedDomains {
				cfg.HostedDomains[domain] = true
			}
		} else {
			cfg.HostedDomains = domains.HostedDomains()
		}
	}

	srv := server.New(cfg, res, factory)
	if err := srv.Listen(); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind listener")
	}
	if err := srv.Serve(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("DNS server failed")
	}
}

// parseWithPositionals parses fs while collecting non-flag arguments, so
// domains and flags may be interleaved on the command line.
func parseWithPositionals(fs *flag.FlagSet, args []string) []string {
	fs.Parse(args)
	var positionals []string
	rest := fs.Args()
	for len(rest) > 0 {
		if strings.HasPrefix(rest[0], "-") {
			fs.Parse(rest)
			rest = fs.Args()
			continue
		}
		positionals = append(positionals, rest[0])
		rest = rest[1:]
	}
	return positionals
}

func parseEndpointsOrDie(values []string) []resolver.Endpoint {
	endpoints, err := resolver.ParseEndpoints(values)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid server address")
	}
	return endpoints
}

func parseRecordType(name string) (uint16, error) {
	switch name {
	case "A":
		return dns.TypeA, nil
	case "TXT":
		return dns.TypeTXT, nil
	}
	return 0, fmt.Errorf("unsupported record type: %s", name)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// emitJSON writes the command result as JSON on stderr, keeping stdout free.
func emitJSON(v any) {
	if err := json.NewEncoder(os.Stderr).Encode(v); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
}
