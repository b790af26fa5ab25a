// Package server implements the forwarding DNS server: a UDP listener that
// answers A queries through the anti-poisoning resolver, routes China
// domains to a domestic upstream pool, and rewrites hosted domains to their
// alias zone.
package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"

	"fqdns-go/internal/domains"
	"fqdns-go/internal/outbound"
	"fqdns-go/internal/resolver"
)

const (
	udpReceiveSize     = 512
	ignoreHostedPrefix = "ignore-hosted-domain."
	answerTTL          = 3600
)

// Config holds the immutable server configuration.
type Config struct {
	Listen resolver.Endpoint
	// Upstreams is the default pool. The first entry also serves direct
	// passthrough forwarding.
	Upstreams []resolver.Endpoint
	// ChinaUpstreams, when non-empty, serves China domains instead.
	ChinaUpstreams []resolver.Endpoint
	// HostedDomains are rewritten to <domain>.<HostedAt> before querying.
	HostedDomains map[string]bool
	HostedAt      string
	// Direct forwards every request verbatim to the first upstream.
	Direct bool
	// FallbackTimeout bounds the UDP round; the TCP fallback gets twice it.
	FallbackTimeout time.Duration
	Strategy        resolver.Strategy
}

// Server is the forwarding DNS server. Construct with New, bind with
// Listen, then run with Serve.
type Server struct {
	cfg      Config
	resolver *resolver.Resolver
	factory  *outbound.Factory
	conn     net.PacketConn
}

func New(cfg Config, res *resolver.Resolver, factory *outbound.Factory) *Server {
	if factory == nil {
		factory = &outbound.Factory{}
	}
	if res == nil {
		res = resolver.New(factory)
	}
	return &Server{cfg: cfg, resolver: res, factory: factory}
}

// Listen binds the UDP listener. The listener is a plain socket; the
// outbound mark and bind-IP apply to upstream sockets only.
func (s *Server) Listen() error {
	var ip net.IP
	if s.cfg.Listen.Host != "" {
		ip = net.ParseIP(s.cfg.Listen.Host)
		if ip == nil {
			return fmt.Errorf("invalid listen address %q", s.cfg.Listen.Host)
		}
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: s.cfg.Listen.Port})
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	s.conn = conn
	return nil
}

// LocalAddr returns the bound listener address.
func (s *Server) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve reads client datagrams until ctx is cancelled, spawning one handler
// per request. Handlers are independent; overload shows up as timeouts and
// dropped responses, which clients recover from by retrying.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("listen", s.conn.LocalAddr().String()).Int("upstreams", len(s.cfg.Upstreams)).Msg("dns server started")
	defer log.Info().Msg("dns server stopped")
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()
	buf := make([]byte, udpReceiveSize)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
		request := make([]byte, n)
		copy(request, buf[:n])
		go s.handle(ctx, request, addr)
	}
}

func (s *Server) handle(ctx context.Context, raw []byte, addr net.Addr) {
	request := new(dns.Msg)
	if err := request.Unpack(raw); err != nil {
		log.Warn().Err(err).Str("client", addr.String()).Msg("malformed request")
		return
	}
	log.Debug().Str("client", addr.String()).Int("questions", len(request.Question)).Msg("received downstream request")

	var names []string
	for _, q := range request.Question {
		if q.Qtype == dns.TypeA {
			names = append(names, strings.ToLower(strings.TrimSuffix(q.Name, ".")))
		}
	}

	var response []byte
	if len(names) == 1 && !s.cfg.Direct {
		response = s.querySmartly(ctx, names[0], request)
		if response == nil {
			return // let the client retry
		}
	} else {
		var err error
		response, err = s.queryFirstUpstream(ctx, raw)
		if err != nil {
			log.Warn().Err(err).Str("client", addr.String()).Msg("direct forward failed")
			return
		}
	}
	if _, err := s.conn.WriteTo(response, addr); err != nil {
		log.Warn().Err(err).Str("client", addr.String()).Msg("send response failed")
	}
}

// querySmartly resolves domain through the anti-poisoning resolver (UDP
// first, then TCP with a doubled timeout) and synthesizes a response from
// the original request, so the client's transaction id and question section
// come back untouched. Returns nil when the name could not be resolved.
func (s *Server) querySmartly(ctx context.Context, domain string, request *dns.Msg) []byte {
	pool := s.cfg.Upstreams
	if len(s.cfg.ChinaUpstreams) > 0 && domains.IsChinaDomain(domain) {
		pool = s.cfg.ChinaUpstreams
	}
	querying := domain
	if strings.HasPrefix(domain, ignoreHostedPrefix) {
		querying = strings.TrimPrefix(domain, ignoreHostedPrefix)
	} else if s.cfg.HostedDomains[domain] {
		querying = domain + "." + s.cfg.HostedAt
	}

	answers := s.resolver.Resolve(ctx, dns.TypeA, []string{querying}, "udp",
		pool, s.cfg.FallbackTimeout, s.cfg.Strategy, nil, 1)[querying]
	if len(answers) == 0 {
		answers = s.resolver.Resolve(ctx, dns.TypeA, []string{querying}, "tcp",
			pool, 2*s.cfg.FallbackTimeout, s.cfg.Strategy, nil, 1)[querying]
		if len(answers) == 0 {
			return nil
		}
	}

	var qname string
	for _, q := range request.Question {
		if q.Qtype == dns.TypeA {
			qname = q.Name
			break
		}
	}
	response := request.Copy()
	response.Response = true
	response.Answer = nil
	for _, answer := range answers {
		ip := net.ParseIP(answer)
		if ip == nil {
			continue
		}
		response.Answer = append(response.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: qname, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: answerTTL},
			A:   ip,
		})
	}
	packed, err := response.Pack()
	if err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("pack response failed")
		return nil
	}
	return packed
}

// queryFirstUpstream relays the raw request to the first upstream and
// returns its reply verbatim. No strategy logic applies on this path, and a
// reply larger than the receive buffer is truncated as-is.
func (s *Server) queryFirstUpstream(ctx context.Context, raw []byte) ([]byte, error) {
	conn, err := s.factory.DialUDP(ctx, s.cfg.Upstreams[0].Addr())
	if err != nil {
		return nil, fmt.Errorf("dial first upstream: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()
	if _, err := conn.Write(raw); err != nil {
		return nil, fmt.Errorf("forward request: %w", err)
	}
	buf := make([]byte, udpReceiveSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	response := make([]byte, n)
	copy(response, buf[:n])
	return response, nil
}
