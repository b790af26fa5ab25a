package resolver

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"
)

// tcpConnectTimeout bounds the TCP handshake; the attempt timeout governs
// everything after that.
const tcpConnectTimeout = time.Second

// transactionID returns a fresh id in [1, 65535]; zero is never used.
func transactionID() uint16 {
	return uint16(1 + rand.Intn(65535))
}

func newQuery(recordType uint16, domain string) *dns.Msg {
	query := new(dns.Msg)
	query.SetQuestion(dns.Fqdn(domain), recordType)
	query.Id = transactionID()
	return query
}

// ResolveOverUDP performs one UDP attempt against server. For A queries the
// returned groups hold the A answers of each response the selector picked,
// in reception order. For other record types a single response is awaited
// and its rdata returned as one group. A timeout yields no groups and no
// error.
func (r *Resolver) ResolveOverUDP(ctx context.Context, recordType uint16, domain string, server Endpoint, timeout time.Duration, strategy Strategy, wrongAnswers map[string]bool) ([][]string, error) {
	conn, err := r.factory.DialUDP(ctx, server.Addr())
	if err != nil {
		return nil, fmt.Errorf("dial udp %s: %w", server, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	packed, err := newQuery(recordType, domain).Pack()
	if err != nil {
		return nil, fmt.Errorf("pack query: %w", err)
	}
	if _, err := conn.Write(packed); err != nil {
		return nil, fmt.Errorf("send query: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if recordType == dns.TypeA {
		responses, err := pickResponses(conn, deadline, strategy, wrongAnswers)
		if err != nil {
			return nil, err
		}
		groups := make([][]string, 0, len(responses))
		for _, response := range responses {
			groups = append(groups, listIPv4Addresses(response))
		}
		return groups, nil
	}

	buf := make([]byte, udpReceiveSize)
	data, err := receive(conn, deadline, buf)
	if errors.Is(err, errReceiveTimeout) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	response := new(dns.Msg)
	if err := response.Unpack(data); err != nil {
		return nil, fmt.Errorf("unpack response: %w", err)
	}
	return [][]string{listRdata(response)}, nil
}

// ResolveOverTCP performs one TCP attempt against server: length-prefixed
// query, one length-prefixed response. The response must pass the
// forged-answer check against the built-in set; this filters resolvers that
// answer NXDOMAIN with a search-page address. Timeouts and filtered
// responses yield empty without an error.
func (r *Resolver) ResolveOverTCP(ctx context.Context, recordType uint16, domain string, server Endpoint, timeout time.Duration) ([]string, error) {
	conn, err := r.factory.DialTCP(ctx, server.Addr(), tcpConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", server, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	packed, err := newQuery(recordType, domain).Pack()
	if err != nil {
		return nil, fmt.Errorf("pack query: %w", err)
	}
	deadline := time.Now().Add(timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	framed := make([]byte, 2+len(packed))
	binary.BigEndian.PutUint16(framed[:2], uint16(len(packed)))
	copy(framed[2:], packed)
	if _, err := conn.Write(framed); err != nil {
		return nil, fmt.Errorf("send query: %w", err)
	}

	header := make([]byte, 2)
	if _, err := io.ReadFull(conn, header); err != nil {
		if isTimeout(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read response length: %w", err)
	}
	body := make([]byte, binary.BigEndian.Uint16(header))
	if _, err := io.ReadFull(conn, body); err != nil {
		if isTimeout(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read response: %w", err)
	}
	response := new(dns.Msg)
	if err := response.Unpack(body); err != nil {
		return nil, fmt.Errorf("unpack response: %w", err)
	}
	if !isRightResponse(response, builtinWrongAnswers) {
		log.Debug().Str("domain", domain).Msg("tcp response rejected by forged-answer check")
		return nil, nil
	}
	if recordType == dns.TypeA {
		return listIPv4Addresses(response), nil
	}
	return listRdata(response), nil
}

// resolveOne runs a single (domain, server, transport) attempt and publishes
// a non-empty result to results. Every failure is logged and converted to an
// empty result so sibling attempts keep racing.
func (r *Resolver) resolveOne(ctx context.Context, recordType uint16, domain, transport string, server Endpoint, timeout time.Duration, strategy Strategy, wrongAnswers map[string]bool, results chan<- nameAnswers) {
	log.Info().Str("transport", transport).Str("domain", domain).Str("server", server.String()).Msg("resolving")
	var answers []string
	switch transport {
	case "udp":
		groups, err := r.ResolveOverUDP(ctx, recordType, domain, server, timeout, strategy, mergeWrongAnswers(wrongAnswers))
		if err != nil {
			log.Warn().Err(err).Str("domain", domain).Str("server", server.String()).Msg("udp attempt failed")
		}
		for _, group := range groups {
			answers = append(answers, group...)
		}
	case "tcp":
		var err error
		answers, err = r.ResolveOverTCP(ctx, recordType, domain, server, timeout)
		if err != nil {
			log.Warn().Err(err).Str("domain", domain).Str("server", server.String()).Msg("tcp attempt failed")
		}
	default:
		log.Error().Str("transport", transport).Msg("unsupported server type")
	}
	log.Info().Str("transport", transport).Str("domain", domain).Str("server", server.String()).Strs("answers", answers).Msg("resolved")
	if len(answers) == 0 || ctx.Err() != nil {
		return
	}
	select {
	case results <- nameAnswers{domain: domain, answers: answers}:
	case <-ctx.Done():
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// listRdata returns the textual rdata of every answer.
func listRdata(response *dns.Msg) []string {
	var rdata []string
	for _, rr := range response.Answer {
		switch v := rr.(type) {
		case *dns.TXT:
			rdata = append(rdata, strings.Join(v.Txt, ""))
		case *dns.A:
			rdata = append(rdata, v.A.String())
		default:
			// strip the header columns from the presentation form
			s := rr.String()
			if i := strings.LastIndex(s, "\t"); i >= 0 {
				s = s[i+1:]
			}
			rdata = append(rdata, s)
		}
	}
	return rdata
}
