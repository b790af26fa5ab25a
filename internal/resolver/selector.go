package resolver

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"
)

// udpReceiveSize is the classic DNS UDP payload limit.
const udpReceiveSize = 512

var errReceiveTimeout = errors.New("receive timed out")

// receive reads one datagram from conn, waiting until deadline at most.
// Timeouts come back as errReceiveTimeout; any other socket error is fatal
// to the attempt.
func receive(conn net.Conn, deadline time.Time, buf []byte) ([]byte, error) {
	if time.Until(deadline) <= 0 {
		return nil, errReceiveTimeout
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	n, err := conn.Read(buf)
	if err != nil {
		var nerr net.Error
		if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
			return nil, errReceiveTimeout
		}
		return nil, err
	}
	return buf[:n], nil
}

// pickResponses drains responses from conn until the deadline elapses or a
// terminating rule fires. Forged replies are discarded along the way, so a
// burst of injected datagrams does not starve the authentic one that
// arrives later.
func pickResponses(conn net.Conn, deadline time.Time, strategy Strategy, wrongAnswers map[string]bool) ([]*dns.Msg, error) {
	var picked []*dns.Msg
	buf := make([]byte, udpReceiveSize)
	for time.Until(deadline) > 0 {
		data, err := receive(conn, deadline, buf)
		if errors.Is(err, errReceiveTimeout) {
			return picked, nil
		}
		if err != nil {
			return nil, err
		}
		response := new(dns.Msg)
		if err := response.Unpack(data); err != nil {
			return nil, fmt.Errorf("unpack response: %w", err)
		}
		log.Debug().Int("answers", len(response.Answer)).Msg("received response")
		if strategy == PickFirst {
			return []*dns.Msg{response}, nil
		}
		if strategy != PickAll && len(listIPv4Addresses(response)) > 1 {
			// the injector does not forge multiple answers
			return []*dns.Msg{response}, nil
		}
		switch strategy {
		case PickLater:
			picked = []*dns.Msg{response}
		case PickRight:
			if isRightResponse(response, wrongAnswers) {
				return []*dns.Msg{response}, nil
			}
		case PickRightLater:
			if isRightResponse(response, wrongAnswers) {
				picked = []*dns.Msg{response}
			}
		case PickAll:
			picked = append(picked, response)
		default:
			return nil, fmt.Errorf("unsupported strategy: %s", strategy)
		}
	}
	return picked, nil
}

// isRightResponse judges whether a UDP reply looks authentic. The injector
// can forge empty replies and forges at most one answer per datagram, so an
// empty answer list is wrong, multiple answers are trusted, and a single
// answer is checked against the known forged set.
func isRightResponse(response *dns.Msg, wrongAnswers map[string]bool) bool {
	answers := listIPv4Addresses(response)
	if len(answers) == 0 {
		return false
	}
	if len(answers) > 1 {
		return true
	}
	return !wrongAnswers[answers[0]]
}

// listIPv4Addresses returns the A-record answers of response in answer order.
func listIPv4Addresses(response *dns.Msg) []string {
	var addresses []string
	for _, rr := range response.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		if ip := a.A.To4(); ip != nil {
			addresses = append(addresses, ip.String())
		}
	}
	return addresses
}
