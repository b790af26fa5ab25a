package resolver

import (
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// startUDPUpstream starts a scripted UDP upstream. For every datagram it
// receives, script is invoked with the parsed query and every returned
// message is written back in order.
func startUDPUpstream(t *testing.T, script func(req *dns.Msg) []*dns.Msg) Endpoint {
	t.Helper()
	pc, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })
	go func() {
		buf := make([]byte, 4096)
		for {
			n, addr, err := pc.ReadFromUDP(buf)
			if err != nil {
				return
			}
			req := new(dns.Msg)
			if err := req.Unpack(buf[:n]); err != nil {
				continue
			}
			for _, resp := range script(req) {
				packed, err := resp.Pack()
				if err != nil {
					continue
				}
				pc.WriteToUDP(packed, addr)
			}
		}
	}()
	return Endpoint{Host: "127.0.0.1", Port: pc.LocalAddr().(*net.UDPAddr).Port}
}

// startTCPUpstream starts a scripted TCP upstream speaking the 2-byte
// length framing. A nil script result leaves the connection unanswered.
func startTCPUpstream(t *testing.T, script func(req *dns.Msg) *dns.Msg) Endpoint {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				req, err := readFramed(conn)
				if err != nil {
					return
				}
				resp := script(req)
				if resp == nil {
					// hold the connection open until the client gives up
					io.Copy(io.Discard, conn)
					return
				}
				writeFramed(conn, resp)
			}(conn)
		}
	}()
	return Endpoint{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}
}

func readFramed(conn net.Conn) (*dns.Msg, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, err
	}
	body := make([]byte, binary.BigEndian.Uint16(header))
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, err
	}
	msg := new(dns.Msg)
	if err := msg.Unpack(body); err != nil {
		return nil, err
	}
	return msg, nil
}

func writeFramed(conn net.Conn, msg *dns.Msg) error {
	packed, err := msg.Pack()
	if err != nil {
		return err
	}
	framed := make([]byte, 2+len(packed))
	binary.BigEndian.PutUint16(framed[:2], uint16(len(packed)))
	copy(framed[2:], packed)
	_, err = conn.Write(framed)
	return err
}

// aResponse builds a reply to req carrying one A record per address.
func aResponse(req *dns.Msg, addresses ...string) *dns.Msg {
	resp := new(dns.Msg)
	resp.SetReply(req)
	for _, address := range addresses {
		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
			A:   net.ParseIP(address),
		})
	}
	return resp
}

func txtResponse(req *dns.Msg, values ...string) *dns.Msg {
	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Answer = append(resp.Answer, &dns.TXT{
		Hdr: dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
		Txt: values,
	})
	return resp
}
