package server

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fqdns-go/internal/resolver"
)

// startUDPUpstream starts a scripted UDP upstream that answers every query
// with the messages script returns.
func startUDPUpstream(t *testing.T, script func(req *dns.Msg) []*dns.Msg) resolver.Endpoint {
	t.Helper()
	pc, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })
	go serveUDPScript(pc, script)
	return resolver.Endpoint{Host: "127.0.0.1", Port: pc.LocalAddr().(*net.UDPAddr).Port}
}

func serveUDPScript(pc *net.UDPConn, script func(req *dns.Msg) []*dns.Msg) {
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
}

// startDualUpstream binds a scripted UDP and a scripted TCP upstream on the
// same port, the way one upstream endpoint serves both transports.
func startDualUpstream(t *testing.T, udpScript func(req *dns.Msg) []*dns.Msg, tcpScript func(req *dns.Msg) *dns.Msg) resolver.Endpoint {
	t.Helper()
	for attempt := 0; attempt < 10; attempt++ {
		pc, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		require.NoError(t, err)
		port := pc.LocalAddr().(*net.UDPAddr).Port
		ln, err := net.Listen("tcp4", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			pc.Close()
			continue
		}
		t.Cleanup(func() { pc.Close(); ln.Close() })
		go serveUDPScript(pc, udpScript)
		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				go func(conn net.Conn) {
					defer conn.Close()
					header := make([]byte, 2)
					if _, err := io.ReadFull(conn, header); err != nil {
						return
					}
					body := make([]byte, binary.BigEndian.Uint16(header))
					if _, err := io.ReadFull(conn, body); err != nil {
						return
					}
					req := new(dns.Msg)
					if err := req.Unpack(body); err != nil {
						return
					}
					resp := tcpScript(req)
					if resp == nil {
						return
					}
					packed, err := resp.Pack()
					if err != nil {
						return
					}
					framed := make([]byte, 2+len(packed))
					binary.BigEndian.PutUint16(framed[:2], uint16(len(packed)))
					copy(framed[2:], packed)
					conn.Write(framed)
				}(conn)
			}
		}()
		return resolver.Endpoint{Host: "127.0.0.1", Port: port}
	}
	t.Fatal("could not bind matching udp/tcp ports")
	return resolver.Endpoint{}
}

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

// startTestServer runs a forwarding server on an ephemeral port and returns
// a client socket connected to it.
func startTestServer(t *testing.T, cfg Config) net.Conn {
	t.Helper()
	cfg.Listen = resolver.Endpoint{Host: "127.0.0.1", Port: 0}
	srv := New(cfg, nil, nil)
	require.NoError(t, srv.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx)
	conn, err := net.Dial("udp4", srv.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// exchange sends query and waits up to timeout for a reply; nil means the
// server dropped the request.
func exchange(t *testing.T, conn net.Conn, query *dns.Msg, timeout time.Duration) *dns.Msg {
	t.Helper()
	packed, err := query.Pack()
	require.NoError(t, err)
	_, err = conn.Write(packed)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return nil
	}
	resp := new(dns.Msg)
	require.NoError(t, resp.Unpack(buf[:n]))
	return resp
}

func aQuery(domain string) *dns.Msg {
	query := new(dns.Msg)
	query.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	query.Id = 0x1234
	return query
}

func TestFallbackToTCP(t *testing.T) {
	// every UDP reply is a known forged answer; only TCP is clean
	upstream := startDualUpstream(t,
		func(req *dns.Msg) []*dns.Msg { return []*dns.Msg{aResponse(req, "78.16.49.15")} },
		func(req *dns.Msg) *dns.Msg { return aResponse(req, "93.184.216.34") },
	)
	conn := startTestServer(t, Config{
		Upstreams:       []resolver.Endpoint{upstream},
		FallbackTimeout: 300 * time.Millisecond,
		Strategy:        resolver.PickRight,
	})

	resp := exchange(t, conn, aQuery("example.com"), 3*time.Second)
	require.NotNil(t, resp, "request should be answered via the tcp fallback")
	assert.True(t, resp.Response)
	assert.Equal(t, uint16(0x1234), resp.Id)
	require.Len(t, resp.Question, 1)
	assert.Equal(t, "example.com.", resp.Question[0].Name)
	require.Len(t, resp.Answer, 1)
	a, ok := resp.Answer[0].(*dns.A)
	require.True(t, ok)
	assert.Equal(t, "example.com.", a.Hdr.Name)
	assert.Equal(t, uint32(3600), a.Hdr.Ttl)
	assert.Equal(t, "93.184.216.34", a.A.String())
}

func TestChinaDomainRouting(t *testing.T) {
	var defaultQueries atomic.Int32
	defaultUpstream := startUDPUpstream(t, func(req *dns.Msg) []*dns.Msg {
		defaultQueries.Add(1)
		return []*dns.Msg{aResponse(req, "1.2.3.4")}
	})
	chinaUpstream := startUDPUpstream(t, func(req *dns.Msg) []*dns.Msg {
		return []*dns.Msg{aResponse(req, "5.6.7.8")}
	})
	conn := startTestServer(t, Config{
		Upstreams:       []resolver.Endpoint{defaultUpstream},
		ChinaUpstreams:  []resolver.Endpoint{chinaUpstream},
		FallbackTimeout: 300 * time.Millisecond,
		Strategy:        resolver.PickRight,
	})

	resp := exchange(t, conn, aQuery("weibo.com"), 3*time.Second)
	require.NotNil(t, resp)
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, "5.6.7.8", resp.Answer[0].(*dns.A).A.String())
	assert.Zero(t, defaultQueries.Load(), "the default pool must not see china domain queries")
}

func TestHostedDomainAliasing(t *testing.T) {
	var seenName atomic.Value
	upstream := startUDPUpstream(t, func(req *dns.Msg) []*dns.Msg {
		seenName.Store(req.Question[0].Name)
		return []*dns.Msg{aResponse(req, "9.9.9.9")}
	})
	conn := startTestServer(t, Config{
		Upstreams:       []resolver.Endpoint{upstream},
		HostedDomains:   map[string]bool{"google.com": true},
		HostedAt:        "fqrouter.com",
		FallbackTimeout: 300 * time.Millisecond,
		Strategy:        resolver.PickRight,
	})

	resp := exchange(t, conn, aQuery("google.com"), 3*time.Second)
	require.NotNil(t, resp)
	assert.Equal(t, "google.com.fqrouter.com.", seenName.Load(), "upstream should see the aliased name")
	require.Len(t, resp.Answer, 1)
	a := resp.Answer[0].(*dns.A)
	assert.Equal(t, "google.com.", a.Hdr.Name, "the client keeps the original name")
	assert.Equal(t, "9.9.9.9", a.A.String())
}

func TestIgnoreHostedPrefixStripsAlias(t *testing.T) {
	var seenName atomic.Value
	upstream := startUDPUpstream(t, func(req *dns.Msg) []*dns.Msg {
		seenName.Store(req.Question[0].Name)
		return []*dns.Msg{aResponse(req, "9.9.9.9")}
	})
	conn := startTestServer(t, Config{
		Upstreams:       []resolver.Endpoint{upstream},
		HostedDomains:   map[string]bool{"google.com": true},
		HostedAt:        "fqrouter.com",
		FallbackTimeout: 300 * time.Millisecond,
		Strategy:        resolver.PickRight,
	})

	resp := exchange(t, conn, aQuery("ignore-hosted-domain.google.com"), 3*time.Second)
	require.NotNil(t, resp)
	assert.Equal(t, "google.com.", seenName.Load())
}

func TestDirectModeRelaysVerbatim(t *testing.T) {
	upstream := startUDPUpstream(t, func(req *dns.Msg) []*dns.Msg {
		resp := aResponse(req, "7.7.7.7")
		resp.RecursionAvailable = true
		return []*dns.Msg{resp}
	})
	conn := startTestServer(t, Config{
		Upstreams:       []resolver.Endpoint{upstream},
		Direct:          true,
		FallbackTimeout: 300 * time.Millisecond,
		Strategy:        resolver.PickRight,
	})

	resp := exchange(t, conn, aQuery("example.com"), 3*time.Second)
	require.NotNil(t, resp)
	assert.Equal(t, uint16(0x1234), resp.Id)
	assert.True(t, resp.RecursionAvailable, "the upstream reply must pass through untouched")
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, uint32(60), resp.Answer[0].Header().Ttl, "direct mode must not rewrite answers")
}

func TestMultiQuestionGoesToFirstUpstream(t *testing.T) {
	upstream := startUDPUpstream(t, func(req *dns.Msg) []*dns.Msg {
		return []*dns.Msg{aResponse(req, "7.7.7.7")}
	})
	conn := startTestServer(t, Config{
		Upstreams:       []resolver.Endpoint{upstream},
		FallbackTimeout: 300 * time.Millisecond,
		Strategy:        resolver.PickRight,
	})

	query := aQuery("example.com")
	query.Question = append(query.Question, dns.Question{Name: "example.org.", Qtype: dns.TypeA, Qclass: dns.ClassINET})
	resp := exchange(t, conn, query, 3*time.Second)
	require.NotNil(t, resp)
	assert.Equal(t, uint32(60), resp.Answer[0].Header().Ttl, "multi-question requests take the passthrough path")
}

func TestUnresolvableRequestIsDropped(t *testing.T) {
	upstream := startDualUpstream(t,
		func(req *dns.Msg) []*dns.Msg { return []*dns.Msg{aResponse(req, "78.16.49.15")} },
		func(req *dns.Msg) *dns.Msg { return nil },
	)
	conn := startTestServer(t, Config{
		Upstreams:       []resolver.Endpoint{upstream},
		FallbackTimeout: 200 * time.Millisecond,
		Strategy:        resolver.PickRight,
	})

	resp := exchange(t, conn, aQuery("example.com"), 1500*time.Millisecond)
	assert.Nil(t, resp, "the server must drop the request instead of answering SERVFAIL")
}

func TestMalformedDatagramIsIgnored(t *testing.T) {
	upstream := startUDPUpstream(t, func(req *dns.Msg) []*dns.Msg {
		return []*dns.Msg{aResponse(req, "7.7.7.7")}
	})
	conn := startTestServer(t, Config{
		Upstreams:       []resolver.Endpoint{upstream},
		FallbackTimeout: 200 * time.Millisecond,
		Strategy:        resolver.PickRight,
	})

	_, err := conn.Write([]byte("not a dns message"))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	buf := make([]byte, 512)
	_, err = conn.Read(buf)
	assert.Error(t, err, "no response should come back for garbage")
}
