// Package outbound creates the sockets used for upstream queries. A
// process-wide fwmark and source IP can be applied to every outbound socket
// so that replies can be steered by policy routing.
package outbound

import (
	"context"
	"net"
	"syscall"
	"time"
)

// Factory dials upstream sockets with the configured mark and source IP
// applied. The zero value dials plain IPv4 sockets.
type Factory struct {
	// Mark is set as the socket fwmark on every outbound socket when nonzero.
	Mark uint32
	// LocalIP, when set, is bound as the source address of every outbound
	// socket (with an ephemeral port).
	LocalIP net.IP
}

func (f *Factory) control(network, address string, c syscall.RawConn) error {
	if f.Mark == 0 {
		return nil
	}
	return setMark(c, f.Mark)
}

// DialUDP returns a connected UDP socket to addr.
func (f *Factory) DialUDP(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Control: f.control}
	if f.LocalIP != nil {
		dialer.LocalAddr = &net.UDPAddr{IP: f.LocalIP}
	}
	return dialer.DialContext(ctx, "udp4", addr)
}

// DialTCP returns a TCP connection to addr, giving up after connectTimeout.
func (f *Factory) DialTCP(ctx context.Context, addr string, connectTimeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Control: f.control, Timeout: connectTimeout}
	if f.LocalIP != nil {
		dialer.LocalAddr = &net.TCPAddr{IP: f.LocalIP}
	}
	return dialer.DialContext(ctx, "tcp4", addr)
}
