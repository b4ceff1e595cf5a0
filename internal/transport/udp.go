// Package transport provides the unreliable datagram channels the protocol
// runs over. Every channel is a net.PacketConn: plain UDP, a WebRTC
// DataChannel configured for unordered, unretransmitted delivery, or an
// in-process pipe.
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ListenUDP binds a UDP socket on all interfaces. Port 0 picks an
// ephemeral port.
func ListenUDP(port int) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP port %d: %w", port, err)
	}
	return conn, nil
}

// ResolvePeer resolves host:port into a UDP address.
func ResolvePeer(host string, port int) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	return addr, nil
}

// IsTimeout reports whether err is a read-deadline expiry rather than a
// real transport failure.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SameAddr compares two peer addresses. UDP addresses compare by IP and
// port so that IPv4 and IPv4-in-IPv6 forms of one peer match.
func SameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return a == b
	}
	ua, okA := a.(*net.UDPAddr)
	ub, okB := b.(*net.UDPAddr)
	if okA && okB {
		return ua.Port == ub.Port && ua.IP.Equal(ub.IP)
	}
	return a.Network() == b.Network() && a.String() == b.String()
}

// AddrKey returns a map key identifying addr, consistent with SameAddr.
func AddrKey(addr net.Addr) string {
	if ua, ok := addr.(*net.UDPAddr); ok {
		ip := ua.IP
		if v4 := ip.To4(); v4 != nil {
			ip = v4
		}
		return "udp/" + net.JoinHostPort(ip.String(), strconv.Itoa(ua.Port))
	}
	return addr.Network() + "/" + addr.String()
}
