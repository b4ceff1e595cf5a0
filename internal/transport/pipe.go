package transport

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/pion/transport/v4/packetio"
)

// pipeAddr names one end of an in-process pipe.
type pipeAddr string

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return string(a) }

// PipeConn is one end of an in-process datagram pipe. Datagrams keep their
// boundaries and are delivered in order; loss and reordering come from
// wrapping the ends, not from the pipe itself.
type PipeConn struct {
	local pipeAddr
	in    *packetio.Buffer
	peer  *PipeConn
}

// Pipe creates a linked pair of in-process datagram conns.
func Pipe() (*PipeConn, *PipeConn) {
	a := &PipeConn{local: "pipe-a", in: packetio.NewBuffer()}
	b := &PipeConn{local: "pipe-b", in: packetio.NewBuffer()}
	a.peer = b
	b.peer = a
	return a, b
}

// ReadFrom blocks until a datagram arrives, the read deadline passes or
// the conn is closed.
func (c *PipeConn) ReadFrom(b []byte) (int, net.Addr, error) {
	n, err := c.in.Read(b)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, net.ErrClosed
		}
		return 0, nil, err
	}
	return n, c.peer.local, nil
}

// WriteTo delivers b to the other end. The address is ignored since a pipe
// has exactly one peer; writes to a closed peer vanish like UDP datagrams
// sent to a dead host.
func (c *PipeConn) WriteTo(b []byte, _ net.Addr) (int, error) {
	if _, err := c.peer.in.Write(b); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return 0, err
	}
	return len(b), nil
}

func (c *PipeConn) Close() error                       { return c.in.Close() }
func (c *PipeConn) LocalAddr() net.Addr                { return c.local }
func (c *PipeConn) RemoteAddr() net.Addr               { return c.peer.local }
func (c *PipeConn) SetDeadline(t time.Time) error      { return c.in.SetReadDeadline(t) }
func (c *PipeConn) SetReadDeadline(t time.Time) error  { return c.in.SetReadDeadline(t) }
func (c *PipeConn) SetWriteDeadline(t time.Time) error { return nil }
