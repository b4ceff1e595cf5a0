package sender

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/1ureka/rdt/internal/protocol"
	"github.com/1ureka/rdt/internal/transport"
	"github.com/1ureka/rdt/internal/util"
)

// idlePoll bounds how long the loop blocks when no session has a pending
// deadline, so context cancellation is observed without closing the conn.
const idlePoll = time.Second

// Source loads the object named by a REQUEST.
type Source interface {
	Load(name string) ([]byte, error)
}

// Options configures a Server.
type Options struct {
	Params protocol.Params

	// MaxSessions caps concurrent transfers. REQUESTs arriving while the
	// table is full are ignored. Values below 1 mean 1.
	MaxSessions int
}

// Server is the single-threaded sender loop. It owns a session table keyed
// by peer address; every entry has its own window and progress timer.
type Server struct {
	conn        net.PacketConn
	source      Source
	params      protocol.Params
	maxSessions int

	sessions map[string]*Session
	buf      []byte

	dropLog rate.Sometimes
}

// NewServer creates a server answering requests on conn.
func NewServer(conn net.PacketConn, source Source, opts Options) *Server {
	if opts.MaxSessions < 1 {
		opts.MaxSessions = 1
	}
	return &Server{
		conn:        conn,
		source:      source,
		params:      opts.Params,
		maxSessions: opts.MaxSessions,
		sessions:    make(map[string]*Session),
		buf:         make([]byte, protocol.MaxDatagramSize),
		dropLog:     rate.Sometimes{First: 3, Interval: 5 * time.Second},
	}
}

// Serve runs the receive loop until ctx is cancelled or the transport
// fails. Absence of a datagram is not an error; it only triggers the
// per-session timeout check.
func (s *Server) Serve(ctx context.Context) error {
	util.LogInfo("serving on %s (fragment %d B, window %d B, timeout %v)",
		s.conn.LocalAddr(), s.params.FragmentSize, s.params.WindowSize, s.params.Timeout)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.conn.SetReadDeadline(s.nextDeadline(time.Now())); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, addr, err := s.conn.ReadFrom(s.buf)
		now := time.Now()
		if err != nil {
			if transport.IsTimeout(err) {
				if err := s.tick(now); err != nil {
					return err
				}
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to receive datagram: %w", err)
		}

		util.Stats.AddRecv(n)
		if err := s.receive(s.buf[:n], addr, now); err != nil {
			return err
		}
		if err := s.tick(now); err != nil {
			return err
		}
	}
}

// nextDeadline returns the earliest session deadline, capped by idlePoll.
func (s *Server) nextDeadline(now time.Time) time.Time {
	deadline := now.Add(idlePoll)
	for _, sess := range s.sessions {
		if d := sess.Deadline(); d.Before(deadline) {
			deadline = d
		}
	}
	return deadline
}

// receive decodes and validates one datagram, then dispatches it.
func (s *Server) receive(data []byte, addr net.Addr, now time.Time) error {
	pkt, err := protocol.Decode(data)
	if err != nil {
		util.Stats.AddCorrupt()
		s.dropLog.Do(func() { util.LogWarning("dropping undecodable datagram from %s: %v", addr, err) })
		return nil
	}
	if pkt.IsCorrupt() {
		util.Stats.AddCorrupt()
		s.dropLog.Do(func() { util.LogWarning("dropping corrupt %s from %s", pkt.Kind(), addr) })
		return nil
	}
	return s.handle(pkt, addr, now)
}

// handle applies one valid packet to the session table.
func (s *Server) handle(pkt *protocol.Packet, addr net.Addr, now time.Time) error {
	key := transport.AddrKey(addr)

	switch pkt.Kind() {
	case protocol.KindRequest:
		return s.onRequest(pkt.Path(), addr, key, now)

	case protocol.KindAck:
		sess, ok := s.sessions[key]
		if !ok {
			return nil
		}
		pkts, accepted := sess.Ack(int(pkt.AckNum), now)
		if !accepted {
			util.LogDebug("[%s] stale ACK %d (window start %d)", sess.ID(), pkt.AckNum, sess.WindowStart())
			return nil
		}
		util.LogDebug("[%s] ACK %d, window start now %d", sess.ID(), pkt.AckNum, sess.WindowStart())
		return s.sendAll(pkts, addr)

	case protocol.KindEOFAck:
		// The peer may be retrying because our earlier EOF_ACK was lost,
		// so it is echoed whether or not a session still exists.
		if sess, ok := s.sessions[key]; ok {
			delete(s.sessions, key)
			util.Stats.AddCompleted()
			util.LogSuccess("[%s] transfer of %d bytes to %s complete", sess.ID(), sess.Len(), addr)
		}
		return s.send(protocol.EOFAck(), addr)

	default:
		util.LogDebug("ignoring %s from %s", pkt, addr)
		return nil
	}
}

// onRequest opens a session and emits the initial window, or replies
// NOT_FOUND without creating one.
func (s *Server) onRequest(name string, addr net.Addr, key string, now time.Time) error {
	if sess, ok := s.sessions[key]; ok {
		util.LogDebug("[%s] duplicate REQUEST from %s ignored", sess.ID(), addr)
		return nil
	}
	if len(s.sessions) >= s.maxSessions {
		util.LogWarning("busy with %d transfer(s), ignoring REQUEST %q from %s", len(s.sessions), name, addr)
		return nil
	}

	object, err := s.source.Load(name)
	if err != nil {
		util.LogWarning("REQUEST %q from %s: %v", name, addr, err)
		return s.send(protocol.NotFound(), addr)
	}

	sess, err := NewSession(addr, object, s.params, now)
	if err != nil {
		util.LogWarning("REQUEST %q from %s: %v", name, addr, err)
		return s.send(protocol.NotFound(), addr)
	}

	s.sessions[key] = sess
	util.Stats.AddSession()
	util.LogInfo("[%s] serving %q (%d bytes) to %s", sess.ID(), name, len(object), addr)
	return s.sendAll(sess.Open(now), addr)
}

// tick retransmits the outstanding window of every session whose timer
// has expired.
func (s *Server) tick(now time.Time) error {
	for _, sess := range s.sessions {
		if !sess.Expired(now) {
			continue
		}
		pkts := sess.Retransmit(now)
		util.LogDebug("[%s] timeout, retransmitting %d fragment(s) from %d", sess.ID(), len(pkts), sess.WindowStart())
		util.Stats.AddRetransmit(len(pkts))
		if err := s.sendAll(pkts, sess.Peer()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) sendAll(pkts []*protocol.Packet, addr net.Addr) error {
	for _, pkt := range pkts {
		if err := s.send(pkt, addr); err != nil {
			return err
		}
	}
	return nil
}

// send encodes pkt and writes it to addr. The encoded buffer lives only
// for the duration of the call.
func (s *Server) send(pkt *protocol.Packet, addr net.Addr) error {
	data := protocol.Encode(pkt)
	if _, err := s.conn.WriteTo(data, addr); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", pkt.Kind(), addr, err)
	}
	util.Stats.AddSent(len(data))
	util.LogDebug("→ %s: %s", addr, pkt)
	return nil
}
