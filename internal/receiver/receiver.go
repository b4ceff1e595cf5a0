// Package receiver implements the requesting side of the transfer: it asks
// a peer for an object, accepts fragments strictly in order, persists the
// reassembled object and then completes the EOF_ACK handshake.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/1ureka/rdt/internal/protocol"
	"github.com/1ureka/rdt/internal/transport"
	"github.com/1ureka/rdt/internal/util"
)

// idlePoll bounds a single blocking read so cancellation is noticed even
// with a long retransmission timeout.
const idlePoll = time.Second

// ErrNotFound is returned by Fetch when the peer answers NOT_FOUND.
var ErrNotFound = errors.New("object not found on peer")

// State is the receiver's position in the transfer.
type State int

const (
	StateRequesting State = iota
	StateReceiving
	StateEOFHandshake
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "REQUESTING"
	case StateReceiving:
		return "RECEIVING"
	case StateEOFHandshake:
		return "EOF_HANDSHAKE"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sink persists the reassembled object.
type Sink interface {
	Persist(data []byte) error
}

// Receiver drives one object transfer from a single peer.
type Receiver struct {
	conn   net.PacketConn
	peer   net.Addr
	path   string
	sink   Sink
	params protocol.Params

	state        State
	reasm        *Reassembler
	lastProgress time.Time
	buf          []byte

	dropLog rate.Sometimes
}

// New creates a receiver that will request path from peer over conn and
// hand the result to sink.
func New(conn net.PacketConn, peer net.Addr, path string, sink Sink, params protocol.Params) *Receiver {
	return &Receiver{
		conn:    conn,
		peer:    peer,
		path:    path,
		sink:    sink,
		params:  params,
		state:   StateRequesting,
		reasm:   NewReassembler(),
		buf:     make([]byte, protocol.MaxDatagramSize),
		dropLog: rate.Sometimes{First: 3, Interval: 5 * time.Second},
	}
}

func (r *Receiver) State() State      { return r.state }
func (r *Receiver) Expected() int32   { return r.reasm.Expected() }
func (r *Receiver) Peer() net.Addr    { return r.peer }
func (r *Receiver) Requested() string { return r.path }

// Fetch sends the REQUEST and runs the receive loop until the handshake
// completes, the peer reports NOT_FOUND, ctx is cancelled or the transport
// fails. The handshake retries without bound.
func (r *Receiver) Fetch(ctx context.Context) error {
	if r.state != StateRequesting {
		return fmt.Errorf("receiver already in state %s", r.state)
	}

	util.LogInfo("requesting %q from %s", r.path, r.peer)
	if err := r.start(time.Now()); err != nil {
		return err
	}

	for r.state != StateDone {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.conn.SetReadDeadline(r.deadline(time.Now())); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, addr, err := r.conn.ReadFrom(r.buf)
		now := time.Now()
		if err != nil {
			if transport.IsTimeout(err) {
				if err := r.tick(now); err != nil {
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
		if err := r.receive(r.buf[:n], addr, now); err != nil {
			return err
		}
		if r.state == StateDone {
			break
		}
		if err := r.tick(now); err != nil {
			return err
		}
	}

	util.Stats.AddCompleted()
	util.LogSuccess("received %q (%d bytes) from %s", r.path, r.reasm.Expected(), r.peer)
	return nil
}

func (r *Receiver) start(now time.Time) error {
	r.lastProgress = now
	return r.send(protocol.NewRequest(r.path))
}

// deadline is the instant the progress timer fires, capped by idlePoll.
func (r *Receiver) deadline(now time.Time) time.Time {
	d := r.lastProgress.Add(r.params.Timeout + time.Millisecond)
	if limit := now.Add(idlePoll); limit.Before(d) {
		return limit
	}
	return d
}

// receive validates the source and integrity of one datagram and
// dispatches it. Foreign, undecodable and corrupt datagrams are dropped
// without a reply.
func (r *Receiver) receive(data []byte, addr net.Addr, now time.Time) error {
	if !transport.SameAddr(addr, r.peer) {
		r.dropLog.Do(func() { util.LogWarning("dropping datagram from unexpected source %s", addr) })
		return nil
	}

	pkt, err := protocol.Decode(data)
	if err != nil {
		util.Stats.AddCorrupt()
		r.dropLog.Do(func() { util.LogWarning("dropping undecodable datagram: %v", err) })
		return nil
	}
	if pkt.IsCorrupt() {
		util.Stats.AddCorrupt()
		r.dropLog.Do(func() { util.LogWarning("dropping corrupt %s", pkt.Kind()) })
		return nil
	}
	return r.handle(pkt, now)
}

// handle applies one valid packet to the state machine.
func (r *Receiver) handle(pkt *protocol.Packet, now time.Time) error {
	switch pkt.Kind() {
	case protocol.KindNotFound:
		if r.state == StateRequesting {
			return fmt.Errorf("%w: %q", ErrNotFound, r.path)
		}

	case protocol.KindData, protocol.KindEOFData:
		if r.state == StateRequesting || r.state == StateReceiving {
			return r.onFragment(pkt, now)
		}

	case protocol.KindEOFAck:
		if r.state == StateEOFHandshake {
			r.state = StateDone
			util.LogDebug("EOF_ACK from %s, handshake complete", r.peer)
			return nil
		}
	}

	util.LogDebug("ignoring %s in state %s", pkt, r.state)
	return nil
}

// onFragment accepts pkt if it continues the reassembled prefix. Any
// other fragment is dropped and answered with a duplicate ACK for the
// expected offset.
func (r *Receiver) onFragment(pkt *protocol.Packet, now time.Time) error {
	if !r.reasm.Feed(pkt.SeqNum, pkt.Payload) {
		util.Stats.AddOutOfOrder()
		util.LogDebug("out-of-order fragment at %d (expected %d)", pkt.SeqNum, r.reasm.Expected())
		return r.send(protocol.NewAck(r.reasm.Expected()))
	}

	if r.state == StateRequesting {
		r.state = StateReceiving
		util.LogInfo("receiving %q from %s", r.path, r.peer)
	}
	r.lastProgress = now

	if err := r.send(protocol.NewAck(r.reasm.Expected())); err != nil {
		return err
	}
	if pkt.Kind() != protocol.KindEOFData {
		return nil
	}

	if err := r.sink.Persist(r.reasm.Bytes()); err != nil {
		return fmt.Errorf("failed to persist %q: %w", r.path, err)
	}
	r.state = StateEOFHandshake
	util.LogInfo("persisted %d bytes, closing handshake with %s", r.reasm.Expected(), r.peer)
	return r.send(protocol.EOFAck())
}

// tick resends the last message of the current state once no progress has
// been seen for a full timeout interval.
func (r *Receiver) tick(now time.Time) error {
	if now.Sub(r.lastProgress) <= r.params.Timeout {
		return nil
	}
	r.lastProgress = now

	var pkt *protocol.Packet
	switch r.state {
	case StateRequesting:
		pkt = protocol.NewRequest(r.path)
	case StateReceiving:
		pkt = protocol.NewAck(r.reasm.Expected())
	case StateEOFHandshake:
		pkt = protocol.EOFAck()
	default:
		return nil
	}

	util.LogDebug("timeout in %s, resending %s", r.state, pkt.Kind())
	util.Stats.AddRetransmit(1)
	return r.send(pkt)
}

func (r *Receiver) send(pkt *protocol.Packet) error {
	data := protocol.Encode(pkt)
	if _, err := r.conn.WriteTo(data, r.peer); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", pkt.Kind(), r.peer, err)
	}
	util.Stats.AddSent(len(data))
	util.LogDebug("→ %s: %s", r.peer, pkt)
	return nil
}
