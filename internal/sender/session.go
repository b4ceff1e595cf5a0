// Package sender implements the serving side of the transfer: it answers
// object requests and drives fragments to each peer under a byte-addressed
// sliding window with go-back-N retransmission.
package sender

import (
	"fmt"
	"math"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/1ureka/rdt/internal/protocol"
)

// Session holds the transfer state for one peer. It is owned by the
// server loop and needs no locking.
type Session struct {
	id     string
	peer   net.Addr
	object []byte
	params protocol.Params

	windowStart  int // lowest unacknowledged byte offset
	eofOffset    int // object length once the final fragment is scheduled, else -1
	lastProgress time.Time
}

// NewSession creates a session for peer serving object. Offsets travel as
// signed 32-bit integers, which bounds the object size.
func NewSession(peer net.Addr, object []byte, params protocol.Params, now time.Time) (*Session, error) {
	if len(object) > math.MaxInt32 {
		return nil, fmt.Errorf("object of %d bytes exceeds the %d byte offset range", len(object), math.MaxInt32)
	}
	return &Session{
		id:           uuid.NewString()[:8],
		peer:         peer,
		object:       object,
		params:       params,
		eofOffset:    -1,
		lastProgress: now,
	}, nil
}

func (s *Session) ID() string       { return s.id }
func (s *Session) Peer() net.Addr   { return s.peer }
func (s *Session) WindowStart() int { return s.windowStart }
func (s *Session) Len() int         { return len(s.object) }

// EOFOffset returns the object length once the final fragment has been
// scheduled.
func (s *Session) EOFOffset() (int, bool) {
	return s.eofOffset, s.eofOffset >= 0
}

// Open returns the initial burst: every fragment starting inside
// [0, windowSize).
func (s *Session) Open(now time.Time) []*protocol.Packet {
	s.lastProgress = now
	return s.fragments(0, s.params.WindowSize)
}

// Ack applies a cumulative ACK. Stale and duplicate ACKs (ackNum not past
// windowStart) return ok=false and change nothing. Otherwise the window
// slides and the fragments newly admitted by the slide are returned.
func (s *Session) Ack(ackNum int, now time.Time) (pkts []*protocol.Packet, ok bool) {
	if ackNum <= s.windowStart {
		return nil, false
	}

	ceiling := ackNum + s.params.WindowSize
	if s.eofOffset >= 0 && s.eofOffset < ceiling {
		ceiling = s.eofOffset
	}

	s.lastProgress = now
	pkts = s.fragments(s.windowStart+s.params.WindowSize, ceiling)
	s.windowStart = ackNum
	return pkts, true
}

// Expired reports whether no progress has been observed for a full
// timeout interval.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.lastProgress) > s.params.Timeout
}

// Deadline is the instant after which Expired becomes true.
func (s *Session) Deadline() time.Time {
	return s.lastProgress.Add(s.params.Timeout + time.Millisecond)
}

// Retransmit resends the whole outstanding window and restarts the
// progress timer. Once the final fragment is known the window ends at the
// object length; after everything is acknowledged nothing is resent.
func (s *Session) Retransmit(now time.Time) []*protocol.Packet {
	s.lastProgress = now

	stop := s.windowStart + s.params.WindowSize
	if s.eofOffset >= 0 {
		stop = s.eofOffset
	}
	if len(s.object) == 0 {
		// The lone empty EOF fragment can never be acknowledged past.
		stop = 1
	}
	return s.fragments(s.windowStart, stop)
}

// fragments cuts the object into fragments whose start offsets lie in
// [from, stop), stepping by the fragment size. A fragment never crosses
// stop; the one reaching the object end is marked EOF_DATA, but only when
// the object end itself lies within stop.
func (s *Session) fragments(from, stop int) []*protocol.Packet {
	var pkts []*protocol.Packet
	length := len(s.object)

	for off := from; off < stop && off <= length; off += s.params.FragmentSize {
		end := off + s.params.FragmentSize
		if end >= length && length <= stop {
			s.eofOffset = length
			pkts = append(pkts, protocol.NewData(int32(off), s.object[off:length], true))
			break
		}
		if end > stop {
			end = stop
		}
		pkts = append(pkts, protocol.NewData(int32(off), s.object[off:end], false))
	}
	return pkts
}
