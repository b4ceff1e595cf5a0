// Package protocol defines the packet format and types for the reliable
// transfer protocol.
package protocol

import (
	"fmt"
	"time"
)

// Control sentinels carried in the AckNum field. Any non-negative AckNum is
// a cumulative ACK naming the next expected byte offset.
const (
	AckData     int32 = -1
	AckEOFData  int32 = -2
	AckEOFAck   int32 = -3
	AckRequest  int32 = -4
	AckNotFound int32 = -5
)

// SeqUnused fills the SeqNum field of control messages.
const SeqUnused int32 = -1

// Kind classifies a packet by its AckNum sentinel.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindRequest
	KindNotFound
	KindData
	KindEOFData
	KindEOFAck
	KindAck
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "REQUEST"
	case KindNotFound:
		return "NOT_FOUND"
	case KindData:
		return "DATA"
	case KindEOFData:
		return "EOF_DATA"
	case KindEOFAck:
		return "EOF_ACK"
	case KindAck:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

// Packet is the wire unit. Checksum is filled by the constructors and is
// carried verbatim by Encode and Decode.
type Packet struct {
	SeqNum   int32  // byte offset of the first payload byte (fragments only)
	AckNum   int32  // next expected offset, or a control sentinel
	Checksum int32  // Digest(SeqNum, AckNum, Payload) at construction time
	Payload  []byte // fragment bytes, or the requested path
}

// newPacket builds a packet and stamps its digest.
func newPacket(seq, ack int32, payload []byte) *Packet {
	return &Packet{
		SeqNum:   seq,
		AckNum:   ack,
		Checksum: Digest(seq, ack, payload),
		Payload:  payload,
	}
}

// NewData creates a DATA fragment, or an EOF_DATA fragment when eof is set.
func NewData(offset int32, payload []byte, eof bool) *Packet {
	ack := AckData
	if eof {
		ack = AckEOFData
	}
	return newPacket(offset, ack, payload)
}

// NewAck creates a cumulative ACK naming the next expected byte offset.
func NewAck(next int32) *Packet {
	return newPacket(SeqUnused, next, nil)
}

// NewRequest creates a REQUEST for the object at path.
func NewRequest(path string) *Packet {
	return newPacket(SeqUnused, AckRequest, []byte(path))
}

// NotFound creates a NOT_FOUND reply.
func NotFound() *Packet {
	return newPacket(SeqUnused, AckNotFound, nil)
}

// EOFAck creates an EOF_ACK handshake message.
func EOFAck() *Packet {
	return newPacket(SeqUnused, AckEOFAck, nil)
}

// Kind reports the packet type encoded in AckNum.
func (p *Packet) Kind() Kind {
	switch {
	case p.AckNum >= 0:
		return KindAck
	case p.AckNum == AckData:
		return KindData
	case p.AckNum == AckEOFData:
		return KindEOFData
	case p.AckNum == AckEOFAck:
		return KindEOFAck
	case p.AckNum == AckRequest:
		return KindRequest
	case p.AckNum == AckNotFound:
		return KindNotFound
	default:
		return KindUnknown
	}
}

// IsFragment reports whether p carries a slice of the object.
func (p *Packet) IsFragment() bool {
	k := p.Kind()
	return k == KindData || k == KindEOFData
}

// IsCorrupt recomputes the digest and compares it with the carried one.
func (p *Packet) IsCorrupt() bool {
	return Digest(p.SeqNum, p.AckNum, p.Payload) != p.Checksum
}

// Path returns the object path named by a REQUEST. A trailing NUL, as sent
// by C peers, is stripped.
func (p *Packet) Path() string {
	b := p.Payload
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}

func (p *Packet) String() string {
	switch p.Kind() {
	case KindData, KindEOFData:
		return fmt.Sprintf("%s seq=%d len=%d", p.Kind(), p.SeqNum, len(p.Payload))
	case KindAck:
		return fmt.Sprintf("ACK %d", p.AckNum)
	case KindRequest:
		return fmt.Sprintf("REQUEST %q", p.Path())
	default:
		return p.Kind().String()
	}
}

// Params are the fixed protocol tunables shared by both roles.
type Params struct {
	FragmentSize int           // maximum payload bytes per fragment
	WindowSize   int           // send window, in bytes
	Timeout      time.Duration // retransmission interval measured from last progress
}

// DefaultParams returns the tunables of the reference deployment.
func DefaultParams() Params {
	return Params{
		FragmentSize: 1000,
		WindowSize:   1453,
		Timeout:      175 * time.Millisecond,
	}
}

// Validate rejects non-positive tunables.
func (p Params) Validate() error {
	if p.FragmentSize <= 0 {
		return fmt.Errorf("fragment size must be positive, got %d", p.FragmentSize)
	}
	if p.FragmentSize > MaxPayloadSize {
		return fmt.Errorf("fragment size %d exceeds %d", p.FragmentSize, MaxPayloadSize)
	}
	if p.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", p.WindowSize)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", p.Timeout)
	}
	return nil
}
