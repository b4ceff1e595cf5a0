package receiver

import (
	"bytes"
	"math"
)

// Reassembler accumulates fragments strictly in offset order. It is owned
// by the receive loop and needs no locking.
type Reassembler struct {
	expected int32
	buf      bytes.Buffer
}

// NewReassembler creates a reassembler expecting offset 0.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed appends payload if it starts exactly at the expected offset and
// reports whether it did. Gaps, reorders and duplicates change nothing;
// there is no out-of-order buffering.
func (r *Reassembler) Feed(offset int32, payload []byte) bool {
	if offset != r.expected {
		return false
	}
	if int64(r.expected)+int64(len(payload)) > math.MaxInt32 {
		return false
	}
	r.buf.Write(payload)
	r.expected += int32(len(payload))
	return true
}

// Expected returns the next byte offset required for in-order acceptance.
func (r *Reassembler) Expected() int32 { return r.expected }

// Bytes returns the reassembled prefix. The slice aliases internal storage
// and is only valid until the next Feed.
func (r *Reassembler) Bytes() []byte { return r.buf.Bytes() }
