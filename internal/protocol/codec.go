package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Delim separates the three decimal header fields.
const Delim = ','

// MaxHeaderSize is the longest possible rendered header: three signed
// 32-bit decimals plus their delimiters.
const MaxHeaderSize = 3 * (len("-2147483648") + 1)

// MaxDatagramSize is the largest datagram either role reads or writes.
const MaxDatagramSize = 65507

// MaxPayloadSize bounds the payload so an encoded packet fits a datagram.
const MaxPayloadSize = MaxDatagramSize - MaxHeaderSize

// ErrMalformed is returned by Decode for datagrams that do not frame.
var ErrMalformed = errors.New("malformed packet")

// Encode renders SeqNum, AckNum and Checksum as delimited decimal text
// followed by the raw payload. There is no length prefix: the payload is
// everything after the third delimiter.
func Encode(pkt *Packet) []byte {
	buf := make([]byte, 0, MaxHeaderSize+len(pkt.Payload))
	buf = strconv.AppendInt(buf, int64(pkt.SeqNum), 10)
	buf = append(buf, Delim)
	buf = strconv.AppendInt(buf, int64(pkt.AckNum), 10)
	buf = append(buf, Delim)
	buf = strconv.AppendInt(buf, int64(pkt.Checksum), 10)
	buf = append(buf, Delim)
	return append(buf, pkt.Payload...)
}

// Decode splits the three header fields off data and copies the remaining
// bytes into the payload. Payload bytes equal to Delim are fine since the
// scan stops after the third delimiter.
func Decode(data []byte) (*Packet, error) {
	var fields [3]int32
	rest := data
	for i := range fields {
		idx := bytes.IndexByte(rest, Delim)
		if idx < 0 {
			return nil, fmt.Errorf("%w: missing header field %d", ErrMalformed, i+1)
		}
		n, err := strconv.ParseInt(string(rest[:idx]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: header field %d: %v", ErrMalformed, i+1, err)
		}
		fields[i] = int32(n)
		rest = rest[idx+1:]
	}

	pkt := &Packet{
		SeqNum:   fields[0],
		AckNum:   fields[1],
		Checksum: fields[2],
		Payload:  make([]byte, len(rest)),
	}
	copy(pkt.Payload, rest)
	return pkt, nil
}
