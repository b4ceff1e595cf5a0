package protocol

import "testing"

func TestDigestDeterministic(t *testing.T) {
	payload := []byte("the quick brown fox")
	a := Digest(1000, AckData, payload)
	b := Digest(1000, AckData, append([]byte(nil), payload...))
	if a != b {
		t.Fatalf("digest not deterministic: %d vs %d", a, b)
	}
}

func TestDigestEmptyPayload(t *testing.T) {
	if got, want := Digest(5, 7, nil), int32(5^(7<<1)); got != want {
		t.Errorf("Digest with empty payload = %d, want %d", got, want)
	}
}

// TestDigestPadding checks that a short tail is padded with zeros, so a
// payload and the same payload followed by explicit zero padding agree.
func TestDigestPadding(t *testing.T) {
	short := []byte{1, 2, 3, 4, 5}
	padded := []byte{1, 2, 3, 4, 5, 0, 0, 0}
	if Digest(0, 0, short) != Digest(0, 0, padded) {
		t.Error("tail padding is not zero-filled")
	}
}

// TestDigestDetectsHeaderChanges mirrors the fault injector: bumping either
// header field by one must always change the digest.
func TestDigestDetectsHeaderChanges(t *testing.T) {
	payloads := [][]byte{nil, []byte("x"), make([]byte, 1000), []byte("abcdefgh,ijk")}
	for _, payload := range payloads {
		for _, seq := range []int32{-1, 0, 999, 1453, 1 << 20} {
			for _, ack := range []int32{AckNotFound, AckRequest, AckEOFAck, AckEOFData, AckData, 0, 2000} {
				pkt := newPacket(seq, ack, payload)

				pkt.SeqNum++
				if !pkt.IsCorrupt() {
					t.Fatalf("seq bump undetected: seq=%d ack=%d len=%d", seq, ack, len(payload))
				}
				pkt.SeqNum--

				pkt.AckNum++
				if !pkt.IsCorrupt() {
					t.Fatalf("ack bump undetected: seq=%d ack=%d len=%d", seq, ack, len(payload))
				}
			}
		}
	}
}

func TestDigestDetectsPayloadFlip(t *testing.T) {
	payload := []byte("0123456789abcdef")
	pkt := NewData(0, payload, false)
	pkt.Payload = append([]byte(nil), payload...)
	pkt.Payload[9] ^= 0x01
	if !pkt.IsCorrupt() {
		t.Error("payload bit flip undetected")
	}
}
