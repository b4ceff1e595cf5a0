package transport

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

func TestPipeDeliversDatagrams(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	msgs := [][]byte{[]byte("first"), {}, []byte("third,with,commas")}
	for _, m := range msgs {
		if _, err := a.WriteTo(m, b.LocalAddr()); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
	}

	buf := make([]byte, 1024)
	for i, want := range msgs {
		b.SetReadDeadline(time.Now().Add(time.Second))
		n, from, err := b.ReadFrom(buf)
		if err != nil {
			t.Fatalf("ReadFrom %d: %v", i, err)
		}
		if !bytes.Equal(buf[:n], want) {
			t.Errorf("datagram %d = %q, want %q", i, buf[:n], want)
		}
		if !SameAddr(from, a.LocalAddr()) {
			t.Errorf("datagram %d from %v, want %v", i, from, a.LocalAddr())
		}
	}
}

func TestPipeReadDeadline(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	b.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
	_, _, err := b.ReadFrom(make([]byte, 16))
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestPipeClose(t *testing.T) {
	a, b := Pipe()
	defer a.Close()

	b.Close()
	if _, _, err := b.ReadFrom(make([]byte, 16)); !errors.Is(err, net.ErrClosed) {
		t.Fatalf("expected net.ErrClosed, got %v", err)
	}
	// Writes towards a closed end vanish silently.
	if _, err := a.WriteTo([]byte("late"), b.LocalAddr()); err != nil {
		t.Fatalf("WriteTo closed peer: %v", err)
	}
}

func TestUDPReadTimeout(t *testing.T) {
	conn, err := ListenUDP(0)
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	_, _, err = conn.ReadFrom(make([]byte, 16))
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if IsTimeout(errors.New("boom")) {
		t.Error("plain error classified as timeout")
	}
}

func TestSameAddr(t *testing.T) {
	v4 := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
	v4raw := &net.UDPAddr{IP: net.IP{127, 0, 0, 1}, Port: 9000}
	other := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9001}

	if !SameAddr(v4, v4raw) {
		t.Error("IPv4 forms of one address differ")
	}
	if SameAddr(v4, other) {
		t.Error("different ports compare equal")
	}
	if AddrKey(v4) != AddrKey(v4raw) {
		t.Errorf("AddrKey mismatch: %q vs %q", AddrKey(v4), AddrKey(v4raw))
	}
	if SameAddr(v4, pipeAddr("pipe-a")) {
		t.Error("UDP and pipe addresses compare equal")
	}
}

func TestResolvePeer(t *testing.T) {
	addr, err := ResolvePeer("127.0.0.1", 4000)
	if err != nil {
		t.Fatalf("ResolvePeer: %v", err)
	}
	if addr.Port != 4000 || !addr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("ResolvePeer = %v", addr)
	}
}
