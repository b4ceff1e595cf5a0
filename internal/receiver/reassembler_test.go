package receiver

import (
	"bytes"
	"testing"
)

func TestReassemblerInOrder(t *testing.T) {
	r := NewReassembler()

	steps := []struct {
		offset   int32
		payload  string
		accepted bool
		expected int32
	}{
		{0, "hello ", true, 6},
		{6, "world", true, 11},
		{11, "", true, 11},
		{11, "!", true, 12},
	}
	for i, s := range steps {
		if got := r.Feed(s.offset, []byte(s.payload)); got != s.accepted {
			t.Fatalf("step %d: Feed(%d) = %v, want %v", i, s.offset, got, s.accepted)
		}
		if r.Expected() != s.expected {
			t.Fatalf("step %d: Expected = %d, want %d", i, r.Expected(), s.expected)
		}
	}
	if got := string(r.Bytes()); got != "hello world!" {
		t.Errorf("Bytes = %q", got)
	}
}

func TestReassemblerRejectsGapsAndDuplicates(t *testing.T) {
	r := NewReassembler()
	r.Feed(0, []byte("abcd"))

	for _, off := range []int32{8, 2, 0, -1} {
		if r.Feed(off, []byte("zzzz")) {
			t.Errorf("fragment at %d accepted with expected offset 4", off)
		}
	}
	if r.Expected() != 4 || !bytes.Equal(r.Bytes(), []byte("abcd")) {
		t.Errorf("state changed by rejected fragments: expected %d, bytes %q", r.Expected(), r.Bytes())
	}
}

// TestReassemblerIdempotent replays every fragment twice, in both orders,
// and checks the result is the same as a clean run.
func TestReassemblerIdempotent(t *testing.T) {
	object := bytes.Repeat([]byte("0123456789"), 250)
	r := NewReassembler()

	var prev int32
	for off := 0; off < len(object); off += 1000 {
		end := min(off+1000, len(object))
		frag := object[off:end]

		r.Feed(int32(off), frag)
		r.Feed(int32(off), frag)
		if off >= 1000 {
			r.Feed(int32(off-1000), object[off-1000:off])
		}

		if r.Expected() < prev {
			t.Fatalf("expected offset decreased from %d to %d", prev, r.Expected())
		}
		prev = r.Expected()
	}
	if !bytes.Equal(r.Bytes(), object) {
		t.Error("replayed fragments corrupted the reassembled object")
	}
}
