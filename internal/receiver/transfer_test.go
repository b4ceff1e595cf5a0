package receiver_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1ureka/rdt/internal/faults"
	"github.com/1ureka/rdt/internal/protocol"
	"github.com/1ureka/rdt/internal/receiver"
	"github.com/1ureka/rdt/internal/sender"
	"github.com/1ureka/rdt/internal/storage"
	"github.com/1ureka/rdt/internal/transport"
)

type objects map[string][]byte

func (o objects) Load(name string) ([]byte, error) {
	if data, ok := o[name]; ok {
		return data, nil
	}
	return nil, storage.ErrNotFound
}

type captureSink struct{ data []byte }

func (s *captureSink) Persist(data []byte) error {
	s.data = append([]byte(nil), data...)
	return nil
}

func makeObject(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*31 + i/7)
	}
	return data
}

// runTransfer serves objs on one end of a pipe and fetches path on the
// other, with both ends wrapped by the given fault configuration.
func runTransfer(t *testing.T, objs objects, path string, params protocol.Params, fc faults.Config) (*captureSink, error) {
	t.Helper()
	a, b := transport.Pipe()
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv := sender.NewServer(faults.Wrap(a, fc), objs, sender.Options{Params: params})
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx) }()

	sink := &captureSink{}
	fc.Seed++
	rcv := receiver.New(faults.Wrap(b, fc), b.RemoteAddr(), path, sink, params)
	err := rcv.Fetch(ctx)

	cancel()
	a.Close()
	if serr := <-serveErr; !errors.Is(serr, context.Canceled) && !errors.Is(serr, context.DeadlineExceeded) {
		t.Errorf("Serve returned %v", serr)
	}
	return sink, err
}

func TestTransferOverPipe(t *testing.T) {
	fast := protocol.Params{FragmentSize: 1000, WindowSize: 4000, Timeout: 20 * time.Millisecond}

	tests := []struct {
		name   string
		size   int
		params protocol.Params
		faults faults.Config
	}{
		{"empty", 0, fast, faults.Config{}},
		{"single fragment", 10, fast, faults.Config{}},
		{"exact multiple", 4000, fast, faults.Config{}},
		{"reference window", 7777, protocol.Params{FragmentSize: 1000, WindowSize: 1453, Timeout: 20 * time.Millisecond}, faults.Config{}},
		{"lossy", 20000, fast, faults.Config{LossProb: 0.2, Seed: 11}},
		{"corrupting", 20000, fast, faults.Config{CorruptProb: 0.2, Seed: 23}},
		{"lossy both ways", 15000, fast, faults.Config{LossProb: 0.15, CorruptProb: 0.1, Seed: 5, OnSend: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			object := makeObject(tt.size)
			sink, err := runTransfer(t, objects{"data.bin": object}, "data.bin", tt.params, tt.faults)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if !bytes.Equal(sink.data, object) {
				t.Fatalf("received %d bytes, want %d identical bytes", len(sink.data), len(object))
			}
		})
	}
}

func TestTransferNotFound(t *testing.T) {
	params := protocol.Params{FragmentSize: 1000, WindowSize: 2000, Timeout: 20 * time.Millisecond}
	sink, err := runTransfer(t, objects{}, "missing.bin", params, faults.Config{})
	if !errors.Is(err, receiver.ErrNotFound) {
		t.Fatalf("Fetch = %v, want ErrNotFound", err)
	}
	if sink.data != nil {
		t.Error("sink written for a missing object")
	}
}

func TestTransferNulTerminatedRequest(t *testing.T) {
	params := protocol.Params{FragmentSize: 100, WindowSize: 300, Timeout: 20 * time.Millisecond}
	object := makeObject(1234)
	sink, err := runTransfer(t, objects{"c-peer": object}, "c-peer\x00", params, faults.Config{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(sink.data, object) {
		t.Errorf("received %d bytes, want %d", len(sink.data), len(object))
	}
}
