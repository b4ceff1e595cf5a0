// Package faults simulates an unreliable channel by dropping or corrupting
// datagrams on their way through a net.PacketConn. It is a test and
// demonstration collaborator; production transfers run without it.
package faults

import (
	"fmt"
	"math/rand/v2"
	"net"
	"sync"

	"github.com/1ureka/rdt/internal/protocol"
	"github.com/1ureka/rdt/internal/util"
)

// Config holds independent per-datagram fault probabilities.
type Config struct {
	LossProb    float64 // probability that a datagram is discarded
	CorruptProb float64 // probability that one header field is altered
	Seed        uint64  // 0 picks a random seed
	OnSend      bool    // also apply faults to outgoing datagrams
}

// Enabled reports whether any fault would ever fire.
func (c Config) Enabled() bool {
	return c.LossProb > 0 || c.CorruptProb > 0
}

// Validate rejects probabilities outside [0, 1].
func (c Config) Validate() error {
	if c.LossProb < 0 || c.LossProb > 1 {
		return fmt.Errorf("loss probability %v outside [0,1]", c.LossProb)
	}
	if c.CorruptProb < 0 || c.CorruptProb > 1 {
		return fmt.Errorf("corrupt probability %v outside [0,1]", c.CorruptProb)
	}
	return nil
}

// Conn wraps a net.PacketConn and injects faults on receive (and on send
// when Config.OnSend is set).
type Conn struct {
	net.PacketConn
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// Wrap returns conn unchanged when cfg injects nothing, otherwise a Conn.
func Wrap(conn net.PacketConn, cfg Config) net.PacketConn {
	if !cfg.Enabled() {
		return conn
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Conn{
		PacketConn: conn,
		cfg:        cfg,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// ReadFrom reads the next datagram that survives loss injection, possibly
// corrupted in place.
func (c *Conn) ReadFrom(b []byte) (int, net.Addr, error) {
	for {
		n, addr, err := c.PacketConn.ReadFrom(b)
		if err != nil {
			return n, addr, err
		}

		drop, corrupt := c.roll()
		if drop {
			util.LogDebug("fault: dropped inbound datagram from %s", addr)
			continue
		}
		if corrupt {
			mutated := c.corrupt(b[:n])
			if mutated == nil || len(mutated) > len(b) {
				util.LogDebug("fault: dropped unframeable inbound datagram from %s", addr)
				continue
			}
			n = copy(b, mutated)
			util.LogDebug("fault: corrupted inbound datagram from %s", addr)
		}
		return n, addr, nil
	}
}

// WriteTo writes b unless the send-side roll discards it. A discarded
// datagram still reports success, as a lossy network would.
func (c *Conn) WriteTo(b []byte, addr net.Addr) (int, error) {
	if !c.cfg.OnSend {
		return c.PacketConn.WriteTo(b, addr)
	}

	drop, corrupt := c.roll()
	if drop {
		util.LogDebug("fault: dropped outbound datagram to %s", addr)
		return len(b), nil
	}
	if corrupt {
		if mutated := c.corrupt(b); mutated != nil {
			if _, err := c.PacketConn.WriteTo(mutated, addr); err != nil {
				return 0, err
			}
			return len(b), nil
		}
	}
	return c.PacketConn.WriteTo(b, addr)
}

func (c *Conn) roll() (drop, corrupt bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	drop = c.rng.Float64() < c.cfg.LossProb
	corrupt = c.rng.Float64() < c.cfg.CorruptProb
	return drop, corrupt
}

func (c *Conn) corrupt(datagram []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Corrupt(datagram, c.rng)
}

// Corrupt returns a re-encoded copy of datagram with SeqNum or AckNum
// bumped by one while the original checksum is kept, so the receiver's
// digest check fails. It returns nil for datagrams that do not decode.
func Corrupt(datagram []byte, rng *rand.Rand) []byte {
	pkt, err := protocol.Decode(datagram)
	if err != nil {
		return nil
	}
	if rng.IntN(2) == 0 {
		pkt.SeqNum++
	} else {
		pkt.AckNum++
	}
	return protocol.Encode(pkt)
}
