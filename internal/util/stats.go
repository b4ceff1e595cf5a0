package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide transfer counter.
var Stats = &stats{}

type stats struct {
	DatagramsSent atomic.Int64 // datagrams handed to the transport
	DatagramsRecv atomic.Int64 // datagrams read from the transport
	BytesSent     atomic.Int64 // encoded bytes handed to the transport
	BytesRecv     atomic.Int64 // encoded bytes read from the transport
	Retransmits   atomic.Int64 // messages re-sent after a timeout
	CorruptDrops  atomic.Int64 // datagrams dropped for a bad digest or framing
	OutOfOrder    atomic.Int64 // fragments dropped for not matching the expected offset
	Sessions      atomic.Int64 // sender sessions opened
	Completed     atomic.Int64 // transfers that finished the EOF handshake
}

func (s *stats) AddSent(n int)       { s.DatagramsSent.Add(1); s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int)       { s.DatagramsRecv.Add(1); s.BytesRecv.Add(int64(n)) }
func (s *stats) AddRetransmit(n int) { s.Retransmits.Add(int64(n)) }
func (s *stats) AddCorrupt()         { s.CorruptDrops.Add(1) }
func (s *stats) AddOutOfOrder()      { s.OutOfOrder.Add(1) }
func (s *stats) AddSession()         { s.Sessions.Add(1) }
func (s *stats) AddCompleted()       { s.Completed.Add(1) }

// Summary renders the cumulative counters in one line.
func (s *stats) Summary() string {
	return fmt.Sprintf("sent %d pkts (%s) | recv %d pkts (%s) | retx %d | corrupt %d | out-of-order %d",
		s.DatagramsSent.Load(),
		formatBytes(float64(s.BytesSent.Load())),
		s.DatagramsRecv.Load(),
		formatBytes(float64(s.BytesRecv.Load())),
		s.Retransmits.Load(),
		s.CorruptDrops.Load(),
		s.OutOfOrder.Load(),
	)
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs transfer statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv, prevRetx int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()
				retx := Stats.Retransmits.Load()

				outS := float64(sent-prevSent) / 10.0
				inS := float64(recv-prevRecv) / 10.0
				retxC := retx - prevRetx

				if retxC > 0 || inS > 10 || outS > 10 {
					pterm.DefaultLogger.Info(formatStats(inS, outS, retxC))
				}

				prevSent = sent
				prevRecv = recv
				prevRetx = retx

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current rates for display in the logger.
func formatStats(inS, outS float64, retx int64) string {
	return fmt.Sprintf("In: %s/s | Out: %s/s | Retx: %3d",
		formatBytes(inS),
		formatBytes(outS),
		retx,
	)
}
