package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v4/packetio"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rdt/internal/util"
)

// highWaterMark is the SCTP send-buffer level above which outgoing
// datagrams are discarded instead of queued. The protocol's own
// retransmission recovers them.
const highWaterMark = 1024 * 1024

// dcAddr names the single peer at the far end of a DataChannel.
type dcAddr string

func (a dcAddr) Network() string { return "webrtc" }
func (a dcAddr) String() string  { return string(a) }

// DataChannelConn wraps a single PeerConnection + DataChannel pair as a
// net.PacketConn. It also exposes the signaling hooks needed to bring the
// channel up.
//
// Its lifecycle is governed by the DataChannel state and the context passed
// at construction time. The PeerConnection state is recorded but does not
// drive open/close decisions.
type DataChannelConn struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	in         *packetio.Buffer
	openSignal chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	pcState webrtc.PeerConnectionState
}

// NewDataChannelConn creates a DataChannelConn backed by a new
// PeerConnection and a pre-negotiated DataChannel. The caller performs
// signaling via the exposed methods (CreateOffer / CreateAnswer / …) and
// waits on Ready before exchanging datagrams.
func NewDataChannelConn(ctx context.Context) (*DataChannelConn, error) {
	pc, err := newPeerConnection()
	if err != nil {
		return nil, err
	}

	dc, err := newDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, err
	}

	cCtx, cCancel := context.WithCancel(ctx)

	c := &DataChannelConn{
		pc:         pc,
		dc:         dc,
		in:         packetio.NewBuffer(),
		openSignal: make(chan struct{}),
		ctx:        cCtx,
		cancel:     cCancel,
		pcState:    webrtc.PeerConnectionStateNew,
	}

	// DC open gate.
	var openOnce sync.Once
	dc.OnOpen(func() {
		openOnce.Do(func() { close(c.openSignal) })
	})

	// DC close → cancel context and unblock readers.
	dc.OnClose(func() {
		util.LogInfo("DataChannel closed")
		cCancel()
		c.in.Close()
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if _, err := c.in.Write(msg.Data); err != nil {
			util.LogDebug("DataChannel inbound datagram discarded: %v", err)
		}
	})

	// Record PC state (informational only).
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state.String())
		c.mu.Lock()
		c.pcState = state
		c.mu.Unlock()
	})

	return c, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Ready returns a channel that is closed when the DataChannel is open.
func (c *DataChannelConn) Ready() <-chan struct{} {
	return c.openSignal
}

// Done returns a channel that is closed when the conn is shut down
// (DataChannel closed or parent context cancelled).
func (c *DataChannelConn) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close shuts down the DataChannel and PeerConnection.
func (c *DataChannelConn) Close() error {
	c.cancel()
	return errors.Join(c.in.Close(), c.dc.Close(), c.pc.Close())
}

// ConnectionState returns the last observed PeerConnection state.
func (c *DataChannelConn) ConnectionState() webrtc.PeerConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pcState
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an SDP offer.
func (c *DataChannelConn) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (c *DataChannelConn) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP.
func (c *DataChannelConn) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(sdp)
}

// SetRemoteDescription applies the remote SDP.
func (c *DataChannelConn) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(sdp)
}

// OnICECandidate registers a callback invoked whenever a new local ICE
// candidate is gathered. A nil candidate signals the end of gathering.
func (c *DataChannelConn) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	c.pc.OnICECandidate(fn)
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (c *DataChannelConn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

// ---------------------------------------------------------------------------
// net.PacketConn
// ---------------------------------------------------------------------------

// PeerAddr is the address every inbound datagram reports as its source.
func (c *DataChannelConn) PeerAddr() net.Addr {
	return dcAddr("peer/" + c.dc.Label())
}

// ReadFrom blocks until a datagram arrives, the read deadline passes or the
// channel closes.
func (c *DataChannelConn) ReadFrom(b []byte) (int, net.Addr, error) {
	n, err := c.in.Read(b)
	if err != nil {
		if c.ctx.Err() != nil {
			return 0, nil, net.ErrClosed
		}
		return 0, nil, err
	}
	return n, c.PeerAddr(), nil
}

// WriteTo sends b on the DataChannel; the address is ignored. While the
// SCTP buffer is above the high-water mark the datagram is discarded.
func (c *DataChannelConn) WriteTo(b []byte, _ net.Addr) (int, error) {
	if c.dc.BufferedAmount() > uint64(highWaterMark) {
		util.LogDebug("DataChannel congested, discarding %d bytes", len(b))
		return len(b), nil
	}
	if err := c.dc.Send(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *DataChannelConn) LocalAddr() net.Addr                { return dcAddr("local/" + c.dc.Label()) }
func (c *DataChannelConn) SetDeadline(t time.Time) error      { return c.in.SetReadDeadline(t) }
func (c *DataChannelConn) SetReadDeadline(t time.Time) error  { return c.in.SetReadDeadline(t) }
func (c *DataChannelConn) SetWriteDeadline(t time.Time) error { return nil }
