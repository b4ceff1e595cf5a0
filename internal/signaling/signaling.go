// Package signaling brings up a WebRTC DataChannel transport by exchanging
// SDP and ICE candidates over a short-lived WebSocket. The serving side
// runs a PIN-protected WebSocket server; the fetching side dials it.
package signaling

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/pterm/pterm"

	"github.com/1ureka/rdt/internal/transport"
	"github.com/1ureka/rdt/internal/util"
)

// EstablishAsHost runs the serving side of signaling:
//  1. Start a WS server on wsAddr with a fresh PIN and print how to reach it
//  2. Wait for the peer to connect
//  3. Send the offer and apply the answer and ICE candidates
//  4. Return once the DataChannel is open; the WS is closed on return
func EstablishAsHost(ctx context.Context, wsAddr string) (*transport.DataChannelConn, error) {
	pin := generatePIN(pinLength)
	srv := newServer(pin)
	port, err := srv.start(wsAddr)
	if err != nil {
		return nil, err
	}
	defer srv.close()

	pterm.DefaultBox.WithTitle("Signaling").Println(
		fmt.Sprintf("Port : %d\nPIN  : %s\nURL  : ws://<host>:%d/ws?pin=%s", port, pin, port, pin))
	util.LogInfo("waiting for the fetching peer to connect")

	ws, err := srv.waitForClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for peer: %w", err)
	}
	defer ws.Close()

	return exchange(ctx, ws, true)
}

// EstablishAsClient runs the fetching side of signaling against wsURL and
// returns once the DataChannel is open.
func EstablishAsClient(ctx context.Context, wsURL string) (*transport.DataChannelConn, error) {
	util.LogInfo("connecting to signaling server %s", wsURL)
	ws, err := connect(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	return exchange(ctx, ws, false)
}

// exchange creates the DataChannelConn and trades descriptions over ws
// until the channel opens. The offering side sends first.
func exchange(ctx context.Context, ws *websocket.Conn, offer bool) (*transport.DataChannelConn, error) {
	conn, err := transport.NewDataChannelConn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create DataChannel transport: %w", err)
	}

	w := &writer{conn: conn, ws: ws}
	r := &reader{conn: conn, ws: ws, w: w}

	conn.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		if err := w.sendCandidate(c); err != nil {
			util.LogDebug("failed to send ICE candidate: %v", err)
		}
	})

	// The reader exits when ws is closed by the caller's defer.
	errCh := make(chan error, 1)
	go func() { errCh <- r.watch() }()

	if offer {
		if err := w.sendOffer(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to send offer: %w", err)
		}
	}

	select {
	case <-conn.Ready():
		util.LogSuccess("DataChannel open, closing signaling connection")
		return conn, nil

	case err := <-errCh:
		conn.Close()
		return nil, fmt.Errorf("signaling failed: %w", err)

	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	}
}
