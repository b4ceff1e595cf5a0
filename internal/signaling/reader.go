package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rdt/internal/transport"
)

// reader applies incoming signaling frames to the DataChannelConn. An
// offer is answered through the paired writer.
type reader struct {
	conn *transport.DataChannelConn
	ws   *websocket.Conn
	w    *writer
}

// watch runs until the WebSocket is closed or a frame cannot be applied.
func (r *reader) watch() error {
	for {
		var msg message
		if err := r.ws.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read signaling message: %w", err)
		}

		switch msg.Type {
		case msgTypeOffer:
			if err := r.conn.SetRemoteDescription(webrtc.SessionDescription{
				Type: webrtc.SDPTypeOffer, SDP: msg.SDP,
			}); err != nil {
				return fmt.Errorf("failed to apply offer: %w", err)
			}
			if err := r.w.sendAnswer(); err != nil {
				return fmt.Errorf("failed to send answer: %w", err)
			}

		case msgTypeAnswer:
			if err := r.conn.SetRemoteDescription(webrtc.SessionDescription{
				Type: webrtc.SDPTypeAnswer, SDP: msg.SDP,
			}); err != nil {
				return fmt.Errorf("failed to apply answer: %w", err)
			}

		case msgTypeCandidate:
			var init webrtc.ICECandidateInit
			if err := json.Unmarshal([]byte(msg.Candidate), &init); err != nil {
				return fmt.Errorf("failed to parse ICE candidate: %w", err)
			}
			if err := r.conn.AddICECandidate(init); err != nil {
				return fmt.Errorf("failed to add ICE candidate: %w", err)
			}
		}
	}
}
