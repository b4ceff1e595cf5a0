package signaling

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rdt/internal/transport"
)

// writer serializes outgoing signaling frames; gorilla connections allow
// only one concurrent writer.
type writer struct {
	conn *transport.DataChannelConn
	ws   *websocket.Conn
	mu   sync.Mutex
}

func (w *writer) send(msg message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ws.WriteJSON(msg)
}

// sendOffer creates the local offer, applies it and sends it.
func (w *writer) sendOffer() error {
	offer, err := w.conn.CreateOffer()
	if err != nil {
		return err
	}
	if err := w.conn.SetLocalDescription(offer); err != nil {
		return err
	}
	return w.send(message{Type: msgTypeOffer, SDP: offer.SDP})
}

// sendAnswer creates the local answer, applies it and sends it.
func (w *writer) sendAnswer() error {
	answer, err := w.conn.CreateAnswer()
	if err != nil {
		return err
	}
	if err := w.conn.SetLocalDescription(answer); err != nil {
		return err
	}
	return w.send(message{Type: msgTypeAnswer, SDP: answer.SDP})
}

func (w *writer) sendCandidate(c *webrtc.ICECandidate) error {
	data, err := json.Marshal(c.ToJSON())
	if err != nil {
		return err
	}
	return w.send(message{Type: msgTypeCandidate, Candidate: string(data)})
}
