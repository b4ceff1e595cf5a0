package signaling

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T, pin string) (*server, int) {
	t.Helper()
	srv := newServer(pin)
	port, err := srv.start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.close)
	return srv, port
}

func wsURL(port int, pin string) string {
	return fmt.Sprintf("ws://127.0.0.1:%d/ws?pin=%s", port, pin)
}

func TestServerRejectsBadPIN(t *testing.T) {
	_, port := startTestServer(t, "1234")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pin := range []string{"", "0000", "12345"} {
		if conn, err := connect(ctx, wsURL(port, pin)); err == nil {
			conn.Close()
			t.Errorf("connection with PIN %q accepted", pin)
		}
	}
}

func TestServerAcceptsOnePeer(t *testing.T) {
	srv, port := startTestServer(t, "4321")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := connect(ctx, wsURL(port, "4321"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer first.Close()

	accepted, err := srv.waitForClient(ctx)
	if err != nil {
		t.Fatalf("waitForClient: %v", err)
	}
	defer accepted.Close()

	// The link carries signaling frames in both directions.
	if err := first.WriteJSON(message{Type: msgTypeOffer, SDP: "v=0"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got message
	if err := accepted.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Type != msgTypeOffer || got.SDP != "v=0" {
		t.Errorf("received %+v", got)
	}

	second, err := connect(ctx, wsURL(port, "4321"))
	if err != nil {
		t.Fatalf("second connect: %v", err)
	}
	defer second.Close()
	second.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := second.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Errorf("second peer got %v, want a policy-violation close", err)
	}
}

func TestWaitForClientCancelled(t *testing.T) {
	srv, _ := startTestServer(t, "0000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := srv.waitForClient(ctx); err != context.Canceled {
		t.Errorf("waitForClient = %v, want context.Canceled", err)
	}
}

func TestGeneratePIN(t *testing.T) {
	for i := 0; i < 20; i++ {
		pin := generatePIN(pinLength)
		if len(pin) != pinLength {
			t.Fatalf("PIN %q has length %d", pin, len(pin))
		}
		for _, c := range pin {
			if c < '0' || c > '9' {
				t.Fatalf("PIN %q contains non-digit %q", pin, c)
			}
		}
	}
}
