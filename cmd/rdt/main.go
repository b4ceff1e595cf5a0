// rdt transfers a whole file reliably over an unreliable datagram channel.
//
// One process serves files (rdt serve), the other fetches one (rdt fetch).
// The channel is plain UDP by default, or a WebRTC DataChannel configured
// for unordered, unretransmitted delivery with --transport webrtc. Run
// without a subcommand for interactive prompts.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/1ureka/rdt/cmd/rdt/cmd"
	"github.com/1ureka/rdt/internal/util"
)

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		util.LogError("%v", err)
		stop()
		os.Exit(1)
	}
}
