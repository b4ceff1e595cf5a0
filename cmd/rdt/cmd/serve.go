package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/1ureka/rdt/internal/app"
	"github.com/1ureka/rdt/internal/config"
)

var (
	serveRoot        string
	serveMaxSessions int
	serveWSPort      int
	serveWSListen    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [port]",
	Short: "Serve files to fetching peers",
	Long: `Serve answers REQUESTs for files. With the udp transport it listens on
the given port; with webrtc it prints a signaling port and PIN and waits for
one peer.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveRoot, "root", "r", "", "Directory requests are confined to (default: paths are opened as given)")
	serveCmd.Flags().IntVar(&serveMaxSessions, "max-sessions", 1, "Concurrent transfers; further peers are ignored")
	serveCmd.Flags().IntVar(&serveWSPort, "ws-port", 0, "Signaling server port (webrtc)")
	serveCmd.Flags().BoolVar(&serveWSListen, "ws-listen", false, "Signaling server listens on all interfaces (webrtc)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := baseConfig(config.RoleSender)
	cfg.Root = serveRoot
	cfg.MaxSessions = serveMaxSessions
	cfg.WSAddr = wsListenAddr(serveWSPort, serveWSListen)

	if len(args) == 1 {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: port %q is not a number", config.ErrInvalid, args[0])
		}
		cfg.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return app.RunSender(cmd.Context(), cfg)
}

// wsListenAddr picks the signaling listen address. An explicit port binds
// loopback only, unless listen is set; no port at all picks a random one.
func wsListenAddr(port int, listen bool) string {
	switch {
	case listen:
		return fmt.Sprintf(":%d", port)
	case port > 0:
		return fmt.Sprintf("127.0.0.1:%d", port)
	default:
		return ":0"
	}
}
