package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1ureka/rdt/internal/app"
	"github.com/1ureka/rdt/internal/config"
)

var (
	fetchPath      string
	fetchLocalPort int
	fetchWSURL     string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <host> <port> <dest> | fetch --transport webrtc --ws-url URL <dest>",
	Short: "Fetch one file from a serving peer",
	Long: `Fetch requests a file and writes it to dest, overwriting it. The
requested path defaults to dest, so 'rdt fetch host 9000 notes.txt' asks for
notes.txt and saves it under the same name.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchPath, "path", "p", "", "Path to request from the sender (default: dest)")
	fetchCmd.Flags().IntVar(&fetchLocalPort, "local-port", 0, "Local UDP port (default: ephemeral)")
	fetchCmd.Flags().StringVar(&fetchWSURL, "ws-url", "", "Signaling URL including the PIN (webrtc)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := baseConfig(config.RoleReceiver)
	cfg.RemotePath = fetchPath
	cfg.LocalPort = fetchLocalPort

	switch cfg.Transport {
	case config.TransportWebRTC:
		if len(args) != 1 {
			return fmt.Errorf("%w: webrtc fetch takes exactly one argument <dest>", config.ErrInvalid)
		}
		cfg.Dest = args[0]
		wsURL, err := normalizeWSURL(fetchWSURL)
		if err != nil {
			return fmt.Errorf("%w: %w", config.ErrInvalid, err)
		}
		cfg.WSURL = wsURL

	default:
		if len(args) != 3 {
			return fmt.Errorf("%w: udp fetch takes <host> <port> <dest>", config.ErrInvalid)
		}
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: port %q is not a number", config.ErrInvalid, args[1])
		}
		cfg.Host, cfg.PeerPort, cfg.Dest = args[0], port, args[2]
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return app.RunReceiver(cmd.Context(), cfg)
}

// normalizeWSURL validates a signaling URL and rewrites it to the /ws
// endpoint, keeping the pin parameter.
func normalizeWSURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %q", raw)
	}
	pin := u.Query().Get("pin")
	if pin == "" {
		return "", fmt.Errorf("WebSocket URL %q has no pin parameter", raw)
	}
	scheme := "wss"
	if u.Scheme == "ws" || u.Scheme == "wss" {
		scheme = u.Scheme
	}
	return fmt.Sprintf("%s://%s/ws?pin=%s", scheme, u.Host, url.QueryEscape(pin)), nil
}
