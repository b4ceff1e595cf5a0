package cmd

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/rdt/internal/app"
	"github.com/1ureka/rdt/internal/config"
	"github.com/1ureka/rdt/internal/util"
)

// runInteractive asks for the role and its parameters when rdt is started
// without a subcommand. Protocol and fault flags still apply.
func runInteractive(cmd *cobra.Command, args []string) error {
	role, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Serve - Offer files to a peer", "Fetch - Download a file from a peer"}).
		WithDefaultText("Select your role").
		Show()
	pterm.Println()

	if strings.HasPrefix(role, "Serve") {
		cfg := baseConfig(config.RoleSender)
		if cfg.Transport == config.TransportUDP {
			cfg.Port = askPort("UDP port to listen on (1 ~ 65535)")
		}
		cfg.Root = askText("Directory to serve (empty: open request paths as given)")
		if err := cfg.Validate(); err != nil {
			return err
		}
		return app.RunSender(cmd.Context(), cfg)
	}

	cfg := baseConfig(config.RoleReceiver)
	if cfg.Transport == config.TransportUDP {
		cfg.Host = askText("Sender host")
		cfg.PeerPort = askPort("Sender port (1 ~ 65535)")
	} else {
		cfg.WSURL = askURL()
	}
	cfg.Dest = askText("Destination path (also the requested path)")
	if err := cfg.Validate(); err != nil {
		return err
	}
	return app.RunReceiver(cmd.Context(), cfg)
}

func askText(prompt string) string {
	raw, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText(prompt).
		Show()
	pterm.Println()
	return strings.TrimSpace(raw)
}

// askPort prompts until a valid port number is entered.
func askPort(prompt string) int {
	for {
		port, err := strconv.Atoi(askText(prompt))
		if err == nil && port >= 1 && port <= 65535 {
			return port
		}
		util.LogWarning("invalid port number: must be 1 ~ 65535")
	}
}

// askURL prompts until a usable signaling URL is entered.
func askURL() string {
	for {
		wsURL, err := normalizeWSURL(askText("Signaling URL (e.g. wss://example.devtunnels.ms/ws?pin=1234)"))
		if err == nil {
			return wsURL
		}
		util.LogWarning("%v", err)
	}
}
