package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/rdt/internal/config"
	"github.com/1ureka/rdt/internal/faults"
	"github.com/1ureka/rdt/internal/protocol"
	"github.com/1ureka/rdt/internal/util"
)

var version = "dev"

var (
	debugMode     bool
	logLevel      string
	transportName string

	fragmentSize int
	windowSize   int
	timeout      time.Duration

	lossProb    float64
	corruptProb float64
	faultSeed   uint64
	faultOnSend bool
)

var rootCmd = &cobra.Command{
	Use:   "rdt",
	Short: "Reliable whole-file transfer over unreliable datagrams",
	Long: `rdt moves a whole file from a serving peer to a fetching peer over a
lossy, unordered datagram channel, using a byte-addressed sliding window,
cumulative ACKs and go-back-N retransmission.

Use 'rdt serve' on the peer holding the files and 'rdt fetch' on the peer
that wants one. Without a subcommand rdt asks interactively.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			if err := util.SetLogLevel(logLevel); err != nil {
				return err
			}
		}
		if debugMode {
			util.EnableDebug()
		}
		pterm.Info.Println(fmt.Sprintf("rdt v%s", version))
		pterm.Println()
		return nil
	},
	RunE: runInteractive,
}

// Execute runs the command line under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	defaults := protocol.DefaultParams()

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	flags.StringVar(&logLevel, "log-level", "", "Minimum log level: debug, info, warn or error")
	flags.StringVarP(&transportName, "transport", "t", string(config.TransportUDP), "Datagram channel: udp or webrtc")
	flags.IntVar(&fragmentSize, "fragment", defaults.FragmentSize, "Maximum payload bytes per fragment")
	flags.IntVar(&windowSize, "window", defaults.WindowSize, "Send window in bytes")
	flags.DurationVar(&timeout, "timeout", defaults.Timeout, "Retransmission timeout")
	flags.Float64Var(&lossProb, "loss", 0, "Simulated datagram loss probability (0~1)")
	flags.Float64Var(&corruptProb, "corrupt", 0, "Simulated header corruption probability (0~1)")
	flags.Uint64Var(&faultSeed, "seed", 0, "Fault injection seed (0 = random)")
	flags.BoolVar(&faultOnSend, "fault-send", false, "Also inject faults on outgoing datagrams")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// baseConfig builds a configuration for role from the persistent flags.
func baseConfig(role config.Role) config.Config {
	cfg := config.Default()
	cfg.Role = role
	cfg.Transport = config.Transport(transportName)
	cfg.Params = protocol.Params{
		FragmentSize: fragmentSize,
		WindowSize:   windowSize,
		Timeout:      timeout,
	}
	cfg.Faults = faults.Config{
		LossProb:    lossProb,
		CorruptProb: corruptProb,
		Seed:        faultSeed,
		OnSend:      faultOnSend,
	}
	cfg.Debug = debugMode
	return cfg
}
