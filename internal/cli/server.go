package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yieldprotocol/principald/internal/node"
)

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the principal token daemon",
	Long: `Start principald, which provides:
- HTTP JSON-RPC API for conversions, previews, and redemptions
- WebSocket stream of committed redemption records
- Prometheus metrics endpoint

This is the default command when no subcommand is specified.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	n, err := node.New(cfg, log)
	if err != nil {
		return err
	}

	if !quiet {
		host := cfg.Server.Host
		fmt.Println("Starting principald")
		fmt.Printf("  - HTTP JSON-RPC: http://%s:%d/\n", host, cfg.Server.RPCPort)
		fmt.Printf("  - WebSocket:     ws://%s:%d/ws\n", host, cfg.Server.WSPort)
		fmt.Printf("  - Metrics:       http://%s:%d/metrics\n", host, cfg.Server.MetricsPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return n.Run(ctx)
}
